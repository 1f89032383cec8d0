package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/monitor"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

func TestSessionIDForPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		want   string
		wantOK bool
	}{
		{
			name:   "session transcript",
			path:   "/root/.claude/projects/-home-dev-island/b2c4a1.jsonl",
			want:   "b2c4a1",
			wantOK: true,
		},
		{
			name: "non transcript file",
			path: "/root/.claude/projects/-home-dev-island/notes.txt",
		},
		{
			name: "suffix only",
			path: "/root/.claude/projects/-home-dev-island/.jsonl",
		},
		{
			name:   "bare filename",
			path:   "abc.jsonl",
			want:   "abc",
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sessionIDForPath(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("id = %q, want %q", got, tt.want)
			}
		})
	}
}

type countingIngestor struct {
	mu    sync.Mutex
	calls int
}

func (c *countingIngestor) ParseIncremental(ctx context.Context, sessionID, path string) (*types.IngestResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &types.IngestResult{}, nil
}

func (c *countingIngestor) ParseFull(ctx context.Context, sessionID, path string) (*types.IngestResult, error) {
	return &types.IngestResult{}, nil
}

func (c *countingIngestor) ClearSessionCache(sessionID, path string) {}

func (c *countingIngestor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWatcherFeedsTranscriptGrowthToCoordinator(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "-home-dev-island")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}

	ingestor := &countingIngestor{}
	coordinator := monitor.New(monitor.Options{
		Ingestor:       ingestor,
		DebounceWindow: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = coordinator.Run(ctx) }()

	transcriptPath := filepath.Join(projectDir, "sess-w1.jsonl")
	err := coordinator.Submit(ctx, types.SessionStarted{
		EventBase:      types.EventBase{Session: "sess-w1"},
		Cwd:            "/home/dev/island",
		TranscriptPath: transcriptPath,
	})
	if err != nil {
		t.Fatal(err)
	}

	watcher := New(root, coordinator, nil)
	go func() { _ = watcher.Run(ctx) }()
	// Give the watcher a moment to register the project directory.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(transcriptPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ingestor.count() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("transcript write never reached the ingestor")
}

func TestWatcherPicksUpNewProjectDirs(t *testing.T) {
	root := t.TempDir()

	ingestor := &countingIngestor{}
	coordinator := monitor.New(monitor.Options{
		Ingestor:       ingestor,
		DebounceWindow: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = coordinator.Run(ctx) }()

	projectDir := filepath.Join(root, "-home-dev-late")
	transcriptPath := filepath.Join(projectDir, "sess-w2.jsonl")
	err := coordinator.Submit(ctx, types.SessionStarted{
		EventBase:      types.EventBase{Session: "sess-w2"},
		Cwd:            "/home/dev/late",
		TranscriptPath: transcriptPath,
	})
	if err != nil {
		t.Fatal(err)
	}

	watcher := New(root, coordinator, nil)
	go func() { _ = watcher.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// The project directory appears only after the watcher is running.
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(transcriptPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ingestor.count() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("transcript in late project dir never reached the ingestor")
}
