package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/monitor"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

// Watcher tails the transcript root for per-session JSONL growth and turns
// file change notifications into TranscriptChanged events. The root holds
// one subdirectory per project, each containing <session-id>.jsonl files;
// project directories created after startup are picked up on the fly.
type Watcher struct {
	root        string
	logger      logging.Logger
	coordinator *monitor.Coordinator
}

func New(root string, coordinator *monitor.Coordinator, logger logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		root:        root,
		logger:      logger,
		coordinator: coordinator,
	}
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.root); err != nil {
		return err
	}
	w.addExistingDirs(fsw)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", logging.F("error", err))
		}
	}
}

func (w *Watcher) addExistingDirs(fsw *fsnotify.Watcher) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Warn("watch_root_unreadable",
			logging.F("root", w.root),
			logging.F("error", err),
		)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(w.root, entry.Name())
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("watch_dir_failed",
				logging.F("dir", dir),
				logging.F("error", err),
			)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fsw.Add(event.Name); err != nil {
				w.logger.Warn("watch_dir_failed",
					logging.F("dir", event.Name),
					logging.F("error", err),
				)
			}
			return
		}
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}
	sessionID, ok := sessionIDForPath(event.Name)
	if !ok {
		return
	}
	err := w.coordinator.Submit(ctx, types.TranscriptChanged{
		EventBase: types.EventBase{Session: sessionID},
		Path:      event.Name,
	})
	if err != nil {
		w.logger.Debug("transcript_change_dropped",
			logging.F("session_id", sessionID),
			logging.F("error", err),
		)
	}
}

// sessionIDForPath maps a transcript file path back to its session id. The
// agent names each log <session-id>.jsonl inside a per-project directory.
func sessionIDForPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".jsonl") {
		return "", false
	}
	id := strings.TrimSuffix(base, ".jsonl")
	if id == "" {
		return "", false
	}
	return id, true
}
