package transcript

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lineUser      = `{"type":"user","uuid":"u1","timestamp":"2026-03-01T12:00:00Z","message":{"role":"user","content":"hello"}}` + "\n"
	lineAssistant = `{"type":"assistant","uuid":"a1","timestamp":"2026-03-01T12:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}` + "\n"
	lineFollowUp  = `{"type":"user","uuid":"u2","timestamp":"2026-03-01T12:00:02Z","message":{"role":"user","content":"and then"}}` + "\n"
)

func writeTranscript(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func appendTranscript(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func TestParseIncrementalResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1.jsonl")
	writeTranscript(t, path, lineUser+lineAssistant)
	p := NewParser(nil, nil)

	result, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 2)
	assert.False(t, result.Discontinuity)

	appendTranscript(t, path, lineFollowUp)
	result, err = p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 1)
	assert.Equal(t, "u2", result.NewMessages[0].ID)

	// Nothing new: empty result.
	result, err = p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

// Full and incremental parses for one session arrive from different
// goroutines (history loads versus debounced change signals); interleaving
// them must leave a coherent cursor. Run with the race detector enabled.
func TestConcurrentFullAndIncrementalParsesKeepCursorCoherent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1.jsonl")
	writeTranscript(t, path, lineUser+lineAssistant+lineFollowUp)
	p := NewParser(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := p.ParseFull(context.Background(), "s1", path)
				assert.NoError(t, err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := p.ParseIncremental(context.Background(), "s1", path)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	// Every parse consumed whole lines, so the settled offset is the file
	// size and the next incremental pass sees nothing new.
	info, err := os.Stat(path)
	require.NoError(t, err)
	cur := p.cursorFor("s1", path)
	assert.Equal(t, info.Size(), cur.offset)

	result, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.False(t, result.Discontinuity)
}

func TestPartialLineIsLeftForTheNextPass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1.jsonl")
	writeTranscript(t, path, lineUser)
	p := NewParser(nil, nil)

	result, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 1)

	// The writer is midway through the next line.
	half := lineAssistant[:40]
	appendTranscript(t, path, half)
	result, err = p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	assert.Empty(t, result.NewMessages)

	appendTranscript(t, path, lineAssistant[40:])
	result, err = p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 1)
	assert.Equal(t, "a1", result.NewMessages[0].ID)
}

func TestFileShrinkReportsDiscontinuity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1.jsonl")
	writeTranscript(t, path, lineUser+lineAssistant)
	p := NewParser(nil, nil)

	_, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)

	// The log was replaced by a shorter one.
	writeTranscript(t, path, lineFollowUp)
	result, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	assert.True(t, result.Discontinuity)
	require.Len(t, result.NewMessages, 1)
	assert.Equal(t, "u2", result.NewMessages[0].ID)
	assert.Contains(t, result.AllMessageIDs, "u2")
	assert.NotContains(t, result.AllMessageIDs, "u1")
}

func TestMissingFileYieldsEmptyResult(t *testing.T) {
	p := NewParser(nil, nil)
	result, err := p.ParseIncremental(context.Background(), "s1", filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestParseFullAlwaysCoversWholeLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1.jsonl")
	writeTranscript(t, path, lineUser+lineAssistant)
	p := NewParser(nil, nil)

	_, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)

	result, err := p.ParseFull(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 2)
	assert.Contains(t, result.AllMessageIDs, "u1")
	assert.Contains(t, result.AllMessageIDs, "a1")

	// The full pass moved the cursor to the end; incremental resumes there.
	appendTranscript(t, path, lineFollowUp)
	incr, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, incr.NewMessages, 1)
	assert.Equal(t, "u2", incr.NewMessages[0].ID)
}

func TestOffsetsPersistAcrossParsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.jsonl")
	writeTranscript(t, path, lineUser+lineAssistant)

	store, err := OpenOffsetStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer store.Close()

	p1 := NewParser(nil, store)
	result, err := p1.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 2)

	// A restarted parser resumes from the persisted offset.
	appendTranscript(t, path, lineFollowUp)
	p2 := NewParser(nil, store)
	result, err = p2.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 1)
	assert.Equal(t, "u2", result.NewMessages[0].ID)
}

func TestClearSessionCacheStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.jsonl")
	writeTranscript(t, path, lineUser)

	store, err := OpenOffsetStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer store.Close()

	p := NewParser(nil, store)
	_, err = p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)

	p.ClearSessionCache("s1", path)
	record, found, err := store.Get("s1")
	require.NoError(t, err)
	assert.False(t, found, "offset record survived cache clear: %+v", record)

	result, err := p.ParseIncremental(context.Background(), "s1", path)
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 1)
	assert.False(t, result.Discontinuity, "a cleared cursor re-reads without flagging discontinuity")
}

func TestOffsetStoreRoundTrip(t *testing.T) {
	store, err := OpenOffsetStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put("s1", "/tmp/s1.jsonl", 1234))
	record, found, err := store.Get("s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, OffsetRecord{Path: "/tmp/s1.jsonl", Offset: 1234}, record)

	require.NoError(t, store.Delete("s1"))
	_, found, err = store.Get("s1")
	require.NoError(t, err)
	assert.False(t, found)
}
