package monitor

import (
	"time"
)

type toolExecution struct {
	ID        string
	Name      string
	StartedAt time.Time
}

// toolTracker keeps per-session tool invocation bookkeeping. The seen set is
// monotonic and exists only to absorb duplicate start signals; completion
// removes an id from inProgress but never from seen.
type toolTracker struct {
	inProgress map[string]*toolExecution
	seen       map[string]struct{}
}

func newToolTracker() *toolTracker {
	return &toolTracker{
		inProgress: make(map[string]*toolExecution),
		seen:       make(map[string]struct{}),
	}
}

// Start records a tool invocation beginning. It reports false when the id
// was already seen, in which case the call is a no-op.
func (t *toolTracker) Start(id, name string, at time.Time) bool {
	if t == nil || id == "" {
		return false
	}
	if _, dup := t.seen[id]; dup {
		return false
	}
	t.seen[id] = struct{}{}
	t.inProgress[id] = &toolExecution{ID: id, Name: name, StartedAt: at}
	return true
}

func (t *toolTracker) Complete(id string) bool {
	if t == nil {
		return false
	}
	if _, ok := t.inProgress[id]; !ok {
		return false
	}
	delete(t.inProgress, id)
	return true
}

func (t *toolTracker) Seen(id string) bool {
	if t == nil {
		return false
	}
	_, ok := t.seen[id]
	return ok
}

func (t *toolTracker) InProgressCount() int {
	if t == nil {
		return 0
	}
	return len(t.inProgress)
}

// DrainInProgress empties the in-progress map, returning the drained ids.
// Seen ids stay recorded.
func (t *toolTracker) DrainInProgress() []string {
	if t == nil || len(t.inProgress) == 0 {
		return nil
	}
	ids := make([]string, 0, len(t.inProgress))
	for id := range t.inProgress {
		ids = append(ids, id)
		delete(t.inProgress, id)
	}
	return ids
}

// Reset drops all bookkeeping. Used after a transcript discontinuity, when
// previously seen ids are no longer meaningful for dedup.
func (t *toolTracker) Reset() {
	if t == nil {
		return
	}
	t.inProgress = make(map[string]*toolExecution)
	t.seen = make(map[string]struct{})
}
