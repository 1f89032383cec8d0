package monitor

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultDebounceWindow = 100 * time.Millisecond

// debouncer coalesces bursts of transcript-change signals into a single
// ingestion call per quiet period. Arming replaces and cancels the previous
// timer for the session; cancelling one session's timer never affects
// another's. This sheds redundant parse work only; the ingestion call itself
// resumes from a stored offset, so a coalesced burst never loses data.
type debouncer struct {
	clock  clock.Clock
	window time.Duration
	fire   func(sessionID, path string)

	mu     sync.Mutex
	timers map[string]*clock.Timer
}

func newDebouncer(clk clock.Clock, window time.Duration, fire func(sessionID, path string)) *debouncer {
	if clk == nil {
		clk = clock.New()
	}
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &debouncer{
		clock:  clk,
		window: window,
		fire:   fire,
		timers: make(map[string]*clock.Timer),
	}
}

func (d *debouncer) Arm(sessionID, path string) {
	if d == nil || sessionID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.timers[sessionID]; ok {
		timer.Stop()
	}
	d.timers[sessionID] = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, sessionID)
		d.mu.Unlock()
		if d.fire != nil {
			d.fire(sessionID, path)
		}
	})
}

func (d *debouncer) Cancel(sessionID string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.timers[sessionID]; ok {
		timer.Stop()
		delete(d.timers, sessionID)
	}
}

func (d *debouncer) CancelAll() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
}
