package monitor

import (
	"sync"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

type snapshotSubscriber struct {
	id int
	ch chan []*types.Session
}

// snapshotHub fans the full sorted session list out to subscribers after
// every event application. Slow subscribers drop intermediate emissions;
// consumers render from the latest emission only.
type snapshotHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*snapshotSubscriber
}

func newSnapshotHub() *snapshotHub {
	return &snapshotHub{subs: make(map[int]*snapshotSubscriber)}
}

func (h *snapshotHub) Add() (<-chan []*types.Session, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan []*types.Session, 8)
	h.subs[id] = &snapshotSubscriber{id: id, ch: ch}
	cancel := func() {
		h.mu.Lock()
		sub, ok := h.subs[id]
		if ok {
			delete(h.subs, id)
		}
		h.mu.Unlock()
		if ok {
			close(sub.ch)
		}
	}
	return ch, cancel
}

func (h *snapshotHub) Broadcast(sessions []*types.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- sessions:
		default:
		}
	}
}
