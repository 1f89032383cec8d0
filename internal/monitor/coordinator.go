package monitor

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

const (
	DefaultGraceWindow   = 2 * time.Second
	defaultIngestTimeout = 10 * time.Second
	defaultEventBuffer   = 256
)

var ErrCoordinatorClosed = errors.New("coordinator closed")

// TranscriptIngestor is the transcript-ingestion collaborator boundary. An
// implementation must be resumable from a prior offset and must flag a
// discontinuity when the log was truncated or reset.
type TranscriptIngestor interface {
	ParseIncremental(ctx context.Context, sessionID, path string) (*types.IngestResult, error)
	ParseFull(ctx context.Context, sessionID, path string) (*types.IngestResult, error)
	ClearSessionCache(sessionID, path string)
}

// Focuser is the optional window/focus capability. Failures are non-fatal
// and silently reported false.
type Focuser interface {
	FocusPID(pid int) bool
	FocusDir(cwd string) bool
}

type Options struct {
	Logger         logging.Logger
	Ingestor       TranscriptIngestor
	Clock          clock.Clock
	DebounceWindow time.Duration
	GraceWindow    time.Duration
	IngestTimeout  time.Duration
}

// Coordinator is the single-writer reducer owning all session state. Every
// external signal enters through Submit, is applied atomically against the
// session map by the run loop, and results in a fresh snapshot publication.
// No other component ever holds a mutable reference to a session.
type Coordinator struct {
	logger        logging.Logger
	ingestor      TranscriptIngestor
	clock         clock.Clock
	graceWindow   time.Duration
	ingestTimeout time.Duration

	events   chan types.Event
	sessions map[string]*sessionState
	debounce *debouncer
	hub      *snapshotHub
	latest   atomic.Value // []*types.Session
	done     chan struct{}
}

func New(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	graceWindow := opts.GraceWindow
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	ingestTimeout := opts.IngestTimeout
	if ingestTimeout <= 0 {
		ingestTimeout = defaultIngestTimeout
	}
	c := &Coordinator{
		logger:        logger,
		ingestor:      opts.Ingestor,
		clock:         clk,
		graceWindow:   graceWindow,
		ingestTimeout: ingestTimeout,
		events:        make(chan types.Event, defaultEventBuffer),
		sessions:      make(map[string]*sessionState),
		hub:           newSnapshotHub(),
		done:          make(chan struct{}),
	}
	c.debounce = newDebouncer(clk, opts.DebounceWindow, c.ingestIncremental)
	c.latest.Store([]*types.Session{})
	return c
}

// Run processes events one at a time to completion until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.debounce.CancelAll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.apply(ev)
			c.publish()
		}
	}
}

// Submit queues one event for application. It blocks only while the event
// buffer is full, and never past ctx.
func (c *Coordinator) Submit(ctx context.Context, ev types.Event) error {
	if ev == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-c.done:
		return ErrCoordinatorClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a push stream of full session snapshots plus a cancel
// func. Each emission is complete and sorted; there is no diffing contract.
func (c *Coordinator) Subscribe() (<-chan []*types.Session, func()) {
	return c.hub.Add()
}

// Snapshot returns the most recently published session list.
func (c *Coordinator) Snapshot() []*types.Session {
	snapshot, _ := c.latest.Load().([]*types.Session)
	return snapshot
}

// Approve resolves an outstanding approval request in the operator's favor.
func (c *Coordinator) Approve(ctx context.Context, sessionID, toolID string) error {
	return c.Submit(ctx, types.ApprovalResolved{
		EventBase: types.EventBase{Session: sessionID},
		ToolID:    toolID,
		Decision:  types.ApprovalGranted,
	})
}

// Deny resolves an outstanding approval request against the tool.
func (c *Coordinator) Deny(ctx context.Context, sessionID, toolID, reason string) error {
	return c.Submit(ctx, types.ApprovalResolved{
		EventBase: types.EventBase{Session: sessionID},
		ToolID:    toolID,
		Decision:  types.ApprovalDenied,
		Reason:    reason,
	})
}

func (c *Coordinator) publish() {
	sessions := make([]*types.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s.snapshot())
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].LastActivityAt.Equal(sessions[j].LastActivityAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	c.latest.Store(sessions)
	c.hub.Broadcast(sessions)
}

// setPhase validates and executes one transition. An illegal transition is a
// recoverable condition: it is logged and the prior phase retained.
func (c *Coordinator) setPhase(s *sessionState, to types.Phase) bool {
	from := s.phase
	if !transitionAllowed(from.Kind, to.Kind) {
		c.logger.Debug("phase_transition_rejected",
			logging.F("session_id", s.id),
			logging.F("from", string(from.Kind)),
			logging.F("to", string(to.Kind)),
		)
		return false
	}
	if to.Kind == types.PhaseProcessing &&
		(from.Kind == types.PhaseIdle || from.Kind == types.PhaseWaitingForInput) {
		// A fresh turn begins. Re-entering Processing mid-turn, from an
		// approval wait or compaction, must not wipe accumulated turn state.
		now := c.clock.Now()
		s.turnTokens = types.TokenUsage{}
		s.thinking = false
		s.lastThinking = ""
		s.lastTextOutput = ""
		s.turnStartedAt = &now
		s.turnEndedAt = nil
	}
	s.phase = to
	return true
}

// applyInference self-heals the phase when turn completion is observable
// from raw signals but no explicit terminal signal arrived, and latches the
// turn-end timestamp exactly once per turn.
func (c *Coordinator) applyInference(s *sessionState) {
	complete := s.turnLooksComplete()
	if complete && s.phase.Is(types.PhaseProcessing) {
		c.setPhase(s, phaseOf(types.PhaseWaitingForInput))
	}
	if complete && s.phase.Is(types.PhaseWaitingForInput) && s.turnEndedAt == nil {
		now := c.clock.Now()
		s.turnEndedAt = &now
	}
}

// ingestIncremental runs in the debounce timer goroutine. It performs the
// parse outside the apply path and re-enters the coordinator with a derived
// event only when the parse yielded something.
func (c *Coordinator) ingestIncremental(sessionID, path string) {
	if c.ingestor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.ingestTimeout)
	defer cancel()
	result, err := c.ingestor.ParseIncremental(ctx, sessionID, path)
	if err != nil {
		c.logger.Warn("transcript_parse_failed",
			logging.F("session_id", sessionID),
			logging.F("path", path),
			logging.F("error", err),
		)
		return
	}
	if result.Empty() {
		return
	}
	_ = c.Submit(ctx, types.TranscriptParsed{
		EventBase: types.EventBase{Session: sessionID},
		Result:    result,
	})
}

// ingestFull is spawned for history loads and detected discontinuities.
func (c *Coordinator) ingestFull(sessionID, path string) {
	if c.ingestor == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.ingestTimeout)
		defer cancel()
		result, err := c.ingestor.ParseFull(ctx, sessionID, path)
		if err != nil {
			c.logger.Warn("transcript_full_parse_failed",
				logging.F("session_id", sessionID),
				logging.F("path", path),
				logging.F("error", err),
			)
			return
		}
		if result == nil {
			return
		}
		_ = c.Submit(ctx, types.TranscriptParsed{
			EventBase: types.EventBase{Session: sessionID},
			Result:    result,
			Full:      true,
		})
	}()
}
