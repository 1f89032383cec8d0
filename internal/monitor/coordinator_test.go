package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

type stubIngestor struct {
	mu               sync.Mutex
	incrementalCalls int
	fullCalls        int
	result           *types.IngestResult
}

func (s *stubIngestor) ParseIncremental(ctx context.Context, sessionID, path string) (*types.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incrementalCalls++
	if s.result != nil {
		return s.result, nil
	}
	return &types.IngestResult{}, nil
}

func (s *stubIngestor) ParseFull(ctx context.Context, sessionID, path string) (*types.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullCalls++
	if s.result != nil {
		return s.result, nil
	}
	return &types.IngestResult{AllMessageIDs: map[string]struct{}{}}, nil
}

func (s *stubIngestor) ClearSessionCache(sessionID, path string) {}

func (s *stubIngestor) calls() (incremental, full int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrementalCalls, s.fullCalls
}

func newTestCoordinator(t *testing.T) (*Coordinator, *clock.Mock, *stubIngestor) {
	t.Helper()
	mock := clock.NewMock()
	ingestor := &stubIngestor{}
	c := New(Options{
		Ingestor: ingestor,
		Clock:    mock,
	})
	return c, mock, ingestor
}

func base(sessionID string) types.EventBase {
	return types.EventBase{Session: sessionID}
}

func startSession(c *Coordinator, id string) *sessionState {
	c.apply(types.SessionStarted{EventBase: base(id), Cwd: "/work/" + id})
	return c.sessions[id]
}

func assistantText(id, text string, ts time.Time) types.TranscriptMessage {
	return types.TranscriptMessage{
		ID:        id,
		Role:      "assistant",
		Timestamp: ts,
		Blocks:    []types.ContentBlock{{Kind: types.BlockText, Text: text}},
	}
}

func TestPromptMovesSessionToProcessing(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	s := startSession(c, "s1")
	if !s.phase.Is(types.PhaseIdle) {
		t.Fatalf("new session phase = %s, want idle", s.phase.Kind)
	}

	c.apply(types.PromptSubmitted{EventBase: base("s1"), Prompt: "do the thing"})
	if !s.phase.Is(types.PhaseProcessing) {
		t.Fatalf("phase = %s, want processing", s.phase.Kind)
	}
	if s.turnStartedAt == nil {
		t.Fatal("turnStartedAt not set on fresh turn")
	}
}

func TestEventForUnknownSessionIsIgnored(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.apply(types.PromptSubmitted{EventBase: base("ghost")})
	if len(c.sessions) != 0 {
		t.Fatalf("sessions = %d, want 0", len(c.sessions))
	}
}

func TestTurnStateSurvivesApprovalRoundTrip(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	s := startSession(c, "s1")
	c.apply(types.PromptSubmitted{EventBase: base("s1")})
	s.turnTokens = types.TokenUsage{Input: 100, Output: 50}
	startedAt := s.turnStartedAt

	c.apply(types.ApprovalRequested{EventBase: base("s1"), ToolID: "t1", ToolName: "Bash"})
	if !s.phase.Is(types.PhaseWaitingForApproval) {
		t.Fatalf("phase = %s, want waiting_for_approval", s.phase.Kind)
	}
	c.apply(types.ApprovalResolved{EventBase: base("s1"), ToolID: "t1", Decision: types.ApprovalGranted})
	if !s.phase.Is(types.PhaseProcessing) {
		t.Fatalf("phase = %s, want processing", s.phase.Kind)
	}
	if s.turnTokens.Input != 100 || s.turnTokens.Output != 50 {
		t.Fatalf("turn tokens cleared on in-turn transition: %+v", s.turnTokens)
	}
	if s.turnStartedAt != startedAt {
		t.Fatal("turnStartedAt replaced on in-turn transition")
	}
}

func TestFreshTurnClearsAccumulatedState(t *testing.T) {
	c, mock, _ := newTestCoordinator(t)
	s := startSession(c, "s1")
	c.apply(types.PromptSubmitted{EventBase: base("s1")})
	s.turnTokens = types.TokenUsage{Input: 10}
	s.lastThinking = "old thought"
	c.apply(types.TurnEnded{EventBase: base("s1")})
	if !s.phase.Is(types.PhaseWaitingForInput) {
		t.Fatalf("phase = %s, want waiting_for_input", s.phase.Kind)
	}
	if s.turnEndedAt == nil {
		t.Fatal("turnEndedAt not latched")
	}

	mock.Add(time.Second)
	c.apply(types.PromptSubmitted{EventBase: base("s1")})
	if !s.turnTokens.IsZero() {
		t.Fatalf("turn tokens not cleared on fresh turn: %+v", s.turnTokens)
	}
	if s.lastThinking != "" {
		t.Fatalf("last thinking not cleared: %q", s.lastThinking)
	}
	if s.turnEndedAt != nil {
		t.Fatal("turnEndedAt not cleared on fresh turn")
	}
}

func TestSnapshotSortedByActivityAndIsolated(t *testing.T) {
	c, mock, _ := newTestCoordinator(t)
	startSession(c, "older")
	mock.Add(time.Minute)
	startSession(c, "newer")
	c.publish()

	snapshot := c.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snapshot))
	}
	if snapshot[0].ID != "newer" || snapshot[1].ID != "older" {
		t.Fatalf("snapshot order = [%s %s], want [newer older]", snapshot[0].ID, snapshot[1].ID)
	}

	snapshot[0].Phase.Kind = types.PhaseEnded
	if c.sessions["newer"].phase.Is(types.PhaseEnded) {
		t.Fatal("mutating a snapshot leaked into coordinator state")
	}
}

func TestInterruptDrainsInFlightWork(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	s := startSession(c, "s1")
	c.apply(types.PromptSubmitted{EventBase: base("s1")})
	c.apply(types.ToolStarted{EventBase: base("s1"), ToolID: "t1", ToolName: "Bash"})
	c.apply(types.ApprovalRequested{EventBase: base("s1"), ToolID: "t2", ToolName: "Write"})

	c.apply(types.Interrupted{EventBase: base("s1")})
	if !s.phase.Is(types.PhaseWaitingForInput) {
		t.Fatalf("phase = %s, want waiting_for_input", s.phase.Kind)
	}
	if got := s.tools.InProgressCount(); got != 0 {
		t.Fatalf("in-progress tools after interrupt = %d, want 0", got)
	}
	if len(s.openApprovals) != 0 {
		t.Fatalf("open approvals after interrupt = %d, want 0", len(s.openApprovals))
	}
	for _, id := range []string{"t1", "t2"} {
		if got := s.byID[id].Status; got != types.ToolStatusInterrupted {
			t.Fatalf("item %s status = %s, want interrupted", id, got)
		}
	}
	marker := s.lastItem()
	if marker == nil || marker.Kind != types.ChatItemInterrupted {
		t.Fatal("interrupt marker item missing")
	}
}

func TestSessionEndCancelsDebounceAndForgets(t *testing.T) {
	c, mock, ingestor := newTestCoordinator(t)
	startSession(c, "s1")
	c.apply(types.TranscriptChanged{EventBase: base("s1"), Path: "/tmp/s1.jsonl"})
	c.apply(types.SessionEnded{EventBase: base("s1")})
	if _, ok := c.sessions["s1"]; ok {
		t.Fatal("session still tracked after end")
	}

	mock.Add(DefaultDebounceWindow * 2)
	if incremental, _ := ingestor.calls(); incremental != 0 {
		t.Fatalf("debounced ingest fired after session end: %d calls", incremental)
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	c, mock, ingestor := newTestCoordinator(t)
	startSession(c, "s1")

	for i := 0; i < 5; i++ {
		c.apply(types.TranscriptChanged{EventBase: base("s1"), Path: "/tmp/s1.jsonl"})
		mock.Add(DefaultDebounceWindow / 4)
	}
	if incremental, _ := ingestor.calls(); incremental != 0 {
		t.Fatalf("timer fired mid-burst: %d calls", incremental)
	}
	mock.Add(DefaultDebounceWindow)
	if incremental, _ := ingestor.calls(); incremental != 1 {
		t.Fatalf("ingest calls = %d, want exactly 1", incremental)
	}
}

func TestDebounceIsPerSession(t *testing.T) {
	c, mock, ingestor := newTestCoordinator(t)
	startSession(c, "s1")
	startSession(c, "s2")

	c.apply(types.TranscriptChanged{EventBase: base("s1"), Path: "/tmp/s1.jsonl"})
	c.apply(types.TranscriptChanged{EventBase: base("s2"), Path: "/tmp/s2.jsonl"})
	c.apply(types.SessionEnded{EventBase: base("s1")})

	mock.Add(DefaultDebounceWindow * 2)
	if incremental, _ := ingestor.calls(); incremental != 1 {
		t.Fatalf("ingest calls = %d, want 1 (s2 only)", incremental)
	}
}

func TestCompactionRoundTrip(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	s := startSession(c, "s1")
	c.apply(types.PromptSubmitted{EventBase: base("s1")})
	s.turnTokens = types.TokenUsage{Input: 42}

	c.apply(types.CompactionStarted{EventBase: base("s1")})
	if !s.phase.Is(types.PhaseCompacting) {
		t.Fatalf("phase = %s, want compacting", s.phase.Kind)
	}
	c.apply(types.CompactionEnded{EventBase: base("s1")})
	if !s.phase.Is(types.PhaseProcessing) {
		t.Fatalf("phase = %s, want processing", s.phase.Kind)
	}
	if s.turnTokens.Input != 42 {
		t.Fatal("compaction round trip cleared turn tokens")
	}
}

func TestRunAppliesSubmittedEvents(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	sub, unsubscribe := c.Subscribe()
	defer unsubscribe()
	if err := c.Submit(ctx, types.SessionStarted{EventBase: base("s1"), Cwd: "/work/p"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case snapshot := <-sub:
		if len(snapshot) != 1 || snapshot[0].ID != "s1" {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}
	if err := c.Submit(context.Background(), types.TurnEnded{EventBase: base("s1")}); err != ErrCoordinatorClosed {
		t.Fatalf("Submit after close = %v, want ErrCoordinatorClosed", err)
	}
}
