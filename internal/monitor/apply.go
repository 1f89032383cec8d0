package monitor

import (
	"time"

	"github.com/google/uuid"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

// apply executes one event against the session map. It runs only on the
// coordinator goroutine and always runs to completion before the next event.
func (c *Coordinator) apply(ev types.Event) {
	now := c.clock.Now()
	if e, ok := ev.(types.SessionStarted); ok {
		c.handleSessionStarted(e, now)
		return
	}
	s, ok := c.sessions[ev.SessionID()]
	if !ok {
		// Benign race around session creation or teardown.
		c.logger.Debug("event_for_unknown_session",
			logging.F("session_id", ev.SessionID()),
		)
		return
	}
	s.lastActivityAt = now

	switch e := ev.(type) {
	case types.PromptSubmitted:
		c.handlePromptSubmitted(s, e)
	case types.ToolStarted:
		c.handleToolStarted(s, e, now)
	case types.ToolCompleted:
		c.handleToolCompleted(s, e)
	case types.ApprovalRequested:
		c.handleApprovalRequested(s, e, now)
	case types.ApprovalResolved:
		c.resolveApproval(s, e, now)
	case types.TranscriptChanged:
		c.handleTranscriptChanged(s, e)
	case types.TranscriptParsed:
		c.applyIngest(s, e.Result, e.Full, now)
	case types.Discontinuity:
		c.ingestFull(s.id, pathOr(e.Path, s.transcriptPath))
	case types.HistoryRequested:
		c.ingestFull(s.id, pathOr(e.Path, s.transcriptPath))
	case types.Interrupted:
		c.handleInterrupted(s, now)
	case types.TurnEnded:
		c.handleTurnEnded(s, now)
	case types.CompactionStarted:
		c.setPhase(s, phaseOf(types.PhaseCompacting))
	case types.CompactionEnded:
		c.setPhase(s, phaseOf(types.PhaseProcessing))
	case types.SessionEnded:
		c.handleSessionEnded(s)
	case types.TaskStarted:
		c.handleTaskStarted(s, e, now)
	case types.TaskStopped:
		c.handleTaskStopped(s, e)
	case types.TaskToolStarted:
		c.handleTaskToolStarted(s, e, now)
	case types.TaskToolCompleted:
		c.handleTaskToolCompleted(s, e)
	default:
		c.logger.Warn("unhandled_event_kind",
			logging.F("session_id", ev.SessionID()),
		)
	}
}

func pathOr(path, fallback string) string {
	if path != "" {
		return path
	}
	return fallback
}

func (c *Coordinator) handleSessionStarted(e types.SessionStarted, now time.Time) {
	s, ok := c.sessions[e.SessionID()]
	if !ok {
		s = newSessionState(e.SessionID(), e.Cwd, now)
		c.sessions[e.SessionID()] = s
		c.logger.Info("session_tracked",
			logging.F("session_id", e.SessionID()),
			logging.F("cwd", e.Cwd),
		)
	}
	s.lastActivityAt = now
	if e.Cwd != "" {
		s.cwd = e.Cwd
		s.projectName = projectNameFor(e.Cwd)
	}
	if e.Branch != "" {
		s.branch = e.Branch
	}
	if e.PID != 0 {
		s.pid = e.PID
	}
	if e.Terminal != "" {
		s.terminal = e.Terminal
	}
	if e.TranscriptPath != "" {
		s.transcriptPath = e.TranscriptPath
	}
}

func (c *Coordinator) handlePromptSubmitted(s *sessionState, e types.PromptSubmitted) {
	s.lastRole = "user"
	s.thinking = false
	c.setPhase(s, phaseOf(types.PhaseProcessing))
}

func (c *Coordinator) handleToolStarted(s *sessionState, e types.ToolStarted, now time.Time) {
	at := e.At
	if at.IsZero() {
		at = now
	}
	if e.ParentToolID != "" {
		ctx := s.subagents.AddTool(e.ParentToolID, types.SubagentToolCall{
			ToolID:    e.ToolID,
			Name:      e.ToolName,
			Input:     e.Input,
			Status:    types.ToolStatusRunning,
			StartedAt: at,
		})
		c.syncSubagentItem(s, ctx, now)
		c.setPhase(s, phaseOf(types.PhaseProcessing))
		return
	}
	if !s.tools.Start(e.ToolID, e.ToolName, at) {
		// Duplicate delivery of the same start signal.
		return
	}
	item := s.byID[e.ToolID]
	if item == nil {
		s.insertItem(&types.ChatItem{
			ID:        e.ToolID,
			Kind:      types.ChatItemTool,
			Timestamp: at,
			ToolName:  e.ToolName,
			Input:     e.Input,
			Status:    types.ToolStatusRunning,
		}, now)
	} else if item.Status != types.ToolStatusWaitingForApproval {
		item.Status = types.ToolStatusRunning
	}
	if e.ToolName == "TodoWrite" {
		if todo := extractActiveTodo(e.Input); todo != "" {
			s.activeTodo = todo
		}
	}
	c.setPhase(s, phaseOf(types.PhaseProcessing))
}

func (c *Coordinator) handleToolCompleted(s *sessionState, e types.ToolCompleted) {
	s.tools.Complete(e.ToolID)
	if ctx := s.subagents.CompleteTool(e.ToolID, e.IsError); ctx != nil {
		c.syncSubagentItem(s, ctx, c.clock.Now())
	}
	if item := s.byID[e.ToolID]; item != nil && item.Kind == types.ChatItemTool {
		if item.Status == types.ToolStatusRunning || item.Status == types.ToolStatusWaitingForApproval {
			if e.IsError {
				item.Status = types.ToolStatusError
			} else {
				item.Status = types.ToolStatusSuccess
			}
		}
		if e.Result != "" {
			item.Result = e.Result
		}
	}
	// A completed tool with an open approval request means the request was
	// settled out of band; promote whatever is still pending.
	if _, open := s.openApprovals[e.ToolID]; open {
		delete(s.openApprovals, e.ToolID)
		if s.phase.Approval != nil && s.phase.Approval.ToolID == e.ToolID {
			c.promoteNextApproval(s, e.ToolID, types.ApprovalGranted)
		}
	}
	c.applyInference(s)
}

func (c *Coordinator) handleTranscriptChanged(s *sessionState, e types.TranscriptChanged) {
	if e.Path != "" {
		s.transcriptPath = e.Path
	}
	if s.transcriptPath == "" {
		return
	}
	c.debounce.Arm(s.id, s.transcriptPath)
}

func (c *Coordinator) handleInterrupted(s *sessionState, now time.Time) {
	s.insertItem(&types.ChatItem{
		ID:        "interrupt-" + uuid.NewString(),
		Kind:      types.ChatItemInterrupted,
		Timestamp: now,
	}, now)
	for _, item := range s.items {
		if item.IsRunningTool() || item.IsPendingApproval() {
			item.Status = types.ToolStatusInterrupted
		}
	}
	s.tools.DrainInProgress()
	s.subagents.StopAll()
	s.openApprovals = make(map[string]time.Time)
	s.thinking = false
	s.lastRole = "user"
	c.setPhase(s, phaseOf(types.PhaseWaitingForInput))
}

func (c *Coordinator) handleTurnEnded(s *sessionState, now time.Time) {
	s.activeTodo = ""
	s.thinking = false
	if s.turnEndedAt == nil {
		s.turnEndedAt = &now
	}
	c.setPhase(s, phaseOf(types.PhaseWaitingForInput))
}

func (c *Coordinator) handleSessionEnded(s *sessionState) {
	c.debounce.Cancel(s.id)
	if c.ingestor != nil {
		c.ingestor.ClearSessionCache(s.id, s.transcriptPath)
	}
	delete(c.sessions, s.id)
	c.logger.Info("session_untracked", logging.F("session_id", s.id))
}

func (c *Coordinator) handleTaskStarted(s *sessionState, e types.TaskStarted, now time.Time) {
	at := e.At
	if at.IsZero() {
		at = now
	}
	ctx := s.subagents.StartTask(e.TaskID, e.AgentID, e.Description, e.AgentType, at)
	c.syncSubagentItem(s, ctx, now)
	c.setPhase(s, phaseOf(types.PhaseProcessing))
}

func (c *Coordinator) handleTaskStopped(s *sessionState, e types.TaskStopped) {
	id := e.TaskID
	if id == "" {
		id = e.AgentID
	}
	if ctx := s.subagents.StopTask(id); ctx != nil {
		c.syncSubagentItem(s, ctx, c.clock.Now())
	}
	c.applyInference(s)
}

func (c *Coordinator) handleTaskToolStarted(s *sessionState, e types.TaskToolStarted, now time.Time) {
	at := e.At
	if at.IsZero() {
		at = now
	}
	ctx := s.subagents.AddTool(e.TaskID, types.SubagentToolCall{
		ToolID:    e.ToolID,
		Name:      e.ToolName,
		Input:     e.Input,
		Status:    types.ToolStatusRunning,
		StartedAt: at,
	})
	c.syncSubagentItem(s, ctx, now)
}

func (c *Coordinator) handleTaskToolCompleted(s *sessionState, e types.TaskToolCompleted) {
	if ctx := s.subagents.CompleteTool(e.ToolID, e.IsError); ctx != nil {
		c.syncSubagentItem(s, ctx, c.clock.Now())
	}
	c.applyInference(s)
}

// syncSubagentItem mirrors a task context onto its delegating tool item so
// snapshots expose nested calls under the Task tool's chat item.
func (c *Coordinator) syncSubagentItem(s *sessionState, ctx *taskContext, now time.Time) {
	if ctx == nil {
		return
	}
	item := s.byID[ctx.TaskID]
	if item == nil {
		item = s.insertItem(&types.ChatItem{
			ID:        ctx.TaskID,
			Kind:      types.ChatItemTool,
			Timestamp: ctx.StartedAt,
			ToolName:  "Task",
			Input:     ctx.Description,
			Status:    types.ToolStatusRunning,
		}, now)
	}
	if item == nil {
		return
	}
	item.Subagent = append([]types.SubagentToolCall{}, ctx.Tools...)
}
