package monitor

import (
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

// taskContext is one delegated sub-conversation, keyed by the id of the
// delegating tool call that spawned it.
type taskContext struct {
	TaskID      string
	AgentID     string
	Description string
	AgentType   string
	StartedAt   time.Time
	Tools       []types.SubagentToolCall
}

// subagentTracker tracks delegated tasks and their nested tool calls. The
// active list is arrival-ordered; when a nested tool call arrives without an
// explicit parent, the most recently started still-active task claims it.
// That is a best-effort heuristic under concurrent nesting, not a guarantee.
type subagentTracker struct {
	tasks  map[string]*taskContext
	active []string
}

func newSubagentTracker() *subagentTracker {
	return &subagentTracker{tasks: make(map[string]*taskContext)}
}

func (s *subagentTracker) StartTask(taskID, agentID, description, agentType string, at time.Time) *taskContext {
	if s == nil || taskID == "" {
		return nil
	}
	if existing, ok := s.tasks[taskID]; ok {
		if existing.AgentID == "" {
			existing.AgentID = agentID
		}
		return existing
	}
	ctx := &taskContext{
		TaskID:      taskID,
		AgentID:     agentID,
		Description: description,
		AgentType:   agentType,
		StartedAt:   at,
	}
	s.tasks[taskID] = ctx
	s.active = append(s.active, taskID)
	return ctx
}

// StopTask retires a task. The id may be the delegating tool id or the
// externally assigned agent id.
func (s *subagentTracker) StopTask(id string) *taskContext {
	if s == nil || id == "" {
		return nil
	}
	taskID := id
	if _, ok := s.tasks[taskID]; !ok {
		taskID = ""
		for candidate, ctx := range s.tasks {
			if ctx.AgentID == id {
				taskID = candidate
				break
			}
		}
	}
	if taskID == "" {
		return nil
	}
	ctx := s.tasks[taskID]
	for i, active := range s.active {
		if active == taskID {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	return ctx
}

// resolve returns the task a nested call belongs to: the explicit parent
// when known, otherwise the most recently started active task.
func (s *subagentTracker) resolve(taskID string) *taskContext {
	if s == nil {
		return nil
	}
	if taskID != "" {
		return s.tasks[taskID]
	}
	if len(s.active) == 0 {
		return nil
	}
	return s.tasks[s.active[len(s.active)-1]]
}

// AddTool attributes a nested tool call and returns the owning context.
func (s *subagentTracker) AddTool(taskID string, call types.SubagentToolCall) *taskContext {
	ctx := s.resolve(taskID)
	if ctx == nil {
		return nil
	}
	for i := range ctx.Tools {
		if ctx.Tools[i].ToolID == call.ToolID {
			return ctx
		}
	}
	ctx.Tools = append(ctx.Tools, call)
	return ctx
}

// CompleteTool marks a nested tool call finished wherever it lives.
func (s *subagentTracker) CompleteTool(toolID string, isError bool) *taskContext {
	if s == nil || toolID == "" {
		return nil
	}
	for _, ctx := range s.tasks {
		for i := range ctx.Tools {
			if ctx.Tools[i].ToolID != toolID {
				continue
			}
			if isError {
				ctx.Tools[i].Status = types.ToolStatusError
			} else {
				ctx.Tools[i].Status = types.ToolStatusSuccess
			}
			return ctx
		}
	}
	return nil
}

// StopAll retires every active task without dropping their contexts.
func (s *subagentTracker) StopAll() {
	if s == nil {
		return
	}
	s.active = nil
}

func (s *subagentTracker) HasActive() bool {
	return s != nil && len(s.active) > 0
}

func (s *subagentTracker) Reset() {
	if s == nil {
		return
	}
	s.tasks = make(map[string]*taskContext)
	s.active = nil
}
