package monitor

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

// sessionState is the coordinator-private mutable state of one tracked
// process. Only the coordinator goroutine touches it; everything handed out
// is a deep copy built by snapshot().
type sessionState struct {
	id             string
	cwd            string
	projectName    string
	branch         string
	pid            int
	terminal       string
	transcriptPath string

	phase   types.Phase
	items   []*types.ChatItem
	byID    map[string]*types.ChatItem
	addedAt map[string]time.Time

	tools        *toolTracker
	subagents    *subagentTracker
	seenMessages map[string]struct{}

	// Conversation accumulators. The published ConversationInfo is rebuilt
	// wholesale from these plus the item list on every ingestion.
	turnTokens     types.TokenUsage
	turnStartedAt  *time.Time
	summary        string
	lastRole       string
	thinking       bool
	lastThinking   string
	lastTextOutput string
	activeTodo     string

	openApprovals map[string]time.Time

	createdAt      time.Time
	lastActivityAt time.Time
	turnEndedAt    *time.Time
}

func newSessionState(id, cwd string, now time.Time) *sessionState {
	return &sessionState{
		id:             id,
		cwd:            cwd,
		projectName:    projectNameFor(cwd),
		phase:          phaseOf(types.PhaseIdle),
		byID:           make(map[string]*types.ChatItem),
		addedAt:        make(map[string]time.Time),
		tools:          newToolTracker(),
		subagents:      newSubagentTracker(),
		seenMessages:   make(map[string]struct{}),
		openApprovals:  make(map[string]time.Time),
		createdAt:      now,
		lastActivityAt: now,
	}
}

func projectNameFor(cwd string) string {
	if cwd == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(cwd))
}

// insertItem adds a new item keeping the list ordered by timestamp with
// arrival order breaking ties. Ids are unique within the session; inserting
// an existing id is a no-op returning the existing item.
func (s *sessionState) insertItem(item *types.ChatItem, now time.Time) *types.ChatItem {
	if item == nil || item.ID == "" {
		return nil
	}
	if existing, ok := s.byID[item.ID]; ok {
		return existing
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = now
	}
	s.items = append(s.items, item)
	s.byID[item.ID] = item
	s.addedAt[item.ID] = now
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Timestamp.Before(s.items[j].Timestamp)
	})
	return item
}

func (s *sessionState) removeItem(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	delete(s.addedAt, id)
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// nextPendingApproval scans items in timestamp order for the first tool call
// still waiting for approval, excluding the id just resolved.
func (s *sessionState) nextPendingApproval(excludeID string) *types.ChatItem {
	for _, item := range s.items {
		if item.ID == excludeID {
			continue
		}
		if item.IsPendingApproval() {
			return item
		}
	}
	return nil
}

func (s *sessionState) pendingApprovalCount() int {
	count := 0
	for _, item := range s.items {
		if item.IsPendingApproval() {
			count++
		}
	}
	return count
}

func (s *sessionState) hasRunningToolItem() bool {
	for _, item := range s.items {
		if item.IsRunningTool() {
			return true
		}
	}
	return false
}

// inCurrentTurn reports whether a transcript timestamp falls inside the
// turn in progress. With no turn open every message is historical.
func (s *sessionState) inCurrentTurn(ts time.Time) bool {
	return s.turnStartedAt != nil && !ts.Before(*s.turnStartedAt)
}

// turnLooksComplete infers turn completion from raw signals: the last
// message role must be the agent's own and nothing may still be in flight.
func (s *sessionState) turnLooksComplete() bool {
	if s.lastRole != "assistant" {
		return false
	}
	if s.thinking {
		return false
	}
	if s.tools.InProgressCount() > 0 {
		return false
	}
	if s.subagents.HasActive() {
		return false
	}
	if s.hasRunningToolItem() {
		return false
	}
	return true
}

// conversationInfo rebuilds the derived summary from scratch. Replacing the
// struct wholesale keeps one-source updates from leaving stale fields behind.
func (s *sessionState) conversationInfo() types.ConversationInfo {
	info := types.ConversationInfo{
		Summary:          s.summary,
		Tokens:           s.turnTokens,
		Thinking:         s.thinking,
		LastThinkingText: s.lastThinking,
		LastTextOutput:   s.lastTextOutput,
		ActiveTodo:       s.activeTodo,
	}
	if s.turnStartedAt != nil {
		startedAt := *s.turnStartedAt
		info.TurnStartedAt = &startedAt
	}
	for _, item := range s.items {
		switch item.Kind {
		case types.ChatItemUser:
			if info.FirstUserMessage == "" {
				info.FirstUserMessage = item.Text
			}
			lastUserAt := item.Timestamp
			info.LastUserAt = &lastUserAt
		}
	}
	if last := s.lastItem(); last != nil {
		switch last.Kind {
		case types.ChatItemTool:
			info.LastMessage = last.ToolName
			info.LastMessageRole = "assistant"
			info.LastToolName = last.ToolName
		case types.ChatItemUser:
			info.LastMessage = last.Text
			info.LastMessageRole = "user"
		case types.ChatItemInterrupted:
			info.LastMessage = "interrupted"
			info.LastMessageRole = "user"
		default:
			info.LastMessage = last.Text
			info.LastMessageRole = "assistant"
		}
	}
	return info
}

func (s *sessionState) lastItem() *types.ChatItem {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// snapshot builds the published deep copy.
func (s *sessionState) snapshot() *types.Session {
	out := &types.Session{
		ID:             s.id,
		Cwd:            s.cwd,
		ProjectName:    s.projectName,
		Branch:         s.branch,
		PID:            s.pid,
		Terminal:       s.terminal,
		TranscriptPath: s.transcriptPath,
		Phase:          s.phase.Clone(),
		Conversation:   s.conversationInfo(),
		PendingCount:   s.pendingApprovalCount(),
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivityAt,
	}
	out.Items = make([]*types.ChatItem, 0, len(s.items))
	for _, item := range s.items {
		out.Items = append(out.Items, item.Clone())
	}
	if s.turnEndedAt != nil {
		endedAt := *s.turnEndedAt
		out.TurnEndedAt = &endedAt
	}
	return out
}
