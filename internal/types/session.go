package types

import "time"

type PhaseKind string

const (
	PhaseIdle               PhaseKind = "idle"
	PhaseProcessing         PhaseKind = "processing"
	PhaseWaitingForApproval PhaseKind = "waiting_for_approval"
	PhaseWaitingForInput    PhaseKind = "waiting_for_input"
	PhaseCompacting         PhaseKind = "compacting"
	PhaseEnded              PhaseKind = "ended"
)

// ApprovalContext identifies the approval request currently considered
// active while a session is in PhaseWaitingForApproval.
type ApprovalContext struct {
	ToolID     string    `json:"tool_id"`
	ToolName   string    `json:"tool_name"`
	Input      string    `json:"input,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Phase is the session's coarse lifecycle state. Approval is non-nil only
// when Kind is PhaseWaitingForApproval.
type Phase struct {
	Kind     PhaseKind        `json:"kind"`
	Approval *ApprovalContext `json:"approval,omitempty"`
}

func (p Phase) Is(kind PhaseKind) bool {
	return p.Kind == kind
}

func (p Phase) Clone() Phase {
	out := Phase{Kind: p.Kind}
	if p.Approval != nil {
		approval := *p.Approval
		out.Approval = &approval
	}
	return out
}

// TokenUsage accumulates the current turn's token counts.
type TokenUsage struct {
	Input         int `json:"input"`
	Output        int `json:"output"`
	CacheRead     int `json:"cache_read"`
	CacheCreation int `json:"cache_creation"`
}

func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// ConversationInfo is a derived summary of a session's conversation.
// It is replaced as a whole on every ingestion, never field-patched.
type ConversationInfo struct {
	Summary          string     `json:"summary,omitempty"`
	FirstUserMessage string     `json:"first_user_message,omitempty"`
	LastMessage      string     `json:"last_message,omitempty"`
	LastMessageRole  string     `json:"last_message_role,omitempty"`
	LastToolName     string     `json:"last_tool_name,omitempty"`
	LastUserAt       *time.Time `json:"last_user_at,omitempty"`
	TurnStartedAt    *time.Time `json:"turn_started_at,omitempty"`
	Tokens           TokenUsage `json:"tokens"`
	Thinking         bool       `json:"thinking"`
	LastThinkingText string     `json:"last_thinking_text,omitempty"`
	LastTextOutput   string     `json:"last_text_output,omitempty"`
	ActiveTodo       string     `json:"active_todo,omitempty"`
}

// Session is the published point-in-time view of one tracked agent process.
// Instances handed to subscribers are deep copies; mutating them has no
// effect on coordinator state.
type Session struct {
	ID             string           `json:"id"`
	Cwd            string           `json:"cwd"`
	ProjectName    string           `json:"project_name"`
	Branch         string           `json:"branch,omitempty"`
	PID            int              `json:"pid,omitempty"`
	Terminal       string           `json:"terminal,omitempty"`
	TranscriptPath string           `json:"transcript_path,omitempty"`
	Phase          Phase            `json:"phase"`
	Items          []*ChatItem      `json:"items"`
	Conversation   ConversationInfo `json:"conversation"`
	PendingCount   int              `json:"pending_count"`
	CreatedAt      time.Time        `json:"created_at"`
	LastActivityAt time.Time        `json:"last_activity_at"`
	TurnEndedAt    *time.Time       `json:"turn_ended_at,omitempty"`
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Phase = s.Phase.Clone()
	out.Items = make([]*ChatItem, 0, len(s.Items))
	for _, item := range s.Items {
		out.Items = append(out.Items, item.Clone())
	}
	if s.TurnEndedAt != nil {
		endedAt := *s.TurnEndedAt
		out.TurnEndedAt = &endedAt
	}
	return &out
}
