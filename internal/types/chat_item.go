package types

import "time"

type ChatItemKind string

const (
	ChatItemUser        ChatItemKind = "user"
	ChatItemAssistant   ChatItemKind = "assistant"
	ChatItemThinking    ChatItemKind = "thinking"
	ChatItemTool        ChatItemKind = "tool"
	ChatItemInterrupted ChatItemKind = "interrupted"
)

type ToolStatus string

const (
	ToolStatusRunning            ToolStatus = "running"
	ToolStatusWaitingForApproval ToolStatus = "waiting_for_approval"
	ToolStatusSuccess            ToolStatus = "success"
	ToolStatusError              ToolStatus = "error"
	ToolStatusInterrupted        ToolStatus = "interrupted"
)

// SubagentToolCall is one tool call observed inside a delegated task.
type SubagentToolCall struct {
	ToolID    string     `json:"tool_id"`
	Name      string     `json:"name"`
	Input     string     `json:"input,omitempty"`
	Status    ToolStatus `json:"status"`
	StartedAt time.Time  `json:"started_at"`
}

// ChatItem is one entry of the visible transcript. The id is stable across
// re-ingestion so incremental parses update items in place instead of
// duplicating them. Only Status, Result and Subagent entries mutate after
// creation.
type ChatItem struct {
	ID        string       `json:"id"`
	Kind      ChatItemKind `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`
	Text      string       `json:"text,omitempty"`

	// Tool call fields, meaningful only when Kind is ChatItemTool.
	ToolName string             `json:"tool_name,omitempty"`
	Input    string             `json:"input,omitempty"`
	Status   ToolStatus         `json:"status,omitempty"`
	Result   string             `json:"result,omitempty"`
	Subagent []SubagentToolCall `json:"subagent,omitempty"`
}

func (c *ChatItem) Clone() *ChatItem {
	if c == nil {
		return nil
	}
	out := *c
	if len(c.Subagent) > 0 {
		out.Subagent = append([]SubagentToolCall{}, c.Subagent...)
	}
	return &out
}

func (c *ChatItem) IsPendingApproval() bool {
	return c != nil && c.Kind == ChatItemTool && c.Status == ToolStatusWaitingForApproval
}

func (c *ChatItem) IsRunningTool() bool {
	return c != nil && c.Kind == ChatItemTool && c.Status == ToolStatusRunning
}
