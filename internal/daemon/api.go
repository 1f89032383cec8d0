package daemon

import (
	"context"
	"encoding/json"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/monitor"
)

type API struct {
	Version     string
	Coordinator *monitor.Coordinator
	Focuser     monitor.Focuser
	Shutdown    func(context.Context) error
	Logger      logging.Logger
}

// HookPayload is the agent lifecycle notification forwarded by the hook
// subcommand. Field presence depends on the hook kind; unknown kinds are
// acknowledged and dropped.
type HookPayload struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	PID            int    `json:"pid,omitempty"`
	Terminal       string `json:"terminal,omitempty"`
	Branch         string `json:"branch,omitempty"`

	Prompt string `json:"prompt,omitempty"`

	ToolName     string          `json:"tool_name,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	ToolInput    json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`
	IsError      bool            `json:"is_error,omitempty"`

	TaskID      string `json:"task_id,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
	AgentType   string `json:"agent_type,omitempty"`
	Description string `json:"description,omitempty"`

	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type DenyRequest struct {
	ToolID string `json:"tool_id"`
	Reason string `json:"reason,omitempty"`
}

type ApproveRequest struct {
	ToolID string `json:"tool_id"`
}
