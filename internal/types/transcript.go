package types

import "time"

type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockThinking BlockKind = "thinking"
	BlockToolUse  BlockKind = "tool_use"
)

// ContentBlock is one block of a transcript message, in source order.
type ContentBlock struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text,omitempty"`

	// Tool use fields, meaningful only when Kind is BlockToolUse.
	ToolID   string `json:"tool_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
	Input    string `json:"input,omitempty"`
}

// TranscriptMessage is one structured message parsed from the transcript log.
type TranscriptMessage struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
	Blocks    []ContentBlock `json:"blocks"`
	Usage     *TokenUsage    `json:"usage,omitempty"`
	Summary   string         `json:"summary,omitempty"`
}

// ToolResult is the parsed outcome of one completed tool invocation.
type ToolResult struct {
	Text    string `json:"text,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// IngestResult is what one transcript ingestion pass yields. NewMessages
// holds only messages appended since the previous offset; AllMessageIDs is
// the id set of every message in scope and is the authority during
// reconciliation after a discontinuity.
type IngestResult struct {
	NewMessages      []TranscriptMessage   `json:"new_messages"`
	AllMessageIDs    map[string]struct{}   `json:"-"`
	Discontinuity    bool                  `json:"discontinuity,omitempty"`
	CompletedToolIDs []string              `json:"completed_tool_ids,omitempty"`
	ToolResults      map[string]ToolResult `json:"tool_results,omitempty"`
	Summary          string                `json:"summary,omitempty"`
}

func (r *IngestResult) Empty() bool {
	return r == nil || (len(r.NewMessages) == 0 && !r.Discontinuity && len(r.CompletedToolIDs) == 0)
}
