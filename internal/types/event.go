package types

import "time"

// Event is the closed set of inputs the coordinator accepts. Every signal
// source wraps its observation in exactly one Event and submits it; the
// coordinator type-switches exhaustively over the concrete kinds below.
type Event interface {
	SessionID() string
	isEvent()
}

// EventBase carries the session identity shared by every event kind.
type EventBase struct {
	Session string
}

func (b EventBase) SessionID() string { return b.Session }
func (EventBase) isEvent()            {}

// SessionStarted announces a (possibly previously unknown) agent process.
type SessionStarted struct {
	EventBase
	Cwd            string
	PID            int
	Terminal       string
	Branch         string
	TranscriptPath string
}

// PromptSubmitted marks the user handing a new prompt to the agent.
type PromptSubmitted struct {
	EventBase
	Prompt string
	At     time.Time
}

// ToolStarted marks a tool invocation beginning. ParentToolID is set when
// the invocation runs inside a delegated task and the source knows which.
type ToolStarted struct {
	EventBase
	ToolID       string
	ToolName     string
	Input        string
	ParentToolID string
	At           time.Time
}

// ToolCompleted carries a tool invocation's terminal result.
type ToolCompleted struct {
	EventBase
	ToolID  string
	Result  string
	IsError bool
}

// ApprovalRequested queues a tool approval request for the session.
type ApprovalRequested struct {
	EventBase
	ToolID   string
	ToolName string
	Input    string
	At       time.Time
}

type ApprovalDecision string

const (
	ApprovalGranted       ApprovalDecision = "granted"
	ApprovalDenied        ApprovalDecision = "denied"
	ApprovalChannelFailed ApprovalDecision = "channel_failed"
)

// ApprovalResolved resolves one outstanding approval request.
type ApprovalResolved struct {
	EventBase
	ToolID   string
	Decision ApprovalDecision
	Reason   string
}

// TranscriptChanged is the raw "the log file changed" signal. It only arms
// the debounce timer; ingestion happens later via TranscriptParsed.
type TranscriptChanged struct {
	EventBase
	Path string
}

// TranscriptParsed is the derived event a fired debounce timer submits after
// an ingestion call yielded new content or a discontinuity.
type TranscriptParsed struct {
	EventBase
	Result *IngestResult
	Full   bool
}

// Discontinuity reports that the transcript log was truncated or reset.
type Discontinuity struct {
	EventBase
	Path string
}

// Interrupted reports the user interrupting the agent mid-turn.
type Interrupted struct {
	EventBase
}

// TurnEnded is the explicit terminal signal for the agent's turn.
type TurnEnded struct {
	EventBase
}

type CompactionStarted struct {
	EventBase
}

type CompactionEnded struct {
	EventBase
}

// HistoryRequested asks for a full (reconciling) parse of the given log.
type HistoryRequested struct {
	EventBase
	Path string
}

// SessionEnded tears the session down.
type SessionEnded struct {
	EventBase
}

// TaskStarted marks a delegated sub-conversation spawned by a tool call.
type TaskStarted struct {
	EventBase
	TaskID      string
	AgentID     string
	Description string
	AgentType   string
	At          time.Time
}

// TaskStopped marks a delegated sub-conversation finishing.
type TaskStopped struct {
	EventBase
	TaskID  string
	AgentID string
}

// TaskToolStarted is a tool call observed inside a delegated task. TaskID
// may be empty when the source cannot attribute the call to a parent.
type TaskToolStarted struct {
	EventBase
	TaskID   string
	ToolID   string
	ToolName string
	Input    string
	At       time.Time
}

// TaskToolCompleted completes a delegated tool call.
type TaskToolCompleted struct {
	EventBase
	TaskID  string
	ToolID  string
	IsError bool
}
