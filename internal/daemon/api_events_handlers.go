package daemon

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

// Events accepts one lifecycle hook payload and maps it to coordinator
// events. Unknown hook kinds are acknowledged without effect so outdated
// hook installations never break the agent they are attached to.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed",
		})
		return
	}

	var payload HookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid json body",
		})
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		writeServiceError(w, invalidError("session_id is required", nil))
		return
	}

	events := a.mapHookEvents(payload)
	for _, ev := range events {
		if err := a.Coordinator.Submit(r.Context(), ev); err != nil {
			writeServiceError(w, unavailableError("event not delivered", err))
			return
		}
	}
	if a.Logger != nil && a.Logger.Enabled(logging.Debug) {
		a.Logger.Debug("hook_event_accepted",
			logging.F("session_id", payload.SessionID),
			logging.F("hook", payload.HookEventName),
			logging.F("events", len(events)),
		)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "events": len(events)})
}

// mapHookEvents translates one hook payload into zero or more events. A hook
// observed for a session the daemon never saw start also yields a synthetic
// SessionStarted so a daemon restarted mid-session picks strays back up.
func (a *API) mapHookEvents(p HookPayload) []types.Event {
	base := types.EventBase{Session: p.SessionID}
	now := time.Now()

	var events []types.Event
	name := strings.TrimSpace(p.HookEventName)
	if name != "SessionStart" && name != "SessionEnd" && !a.sessionKnown(p.SessionID) && p.Cwd != "" {
		events = append(events, types.SessionStarted{
			EventBase:      base,
			Cwd:            p.Cwd,
			PID:            p.PID,
			Terminal:       p.Terminal,
			Branch:         p.Branch,
			TranscriptPath: p.TranscriptPath,
		})
		if p.TranscriptPath != "" {
			events = append(events, types.HistoryRequested{EventBase: base, Path: p.TranscriptPath})
		}
	}

	switch name {
	case "SessionStart":
		events = append(events, types.SessionStarted{
			EventBase:      base,
			Cwd:            p.Cwd,
			PID:            p.PID,
			Terminal:       p.Terminal,
			Branch:         p.Branch,
			TranscriptPath: p.TranscriptPath,
		})
		if p.TranscriptPath != "" {
			events = append(events, types.HistoryRequested{EventBase: base, Path: p.TranscriptPath})
		}
	case "UserPromptSubmit":
		events = append(events, types.PromptSubmitted{EventBase: base, Prompt: p.Prompt, At: now})
	case "PreToolUse":
		events = append(events, types.ToolStarted{
			EventBase:    base,
			ToolID:       p.ToolUseID,
			ToolName:     p.ToolName,
			Input:        rawToString(p.ToolInput),
			ParentToolID: p.TaskID,
			At:           now,
		})
	case "PostToolUse":
		events = append(events, types.ToolCompleted{
			EventBase: base,
			ToolID:    p.ToolUseID,
			Result:    rawToString(p.ToolResponse),
			IsError:   p.IsError,
		})
	case "PermissionRequest":
		events = append(events, types.ApprovalRequested{
			EventBase: base,
			ToolID:    p.ToolUseID,
			ToolName:  p.ToolName,
			Input:     rawToString(p.ToolInput),
			At:        now,
		})
	case "Stop":
		events = append(events, types.TurnEnded{EventBase: base})
	case "Interrupt":
		events = append(events, types.Interrupted{EventBase: base})
	case "SubagentStart":
		events = append(events, types.TaskStarted{
			EventBase:   base,
			TaskID:      p.TaskID,
			AgentID:     p.AgentID,
			Description: p.Description,
			AgentType:   p.AgentType,
			At:          now,
		})
	case "SubagentStop":
		events = append(events, types.TaskStopped{EventBase: base, TaskID: p.TaskID, AgentID: p.AgentID})
	case "PreCompact":
		events = append(events, types.CompactionStarted{EventBase: base})
	case "PostCompact":
		events = append(events, types.CompactionEnded{EventBase: base})
	case "SessionEnd":
		events = append(events, types.SessionEnded{EventBase: base})
	default:
		if a.Logger != nil {
			a.Logger.Debug("hook_event_ignored",
				logging.F("session_id", p.SessionID),
				logging.F("hook", name),
			)
		}
	}
	return events
}

func (a *API) sessionKnown(id string) bool {
	for _, session := range a.Coordinator.Snapshot() {
		if session.ID == id {
			return true
		}
	}
	return false
}

// rawToString compacts a raw JSON value for storage on a chat item. Plain
// JSON strings lose their quotes; everything else stays compact JSON.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
