package daemon

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

func (a *API) Sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed",
		})
		return
	}
	sessions := a.Coordinator.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

func (a *API) SessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method == http.MethodGet {
			session, ok := a.findSession(id)
			if !ok {
				writeServiceError(w, notFoundError("session not found", nil))
				return
			}
			writeJSON(w, http.StatusOK, session)
			return
		}
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed",
		})
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch parts[1] {
	case "approve":
		a.approveSession(w, r, id)
	case "deny":
		a.denySession(w, r, id)
	case "focus":
		a.focusSession(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (a *API) approveSession(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.findSession(id); !ok {
		writeServiceError(w, notFoundError("session not found", nil))
		return
	}
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid json body",
		})
		return
	}
	toolID := strings.TrimSpace(req.ToolID)
	if toolID == "" {
		writeServiceError(w, invalidError("tool_id is required", nil))
		return
	}
	if err := a.Coordinator.Approve(r.Context(), id, toolID); err != nil {
		writeServiceError(w, unavailableError("approval not delivered", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) denySession(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.findSession(id); !ok {
		writeServiceError(w, notFoundError("session not found", nil))
		return
	}
	var req DenyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid json body",
		})
		return
	}
	toolID := strings.TrimSpace(req.ToolID)
	if toolID == "" {
		writeServiceError(w, invalidError("tool_id is required", nil))
		return
	}
	if err := a.Coordinator.Deny(r.Context(), id, toolID, req.Reason); err != nil {
		writeServiceError(w, unavailableError("denial not delivered", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) focusSession(w http.ResponseWriter, r *http.Request, id string) {
	session, ok := a.findSession(id)
	if !ok {
		writeServiceError(w, notFoundError("session not found", nil))
		return
	}
	focused := false
	if a.Focuser != nil {
		if session.PID > 0 {
			focused = a.Focuser.FocusPID(session.PID)
		}
		if !focused && session.Cwd != "" {
			focused = a.Focuser.FocusDir(session.Cwd)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "focused": focused})
}

func (a *API) findSession(id string) (*types.Session, bool) {
	for _, session := range a.Coordinator.Snapshot() {
		if session.ID == id {
			return session, true
		}
	}
	return nil, false
}
