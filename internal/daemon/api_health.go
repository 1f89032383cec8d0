package daemon

import (
	"net/http"
	"os"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

// Health reports liveness plus a coarse view of the tracked fleet, so a
// status-bar poller gets "anything waiting on me?" from one unauthenticated
// request.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"ok":      true,
		"version": a.Version,
		"pid":     os.Getpid(),
	}
	if a.Coordinator != nil {
		sessions := a.Coordinator.Snapshot()
		waiting := 0
		for _, session := range sessions {
			if session.Phase.Is(types.PhaseWaitingForApproval) {
				waiting++
			}
		}
		status["sessions"] = len(sessions)
		status["awaiting_approval"] = waiting
	}
	writeJSON(w, http.StatusOK, status)
}
