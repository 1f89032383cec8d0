package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/logging"
)

const shutdownGrace = 5 * time.Second

// ShutdownDaemon acknowledges, then stops the server in the background so
// the response still reaches the caller. Tracked agents keep running on
// their own; the next daemon start re-adopts them from their hooks and
// transcripts, so nothing needs flushing here beyond the HTTP server.
func (a *API) ShutdownDaemon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if a.Shutdown == nil {
		writeServiceError(w, unavailableError("shutdown not available", nil))
		return
	}

	tracked := 0
	if a.Coordinator != nil {
		tracked = len(a.Coordinator.Snapshot())
	}
	if a.Logger != nil {
		a.Logger.Info("shutdown_requested", logging.F("tracked_sessions", tracked))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tracked_sessions": tracked})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = a.Shutdown(ctx)
	}()
}
