package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/monitor"
)

type Daemon struct {
	addr        string
	token       string
	version     string
	logger      logging.Logger
	coordinator *monitor.Coordinator
	focuser     monitor.Focuser
	server      *http.Server
}

func New(addr, token, version string, coordinator *monitor.Coordinator, focuser monitor.Focuser, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Daemon{
		addr:        addr,
		token:       token,
		version:     version,
		logger:      logger,
		coordinator: coordinator,
		focuser:     focuser,
	}
}

// Run serves the API until ctx is cancelled or a shutdown request arrives.
func (d *Daemon) Run(ctx context.Context) error {
	api := &API{
		Version:     d.version,
		Coordinator: d.coordinator,
		Focuser:     d.focuser,
		Logger:      d.logger,
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := TokenAuthMiddleware(d.token, mux)
	d.server = &http.Server{
		Addr:    d.addr,
		Handler: handler,
	}
	api.Shutdown = d.server.Shutdown

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon_listening", logging.F("addr", d.addr))
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
