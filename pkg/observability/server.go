package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// MetricsServer exposes /healthz, /readyz and the Prometheus /metrics
// endpoint while a long-running command (batch, mcp) is active.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer starts serving metrics at addr. A nil handler serves
// only the probes.
func NewMetricsServer(addr string, metrics http.Handler, logger *slog.Logger, checks ...ReadyCheck) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux} //nolint:gosec // local diagnostics endpoint.

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && logger != nil {
			logger.Warn("metrics server stopped", "error", serveErr)
		}
	}()

	return &MetricsServer{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on.
func (m *MetricsServer) Addr() string {
	return m.listener.Addr().String()
}

// Close gracefully shuts down the server.
func (m *MetricsServer) Close(ctx context.Context) error {
	err := m.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	return nil
}
