package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"scopebind/internal/core/app"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	routeMetrics = "/metrics"
	// routeLive answers with the bare status word.
	routeLive = "/healthz"
	// routeHealth reports every engine component.
	routeHealth = "/health/components"

	healthHeader = "X-Scopebind-Health"
)

// ObservabilityServer exposes engine metrics and health while a batch runs.
type ObservabilityServer struct {
	addr     string
	health   *app.HealthService
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

func NewObservabilityServer(addr string, health *app.HealthService) *ObservabilityServer {
	return &ObservabilityServer{addr: addr, health: health, logger: slog.Default()}
}

func (s *ObservabilityServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET "+routeMetrics, promhttp.Handler())
	mux.HandleFunc("GET "+routeLive, s.serveLive)
	mux.HandleFunc("GET "+routeHealth, s.serveHealth)
	return mux
}

// check runs the health service and sets the status header. Degraded engines keep
// answering 200; only a down engine is unavailable.
func (s *ObservabilityServer) check(w http.ResponseWriter, r *http.Request) app.HealthStatus {
	status := s.health.Check(r.Context())
	w.Header().Set(healthHeader, status.Status)
	return status
}

func statusCode(status app.HealthStatus) int {
	if status.Status == "down" {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (s *ObservabilityServer) serveLive(w http.ResponseWriter, r *http.Request) {
	status := s.check(w, r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode(status))
	_, _ = w.Write([]byte(status.Status + "\n"))
}

func (s *ObservabilityServer) serveHealth(w http.ResponseWriter, r *http.Request) {
	status := s.check(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(status))
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Debug("health response not written", "error", err)
	}
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.routes()}

	s.logger.Info("observability server listening", "addr", ln.Addr().String(),
		"routes", []string{routeMetrics, routeLive, routeHealth})

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server stopped", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address once Start succeeded.
func (s *ObservabilityServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
