// Package server exposes solver telemetry over HTTP: Prometheus metrics on
// /metrics and a JSON health probe on /healthz.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agbru/heatcalc/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Health is the body of /healthz.
type Health struct {
	Status    string  `json:"status"`
	RunID     string  `json:"run_id,omitempty"`
	Iteration int     `json:"iteration"`
	Residual  float64 `json:"residual"`
}

// HealthFunc reports the current solve state.
type HealthFunc func() Health

// Server serves telemetry endpoints.
type Server struct {
	metrics  *Metrics
	logger   logging.Logger
	security SecurityConfig
	health   HealthFunc
	http     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHealth sets the function reporting solve state on /healthz.
func WithHealth(f HealthFunc) Option { return func(s *Server) { s.health = f } }

// WithSecurity replaces the default security configuration.
func WithSecurity(c SecurityConfig) Option { return func(s *Server) { s.security = c } }

// New builds a server exposing reg.
func New(reg *prometheus.Registry, logger logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		metrics:  NewMetrics(reg),
		logger:   logger,
		security: DefaultSecurityConfig(),
		health:   func() Health { return Health{Status: "ok"} },
	}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", SecurityMiddleware(s.security, s.metricsMiddleware(s.handleMetrics)))
	mux.HandleFunc("/healthz", SecurityMiddleware(s.security, s.metricsMiddleware(s.handleHealth)))
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()
	s.logger.Info("telemetry server listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()
		s.metrics.CountRequest(r.URL.Path)
		next(w, r)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.logger.Debug("rejected metrics request", logging.String("method", r.Method))
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.metrics.WritePrometheus(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.health()); err != nil {
		s.logger.Error("writing health response", err)
	}
}
