package app

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/agbru/heatcalc/internal/config"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/logging"
	"github.com/agbru/heatcalc/internal/metrics"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/server"
)

// progressTracker keeps the latest iteration and residual for /healthz.
type progressTracker struct {
	runID     string
	iteration atomic.Int64
	residual  atomic.Uint64
	state     atomic.Value
}

func newProgressTracker(runID string) *progressTracker {
	t := &progressTracker{runID: runID}
	t.state.Store(orchestration.Running.String())
	return t
}

// ObserveIteration implements orchestration.Observer. Every rank reports
// the same reduced scalar, so the last writer wins.
func (t *progressTracker) ObserveIteration(_, iteration int, residual float64, _, _ time.Duration) {
	t.iteration.Store(int64(iteration))
	t.residual.Store(math.Float64bits(residual))
}

func (t *progressTracker) finish(state string) { t.state.Store(state) }

func (t *progressTracker) health() server.Health {
	residual := math.Float64frombits(t.residual.Load())
	if math.IsNaN(residual) || math.IsInf(residual, 0) {
		residual = -1
	}
	return server.Health{
		Status:    t.state.Load().(string),
		RunID:     t.runID,
		Iteration: int(t.iteration.Load()),
		Residual:  residual,
	}
}

// telemetry runs the optional metrics server of a solve.
type telemetry struct {
	solver  *metrics.SolverMetrics
	tracker *progressTracker
	logger  logging.Logger
	workers int
	cancel  context.CancelFunc
	done    chan error
}

// startTelemetry starts serving /metrics and /healthz on --metrics-addr.
// Without an address it returns an inert telemetry.
func (a *Application) startTelemetry(ctx context.Context, logger logging.Logger) (*telemetry, error) {
	t := &telemetry{tracker: newProgressTracker(a.RunID), logger: logger, workers: a.Config.Workers}
	if a.Config.Transport == config.TransportWebSocket {
		t.workers = 1
	}
	if a.Config.MetricsAddr == "" {
		return t, nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.Config.MetricsAddr)
	if err != nil {
		return nil, apperrors.NewConfigError("cannot listen on metrics address %q: %v", a.Config.MetricsAddr, err)
	}
	t.solver = metrics.NewSolverMetrics()
	srv := server.New(t.solver.Registry(), logger, server.WithHealth(t.tracker.health))

	// The server outlives the solve context so the final values stay
	// scrapeable until Stop.
	srvCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan error, 1)
	go func() { t.done <- srv.Serve(srvCtx, ln) }()
	return t, nil
}

// Observers returns the iteration observers feeding the server.
func (t *telemetry) Observers() []orchestration.Observer {
	if t.solver == nil {
		return nil
	}
	return []orchestration.Observer{t.solver, t.tracker}
}

// Finish records how the solve ended.
func (t *telemetry) Finish(state string) {
	t.tracker.finish(state)
	if t.solver == nil {
		return
	}
	for i := 0; i < t.workers; i++ {
		t.solver.ObserveSolve(state)
	}
}

// Stop shuts the server down.
func (t *telemetry) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	if err := <-t.done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.logger.Error("telemetry server stopped", err)
	}
}
