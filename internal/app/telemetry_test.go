package app

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/heatcalc/internal/config"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/logging"
)

func TestProgressTrackerHealth(t *testing.T) {
	tr := newProgressTracker("run-1")
	h := tr.health()
	assert.Equal(t, "Running", h.Status)
	assert.Equal(t, "run-1", h.RunID)

	tr.ObserveIteration(1, 42, 0.5, 0, 0)
	tr.finish("Converged")
	h = tr.health()
	assert.Equal(t, 42, h.Iteration)
	assert.Equal(t, 0.5, h.Residual)
	assert.Equal(t, "Converged", h.Status)

	tr.ObserveIteration(0, 43, math.NaN(), 0, 0)
	assert.Equal(t, -1.0, tr.health().Residual, "non-finite residuals must stay JSON encodable")
}

func TestTelemetryDisabled(t *testing.T) {
	a := &Application{Config: config.Default(), RunID: "r"}
	tel, err := a.startTelemetry(context.Background(), logging.Nop())
	require.NoError(t, err)
	assert.Nil(t, tel.Observers())
	tel.Finish("Converged")
	tel.Stop()
}

func TestTelemetryServes(t *testing.T) {
	cfg := config.Default()
	cfg.MetricsAddr = "127.0.0.1:0"
	a := &Application{Config: cfg, RunID: "r"}
	tel, err := a.startTelemetry(context.Background(), logging.Nop())
	require.NoError(t, err)
	assert.Len(t, tel.Observers(), 2)

	tel.Finish("Stopped")
	families, err := tel.solver.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "heatcalc_solves_total" {
			found = true
			assert.Equal(t, float64(cfg.Workers), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "solves_total not exported")
	tel.Stop()
}

func TestTelemetryBadAddress(t *testing.T) {
	cfg := config.Default()
	cfg.MetricsAddr = "not-an-address"
	a := &Application{Config: cfg}
	_, err := a.startTelemetry(context.Background(), logging.Nop())
	assert.Equal(t, apperrors.ExitErrorConfig, apperrors.HandleSolveError(err, 0, io.Discard))
}
