package metrics

import (
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, m *SolverMetrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func metricForRank(f *dto.MetricFamily, rank string) *dto.Metric {
	for _, m := range f.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "rank" && l.GetValue() == rank {
				return m
			}
		}
	}
	return nil
}

func TestSolverMetrics_ObserveIteration(t *testing.T) {
	m := NewSolverMetrics()
	m.ObserveIteration(0, 1, 0.5, time.Millisecond, 2*time.Millisecond)
	m.ObserveIteration(0, 2, 0.25, time.Millisecond, time.Millisecond)
	m.ObserveIteration(1, 1, 0.5, 0, 0)

	families := gather(t, m)

	iters := families["heatcalc_iterations_total"]
	if iters == nil {
		t.Fatal("heatcalc_iterations_total not registered")
	}
	if got := metricForRank(iters, "0").GetCounter().GetValue(); got != 2 {
		t.Errorf("rank 0 iterations = %v, want 2", got)
	}
	if got := metricForRank(iters, "1").GetCounter().GetValue(); got != 1 {
		t.Errorf("rank 1 iterations = %v, want 1", got)
	}

	residual := families["heatcalc_residual"]
	if got := metricForRank(residual, "0").GetGauge().GetValue(); got != 0.25 {
		t.Errorf("rank 0 residual = %v, want 0.25", got)
	}

	halo := families["heatcalc_halo_wait_seconds"]
	if got := metricForRank(halo, "0").GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("rank 0 halo samples = %d, want 2", got)
	}
	if families["heatcalc_reduce_wait_seconds"] == nil {
		t.Error("heatcalc_reduce_wait_seconds not registered")
	}
}

func TestSolverMetrics_RuntimeCollectors(t *testing.T) {
	families := gather(t, NewSolverMetrics())
	found := false
	for name := range families {
		if strings.HasPrefix(name, "go_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("registry should contain Go runtime metrics")
	}
}

func TestSolverMetrics_ObserveSolve(t *testing.T) {
	m := NewSolverMetrics()
	m.ObserveSolve("Converged")
	m.ObserveSolve("Converged")

	f := gather(t, m)["heatcalc_solves_total"]
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatalf("heatcalc_solves_total = %v, want one series", f)
	}
	if got := f.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("solves = %v, want 2", got)
	}
}

func TestSolverMetrics_Independent(t *testing.T) {
	a, b := NewSolverMetrics(), NewSolverMetrics()
	a.ObserveIteration(0, 1, 1, 0, 0)
	if f := gather(t, b)["heatcalc_iterations_total"]; f != nil && len(f.GetMetric()) > 0 {
		t.Error("registries should not share series")
	}
}
