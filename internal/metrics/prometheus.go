// Package metrics collects solver telemetry: Prometheus series for live
// scraping, HDR histograms of blocked time for the final summary and
// runtime memory readings.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every exported series.
const Namespace = "heatcalc"

// waitBuckets spans 1µs to ~4s, which covers both in-process channel
// hand-offs and cross-host round trips.
var waitBuckets = prometheus.ExponentialBuckets(1e-6, 4, 12)

// SolverMetrics exposes per-rank solver progress on a private registry.
// It satisfies the orchestration Observer interface.
type SolverMetrics struct {
	registry   *prometheus.Registry
	iterations *prometheus.CounterVec
	residual   *prometheus.GaugeVec
	haloWait   *prometheus.HistogramVec
	reduceWait *prometheus.HistogramVec
	solves     *prometheus.CounterVec
}

// NewSolverMetrics creates the solver series together with the Go runtime
// and process collectors on a fresh registry.
func NewSolverMetrics() *SolverMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &SolverMetrics{
		registry: reg,
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "iterations_total",
			Help:      "Completed Jacobi iterations per worker.",
		}, []string{"rank"}),
		residual: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "residual",
			Help:      "Global maximum change of the last completed iteration.",
		}, []string{"rank"}),
		haloWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "halo_wait_seconds",
			Help:      "Time a worker blocked waiting for ghost rows per iteration.",
			Buckets:   waitBuckets,
		}, []string{"rank"}),
		reduceWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reduce_wait_seconds",
			Help:      "Time a worker blocked in the global reduction per iteration.",
			Buckets:   waitBuckets,
		}, []string{"rank"}),
		solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "solves_total",
			Help:      "Finished worker solves by final state.",
		}, []string{"state"}),
	}
}

// Registry returns the registry holding every series.
func (m *SolverMetrics) Registry() *prometheus.Registry { return m.registry }

// ObserveIteration records one completed iteration of rank.
func (m *SolverMetrics) ObserveIteration(rank, _ int, residual float64, haloWait, reduceWait time.Duration) {
	label := strconv.Itoa(rank)
	m.iterations.WithLabelValues(label).Inc()
	m.residual.WithLabelValues(label).Set(residual)
	m.haloWait.WithLabelValues(label).Observe(haloWait.Seconds())
	m.reduceWait.WithLabelValues(label).Observe(reduceWait.Seconds())
}

// ObserveSolve counts a finished worker solve.
func (m *SolverMetrics) ObserveSolve(state string) {
	m.solves.WithLabelValues(state).Inc()
}
