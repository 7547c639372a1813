package tui

import (
	"time"

	"github.com/agbru/heatcalc/internal/metrics"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/sysmon"
)

// ProgressMsg carries one aggregated progress update from a worker.
type ProgressMsg struct {
	Rank            int
	Iteration       int
	Residual        float64
	Value           float64
	AverageProgress float64
	ETA             time.Duration
	Final           bool
}

// ProgressDoneMsg is sent once the progress channel has been closed.
type ProgressDoneMsg struct{}

// WorkerResultsMsg carries the per-worker results of a finished cohort.
type WorkerResultsMsg struct {
	Results []orchestration.Result
}

// OutcomeMsg carries the agreed outcome of a successful cohort.
type OutcomeMsg struct {
	Outcome orchestration.Outcome
	Epsilon float64
}

// ErrorMsg reports a failed solve.
type ErrorMsg struct {
	Err      error
	Duration time.Duration
}

// TickMsg drives periodic resource sampling.
type TickMsg time.Time

// MemStatsMsg carries a runtime memory reading.
type MemStatsMsg struct {
	Snapshot     metrics.MemorySnapshot
	NumGoroutine int
}

// SysStatsMsg carries a host and process reading.
type SysStatsMsg sysmon.Stats

// SolveCompleteMsg is sent when the orchestration goroutine returns.
type SolveCompleteMsg struct {
	ExitCode   int
	Generation uint64
}

// ContextCancelledMsg is sent when the run's context is done.
type ContextCancelledMsg struct {
	Err        error
	Generation uint64
}
