package cli

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/heatcalc/internal/config"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/metrics"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/ui"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := ui.GetCurrentTheme()
	ui.SetCurrentTheme(ui.NoColorTheme)
	t.Cleanup(func() { ui.SetCurrentTheme(prev) })
}

// MockSpinner records the calls made by DisplayProgress.
type MockSpinner struct {
	mu      sync.Mutex
	started bool
	stopped bool
	suffix  string
}

func (m *MockSpinner) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
}

func (m *MockSpinner) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *MockSpinner) UpdateSuffix(suffix string) {
	m.mu.Lock()
	m.suffix = suffix
	m.mu.Unlock()
}

func TestDisplayProgress(t *testing.T) {
	mock := &MockSpinner{}
	orig := newSpinner
	newSpinner = func(...spinner.Option) Spinner { return mock }
	defer func() { newSpinner = orig }()

	ch := make(chan orchestration.ProgressUpdate, 4)
	ch <- orchestration.ProgressUpdate{Rank: 0, Iteration: 100, Residual: 0.5, Fraction: 0.25}
	ch <- orchestration.ProgressUpdate{Rank: 1, Iteration: 1200, Residual: 0.03, Fraction: 1, Final: true}
	close(ch)

	var out bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	DisplayProgress(&wg, ch, 2, &out)
	wg.Wait()

	if !mock.started || !mock.stopped {
		t.Errorf("spinner started=%v stopped=%v, want both", mock.started, mock.stopped)
	}
	line := out.String()
	if !strings.Contains(line, "iteration 1,200") || !strings.Contains(line, "max change") {
		t.Errorf("final progress line = %q", line)
	}
}

func TestDisplayProgress_NoWorkers(t *testing.T) {
	ch := make(chan orchestration.ProgressUpdate, 1)
	ch <- orchestration.ProgressUpdate{}
	close(ch)
	var wg sync.WaitGroup
	wg.Add(1)
	var out bytes.Buffer
	DisplayProgress(&wg, ch, 0, &out)
	wg.Wait()
	if out.Len() != 0 {
		t.Errorf("no output expected, got %q", out.String())
	}
}

func TestPresentWorkerTable(t *testing.T) {
	noColor(t)
	results := []orchestration.Result{
		{Rank: 0, Iterations: 1234, Residual: 0.0099, State: orchestration.Converged, Duration: time.Second},
		{Rank: 1, Iterations: 1234, Residual: 0.0099, State: orchestration.Stopped, Duration: time.Second},
		{Rank: 2, Err: errors.New("peer gone")},
	}

	var out bytes.Buffer
	CLIResultPresenter{}.PresentWorkerTable(results, &out)
	if out.Len() != 0 {
		t.Errorf("table printed without details: %q", out.String())
	}

	CLIResultPresenter{Details: true}.PresentWorkerTable(results, &out)
	got := out.String()
	for _, want := range []string{"Worker Summary", "Halo wait", "1,234", "✅ Converged", "⚠ Stopped", "Failure (peer gone)"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
}

func TestPresentOutcome(t *testing.T) {
	noColor(t)
	opts := orchestration.PresentationOptions{Epsilon: 0.01, Workers: 2}

	t.Run("converged", func(t *testing.T) {
		var out bytes.Buffer
		CLIResultPresenter{}.PresentOutcome(orchestration.Outcome{
			Iterations: 1234, Residual: 0.0099, State: orchestration.Converged, Duration: 2 * time.Second,
		}, opts, &out)
		got := out.String()
		for _, want := range []string{"Status: Converged after 1,234 iterations", "Max error at iteration 1234 was 0.0099", "617 it/s"} {
			if !strings.Contains(got, want) {
				t.Errorf("missing %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "Corner probe") {
			t.Error("probe shown without verbose")
		}
	})

	t.Run("cap reached", func(t *testing.T) {
		var out bytes.Buffer
		CLIResultPresenter{}.PresentOutcome(orchestration.Outcome{
			Iterations: 4000, Residual: 0.2, State: orchestration.Stopped, Duration: time.Second,
		}, opts, &out)
		if !strings.Contains(out.String(), "Iteration cap reached after 4,000 iterations without converging") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("verbose", func(t *testing.T) {
		waits := metrics.NewWaitRecorder()
		waits.ObserveIteration(0, 1, 0, time.Millisecond, 2*time.Millisecond)
		mem := metrics.WatchMemory(context.Background(), time.Hour)
		mem.Stop()

		verbose := opts
		verbose.Verbose = true
		var out bytes.Buffer
		CLIResultPresenter{Waits: waits, Memory: mem}.PresentOutcome(orchestration.Outcome{
			Iterations: 3, Residual: 0.001, State: orchestration.Converged, Duration: time.Second,
			Probe: []grid.ProbePoint{{Row: 10, Col: 10, Value: 42.5}},
		}, verbose, &out)
		got := out.String()
		for _, want := range []string{"Corner probe", "[10,10]: 42.500000", "Blocked time", "halo", "reduce", "Memory Stats", "Peak heap"} {
			if !strings.Contains(got, want) {
				t.Errorf("missing %q:\n%s", want, got)
			}
		}
	})
}

func TestHandleError(t *testing.T) {
	noColor(t)
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewConfigError("bad"), apperrors.ExitErrorConfig},
		{context.DeadlineExceeded, apperrors.ExitErrorTimeout},
		{context.Canceled, apperrors.ExitErrorCanceled},
		{apperrors.CommunicationError{Op: "allreduce", Rank: 1, Peer: -1, Cause: errors.New("x")}, apperrors.ExitErrorGeneric},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := (CLIResultPresenter{}).HandleError(tt.err, time.Second, &out); got != tt.want {
			t.Errorf("HandleError(%v) = %d, want %d", tt.err, got, tt.want)
		}
		if out.Len() == 0 {
			t.Errorf("HandleError(%v) printed nothing", tt.err)
		}
	}
}

func TestPrintExecutionConfig(t *testing.T) {
	noColor(t)
	cfg := config.Default()
	cfg.Kernel = "serial"
	cfg.KernelThreads = 1
	var out bytes.Buffer
	PrintExecutionConfig(cfg, &out)
	got := out.String()
	for _, want := range []string{"672x672", "451,584 cells", "laplace", "4 workers over local transport, 168 rows each", runtime.GOARCH} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}
}

func TestCPUFeatures(t *testing.T) {
	if got := CPUFeatures(); !strings.HasPrefix(got, runtime.GOARCH) {
		t.Errorf("CPUFeatures() = %q, want prefix %q", got, runtime.GOARCH)
	}
}
