package tui

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/heatcalc/internal/config"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/metrics"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/sysmon"
)

// Layout constants for the dashboard.
const (
	headerHeight         = 1
	footerHeight         = 1
	minBodyHeight        = 8
	WorkersPanelWidthPct = 55
	MetricsPanelHeight   = 5
	sampleInterval       = 500 * time.Millisecond
	statusConverged      = "CONVERGED"
	statusCapReached     = "CAP REACHED"
)

// ExecutionState holds the fields tied to one solve of a session.
type ExecutionState struct {
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	done       bool
	exitCode   int
}

// LayoutManager holds terminal dimensions and derives panel sizes.
type LayoutManager struct {
	width  int
	height int
}

func (l LayoutManager) bodyHeight() int {
	return max(l.height-headerHeight-footerHeight, minBodyHeight)
}

func (l LayoutManager) workersWidth() int {
	return l.width * WorkersPanelWidthPct / 100
}

func (l LayoutManager) rightWidth() int {
	return l.width - l.workersWidth()
}

func (l LayoutManager) metricsHeight() int {
	return min(MetricsPanelHeight, l.bodyHeight()/2)
}

func (l LayoutManager) chartHeight() int {
	return l.bodyHeight() - l.metricsHeight()
}

// Model is the root bubbletea model of the dashboard.
type Model struct {
	header  HeaderModel
	workers WorkersModel
	metrics MetricsModel
	chart   ChartModel
	footer  FooterModel

	keymap KeyMap

	ExecutionState
	LayoutManager

	parentCtx context.Context
	problem   orchestration.Problem
	opts      orchestration.Options
	config    config.AppConfig
	sampler   *sysmon.Sampler
	ref       *programRef
	paused    bool
}

// NewModel creates the dashboard for one problem.
func NewModel(parentCtx context.Context, problem orchestration.Problem, opts orchestration.Options, cfg config.AppConfig, version string) Model {
	ctx, cancel := context.WithCancel(parentCtx)
	keys := DefaultKeyMap()
	summary := fmt.Sprintf("%dx%d grid, %d workers, %s kernel", problem.Rows, problem.Cols, problem.Workers, kernelName(opts))

	return Model{
		header:  NewHeaderModel(version, summary),
		workers: NewWorkersModel(problem.Workers),
		metrics: NewMetricsModel(),
		chart:   NewChartModel(problem.Criterion.Epsilon),
		footer:  NewFooterModel(keys),
		keymap:  keys,
		ExecutionState: ExecutionState{
			ctx:      ctx,
			cancel:   cancel,
			exitCode: apperrors.ExitSuccess,
		},
		parentCtx: parentCtx,
		problem:   problem,
		opts:      opts,
		config:    cfg,
		sampler:   sysmon.NewSampler(),
		ref:       &programRef{},
	}
}

func kernelName(opts orchestration.Options) string {
	if opts.Kernel == nil {
		return "serial"
	}
	return opts.Kernel.Name()
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		startSolveCmd(m.ref, m.ctx, m.problem, m.opts, m.config, m.generation),
		watchContextCmd(m.ctx, m.generation),
	)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanels()
		return m, nil

	case ProgressMsg:
		if !m.paused {
			m.workers.Update(msg)
			m.metrics.UpdateIteration(msg.Iteration)
			if msg.Rank == 0 {
				m.chart.AddResidual(msg.Residual)
			}
		}
		return m, nil

	case ProgressDoneMsg:
		return m, nil

	case WorkerResultsMsg:
		m.workers.SetResults(msg.Results)
		return m, nil

	case OutcomeMsg:
		m.chart.AddResidual(msg.Outcome.Residual)
		if msg.Outcome.State == orchestration.Converged {
			m.footer.SetDone(statusConverged)
		} else {
			m.footer.SetDone(statusCapReached)
		}
		m.header.SetDone()
		return m, nil

	case ErrorMsg:
		m.footer.SetError()
		m.header.SetDone()
		m.done = true
		return m, nil

	case TickMsg:
		if m.done {
			return m, nil
		}
		if !m.paused {
			return m, tea.Batch(sampleMemStatsCmd(), sampleSysStatsCmd(m.sampler), tickCmd())
		}
		return m, tickCmd()

	case MemStatsMsg:
		m.metrics.UpdateMemStats(msg)
		return m, nil

	case SysStatsMsg:
		m.metrics.UpdateSysStats(msg)
		m.chart.UpdateSysStats(msg.CPUPercent, msg.MemPercent)
		return m, nil

	case SolveCompleteMsg:
		if msg.Generation != m.generation {
			return m, nil
		}
		m.done = true
		m.exitCode = msg.ExitCode
		m.header.SetDone()
		return m, nil

	case ContextCancelledMsg:
		if msg.Generation != m.generation {
			return m, nil
		}
		m.done = true
		m.header.SetDone()
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		if !m.done {
			m.exitCode = apperrors.ExitErrorCanceled
		}
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Pause):
		m.paused = !m.paused
		m.footer.SetPaused(m.paused)
		return m, nil

	case key.Matches(msg, m.keymap.Help):
		m.footer.ToggleHelp()
		return m, nil

	case key.Matches(msg, m.keymap.Reset):
		m.cancel()
		m.generation++
		m.ctx, m.cancel = context.WithCancel(m.parentCtx)

		m.header.Reset()
		m.workers.Reset()
		m.chart.Reset()
		m.metrics = NewMetricsModel()
		m.footer.Reset()
		m.layoutPanels()
		m.done = false
		m.paused = false
		m.exitCode = apperrors.ExitSuccess

		return m, tea.Batch(
			tickCmd(),
			startSolveCmd(m.ref, m.ctx, m.problem, m.opts, m.config, m.generation),
			watchContextCmd(m.ctx, m.generation),
		)
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	right := lipgloss.JoinVertical(lipgloss.Left, m.metrics.View(), m.chart.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.workers.View(), right)
	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body, m.footer.View())
}

func (m *Model) layoutPanels() {
	m.header.SetWidth(m.width)
	m.footer.SetWidth(m.width)
	m.workers.SetSize(m.workersWidth(), m.bodyHeight())
	m.metrics.SetSize(m.rightWidth(), m.metricsHeight())
	m.chart.SetSize(m.rightWidth(), m.chartHeight())
}

// Run starts the dashboard, solves problem in-process and returns the
// exit code of the solve.
func Run(ctx context.Context, problem orchestration.Problem, opts orchestration.Options, cfg config.AppConfig, version string) int {
	initTUIStyles()

	model := NewModel(ctx, problem, opts, cfg, version)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.ref.SetProgram(p)

	finalModel, err := p.Run()
	if m, ok := finalModel.(Model); ok {
		m.cancel()
		if err == nil || m.done {
			return m.exitCode
		}
	}
	if apperrors.IsContextError(ctx.Err()) {
		return apperrors.HandleSolveError(ctx.Err(), 0, io.Discard)
	}
	return apperrors.ExitErrorGeneric
}

// startSolveCmd runs the cohort and reports through the bridge.
func startSolveCmd(ref *programRef, ctx context.Context, problem orchestration.Problem, opts orchestration.Options, cfg config.AppConfig, gen uint64) tea.Cmd {
	return func() tea.Msg {
		reporter := &TUIProgressReporter{ref: ref}
		presenter := &TUIResultPresenter{ref: ref}

		start := time.Now()
		cohort, err := orchestration.ExecuteCohort(ctx, problem, opts, reporter, io.Discard)
		if err != nil && !cohort.Failed() {
			return SolveCompleteMsg{ExitCode: presenter.HandleError(err, time.Since(start), io.Discard), Generation: gen}
		}
		presOpts := orchestration.PresentationOptions{
			Rows:          cfg.Rows,
			Cols:          cfg.Cols,
			Workers:       cfg.Workers,
			Epsilon:       cfg.Epsilon,
			MaxIterations: cfg.MaxIterations,
			Verbose:       cfg.Verbose,
			Details:       cfg.Details,
		}
		exitCode := orchestration.AnalyzeResults(cohort, presOpts, presenter, io.Discard)
		return SolveCompleteMsg{ExitCode: exitCode, Generation: gen}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(sampleInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sampleMemStatsCmd() tea.Cmd {
	return func() tea.Msg {
		return MemStatsMsg{Snapshot: metrics.ReadMemory(), NumGoroutine: runtime.NumGoroutine()}
	}
}

func sampleSysStatsCmd(s *sysmon.Sampler) tea.Cmd {
	return func() tea.Msg {
		return SysStatsMsg(s.Sample())
	}
}

// watchContextCmd waits for the run's context and reports cancellation.
func watchContextCmd(ctx context.Context, gen uint64) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ContextCancelledMsg{Err: ctx.Err(), Generation: gen}
	}
}
