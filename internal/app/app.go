// Package app wires configuration, presentation and the solver together
// into the heatcalc command.
package app

import (
	"context"
	"errors"
	"flag"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agbru/heatcalc/internal/config"
	"github.com/agbru/heatcalc/internal/logging"
	"github.com/agbru/heatcalc/internal/tui"
	"github.com/agbru/heatcalc/internal/ui"
)

// Application represents one heatcalc invocation.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	// RunID tags every log entry and the /healthz response of this run.
	RunID string
}

// New creates an Application by parsing command-line arguments. args[0]
// is the program name.
func New(args []string, errWriter io.Writer) (*Application, error) {
	programName := "heatcalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	return &Application{
		Config:    config.ApplyAdaptiveDefaults(cfg),
		ErrWriter: errWriter,
		RunID:     uuid.NewString(),
	}, nil
}

// Run executes the application and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	ui.InitTheme(a.Config.NoColor)
	logger, closeLog := a.newLogger()
	defer closeLog()

	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	defer cancelTimeout()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if a.Config.TUI {
		return a.runTUI(ctx, logger)
	}
	return a.runSolve(ctx, out, logger)
}

// newLogger builds the run's logger. Logs go to the rotating file when
// --log-file is set and to the error writer otherwise.
func (a *Application) newLogger() (*logging.ZerologAdapter, func()) {
	zerolog.SetGlobalLevel(parseLevel(a.Config.LogLevel))

	var base *logging.ZerologAdapter
	closeLog := func() {}
	switch {
	case a.Config.LogFile != "":
		l, closer := logging.NewFileLogger(a.Config.LogFile, "heatcalc")
		base, closeLog = l, func() { _ = closer.Close() }
	case a.Config.TUI:
		// The dashboard owns the terminal.
		base = logging.NewLogger(io.Discard, "heatcalc")
	default:
		base = logging.NewLogger(a.ErrWriter, "heatcalc")
	}
	return base.With(logging.String("run_id", a.RunID)), closeLog
}

func parseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return level
}

// runTUI launches the interactive dashboard on an in-process cohort.
func (a *Application) runTUI(ctx context.Context, logger logging.Logger) int {
	problem, opts, err := a.buildProblem(logger)
	if err != nil {
		return a.reportSetupError(err)
	}
	return tui.Run(ctx, problem, opts, a.Config, Version)
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
