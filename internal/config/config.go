// Package config handles the command-line configuration of heatcalc.
// Values are resolved with the priority: CLI flags > HEATCALC_*
// environment variables > YAML config file > built-in defaults.
package config

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/agbru/heatcalc/internal/convergence"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/stencil"
)

const (
	// EnvPrefix is the prefix of every environment variable override.
	EnvPrefix = "HEATCALC_"

	// DefaultRows and DefaultCols are the grid size of the reference runs.
	DefaultRows = 672
	DefaultCols = 672
	// DefaultWorkers is the number of in-process workers.
	DefaultWorkers = 4
	// DefaultTimeout bounds the whole solve.
	DefaultTimeout = 10 * time.Minute
	// DefaultProgressInterval is the iteration cadence of progress updates.
	DefaultProgressInterval = 100

	// KernelAuto lets ApplyAdaptiveDefaults pick the kernel.
	KernelAuto = "auto"

	TransportLocal     = "local"
	TransportWebSocket = "ws"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// AppConfig holds the resolved configuration of one heatcalc process.
type AppConfig struct {
	Rows          int
	Cols          int
	Workers       int
	MaxIterations int
	Epsilon       float64
	Boundary      string
	Kernel        string
	KernelThreads int

	// Transport selects the messaging layer: "local" runs every worker in
	// this process, "ws" runs a single rank connected to Peers.
	Transport string
	Rank      int
	Peers     []string

	Timeout          time.Duration
	ProgressInterval int

	OutputFile  string
	MetricsAddr string
	LogLevel    string
	LogFile     string
	ConfigFile  string

	Quiet   bool
	Verbose bool
	Details bool
	TUI     bool
	NoColor bool
}

// Default returns the configuration used when nothing is overridden.
func Default() AppConfig {
	return AppConfig{
		Rows:             DefaultRows,
		Cols:             DefaultCols,
		Workers:          DefaultWorkers,
		MaxIterations:    convergence.DefaultMaxIterations,
		Epsilon:          convergence.DefaultEpsilon,
		Boundary:         grid.LaplaceRamp{}.Name(),
		Kernel:           KernelAuto,
		Transport:        TransportLocal,
		Timeout:          DefaultTimeout,
		ProgressInterval: DefaultProgressInterval,
		LogLevel:         "warn",
	}
}

// peersValue is a flag.Value accepting a comma-separated list of addresses.
type peersValue struct{ peers *[]string }

func (p peersValue) String() string {
	if p.peers == nil {
		return ""
	}
	return strings.Join(*p.peers, ",")
}

func (p peersValue) Set(s string) error {
	*p.peers = splitPeers(s)
	return nil
}

func splitPeers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseConfig parses the command-line arguments into an AppConfig.
//
// Parameters:
//   - programName: The name shown in usage messages.
//   - args: The arguments without the program name.
//   - errorWriter: Where usage and parse errors are written.
//
// Returns:
//   - AppConfig: The resolved and validated configuration.
//   - error: flag.ErrHelp when help was requested, a ConfigError otherwise.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	config := Default()
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	fs.Usage = func() {
		fmt.Fprintf(errorWriter, "Usage: %s [options]\n\n", programName)
		fmt.Fprintln(errorWriter, "Solves the 2D Laplace equation by distributed Jacobi relaxation.")
		fmt.Fprintln(errorWriter, "\nOptions:")
		fs.PrintDefaults()
		fmt.Fprintf(errorWriter, "\nEvery option can also be set through %s<NAME> (e.g. %sWORKERS=8)\n", EnvPrefix, EnvPrefix)
	}

	fs.IntVar(&config.Rows, "rows", config.Rows, "Number of interior rows of the grid.")
	fs.IntVar(&config.Cols, "cols", config.Cols, "Number of interior columns of the grid.")
	fs.IntVar(&config.Workers, "workers", config.Workers, "Number of workers; rows must divide evenly across them.")
	fs.IntVar(&config.Workers, "w", config.Workers, "Number of workers (shorthand).")
	fs.IntVar(&config.MaxIterations, "max-iterations", config.MaxIterations, "Iteration cap.")
	fs.Float64Var(&config.Epsilon, "epsilon", config.Epsilon, "Convergence threshold on the maximum change per iteration.")
	fs.StringVar(&config.Boundary, "boundary", config.Boundary, fmt.Sprintf("Boundary condition (%s).", strings.Join(grid.BoundaryNames(), ", ")))
	fs.StringVar(&config.Kernel, "kernel", config.Kernel, fmt.Sprintf("Stencil kernel (%s, %s, %s).", KernelAuto, stencil.SerialName, stencil.ParallelName))
	fs.IntVar(&config.KernelThreads, "kernel-threads", config.KernelThreads, "Goroutines per worker for the parallel kernel (0 = auto).")
	fs.StringVar(&config.Transport, "transport", config.Transport, "Messaging transport ('local' or 'ws').")
	fs.IntVar(&config.Rank, "rank", config.Rank, "This process's rank (ws transport).")
	fs.Var(peersValue{&config.Peers}, "peers", "Comma-separated host:port of every rank, in rank order (ws transport).")
	fs.DurationVar(&config.Timeout, "timeout", config.Timeout, "Maximum duration of the solve.")
	fs.IntVar(&config.ProgressInterval, "progress-interval", config.ProgressInterval, "Iterations between progress updates.")
	fs.StringVar(&config.OutputFile, "output", "", "Write the assembled field to this file.")
	fs.StringVar(&config.OutputFile, "o", "", "Output file (shorthand).")
	fs.StringVar(&config.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090).")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, fmt.Sprintf("Log level (%s).", strings.Join(logLevels, ", ")))
	fs.StringVar(&config.LogFile, "log-file", "", "Write logs to this rotating file instead of stderr.")
	fs.StringVar(&config.ConfigFile, "config", "", "YAML configuration file.")
	fs.BoolVar(&config.Quiet, "quiet", false, "Quiet mode: print only the final line.")
	fs.BoolVar(&config.Quiet, "q", false, "Quiet mode (shorthand).")
	fs.BoolVar(&config.Verbose, "verbose", false, "Show the corner probe and wait percentiles.")
	fs.BoolVar(&config.Verbose, "v", false, "Verbose output (shorthand).")
	fs.BoolVar(&config.Details, "details", false, "Show the per-worker table.")
	fs.BoolVar(&config.Details, "d", false, "Per-worker table (shorthand).")
	fs.BoolVar(&config.TUI, "tui", false, "Launch the interactive dashboard.")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 {
		return AppConfig{}, apperrors.NewConfigError("unexpected arguments: %v", fs.Args())
	}

	if file := configFilePath(config, fs); file != "" {
		fc, err := LoadFile(file)
		if err != nil {
			return AppConfig{}, err
		}
		config.ConfigFile = file
		fc.apply(&config, fs)
	}
	applyEnvOverrides(&config, fs)

	if err := config.Validate(); err != nil {
		fmt.Fprintln(errorWriter, "Error:", err)
		return AppConfig{}, err
	}
	return config, nil
}

// configFilePath returns the --config flag, or HEATCALC_CONFIG when the
// flag was not given.
func configFilePath(config AppConfig, fs *flag.FlagSet) string {
	if isFlagSet(fs, "config") {
		return config.ConfigFile
	}
	return getEnvString("CONFIG", config.ConfigFile)
}

// Validate checks the semantic consistency of the configuration.
// Decomposition checks that depend on the running cohort (worker count
// against the actual number of ranks) are made by the solver.
func (c AppConfig) Validate() error {
	switch {
	case c.Rows <= 0 || c.Cols <= 0:
		return apperrors.NewConfigError("grid must have positive dimensions, got %dx%d", c.Rows, c.Cols)
	case c.Workers <= 0:
		return apperrors.NewConfigError("worker count must be positive, got %d", c.Workers)
	case c.MaxIterations < 1:
		return apperrors.NewConfigError("max iterations must be at least 1, got %d", c.MaxIterations)
	case !(c.Epsilon > 0):
		return apperrors.NewConfigError("epsilon must be positive, got %v", c.Epsilon)
	case c.KernelThreads < 0:
		return apperrors.NewConfigError("kernel threads cannot be negative, got %d", c.KernelThreads)
	case c.Timeout <= 0:
		return apperrors.NewConfigError("timeout must be positive, got %s", c.Timeout)
	case c.ProgressInterval <= 0:
		return apperrors.NewConfigError("progress interval must be positive, got %d", c.ProgressInterval)
	case !slices.Contains(logLevels, c.LogLevel):
		return apperrors.NewConfigError("unknown log level %q (available: %v)", c.LogLevel, logLevels)
	}
	if _, err := grid.BoundaryByName(c.Boundary); err != nil {
		return err
	}
	switch c.Kernel {
	case KernelAuto, stencil.SerialName, stencil.ParallelName:
	default:
		return apperrors.NewConfigError("unknown kernel %q (available: %s, %s, %s)", c.Kernel, KernelAuto, stencil.SerialName, stencil.ParallelName)
	}
	switch c.Transport {
	case TransportLocal:
	case TransportWebSocket:
		if len(c.Peers) == 0 {
			return apperrors.NewConfigError("transport %q requires --peers", c.Transport)
		}
		if c.Rank < 0 || c.Rank >= len(c.Peers) {
			return apperrors.NewConfigError("rank %d out of range for %d peers", c.Rank, len(c.Peers))
		}
		if c.TUI {
			return apperrors.NewConfigError("the dashboard is only available with the local transport")
		}
	default:
		return apperrors.NewConfigError("unknown transport %q (available: %s, %s)", c.Transport, TransportLocal, TransportWebSocket)
	}
	return nil
}

// Criterion returns the stop rule described by the configuration.
func (c AppConfig) Criterion() convergence.Criterion {
	return convergence.Criterion{Epsilon: c.Epsilon, MaxIterations: c.MaxIterations}
}
