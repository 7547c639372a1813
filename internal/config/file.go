package config

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/heatcalc/internal/errors"
)

// FileConfig mirrors AppConfig for YAML configuration files. Absent keys
// stay nil and leave the default untouched.
type FileConfig struct {
	Rows             *int     `yaml:"rows"`
	Cols             *int     `yaml:"cols"`
	Workers          *int     `yaml:"workers"`
	MaxIterations    *int     `yaml:"max_iterations"`
	Epsilon          *float64 `yaml:"epsilon"`
	Boundary         *string  `yaml:"boundary"`
	Kernel           *string  `yaml:"kernel"`
	KernelThreads    *int     `yaml:"kernel_threads"`
	Transport        *string  `yaml:"transport"`
	Rank             *int     `yaml:"rank"`
	Peers            []string `yaml:"peers"`
	Timeout          *string  `yaml:"timeout"`
	ProgressInterval *int     `yaml:"progress_interval"`
	Output           *string  `yaml:"output"`
	MetricsAddr      *string  `yaml:"metrics_addr"`
	LogLevel         *string  `yaml:"log_level"`
	LogFile          *string  `yaml:"log_file"`
	Verbose          *bool    `yaml:"verbose"`
	Details          *bool    `yaml:"details"`
	Quiet            *bool    `yaml:"quiet"`

	timeout time.Duration
}

// LoadFile reads and decodes a YAML configuration file. Unknown keys are
// rejected so typos surface as configuration errors.
func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, apperrors.NewConfigError("reading config file: %v", err)
	}
	return decodeFile(data)
}

func decodeFile(data []byte) (FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, apperrors.NewConfigError("parsing config file: %v", err)
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return FileConfig{}, apperrors.NewConfigError("config file: invalid timeout %q", *fc.Timeout)
		}
		fc.timeout = d
	}
	return fc, nil
}

// setFromFile copies v into dst unless v is nil or one of the flags was
// given on the command line.
func setFromFile[T any](fs *flag.FlagSet, dst *T, v *T, flags ...string) {
	if v != nil && !isFlagSetAny(fs, flags...) {
		*dst = *v
	}
}

func (fc FileConfig) apply(c *AppConfig, fs *flag.FlagSet) {
	setFromFile(fs, &c.Rows, fc.Rows, "rows")
	setFromFile(fs, &c.Cols, fc.Cols, "cols")
	setFromFile(fs, &c.Workers, fc.Workers, "workers", "w")
	setFromFile(fs, &c.MaxIterations, fc.MaxIterations, "max-iterations")
	setFromFile(fs, &c.Epsilon, fc.Epsilon, "epsilon")
	setFromFile(fs, &c.Boundary, fc.Boundary, "boundary")
	setFromFile(fs, &c.Kernel, fc.Kernel, "kernel")
	setFromFile(fs, &c.KernelThreads, fc.KernelThreads, "kernel-threads")
	setFromFile(fs, &c.Transport, fc.Transport, "transport")
	setFromFile(fs, &c.Rank, fc.Rank, "rank")
	setFromFile(fs, &c.ProgressInterval, fc.ProgressInterval, "progress-interval")
	setFromFile(fs, &c.OutputFile, fc.Output, "output", "o")
	setFromFile(fs, &c.MetricsAddr, fc.MetricsAddr, "metrics-addr")
	setFromFile(fs, &c.LogLevel, fc.LogLevel, "log-level")
	setFromFile(fs, &c.LogFile, fc.LogFile, "log-file")
	setFromFile(fs, &c.Verbose, fc.Verbose, "verbose", "v")
	setFromFile(fs, &c.Details, fc.Details, "details", "d")
	setFromFile(fs, &c.Quiet, fc.Quiet, "quiet", "q")
	if fc.Peers != nil && !isFlagSet(fs, "peers") {
		c.Peers = fc.Peers
	}
	if fc.Timeout != nil && !isFlagSet(fs, "timeout") {
		c.Timeout = fc.timeout
	}
}
