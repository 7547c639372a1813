// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// Aliased flags may be given in either their short or long form.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride maps an env key (without the HEATCALC_ prefix) to the CLI
// flag name(s) it corresponds to and a function that applies the value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

func intOverride(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst(c) = parsed
		}
	}
}

func boolOverride(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := dst(c)
		*p = parseBoolEnv(v, *p)
	}
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	// Numeric overrides
	{"ROWS", []string{"rows"}, intOverride(func(c *AppConfig) *int { return &c.Rows })},
	{"COLS", []string{"cols"}, intOverride(func(c *AppConfig) *int { return &c.Cols })},
	{"WORKERS", []string{"workers", "w"}, intOverride(func(c *AppConfig) *int { return &c.Workers })},
	{"MAX_ITERATIONS", []string{"max-iterations"}, intOverride(func(c *AppConfig) *int { return &c.MaxIterations })},
	{"KERNEL_THREADS", []string{"kernel-threads"}, intOverride(func(c *AppConfig) *int { return &c.KernelThreads })},
	{"RANK", []string{"rank"}, intOverride(func(c *AppConfig) *int { return &c.Rank })},
	{"PROGRESS_INTERVAL", []string{"progress-interval"}, intOverride(func(c *AppConfig) *int { return &c.ProgressInterval })},
	{"EPSILON", []string{"epsilon"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Epsilon = parsed
		}
	}},

	// Duration overrides
	{"TIMEOUT", []string{"timeout"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Timeout = parsed
		}
	}},

	// String overrides
	{"BOUNDARY", []string{"boundary"}, func(c *AppConfig, v string) { c.Boundary = v }},
	{"KERNEL", []string{"kernel"}, func(c *AppConfig, v string) { c.Kernel = v }},
	{"TRANSPORT", []string{"transport"}, func(c *AppConfig, v string) { c.Transport = v }},
	{"PEERS", []string{"peers"}, func(c *AppConfig, v string) { c.Peers = splitPeers(v) }},
	{"OUTPUT", []string{"output", "o"}, func(c *AppConfig, v string) { c.OutputFile = v }},
	{"METRICS_ADDR", []string{"metrics-addr"}, func(c *AppConfig, v string) { c.MetricsAddr = v }},
	{"LOG_LEVEL", []string{"log-level"}, func(c *AppConfig, v string) { c.LogLevel = strings.ToLower(v) }},
	{"LOG_FILE", []string{"log-file"}, func(c *AppConfig, v string) { c.LogFile = v }},

	// Boolean overrides
	{"VERBOSE", []string{"v", "verbose"}, boolOverride(func(c *AppConfig) *bool { return &c.Verbose })},
	{"DETAILS", []string{"d", "details"}, boolOverride(func(c *AppConfig) *bool { return &c.Details })},
	{"QUIET", []string{"quiet", "q"}, boolOverride(func(c *AppConfig) *bool { return &c.Quiet })},
	{"TUI", []string{"tui"}, boolOverride(func(c *AppConfig) *bool { return &c.TUI })},
	{"NO_COLOR", []string{"no-color"}, boolOverride(func(c *AppConfig) *bool { return &c.NoColor })},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// Values that fail to parse are ignored.
//
// Supported environment variables (all prefixed with HEATCALC_):
//   - ROWS, COLS, WORKERS, MAX_ITERATIONS, EPSILON, KERNEL_THREADS, RANK,
//     PROGRESS_INTERVAL, TIMEOUT, BOUNDARY, KERNEL, TRANSPORT, PEERS,
//     OUTPUT, METRICS_ADDR, LOG_LEVEL, LOG_FILE, VERBOSE, DETAILS, QUIET,
//     TUI, NO_COLOR, CONFIG
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
