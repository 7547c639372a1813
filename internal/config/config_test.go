package config

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/stencil"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig("heatcalc", nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	want := Default()
	if cfg.Rows != want.Rows || cfg.Cols != want.Cols || cfg.Workers != want.Workers {
		t.Errorf("grid = %dx%d/%d, want %dx%d/%d", cfg.Rows, cfg.Cols, cfg.Workers, want.Rows, want.Cols, want.Workers)
	}
	if cfg.Epsilon != 0.01 || cfg.MaxIterations != 4000 {
		t.Errorf("criterion = (%v, %d), want (0.01, 4000)", cfg.Epsilon, cfg.MaxIterations)
	}
	if cfg.Transport != TransportLocal || cfg.Kernel != KernelAuto || cfg.Boundary != "laplace" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigFlags(t *testing.T) {
	args := []string{
		"-rows", "16", "-cols", "8", "-w", "2", "-max-iterations", "50",
		"-epsilon", "1e-4", "-boundary", "right-ramp", "-kernel", "parallel",
		"-timeout", "30s", "-o", "field.txt", "-q", "-d",
	}
	cfg, err := ParseConfig("heatcalc", args, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Rows != 16 || cfg.Cols != 8 || cfg.Workers != 2 || cfg.MaxIterations != 50 {
		t.Errorf("numeric flags not applied: %+v", cfg)
	}
	if cfg.Epsilon != 1e-4 || cfg.Boundary != "right-ramp" || cfg.Kernel != stencil.ParallelName {
		t.Errorf("solver flags not applied: %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second || cfg.OutputFile != "field.txt" || !cfg.Quiet || !cfg.Details {
		t.Errorf("output flags not applied: %+v", cfg)
	}
}

func TestParseConfigPeers(t *testing.T) {
	args := []string{"-transport", "ws", "-rank", "1", "-peers", "a:1, b:2,,c:3"}
	cfg, err := ParseConfig("heatcalc", args, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	want := []string{"a:1", "b:2", "c:3"}
	if len(cfg.Peers) != len(want) {
		t.Fatalf("Peers = %v, want %v", cfg.Peers, want)
	}
	for i := range want {
		if cfg.Peers[i] != want[i] {
			t.Errorf("Peers[%d] = %q, want %q", i, cfg.Peers[i], want[i])
		}
	}
}

func TestParseConfigHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseConfig("heatcalc", []string{"-h"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("error = %v, want flag.ErrHelp", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("HEATCALC_WORKERS")) {
		t.Errorf("usage does not mention environment overrides:\n%s", out.String())
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero rows", []string{"-rows", "0"}},
		{"negative workers", []string{"-workers", "-1"}},
		{"zero cap", []string{"-max-iterations", "0"}},
		{"zero epsilon", []string{"-epsilon", "0"}},
		{"unknown boundary", []string{"-boundary", "hot"}},
		{"unknown kernel", []string{"-kernel", "gpu"}},
		{"unknown transport", []string{"-transport", "mpi"}},
		{"ws without peers", []string{"-transport", "ws"}},
		{"rank outside peers", []string{"-transport", "ws", "-peers", "a:1", "-rank", "1"}},
		{"ws dashboard", []string{"-transport", "ws", "-peers", "a:1", "-tui"}},
		{"unknown log level", []string{"-log-level", "trace"}},
		{"positional args", []string{"extra"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("heatcalc", tt.args, &bytes.Buffer{})
			var cfgErr apperrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEATCALC_ROWS", "32")
	t.Setenv("HEATCALC_WORKERS", "8")
	t.Setenv("HEATCALC_EPSILON", "0.5")
	t.Setenv("HEATCALC_TIMEOUT", "1m")
	t.Setenv("HEATCALC_VERBOSE", "yes")
	t.Setenv("HEATCALC_LOG_LEVEL", "DEBUG")
	t.Setenv("HEATCALC_COLS", "not-a-number")

	cfg, err := ParseConfig("heatcalc", []string{"-w", "2"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Rows != 32 {
		t.Errorf("Rows = %d, want 32 from env", cfg.Rows)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want flag value 2 over env", cfg.Workers)
	}
	if cfg.Cols != DefaultCols {
		t.Errorf("Cols = %d, want default for an unparsable env value", cfg.Cols)
	}
	if cfg.Epsilon != 0.5 || cfg.Timeout != time.Minute || !cfg.Verbose || cfg.LogLevel != "debug" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		in   string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := parseBoolEnv(tt.in, tt.def); got != tt.want {
			t.Errorf("parseBoolEnv(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heatcalc.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigFilePriority(t *testing.T) {
	path := writeConfigFile(t, `
rows: 64
cols: 64
workers: 4
epsilon: 0.001
timeout: 2m
peers:
  - "a:1"
  - "b:2"
verbose: true
`)
	t.Setenv("HEATCALC_COLS", "128")

	cfg, err := ParseConfig("heatcalc", []string{"-config", path, "-workers", "2"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Rows != 64 {
		t.Errorf("Rows = %d, want 64 from file", cfg.Rows)
	}
	if cfg.Cols != 128 {
		t.Errorf("Cols = %d, want 128 from env over file", cfg.Cols)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2 from flag over file", cfg.Workers)
	}
	if cfg.Epsilon != 0.001 || cfg.Timeout != 2*time.Minute || !cfg.Verbose || len(cfg.Peers) != 2 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestConfigFileFromEnv(t *testing.T) {
	path := writeConfigFile(t, "max_iterations: 12\n")
	t.Setenv("HEATCALC_CONFIG", path)

	cfg, err := ParseConfig("heatcalc", nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.MaxIterations != 12 {
		t.Errorf("MaxIterations = %d, want 12", cfg.MaxIterations)
	}
}

func TestConfigFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "rowz: 4\n"},
		{"bad timeout", "timeout: soon\n"},
		{"bad type", "rows: many\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFile([]byte(tt.body))
			var cfgErr apperrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		var cfgErr apperrors.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("error = %v, want ConfigError", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		fc, err := decodeFile(nil)
		if err != nil {
			t.Fatalf("decodeFile(nil) error = %v", err)
		}
		if fc.Rows != nil {
			t.Errorf("Rows = %v, want nil", *fc.Rows)
		}
	})
}

func TestApplyAdaptiveDefaults(t *testing.T) {
	tests := []struct {
		name        string
		cfg         AppConfig
		numCPU      int
		wantKernel  string
		wantThreads int
	}{
		{"small grid stays serial", AppConfig{Rows: 64, Cols: 64, Workers: 4, Kernel: KernelAuto}, 16, stencil.SerialName, 4},
		{"large band goes parallel", AppConfig{Rows: 2048, Cols: 2048, Workers: 2, Kernel: KernelAuto}, 8, stencil.ParallelName, 4},
		{"single cpu per worker", AppConfig{Rows: 2048, Cols: 2048, Workers: 8, Kernel: KernelAuto}, 4, stencil.SerialName, 1},
		{"ws rank owns the host", AppConfig{Rows: 2048, Cols: 2048, Workers: 8, Kernel: KernelAuto, Transport: TransportWebSocket}, 4, stencil.ParallelName, 4},
		{"explicit kernel kept", AppConfig{Rows: 64, Cols: 64, Workers: 1, Kernel: stencil.ParallelName, KernelThreads: 3}, 16, stencil.ParallelName, 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := applyAdaptiveDefaults(tt.cfg, tt.numCPU)
			if got.Kernel != tt.wantKernel || got.KernelThreads != tt.wantThreads {
				t.Errorf("got (%s, %d), want (%s, %d)", got.Kernel, got.KernelThreads, tt.wantKernel, tt.wantThreads)
			}
		})
	}
}
