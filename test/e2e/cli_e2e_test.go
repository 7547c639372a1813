package e2e

import (
	"bytes"
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// buildBinary compiles cmd/heatcalc into a temporary directory. go test
// runs from the package directory, so the module root is two levels up.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "heatcalc"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), binName)

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/heatcalc")
	cmd.Dir = "../.."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to build heatcalc: %v", err)
	}
	return binPath
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func TestCLI_E2E(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := buildBinary(t)
	outFile := filepath.Join(t.TempDir(), "field.txt")

	tests := []struct {
		name     string
		args     []string
		wantOut  string // case-insensitive substring
		wantCode int
	}{
		{
			name:    "Converges",
			args:    []string{"-rows", "16", "-cols", "16", "-w", "4"},
			wantOut: "converged after",
		},
		{
			name:    "Quiet",
			args:    []string{"-rows", "16", "-cols", "16", "-w", "2", "-q"},
			wantOut: "converged ",
		},
		{
			name:     "Iteration Cap",
			args:     []string{"-rows", "64", "-cols", "64", "-w", "2", "-max-iterations", "5"},
			wantOut:  "iteration cap reached",
			wantCode: 5,
		},
		{
			name:     "Uneven Decomposition",
			args:     []string{"-rows", "10", "-w", "3"},
			wantOut:  "configuration error",
			wantCode: 4,
		},
		{
			name:     "Invalid Flag Value",
			args:     []string{"-epsilon", "0"},
			wantOut:  "epsilon must be positive",
			wantCode: 4,
		},
		{
			name:     "Very Short Timeout",
			args:     []string{"-rows", "1024", "-cols", "1024", "-w", "2", "-epsilon", "1e-9", "-timeout", "1ms"},
			wantCode: 2,
		},
		{
			name:    "Field Output",
			args:    []string{"-rows", "8", "-cols", "8", "-w", "2", "-o", outFile},
			wantOut: "field saved",
		},
		{
			name:    "Help",
			args:    []string{"--help"},
			wantOut: "usage",
		},
		{
			name:    "Version Flag",
			args:    []string{"--version"},
			wantOut: "heatcalc",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binPath, tt.args...)
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			output, err := cmd.CombinedOutput()
			outStr := string(output)

			if got := exitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d, want %d\nOutput: %s", got, tt.wantCode, outStr)
			}
			if tt.wantOut != "" && !strings.Contains(strings.ToLower(outStr), strings.ToLower(tt.wantOut)) {
				t.Errorf("Output missing %q:\n%s", tt.wantOut, outStr)
			}
		})
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("field file not written: %v", err)
	}
	// Two comment lines of header at least, then 10 padded rows.
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var rows int
	for _, l := range lines {
		if !strings.HasPrefix(l, "#") {
			rows++
		}
	}
	if rows != 10 {
		t.Errorf("field file has %d data rows, want 10", rows)
	}
}

// freeAddrs reserves n loopback addresses. The listeners are closed before
// returning, so a port can in rare cases be taken again before use.
func freeAddrs(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, n)
	for i := range addrs {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addrs[i] = ln.Addr().String()
		ln.Close()
	}
	return addrs
}

func TestCLI_E2E_WebSocketCohort(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binPath := buildBinary(t)
	const ranks = 3
	peers := strings.Join(freeAddrs(t, ranks), ",")

	outputs := make([]bytes.Buffer, ranks)
	errs := make([]error, ranks)
	var wg sync.WaitGroup
	for rank := 0; rank < ranks; rank++ {
		rank := rank
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd := exec.Command(binPath,
				"-rows", "24", "-cols", "16", "-w", "3",
				"-transport", "ws", "-rank", strconv.Itoa(rank), "-peers", peers,
				"-timeout", "1m", "-q")
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			cmd.Stdout = &outputs[rank]
			cmd.Stderr = &outputs[rank]
			errs[rank] = cmd.Run()
		}()
	}
	wg.Wait()

	var first string
	for rank := 0; rank < ranks; rank++ {
		out := strings.TrimSpace(outputs[rank].String())
		if errs[rank] != nil {
			t.Fatalf("rank %d failed: %v\n%s", rank, errs[rank], out)
		}
		last := out[strings.LastIndex(out, "\n")+1:]
		if !strings.HasPrefix(last, "converged ") {
			t.Errorf("rank %d final line = %q", rank, last)
		}
		if rank == 0 {
			first = last
		} else if last != first {
			t.Errorf("rank %d reported %q, rank 0 reported %q", rank, last, first)
		}
	}
}
