package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/ui"
)

func newApp(t *testing.T, args ...string) (*Application, *bytes.Buffer) {
	t.Helper()
	var errOut bytes.Buffer
	a, err := New(append([]string{"heatcalc"}, args...), &errOut)
	require.NoError(t, err, errOut.String())
	return a, &errOut
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() { ui.SetCurrentTheme(ui.DarkTheme) })
	a, errOut := newApp(t, append([]string{"-no-color"}, args...)...)
	var out bytes.Buffer
	code := a.Run(context.Background(), &out)
	return code, out.String(), errOut.String()
}

func TestNew(t *testing.T) {
	a, _ := newApp(t, "-rows", "16", "-cols", "8", "-w", "2")
	assert.Equal(t, 16, a.Config.Rows)
	assert.NotEqual(t, "auto", a.Config.Kernel, "adaptive defaults must resolve the kernel")
	assert.Positive(t, a.Config.KernelThreads)
	assert.Len(t, a.RunID, 36)

	other, _ := newApp(t)
	assert.NotEqual(t, a.RunID, other.RunID)
}

func TestNewErrors(t *testing.T) {
	_, err := New([]string{"heatcalc", "-h"}, &bytes.Buffer{})
	assert.True(t, IsHelpError(err))

	_, err = New([]string{"heatcalc", "-rows", "-3"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.False(t, IsHelpError(err))
}

func TestRunConverges(t *testing.T) {
	code, out, _ := run(t, "-rows", "16", "-cols", "16", "-w", "4", "-d", "-v")
	assert.Equal(t, apperrors.ExitSuccess, code)
	for _, want := range []string{"Execution Configuration", "Global Status: Success", "Converged", "Max error at iteration"} {
		assert.Contains(t, out, want)
	}
}

func TestRunQuiet(t *testing.T) {
	code, out, _ := run(t, "-rows", "8", "-cols", "8", "-w", "2", "-q")
	assert.Equal(t, apperrors.ExitSuccess, code)
	fields := strings.Fields(strings.TrimSpace(out))
	require.Len(t, fields, 3, out)
	assert.Equal(t, "converged", fields[0])
}

func TestRunIterationCap(t *testing.T) {
	code, out, _ := run(t, "-rows", "32", "-cols", "32", "-w", "2", "-max-iterations", "3", "-q")
	assert.Equal(t, apperrors.ExitErrorNotConverged, code)
	assert.True(t, strings.HasPrefix(out, "stopped 3 "), out)
}

func TestRunDecompositionError(t *testing.T) {
	code, _, errOut := run(t, "-rows", "10", "-w", "3", "-q")
	assert.Equal(t, apperrors.ExitErrorConfig, code)
	assert.Contains(t, errOut, "Configuration error")
}

func TestRunWritesField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "field.txt")
	code, out, _ := run(t, "-rows", "4", "-cols", "6", "-w", "2", "-o", path)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, "Field saved to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# heatcalc field\n"))
	assert.Contains(t, string(data), "# state: Converged")
}

func TestRunLogsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatcalc.log")
	code, _, errOut := run(t, "-rows", "8", "-cols", "8", "-w", "2", "-q", "-log-level", "info", "-log-file", path)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Empty(t, errOut)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"solve finished"`)
	assert.Contains(t, string(data), `"run_id"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("debug").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}

func TestOutcomeCaptureState(t *testing.T) {
	c := &outcomeCapture{ResultPresenter: quietPresenter{errOut: &bytes.Buffer{}}}
	assert.Equal(t, "Unknown", c.state())

	c.HandleError(context.Canceled, 0, &bytes.Buffer{})
	assert.Equal(t, "Failed", c.state())

	var out bytes.Buffer
	c.PresentOutcome(orchestration.Outcome{State: orchestration.Stopped, Iterations: 7}, orchestration.PresentationOptions{}, &out)
	assert.Equal(t, "Stopped", c.state())
	assert.Equal(t, "stopped 7 0\n", out.String())
}

func TestVersion(t *testing.T) {
	assert.True(t, HasVersionFlag([]string{"-w", "2", "--version"}))
	assert.False(t, HasVersionFlag([]string{"-v"}))

	var out bytes.Buffer
	PrintVersion(&out)
	assert.True(t, strings.HasPrefix(out.String(), "heatcalc dev"))
}
