// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     They handle presentation logic and colorization.
//     Examples: [DisplayProgress], [DisplayQuietResult], [DisplayProbe].
//
//   - Format* functions render without touching the filesystem.
//     Examples: [FormatField], [FormatQuietResult], [FormatProgressLine].
//
//   - Write* functions write data to files on the filesystem.
//     Examples: [WriteFieldToFile].

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agbru/heatcalc/internal/format"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/ui"
)

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the path of the field dump (empty for none).
	OutputFile string
	// Quiet prints a single machine-readable line.
	Quiet bool
}

// FormatField writes every padded row of f, boundary and ghost rows
// included, as space-separated values with six decimals.
func FormatField(w io.Writer, f *grid.Field) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 16)
	for i := 0; i <= f.Rows()+1; i++ {
		for j, v := range f.Row(i) {
			if j > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendFloat(buf[:0], v, 'f', 6, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFieldToFile writes a commented header describing the solve
// followed by the field.
//
// Parameters:
//   - path: The destination file; parent directories are created.
//   - outcome: The solve outcome; outcome.Field must be set.
//
// Returns:
//   - error: An error if the field is missing or the file cannot be written.
func WriteFieldToFile(path string, outcome orchestration.Outcome) error {
	if outcome.Field == nil {
		return fmt.Errorf("no assembled field to write")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "# heatcalc field\n")
	fmt.Fprintf(file, "# rows: %d cols: %d (boundary included)\n", outcome.Field.Rows()+2, outcome.Field.Cols()+2)
	fmt.Fprintf(file, "# state: %s\n", outcome.State)
	fmt.Fprintf(file, "# iterations: %d\n", outcome.Iterations)
	fmt.Fprintf(file, "# residual: %s\n", format.FormatResidualExact(outcome.Residual))
	if err := FormatField(file, outcome.Field); err != nil {
		return err
	}
	return file.Close()
}

// FormatQuietResult renders the outcome as one line for scripts:
// state, iterations and residual separated by spaces.
func FormatQuietResult(outcome orchestration.Outcome) string {
	return strings.Join([]string{
		strings.ToLower(outcome.State.String()),
		strconv.Itoa(outcome.Iterations),
		format.FormatResidualExact(outcome.Residual),
	}, " ")
}

// DisplayQuietResult prints FormatQuietResult.
func DisplayQuietResult(out io.Writer, outcome orchestration.Outcome) {
	fmt.Fprintln(out, FormatQuietResult(outcome))
}

// DisplayFieldSaved confirms the field dump location.
func DisplayFieldSaved(out io.Writer, path string) {
	fmt.Fprintf(out, "\n%s✓ Field saved to: %s%s%s\n", ui.ColorGreen(), ui.ColorCyan(), path, ui.ColorReset())
}
