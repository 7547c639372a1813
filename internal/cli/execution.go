package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/agbru/heatcalc/internal/config"
	"github.com/agbru/heatcalc/internal/format"
	"github.com/agbru/heatcalc/internal/ui"
)

// PrintExecutionConfig displays the problem, the decomposition and the
// host environment before the solve starts.
//
// Parameters:
//   - cfg: The application configuration.
//   - out: The writer for standard output.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Solving a %s%dx%d%s grid (%s cells) with the %s%s%s boundary, epsilon %s, at most %s iterations.\n",
		ui.ColorPrimary(), cfg.Rows, cfg.Cols, ui.ColorReset(),
		format.FormatCount(int64(cfg.Rows)*int64(cfg.Cols)),
		ui.ColorPrimary(), cfg.Boundary, ui.ColorReset(),
		format.FormatResidual(cfg.Epsilon), format.FormatCount(int64(cfg.MaxIterations)))
	bandRows := 0
	if cfg.Workers > 0 {
		bandRows = cfg.Rows / cfg.Workers
	}
	fmt.Fprintf(out, "Decomposition: %s%d%s workers over %s transport, %d rows each, %s kernel (%d threads).\n",
		ui.ColorCyan(), cfg.Workers, ui.ColorReset(), cfg.Transport, bandRows, cfg.Kernel, cfg.KernelThreads)
	fmt.Fprintf(out, "Environment: %s%d%s logical processors, Go %s%s%s, %s%s%s.\n",
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(), ui.ColorCyan(), runtime.Version(), ui.ColorReset(),
		ui.ColorDim(), CPUFeatures(), ui.ColorReset())
	fmt.Fprintf(out, "Timeout: %s%s%s.\n", ui.ColorYellow(), cfg.Timeout, ui.ColorReset())
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}

// CPUFeatures lists the SIMD extensions the host reports, e.g.
// "amd64 [avx2 fma]".
func CPUFeatures() string {
	var feats []string
	add := func(ok bool, name string) {
		if ok {
			feats = append(feats, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE42, "sse4.2")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
	}
	if len(feats) == 0 {
		return runtime.GOARCH
	}
	return fmt.Sprintf("%s [%s]", runtime.GOARCH, strings.Join(feats, " "))
}
