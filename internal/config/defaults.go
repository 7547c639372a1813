package config

import (
	"runtime"

	"github.com/agbru/heatcalc/internal/stencil"
)

// Kernel resolution chain (highest priority first):
//   1. CLI flags (--kernel, --kernel-threads)
//   2. Environment variables (HEATCALC_KERNEL, HEATCALC_KERNEL_THREADS)
//   3. Config file
//   4. Hardware estimation (this file)

// parallelCellThreshold is the band size, in cells, above which the
// parallel kernel outruns the serial one.
const parallelCellThreshold = 64 * 1024

// ApplyAdaptiveDefaults resolves the "auto" kernel and a zero thread count
// from the band size and the number of CPUs. Explicit values are kept.
func ApplyAdaptiveDefaults(cfg AppConfig) AppConfig {
	return applyAdaptiveDefaults(cfg, runtime.NumCPU())
}

func applyAdaptiveDefaults(cfg AppConfig, numCPU int) AppConfig {
	if cfg.KernelThreads == 0 {
		cfg.KernelThreads = EstimateKernelThreads(numCPU, cfg.localWorkers())
	}
	if cfg.Kernel == KernelAuto {
		cfg.Kernel = EstimateKernel(cfg.Rows, cfg.Cols, cfg.Workers, cfg.KernelThreads)
	}
	return cfg
}

// localWorkers is the number of workers sharing this process's CPUs.
func (c AppConfig) localWorkers() int {
	if c.Transport == TransportWebSocket || c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// EstimateKernelThreads splits the CPUs evenly among the workers running
// in this process, with at least one goroutine per worker.
func EstimateKernelThreads(numCPU, workers int) int {
	if workers < 1 {
		workers = 1
	}
	return max(1, numCPU/workers)
}

// EstimateKernel picks the parallel kernel when each band is large enough
// and more than one goroutine is available to it.
func EstimateKernel(rows, cols, workers, threads int) string {
	if workers < 1 || threads < 2 {
		return stencil.SerialName
	}
	if (rows/workers)*cols >= parallelCellThreshold {
		return stencil.ParallelName
	}
	return stencil.SerialName
}
