package stencil

import (
	"runtime"

	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
)

// Kernel relaxes rows of a band and measures the change between two
// buffers.
type Kernel interface {
	// Name returns the registry name of the kernel.
	Name() string
	// Relax writes the stencil of src into dst for owned rows first..last
	// (inclusive, 1-based) and interior columns 1..cols. It never writes
	// ghost rows or boundary columns.
	Relax(dst, src *grid.Field, first, last int)
	// MaxDelta returns the largest |a - b| over the owned interior. A NaN
	// anywhere in the interior yields NaN.
	MaxDelta(a, b *grid.Field) float64
}

// Kernel names accepted by ByName.
const (
	SerialName   = "serial"
	ParallelName = "parallel"
)

// ByName builds the kernel registered under name. threads only applies to
// the parallel kernel; values below 1 select runtime.NumCPU().
func ByName(name string, threads int) (Kernel, error) {
	switch name {
	case SerialName:
		return Serial{}, nil
	case ParallelName:
		if threads < 1 {
			threads = runtime.NumCPU()
		}
		return NewParallel(threads), nil
	default:
		return nil, apperrors.NewConfigError("unknown kernel %q (available: %s, %s)", name, SerialName, ParallelName)
	}
}

// relaxRows is the shared inner loop.
func relaxRows(dst, src *grid.Field, first, last int) {
	cols := src.Cols()
	for i := first; i <= last; i++ {
		up, row, down := src.Row(i-1), src.Row(i), src.Row(i+1)
		out := dst.Row(i)
		for j := 1; j <= cols; j++ {
			out[j] = 0.25 * (up[j] + down[j] + row[j-1] + row[j+1])
		}
	}
}

// maxDeltaRows returns max |a - b| over rows first..last, propagating NaN.
func maxDeltaRows(a, b *grid.Field, first, last int) float64 {
	cols := a.Cols()
	m := 0.0
	for i := first; i <= last; i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := 1; j <= cols; j++ {
			d := ra[j] - rb[j]
			if d < 0 {
				d = -d
			}
			if d > m || d != d {
				m = d
				if m != m {
					return m
				}
			}
		}
	}
	return m
}
