package stencil

import "github.com/agbru/heatcalc/internal/grid"

// Serial relaxes rows on the calling goroutine.
type Serial struct{}

// Name returns "serial".
func (Serial) Name() string { return SerialName }

// Relax applies the stencil to rows first..last.
func (Serial) Relax(dst, src *grid.Field, first, last int) {
	relaxRows(dst, src, first, last)
}

// MaxDelta returns the largest interior difference between a and b.
func (Serial) MaxDelta(a, b *grid.Field) float64 {
	return maxDeltaRows(a, b, 1, a.Rows())
}
