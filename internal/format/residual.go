package format

import (
	"fmt"
	"math"
)

// FormatResidual renders a convergence scalar compactly: fixed notation
// for moderate values, scientific notation for very small or very large
// ones, and explicit markers for non-finite values.
func FormatResidual(r float64) string {
	switch {
	case math.IsNaN(r):
		return "NaN"
	case math.IsInf(r, 1):
		return "+Inf"
	case math.IsInf(r, -1):
		return "-Inf"
	case r == 0:
		return "0"
	case math.Abs(r) < 1e-3 || math.Abs(r) >= 1e6:
		return fmt.Sprintf("%.3e", r)
	default:
		return fmt.Sprintf("%.6f", r)
	}
}

// FormatResidualExact renders r with the full precision of the original
// solver's summary line.
func FormatResidualExact(r float64) string {
	return fmt.Sprintf("%.15g", r)
}
