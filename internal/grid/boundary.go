package grid

import (
	"sort"

	apperrors "github.com/agbru/heatcalc/internal/errors"
)

// Boundary assigns fixed (Dirichlet) values to the four outer edges of the
// domain. Rows and columns are global padded indices, so values do not
// depend on how the domain is decomposed.
type Boundary interface {
	Name() string
	// Left and Right return the value of column 0 / cols+1 at global row
	// row, 0 <= row <= rows+1.
	Left(row, rows int) float64
	Right(row, rows int) float64
	// Top and Bottom return the value of global row 0 / rows+1 at column
	// col, 0 <= col <= cols+1.
	Top(col, cols int) float64
	Bottom(col, cols int) float64
}

// LaplaceRamp is the classic plate: left and top edges held at 0, the right
// edge ramping from 0 towards 100 down the rows and the bottom edge ramping
// from 0 towards 100 across the columns.
type LaplaceRamp struct{}

func (LaplaceRamp) Name() string                 { return "laplace" }
func (LaplaceRamp) Left(int, int) float64        { return 0 }
func (LaplaceRamp) Right(row, rows int) float64  { return 100.0 * float64(row) / float64(rows) }
func (LaplaceRamp) Top(int, int) float64         { return 0 }
func (LaplaceRamp) Bottom(col, cols int) float64 { return 100.0 * float64(col) / float64(cols) }

// RightRamp holds every edge at 0 except the right one, which ramps
// linearly from 0 at the top corner to 100 on the last interior row.
type RightRamp struct{}

func (RightRamp) Name() string                { return "right-ramp" }
func (RightRamp) Left(int, int) float64       { return 0 }
func (RightRamp) Right(row, rows int) float64 { return min(100.0*float64(row)/float64(rows), 100) }
func (RightRamp) Top(int, int) float64        { return 0 }
func (RightRamp) Bottom(int, int) float64     { return 0 }

var boundaries = map[string]Boundary{
	LaplaceRamp{}.Name(): LaplaceRamp{},
	RightRamp{}.Name():   RightRamp{},
}

// BoundaryByName returns the registered boundary with the given name.
func BoundaryByName(name string) (Boundary, error) {
	if b, ok := boundaries[name]; ok {
		return b, nil
	}
	return nil, apperrors.NewConfigError("unknown boundary %q (available: %v)", name, BoundaryNames())
}

// BoundaryNames lists the registered boundaries in sorted order.
func BoundaryNames() []string {
	names := make([]string, 0, len(boundaries))
	for name := range boundaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyBoundary writes the boundary values owned by p into f. Side columns
// are written for every padded row; the top and bottom rows are written
// afterwards, and only by the first and last bands, so corners take the
// top/bottom value.
func applyBoundary(f *Field, p Partition, b Boundary) {
	for i := 0; i <= p.LocalRows+1; i++ {
		row := p.GlobalRow(i)
		f.Set(i, 0, b.Left(row, p.GlobalRows))
		f.Set(i, p.Cols+1, b.Right(row, p.GlobalRows))
	}
	if p.IsFirst() {
		for j := 0; j <= p.Cols+1; j++ {
			f.Set(0, j, b.Top(j, p.Cols))
		}
	}
	if p.IsLast() {
		for j := 0; j <= p.Cols+1; j++ {
			f.Set(p.LocalRows+1, j, b.Bottom(j, p.Cols))
		}
	}
}
