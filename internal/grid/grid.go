package grid

import (
	"fmt"
	"sort"
)

// Grid holds the two buffers of one worker's band. Previous is the input of
// the next relaxation, Current receives its output; Swap exchanges them at
// the end of each iteration. Both buffers carry identical boundary values
// from construction on, and the stencil never writes them.
type Grid struct {
	part     Partition
	boundary Boundary
	previous *Field
	current  *Field
}

// New allocates both buffers for p, zeroes every interior and ghost value
// and writes the boundary columns and edge rows owned by p.
func New(p Partition, b Boundary) *Grid {
	g := &Grid{
		part:     p,
		boundary: b,
		previous: NewField(p.LocalRows, p.Cols),
		current:  NewField(p.LocalRows, p.Cols),
	}
	applyBoundary(g.previous, p, b)
	applyBoundary(g.current, p, b)
	return g
}

// Partition returns the band descriptor.
func (g *Grid) Partition() Partition { return g.part }

// Boundary returns the boundary the grid was initialized with.
func (g *Grid) Boundary() Boundary { return g.boundary }

// Previous returns the buffer holding the last completed iteration.
func (g *Grid) Previous() *Field { return g.previous }

// Current returns the buffer the next relaxation writes into.
func (g *Grid) Current() *Field { return g.current }

// Swap exchanges the roles of the two buffers.
func (g *Grid) Swap() { g.previous, g.current = g.current, g.previous }

// Assemble stitches the latest band of every worker into one field covering
// the whole domain, including the global top and bottom boundary rows.
func Assemble(grids []*Grid) (*Field, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("assemble: no bands")
	}
	sorted := make([]*Grid, len(grids))
	copy(sorted, grids)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].part.Rank < sorted[b].part.Rank })

	first := sorted[0].part
	for i, g := range sorted {
		p := g.part
		if p.Rank != i || p.Workers != len(sorted) || p.GlobalRows != first.GlobalRows || p.Cols != first.Cols {
			return nil, fmt.Errorf("assemble: band %d (rank %d of %d) does not belong to a %d-worker %dx%d cohort",
				i, p.Rank, p.Workers, len(sorted), first.GlobalRows, first.Cols)
		}
	}

	out := NewField(first.GlobalRows, first.Cols)
	copy(out.Row(0), sorted[0].previous.Row(0))
	for _, g := range sorted {
		p := g.part
		for i := 1; i <= p.LocalRows; i++ {
			copy(out.Row(p.GlobalRow(i)), g.previous.Row(i))
		}
	}
	last := sorted[len(sorted)-1]
	copy(out.Row(first.GlobalRows+1), last.previous.Row(last.part.LocalRows+1))
	return out, nil
}

// ProbePoint is one sampled cell of the diagnostic diagonal.
type ProbePoint struct {
	Row, Col int
	Value    float64
}

// Probe samples up to n cells on the diagonal ending at the bottom-right
// interior corner, from the latest completed iteration. Only the band
// owning the last global row returns points; the cells run from top-left
// to bottom-right in global coordinates.
func (g *Grid) Probe(n int) []ProbePoint {
	p := g.part
	if !p.IsLast() || n <= 0 {
		return nil
	}
	n = min(n, p.LocalRows, p.Cols)
	points := make([]ProbePoint, 0, n)
	for k := n - 1; k >= 0; k-- {
		i := p.LocalRows - k
		j := p.Cols - k
		points = append(points, ProbePoint{Row: p.GlobalRow(i), Col: j, Value: g.previous.At(i, j)})
	}
	return points
}
