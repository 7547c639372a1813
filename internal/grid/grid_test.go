package grid

import (
	"strings"
	"testing"
)

func mustPartition(t *testing.T, rows, cols, workers, rank int) Partition {
	t.Helper()
	p, err := NewPartition(rows, cols, workers, rank, workers)
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	return p
}

func TestNewGridBuffersMatch(t *testing.T) {
	t.Parallel()
	for rank := 0; rank < 2; rank++ {
		g := New(mustPartition(t, 8, 6, 2, rank), LaplaceRamp{})
		prev, cur := g.Previous(), g.Current()
		for i := 0; i <= prev.Rows()+1; i++ {
			for j := 0; j <= prev.Cols()+1; j++ {
				if prev.At(i, j) != cur.At(i, j) {
					t.Fatalf("rank %d: buffers differ at (%d,%d): %v vs %v", rank, i, j, prev.At(i, j), cur.At(i, j))
				}
			}
		}
	}
}

func TestLaplaceRampValues(t *testing.T) {
	t.Parallel()
	const rows, cols = 8, 4
	top := New(mustPartition(t, rows, cols, 2, 0), LaplaceRamp{})
	bottom := New(mustPartition(t, rows, cols, 2, 1), LaplaceRamp{})

	f := top.Previous()
	for j := 0; j <= cols+1; j++ {
		if f.At(0, j) != 0 {
			t.Errorf("top row (0,%d) = %v, want 0", j, f.At(0, j))
		}
	}
	for i := 1; i <= f.Rows(); i++ {
		if f.At(i, 0) != 0 {
			t.Errorf("left column (%d,0) = %v, want 0", i, f.At(i, 0))
		}
		want := 100.0 * float64(i) / rows
		if f.At(i, cols+1) != want {
			t.Errorf("right column (%d) = %v, want %v", i, f.At(i, cols+1), want)
		}
	}

	b := bottom.Previous()
	// local row 1 of rank 1 is global row 5
	if got, want := b.At(1, cols+1), 100.0*5/rows; got != want {
		t.Errorf("rank 1 right column row 1 = %v, want %v", got, want)
	}
	last := b.Rows() + 1
	for j := 0; j <= cols+1; j++ {
		want := 100.0 * float64(j) / cols
		if b.At(last, j) != want {
			t.Errorf("bottom row (%d) = %v, want %v", j, b.At(last, j), want)
		}
	}
	// interior and the shared ghost rows start at zero
	if top.Previous().At(top.Previous().Rows()+1, 2) != 0 || b.At(0, 2) != 0 || b.At(2, 2) != 0 {
		t.Error("interior and ghost values must start at zero")
	}
}

func TestRightRampValues(t *testing.T) {
	t.Parallel()
	g := New(mustPartition(t, 4, 4, 1, 0), RightRamp{})
	f := g.Previous()
	for i := 0; i <= 5; i++ {
		if f.At(i, 0) != 0 {
			t.Errorf("left (%d) = %v, want 0", i, f.At(i, 0))
		}
	}
	for i, want := range []float64{25, 50, 75, 100} {
		if got := f.At(i+1, 5); got != want {
			t.Errorf("right (%d) = %v, want %v", i+1, got, want)
		}
	}
	for j := 0; j <= 5; j++ {
		if f.At(0, j) != 0 || f.At(5, j) != 0 {
			t.Errorf("top/bottom (%d) must be 0", j)
		}
	}
}

func TestBoundaryByName(t *testing.T) {
	t.Parallel()
	for _, name := range BoundaryNames() {
		b, err := BoundaryByName(name)
		if err != nil {
			t.Fatalf("BoundaryByName(%q): %v", name, err)
		}
		if b.Name() != name {
			t.Errorf("Name() = %q, want %q", b.Name(), name)
		}
	}
	if _, err := BoundaryByName("dirichlet-sine"); err == nil || !strings.Contains(err.Error(), "unknown boundary") {
		t.Errorf("expected unknown boundary error, got %v", err)
	}
}

func TestSwap(t *testing.T) {
	t.Parallel()
	g := New(mustPartition(t, 2, 2, 1, 0), LaplaceRamp{})
	prev, cur := g.Previous(), g.Current()
	g.Swap()
	if g.Previous() != cur || g.Current() != prev {
		t.Fatal("Swap() did not exchange buffers")
	}
}

func TestFieldRowsAlias(t *testing.T) {
	t.Parallel()
	f := NewField(2, 3)
	f.Interior(1)[0] = 7
	if f.At(1, 1) != 7 {
		t.Errorf("Interior does not alias storage")
	}
	if len(f.Row(1)) != 5 || len(f.Interior(1)) != 3 {
		t.Errorf("Row len %d, Interior len %d", len(f.Row(1)), len(f.Interior(1)))
	}
	c := f.Clone()
	c.Set(1, 1, 9)
	if f.At(1, 1) != 7 {
		t.Error("Clone shares storage")
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()
	const rows, cols, workers = 6, 3, 3
	grids := make([]*Grid, workers)
	for rank := workers - 1; rank >= 0; rank-- {
		g := New(mustPartition(t, rows, cols, workers, rank), LaplaceRamp{})
		p := g.Partition()
		for i := 1; i <= p.LocalRows; i++ {
			for j := 1; j <= cols; j++ {
				g.Previous().Set(i, j, float64(p.GlobalRow(i)*10+j))
			}
		}
		grids[workers-1-rank] = g
	}

	full, err := Assemble(grids)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if full.Rows() != rows || full.Cols() != cols {
		t.Fatalf("assembled shape %dx%d", full.Rows(), full.Cols())
	}
	for gRow := 1; gRow <= rows; gRow++ {
		for j := 1; j <= cols; j++ {
			if got, want := full.At(gRow, j), float64(gRow*10+j); got != want {
				t.Errorf("(%d,%d) = %v, want %v", gRow, j, got, want)
			}
		}
	}
	if got, want := full.At(rows+1, cols), 100.0; got != want {
		t.Errorf("bottom right = %v, want %v", got, want)
	}

	if _, err := Assemble(grids[:2]); err == nil {
		t.Error("Assemble of an incomplete cohort should fail")
	}
	if _, err := Assemble(nil); err == nil {
		t.Error("Assemble(nil) should fail")
	}
}

func TestRowPool(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		size int
	}{
		{"small", 10},
		{"exact class", 256},
		{"medium", 674},
		{"too large", 300000},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := AcquireRow(tt.size)
			if len(buf) != tt.size {
				t.Errorf("AcquireRow(%d) len = %d", tt.size, len(buf))
			}
			ReleaseRow(buf)
		})
	}
	ReleaseRow(nil)
}

func TestRowPoolIndex(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 63, 64, 65, 255, 256, 257, 1024, 262144} {
		idx := rowPoolIndex(n)
		if idx < 0 || rowSizes[idx] < n || (idx > 0 && rowSizes[idx-1] >= n) {
			t.Errorf("rowPoolIndex(%d) = %d", n, idx)
		}
	}
	if rowPoolIndex(262145) != -1 {
		t.Error("oversized rows must not be pooled")
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()
	top := New(mustPartition(t, 8, 5, 2, 0), LaplaceRamp{})
	if pts := top.Probe(3); pts != nil {
		t.Errorf("non-last band Probe() = %v, want nil", pts)
	}

	last := New(mustPartition(t, 8, 5, 2, 1), LaplaceRamp{})
	last.Previous().Set(4, 5, 42)
	pts := last.Probe(3)
	if len(pts) != 3 {
		t.Fatalf("Probe(3) returned %d points", len(pts))
	}
	want := []ProbePoint{{Row: 6, Col: 3}, {Row: 7, Col: 4}, {Row: 8, Col: 5, Value: 42}}
	for k := range want {
		if pts[k] != want[k] {
			t.Errorf("point %d = %+v, want %+v", k, pts[k], want[k])
		}
	}
	if got := len(last.Probe(100)); got != 4 {
		t.Errorf("Probe clamps to the band height, got %d points", got)
	}
}
