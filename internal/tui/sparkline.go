package tui

import "math"

// sparklineChars maps levels 0..7 to block elements.
var sparklineChars = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RingBuffer is a fixed-capacity circular buffer of samples.
type RingBuffer struct {
	data  []float64
	head  int
	count int
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]float64, max(capacity, 1))}
}

// Push adds a sample, overwriting the oldest if full.
func (r *RingBuffer) Push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	r.count = min(r.count+1, len(r.data))
}

// Len returns the number of valid samples.
func (r *RingBuffer) Len() int { return r.count }

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int { return len(r.data) }

// Last returns the most recent sample, or 0 if empty.
func (r *RingBuffer) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.data[(r.head-1+len(r.data))%len(r.data)]
}

// Slice returns samples oldest first.
func (r *RingBuffer) Slice() []float64 {
	if r.count == 0 {
		return nil
	}
	out := make([]float64, r.count)
	start := (r.head - r.count + len(r.data)) % len(r.data)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// Resize changes the capacity, keeping the most recent samples that fit.
func (r *RingBuffer) Resize(newCap int) {
	newCap = max(newCap, 1)
	if newCap == len(r.data) {
		return
	}
	old := r.Slice()
	r.data = make([]float64, newCap)
	r.Reset()
	for _, v := range old[max(len(old)-newCap, 0):] {
		r.Push(v)
	}
}

// Reset clears all samples.
func (r *RingBuffer) Reset() {
	r.head = 0
	r.count = 0
}

// ResidualPercent places a residual on a 0..100 log scale where 100 is
// the first residual of the run and 0 is epsilon. Jacobi residuals decay
// geometrically, so a log axis turns the convergence curve into a line.
func ResidualPercent(residual, reference, epsilon float64) float64 {
	if !(reference > epsilon) || !(epsilon > 0) {
		return 0
	}
	if math.IsNaN(residual) || math.IsInf(residual, 1) {
		return 100
	}
	if residual <= epsilon {
		return 0
	}
	p := math.Log(residual/epsilon) / math.Log(reference/epsilon) * 100
	return clampPercent(p)
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}

// RenderSparkline converts values (0..100) into a row of block elements.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	runes := make([]rune, len(values))
	for i, v := range values {
		runes[i] = sparklineChars[min(int(clampPercent(v)/100*7), 7)]
	}
	return string(runes)
}

// brailleDots maps (column 0-1, row 0-3) to braille dot bits.
var brailleDots = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// RenderBrailleChart plots values (0..100) as a braille dot chart of
// rows lines and width cells. Each cell holds 2x4 dots and the most
// recent values are right-aligned.
func RenderBrailleChart(values []float64, width, rows int) []string {
	if width <= 0 || rows <= 0 || len(values) == 0 {
		return nil
	}
	dotRows, dotCols := rows*4, width*2

	cells := make([][]rune, rows)
	for r := range cells {
		cells[r] = make([]rune, width)
		for c := range cells[r] {
			cells[r][c] = 0x2800
		}
	}

	visible := values[max(len(values)-dotCols, 0):]
	offset := dotCols - len(visible)
	for i, v := range visible {
		dotCol := offset + i
		dotRow := dotRows - 1 - int(clampPercent(v)/100*float64(dotRows-1))
		cells[dotRow/4][dotCol/2] |= brailleDots[dotCol%2][dotRow%4]
	}

	out := make([]string, rows)
	for r := range cells {
		out[r] = string(cells[r])
	}
	return out
}
