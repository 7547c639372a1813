package grid

// Field is a dense row-major (rows+2) x (cols+2) array of float64 values.
// Rows 0 and rows+1 hold ghost or boundary rows; columns 0 and cols+1 hold
// the fixed boundary columns.
type Field struct {
	rows   int
	cols   int
	stride int
	data   []float64
}

// NewField allocates a zeroed field with the given number of owned rows and
// interior columns.
func NewField(rows, cols int) *Field {
	stride := cols + 2
	return &Field{
		rows:   rows,
		cols:   cols,
		stride: stride,
		data:   make([]float64, (rows+2)*stride),
	}
}

// Rows returns the number of owned (non-ghost) rows.
func (f *Field) Rows() int { return f.rows }

// Cols returns the number of interior columns.
func (f *Field) Cols() int { return f.cols }

// At returns the value at padded coordinates (i, j).
func (f *Field) At(i, j int) float64 { return f.data[i*f.stride+j] }

// Set stores v at padded coordinates (i, j).
func (f *Field) Set(i, j int, v float64) { f.data[i*f.stride+j] = v }

// Row returns padded row i including both boundary columns. The slice
// aliases the field's storage.
func (f *Field) Row(i int) []float64 {
	start := i * f.stride
	return f.data[start : start+f.stride : start+f.stride]
}

// Interior returns columns 1..cols of row i. The slice aliases the field's
// storage; callers that hand it to another worker must copy it.
func (f *Field) Interior(i int) []float64 {
	start := i*f.stride + 1
	return f.data[start : start+f.cols : start+f.cols]
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	c := &Field{rows: f.rows, cols: f.cols, stride: f.stride, data: make([]float64, len(f.data))}
	copy(c.data, f.data)
	return c
}

// CopyFrom overwrites f with the contents of src. The shapes must match.
func (f *Field) CopyFrom(src *Field) {
	copy(f.data, src.data)
}
