package parallel

// Range is an inclusive span of row indices [First, Last].
type Range struct {
	First, Last int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.Last - r.First + 1 }

// Split divides the inclusive span [first, last] into at most parts
// contiguous ranges whose lengths differ by at most one. An empty span
// yields no ranges.
func Split(first, last, parts int) []Range {
	n := last - first + 1
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]Range, 0, parts)
	base, extra := n/parts, n%parts
	lo := first
	for i := 0; i < parts; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, Range{First: lo, Last: lo + size - 1})
		lo += size
	}
	return out
}
