// This file provides pooled row buffers for halo staging and message copies.

package grid

import (
	"math/bits"
	"sync"
)

// rowPools pools []float64 buffers by size class: 64, 256, 1K, 4K, 16K, 64K
// and 256K values. Rows longer than the largest class are allocated directly.
var rowPools = [...]sync.Pool{
	{New: func() any { return make([]float64, 64) }},
	{New: func() any { return make([]float64, 256) }},
	{New: func() any { return make([]float64, 1024) }},
	{New: func() any { return make([]float64, 4096) }},
	{New: func() any { return make([]float64, 16384) }},
	{New: func() any { return make([]float64, 65536) }},
	{New: func() any { return make([]float64, 262144) }},
}

var rowSizes = [...]int{64, 256, 1024, 4096, 16384, 65536, 262144}

// rowPoolIndex returns the pool index for a buffer of n values, or -1 when
// n is too large to pool. Sizes are powers of 4 starting at 4^3.
func rowPoolIndex(n int) int {
	if n <= 0 {
		return 0
	}
	if n > rowSizes[len(rowSizes)-1] {
		return -1
	}
	idx := (bits.Len(uint(n-1)) - 5) / 2
	if idx < 0 {
		idx = 0
	}
	return idx
}

// AcquireRow returns a buffer of exactly n values. The contents are not
// cleared; callers overwrite the whole buffer before reading it.
//
// The buffer should be handed back with ReleaseRow:
//
//	buf := grid.AcquireRow(n)
//	defer grid.ReleaseRow(buf)
func AcquireRow(n int) []float64 {
	idx := rowPoolIndex(n)
	if idx < 0 {
		return make([]float64, n)
	}
	buf := rowPools[idx].Get().([]float64)
	return buf[:n]
}

// ReleaseRow returns a buffer obtained from AcquireRow to its pool. Buffers
// whose capacity does not match a size class are dropped. Safe to call with
// nil.
func ReleaseRow(buf []float64) {
	if buf == nil {
		return
	}
	c := cap(buf)
	idx := rowPoolIndex(c)
	if idx >= 0 && rowSizes[idx] == c {
		rowPools[idx].Put(buf[:c])
	}
}
