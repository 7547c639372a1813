package grid

import (
	apperrors "github.com/agbru/heatcalc/internal/errors"
)

// NoNeighbor is returned by Above and Below for workers on a global edge.
const NoNeighbor = -1

// Partition describes the horizontal band of rows owned by one worker.
//
// Rows are numbered in global padded coordinates: row 0 is the top boundary,
// rows 1..GlobalRows are interior, row GlobalRows+1 is the bottom boundary.
// The worker owns global rows Offset+1 .. Offset+LocalRows; its local row i
// maps to global row Offset+i, so local ghost rows 0 and LocalRows+1 map to
// the neighbors' edge rows (or the domain boundary).
type Partition struct {
	Rank       int
	Workers    int
	GlobalRows int
	Cols       int
	LocalRows  int
	Offset     int
}

// NewPartition computes the band owned by rank. It fails with a
// ConfigError when the configured worker count differs from the number of
// workers actually running, when the rows do not split evenly, or when any
// dimension is out of range.
//
// Parameters:
//   - globalRows: Number of interior rows of the whole domain.
//   - cols: Number of interior columns.
//   - workers: The configured worker count.
//   - rank: This worker's rank, 0 <= rank < workers.
//   - actualWorkers: The size of the running cohort.
//
// Returns:
//   - Partition: The band descriptor.
//   - error: A ConfigError when the decomposition is invalid.
func NewPartition(globalRows, cols, workers, rank, actualWorkers int) (Partition, error) {
	switch {
	case workers <= 0:
		return Partition{}, apperrors.NewConfigError("worker count must be positive, got %d", workers)
	case workers != actualWorkers:
		return Partition{}, apperrors.NewConfigError("configured for %d workers but %d are running", workers, actualWorkers)
	case globalRows <= 0 || cols <= 0:
		return Partition{}, apperrors.NewConfigError("grid must have positive dimensions, got %dx%d", globalRows, cols)
	case globalRows%workers != 0:
		return Partition{}, apperrors.NewConfigError("%d rows do not divide evenly across %d workers", globalRows, workers)
	case rank < 0 || rank >= workers:
		return Partition{}, apperrors.NewConfigError("rank %d out of range [0, %d)", rank, workers)
	}
	local := globalRows / workers
	return Partition{
		Rank:       rank,
		Workers:    workers,
		GlobalRows: globalRows,
		Cols:       cols,
		LocalRows:  local,
		Offset:     rank * local,
	}, nil
}

// IsFirst reports whether this band owns the global top edge.
func (p Partition) IsFirst() bool { return p.Rank == 0 }

// IsLast reports whether this band owns the global bottom edge.
func (p Partition) IsLast() bool { return p.Rank == p.Workers-1 }

// Above returns the rank owning the rows above this band, or NoNeighbor.
func (p Partition) Above() int {
	if p.IsFirst() {
		return NoNeighbor
	}
	return p.Rank - 1
}

// Below returns the rank owning the rows below this band, or NoNeighbor.
func (p Partition) Below() int {
	if p.IsLast() {
		return NoNeighbor
	}
	return p.Rank + 1
}

// GlobalRow maps a local padded row index to its global padded row index.
func (p Partition) GlobalRow(local int) int { return p.Offset + local }
