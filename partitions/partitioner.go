package partitions

import (
	"fmt"
	"math"

	"github.com/notargets/femesh/adjacency"
)

// Strategy defines how cells are grouped into partitions.
type Strategy int

const (
	// Block assigns consecutive cells to each partition.
	Block Strategy = iota
	// RoundRobin distributes cells cyclically.
	RoundRobin
)

// Layout is a complete cell decomposition: partition p owns the cells c
// with CellToPart[c] == p.
type Layout struct {
	NumParts   int
	TotalCells int32
	CellToPart []int32
	Counts     []int32 // cells per partition
}

// PartitionCells assigns numCells cells to nparts partitions with the
// requested strategy. Graph-based strategies are external concerns; the
// resulting Layout is the only contract downstream code depends on, so
// an externally computed cell-to-partition array can be wrapped in a
// Layout directly.
func PartitionCells(numCells int32, nparts int, strategy Strategy) (*Layout, error) {
	if nparts < 1 {
		return nil, fmt.Errorf("number of partitions must be at least 1, got %d", nparts)
	}
	if numCells < int32(nparts) {
		return nil, fmt.Errorf("cannot split %d cells across %d partitions", numCells, nparts)
	}

	cellToPart := make([]int32, numCells)
	switch strategy {
	case Block:
		// Balanced contiguous ranges: the first rem parts take one
		// extra cell so no part is left empty.
		base := numCells / int32(nparts)
		rem := numCells % int32(nparts)
		c := int32(0)
		for p := int32(0); p < int32(nparts); p++ {
			n := base
			if p < rem {
				n++
			}
			for i := int32(0); i < n; i++ {
				cellToPart[c] = p
				c++
			}
		}
	case RoundRobin:
		for c := int32(0); c < numCells; c++ {
			cellToPart[c] = c % int32(nparts)
		}
	default:
		return nil, fmt.Errorf("unknown partition strategy %d", strategy)
	}

	layout := &Layout{
		NumParts:   nparts,
		TotalCells: numCells,
		CellToPart: cellToPart,
		Counts:     make([]int32, nparts),
	}
	for _, p := range cellToPart {
		layout.Counts[p]++
	}
	// The built-in strategies must not strand a partition.
	for p, n := range layout.Counts {
		if n == 0 {
			return nil, fmt.Errorf("strategy %d left partition %d without cells", strategy, p)
		}
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// NewLayout wraps an externally computed cell-to-partition array.
func NewLayout(cellToPart []int32, nparts int) (*Layout, error) {
	layout := &Layout{
		NumParts:   nparts,
		TotalCells: int32(len(cellToPart)),
		CellToPart: cellToPart,
		Counts:     make([]int32, nparts),
	}
	for c, p := range cellToPart {
		if p < 0 || int(p) >= nparts {
			return nil, fmt.Errorf("cell %d assigned to invalid partition %d", c, p)
		}
		layout.Counts[p]++
	}
	return layout, layout.Validate()
}

// Validate checks internal consistency of the layout. Empty parts are
// consistent: an external partitioner can legitimately leave a part
// without cells on small meshes.
func (l *Layout) Validate() error {
	if len(l.CellToPart) != int(l.TotalCells) {
		return fmt.Errorf("cell map length %d does not match total %d",
			len(l.CellToPart), l.TotalCells)
	}
	var sum int32
	for _, n := range l.Counts {
		sum += n
	}
	if sum != l.TotalCells {
		return fmt.Errorf("partition counts sum to %d, want %d", sum, l.TotalCells)
	}
	return nil
}

// Part returns the partition owning cell c, or -1 if out of range.
func (l *Layout) Part(c int32) int32 {
	if c < 0 || c >= l.TotalCells {
		return -1
	}
	return l.CellToPart[c]
}

// Distribute splits a global cell-to-global-vertex list into one list
// per partition, preserving global cell order within each partition.
func (l *Layout) Distribute(cells *adjacency.List64) ([]*adjacency.List64, error) {
	if cells.NumNodes() != l.TotalCells {
		return nil, fmt.Errorf("cell list has %d cells, layout expects %d",
			cells.NumNodes(), l.TotalCells)
	}
	perPart := make([][][]int64, l.NumParts)
	for c := int32(0); c < cells.NumNodes(); c++ {
		p := l.CellToPart[c]
		perPart[p] = append(perPart[p], cells.Links(c))
	}
	out := make([]*adjacency.List64, l.NumParts)
	for p := range out {
		out[p] = adjacency.New64(perPart[p])
	}
	return out, nil
}

// Stats summarizes load balance across partitions.
type Stats struct {
	NumParts  int
	MinCells  int32
	MaxCells  int32
	AvgCells  float64
	Imbalance float64 // MaxCells / AvgCells
}

// Statistics computes load balance metrics for the layout.
func (l *Layout) Statistics() Stats {
	s := Stats{
		NumParts: l.NumParts,
		MinCells: math.MaxInt32,
		AvgCells: float64(l.TotalCells) / float64(l.NumParts),
	}
	for _, n := range l.Counts {
		if n < s.MinCells {
			s.MinCells = n
		}
		if n > s.MaxCells {
			s.MaxCells = n
		}
	}
	s.Imbalance = float64(s.MaxCells) / s.AvgCells
	return s
}
