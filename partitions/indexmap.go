package partitions

import (
	"fmt"
)

// IndexMap records the ownership layout of one entity dimension on one
// rank. Local indices [0, SizeLocal) are owned and map to the
// contiguous global range [LocalRange()[0], LocalRange()[1]); indices
// [SizeLocal, SizeLocal+NumGhosts) are ghosts, each carrying the
// owner-assigned global identifier and owning rank.
type IndexMap struct {
	sizeLocal   int32
	sizeGlobal  int64
	offset      int64
	blockSize   int
	ghosts      []int64
	ghostOwners []int32
}

// NewIndexMap creates the ownership record for sizeLocal owned entities
// plus the given ghosts. The global offset is the exclusive scan of
// owned counts across ranks, so owned global identities are contiguous
// by rank. Collective: every rank in comm must call it.
func NewIndexMap(comm Comm, sizeLocal int32, ghosts []int64,
	ghostOwners []int32, blockSize int) (*IndexMap, error) {

	if len(ghosts) != len(ghostOwners) {
		return nil, fmt.Errorf("ghosts length %d does not match owners length %d",
			len(ghosts), len(ghostOwners))
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	for i, r := range ghostOwners {
		if int(r) == comm.Rank() || int(r) >= comm.Size() || r < 0 {
			return nil, fmt.Errorf("ghost %d has invalid owner rank %d", i, r)
		}
	}

	offset := comm.ExScan(int64(sizeLocal))
	sizes := comm.AllGather64([]int64{int64(sizeLocal)})
	var global int64
	for _, s := range sizes {
		global += s[0]
	}

	return &IndexMap{
		sizeLocal:   sizeLocal,
		sizeGlobal:  global,
		offset:      offset,
		blockSize:   blockSize,
		ghosts:      ghosts,
		ghostOwners: ghostOwners,
	}, nil
}

// SizeLocal returns the number of owned entities.
func (m *IndexMap) SizeLocal() int32 { return m.sizeLocal }

// NumGhosts returns the number of ghost entities.
func (m *IndexMap) NumGhosts() int32 { return int32(len(m.ghosts)) }

// SizeGlobal returns the total owned count summed over all ranks.
func (m *IndexMap) SizeGlobal() int64 { return m.sizeGlobal }

// BlockSize returns the number of data values carried per index.
func (m *IndexMap) BlockSize() int { return m.blockSize }

// LocalRange returns the half-open global range of owned entities.
func (m *IndexMap) LocalRange() [2]int64 {
	return [2]int64{m.offset, m.offset + int64(m.sizeLocal)}
}

// Ghosts returns the global identifiers of the ghost entities, in
// ghost-local order.
func (m *IndexMap) Ghosts() []int64 { return m.ghosts }

// GhostOwners returns the owning rank of each ghost.
func (m *IndexMap) GhostOwners() []int32 { return m.ghostOwners }

// GlobalIndex maps any local index, owned or ghost, to its global
// identity. Out-of-range indices are a programmer error and panic.
func (m *IndexMap) GlobalIndex(local int32) int64 {
	if local < m.sizeLocal {
		return m.offset + int64(local)
	}
	return m.ghosts[local-m.sizeLocal]
}
