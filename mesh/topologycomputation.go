package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/femesh/adjacency"
	"github.com/notargets/femesh/partitions"
)

// entityKey is the canonical form of an entity: its global vertex
// identifiers in ascending order, padded with -1. Two partitions that
// both touch a physical entity derive the same key independently.
type entityKey [3]int64

func makeKey(globals []int64) entityKey {
	k := entityKey{-1, -1, -1}
	copy(k[:], globals)
	return k
}

// computeEntities derives the dimension-dim entities from the cell
// vertex connectivity: local deduplication by canonical form, one
// bounded exchange with vertex-sharing neighbors to find
// cross-partition duplicates, lowest-rank ownership, and contiguous
// owned-first local numbering. Caller holds t.mu; collective.
func (t *Topology) computeEntities(dim int) error {
	tdim := t.Dim()
	c2v := t.conn[[2]int{tdim, 0}]
	patterns := t.cellType.EntityVertices(dim)
	perCell := len(patterns)
	nv := len(patterns[0])
	numCells := c2v.NumNodes()
	myRank := int32(t.comm.Rank())

	// Enumerate and deduplicate within the partition. Entity vertices
	// are stored in canonical order (ascending global id) so derived
	// data is independent of which cell introduced the entity.
	index := make(map[entityKey]int32)
	var entVerts [][]int32
	var entKeys []entityKey
	cellEnt := make([]int32, int(numCells)*perCell)
	for c := int32(0); c < numCells; c++ {
		verts := c2v.Links(c)
		for j, pat := range patterns {
			lv := make([]int32, nv)
			for i, p := range pat {
				lv[i] = verts[p]
			}
			sort.Slice(lv, func(a, b int) bool {
				return t.vertexGlobal[lv[a]] < t.vertexGlobal[lv[b]]
			})
			g := make([]int64, nv)
			for i, v := range lv {
				g[i] = t.vertexGlobal[v]
			}
			key := makeKey(g)
			idx, ok := index[key]
			if !ok {
				idx = int32(len(entVerts))
				index[key] = idx
				entVerts = append(entVerts, lv)
				entKeys = append(entKeys, key)
			}
			cellEnt[int(c)*perCell+j] = idx
		}
	}
	numEnts := int32(len(entVerts))

	// Candidate shared entities: every vertex shared with a common
	// neighbor rank. Send their canonical forms to those neighbors.
	payload := make(map[int][]int64)
	for e := int32(0); e < numEnts; e++ {
		for _, r := range t.entitySharers(entVerts[e]) {
			p := payload[int(r)]
			p = append(p, entKeys[e][:nv]...)
			payload[int(r)] = p
		}
	}
	recv := t.comm.Exchange(payload)

	// A rank co-lists one of our entities iff its candidate list
	// contains the same canonical form.
	coListers := make([][]int32, numEnts)
	srcs := make([]int, 0, len(recv))
	for src := range recv {
		srcs = append(srcs, src)
	}
	sort.Ints(srcs)
	for _, src := range srcs {
		vals := recv[src]
		for i := 0; i+nv <= len(vals); i += nv {
			if idx, ok := index[makeKey(vals[i:i+nv])]; ok {
				coListers[idx] = append(coListers[idx], int32(src))
			}
		}
	}

	ownerOf := func(e int32) int32 {
		o := myRank
		for _, r := range coListers[e] {
			if r < o {
				o = r
			}
		}
		return o
	}

	// Owned-first contiguous numbering, first-seen order within each
	// class.
	newIdx := make([]int32, numEnts)
	var numOwned int32
	for e := int32(0); e < numEnts; e++ {
		if ownerOf(e) == myRank {
			newIdx[e] = numOwned
			numOwned++
		}
	}
	next := numOwned
	for e := int32(0); e < numEnts; e++ {
		if ownerOf(e) != myRank {
			newIdx[e] = next
			next++
		}
	}

	// Owners publish the global identity of shared entities.
	offset := t.comm.ExScan(int64(numOwned))
	payload = make(map[int][]int64)
	for e := int32(0); e < numEnts; e++ {
		if ownerOf(e) != myRank || len(coListers[e]) == 0 {
			continue
		}
		for _, r := range coListers[e] {
			p := payload[int(r)]
			p = append(p, entKeys[e][:nv]...)
			p = append(p, offset+int64(newIdx[e]))
			payload[int(r)] = p
		}
	}
	recv = t.comm.Exchange(payload)
	ownedGlobal := make(map[entityKey]int64)
	for _, vals := range recv {
		for i := 0; i+nv+1 <= len(vals); i += nv + 1 {
			ownedGlobal[makeKey(vals[i:i+nv])] = vals[i+nv]
		}
	}

	ghosts := make([]int64, numEnts-numOwned)
	ghostOwners := make([]int32, numEnts-numOwned)
	for e := int32(0); e < numEnts; e++ {
		o := ownerOf(e)
		if o == myRank {
			continue
		}
		g, ok := ownedGlobal[entKeys[e]]
		if !ok {
			return fmt.Errorf("dim %d entity %v: no numbering received from owner %d",
				dim, entKeys[e][:nv], o)
		}
		ghosts[newIdx[e]-numOwned] = g
		ghostOwners[newIdx[e]-numOwned] = o
	}

	imap, err := partitions.NewIndexMap(t.comm, numOwned, ghosts, ghostOwners, 1)
	if err != nil {
		return fmt.Errorf("dim %d index map: %w", dim, err)
	}

	// Materialize the cell-entity and entity-vertex relations under
	// the final numbering.
	for i := range cellEnt {
		cellEnt[i] = newIdx[cellEnt[i]]
	}
	c2e, err := adjacency.NewFixed(cellEnt, perCell)
	if err != nil {
		return err
	}
	e2vData := make([]int32, int(numEnts)*nv)
	for e := int32(0); e < numEnts; e++ {
		copy(e2vData[int(newIdx[e])*nv:], entVerts[e])
	}
	e2v, err := adjacency.NewFixed(e2vData, nv)
	if err != nil {
		return err
	}

	t.indexMaps[dim] = imap
	t.conn[[2]int{tdim, dim}] = c2e
	t.conn[[2]int{dim, 0}] = e2v

	logger.Debug().
		Int("rank", int(myRank)).
		Int("dim", dim).
		Int32("owned", numOwned).
		Int32("ghost", numEnts-numOwned).
		Msg("entities computed")

	return nil
}

// entitySharers returns the ranks sharing every vertex of the entity,
// in ascending order.
func (t *Topology) entitySharers(verts []int32) []int32 {
	common := t.vertexSharers[verts[0]]
	for _, v := range verts[1:] {
		if len(common) == 0 {
			return nil
		}
		s := t.vertexSharers[v]
		var kept []int32
		for _, r := range common {
			for _, q := range s {
				if q == r {
					kept = append(kept, r)
					break
				}
			}
		}
		common = kept
	}
	return common
}

// computeConnectivity derives the (d0,d1) relation from existing
// entity-vertex data. Caller holds t.mu and has created entities of
// both dimensions; the relation must not already exist.
func (t *Topology) computeConnectivity(d0, d1 int) error {
	tdim := t.Dim()
	key := [2]int{d0, d1}

	switch {
	case d0 == d1:
		n := t.numEntities(d0)
		data := make([]int32, n)
		for i := range data {
			data[i] = int32(i)
		}
		c, err := adjacency.NewFixed(data, 1)
		if err != nil {
			return err
		}
		t.conn[key] = c

	case d0 < d1:
		// Derive via the transpose; cache both since the reverse
		// relation costs little next to recomputing it later.
		if _, ok := t.conn[[2]int{d1, d0}]; !ok {
			if err := t.computeConnectivity(d1, d0); err != nil {
				return err
			}
		}
		t.conn[key] = t.conn[[2]int{d1, d0}].Transpose(t.numEntities(d0))

	default: // d0 > d1
		ev0 := t.conn[[2]int{d0, 0}]
		ev1 := t.conn[[2]int{d1, 0}]
		v2e1 := ev1.Transpose(t.numEntities(0))

		links := make([][]int32, t.numEntities(d0))
		for e := int32(0); e < ev0.NumNodes(); e++ {
			eVerts := ev0.Links(e)
			var found []int32
			for _, v := range eVerts {
				for _, cand := range v2e1.Links(v) {
					if containsInt32(found, cand) {
						continue
					}
					if vertexSubset(ev1.Links(cand), eVerts) {
						found = append(found, cand)
					}
				}
			}
			links[e] = found
		}
		t.conn[key] = adjacency.New(links)
	}

	if d0 == tdim-1 && d1 == tdim {
		t.classifyFacets()
	}
	return nil
}

// classifyFacets marks each facet interior (two incident local cells)
// or exterior (one). Requires (tdim-1, tdim) connectivity.
func (t *Topology) classifyFacets() {
	f2c := t.conn[[2]int{t.Dim() - 1, t.Dim()}]
	interior := make([]bool, f2c.NumNodes())
	for f := int32(0); f < f2c.NumNodes(); f++ {
		interior[f] = f2c.NumLinks(f) == 2
	}
	t.interiorFacets = interior
}

func containsInt32(s []int32, v int32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// vertexSubset reports whether every element of sub is in super.
func vertexSubset(sub, super []int32) bool {
	for _, v := range sub {
		if !containsInt32(super, v) {
			return false
		}
	}
	return true
}
