package mesh

// Orientation encoding. Codes are functions of the globally consistent
// vertex identifiers only, so the two cells sharing a facet derive
// codes against the same canonical (ascending global id) order.
//
// Per-cell word: one reflection bit per edge at the low end, in edge
// order, then one 3-bit code per triangular face above. A 3-bit face
// code is rotation<<1 | reflection: rotation moves the lowest-global
// vertex first, reflection then swaps the remaining pair if needed.
//
// Per-facet byte: 0 for vertex facets, the reflection bit for interval
// facets, rotation<<1 | reflection for triangle facets.

// computePermutations fills cellPerms and facetPerms. Caller holds
// t.mu; all dimensions below the cell dimension exist.
func (t *Topology) computePermutations() {
	tdim := t.Dim()
	c2v := t.conn[[2]int{tdim, 0}]
	numCells := c2v.NumNodes()

	numFacets := t.cellType.NumEntities(tdim - 1)
	t.cellPerms = make([]uint32, numCells)
	t.facetPerms = make([]uint8, int(numCells)*numFacets)

	if tdim == 1 {
		// Vertex facets carry no orientation.
		return
	}

	edges := t.cellType.EntityVertices(1)
	facets := t.cellType.EntityVertices(tdim - 1)

	for c := int32(0); c < numCells; c++ {
		verts := c2v.Links(c)

		var word uint32
		for i, e := range edges {
			if t.edgeReflection(verts, e) {
				word |= 1 << uint(i)
			}
		}
		if tdim == 3 {
			for i, f := range facets {
				rot, refl := t.triOrientation(verts, f)
				word |= uint32(rot<<1|refl) << uint(6+3*i)
			}
		}
		t.cellPerms[c] = word

		for i, f := range facets {
			var code uint8
			switch tdim {
			case 2:
				if t.edgeReflection(verts, f) {
					code = 1
				}
			case 3:
				rot, refl := t.triOrientation(verts, f)
				code = rot<<1 | refl
			}
			t.facetPerms[int(c)*numFacets+i] = code
		}
	}
}

// edgeReflection reports whether the cell-local vertex order of an
// edge disagrees with ascending global order.
func (t *Topology) edgeReflection(cellVerts []int32, pat []int32) bool {
	g0 := t.vertexGlobal[cellVerts[pat[0]]]
	g1 := t.vertexGlobal[cellVerts[pat[1]]]
	return g0 > g1
}

// triOrientation returns the rotation count and reflection bit that
// map the cell-local vertex order of a triangle to canonical order.
func (t *Topology) triOrientation(cellVerts []int32, pat []int32) (rot, refl uint8) {
	var g [3]int64
	for i, p := range pat {
		g[i] = t.vertexGlobal[cellVerts[p]]
	}
	m := 0
	for i := 1; i < 3; i++ {
		if g[i] < g[m] {
			m = i
		}
	}
	rot = uint8(m)
	if g[(m+1)%3] > g[(m+2)%3] {
		refl = 1
	}
	return rot, refl
}
