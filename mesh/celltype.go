// Package mesh builds and queries distributed mesh topology: entity
// computation with cross-partition deduplication and ownership,
// arbitrary-dimension connectivity, orientation permutations, and
// coordinate geometry.
package mesh

import "fmt"

// CellType identifies a reference cell shape. The simplex family is
// supported; the decomposition tables below are the single source of
// truth for entity enumeration, permutation encoding, and local facet
// ordering.
type CellType uint8

const (
	Point CellType = iota
	Interval
	Triangle
	Tetrahedron
)

func (c CellType) String() string {
	switch c {
	case Point:
		return "point"
	case Interval:
		return "interval"
	case Triangle:
		return "triangle"
	case Tetrahedron:
		return "tetrahedron"
	}
	return fmt.Sprintf("celltype(%d)", uint8(c))
}

// Dim returns the topological dimension of the cell.
func (c CellType) Dim() int {
	switch c {
	case Point:
		return 0
	case Interval:
		return 1
	case Triangle:
		return 2
	case Tetrahedron:
		return 3
	}
	panic("unknown cell type")
}

// NumVertices returns the number of vertices of the cell.
func (c CellType) NumVertices() int {
	return c.Dim() + 1
}

// EntityType returns the cell type of a sub-entity of dimension dim.
func (c CellType) EntityType(dim int) CellType {
	d := c.Dim()
	if dim < 0 || dim > d {
		panic(fmt.Sprintf("no dimension-%d entities on a %s", dim, c))
	}
	if dim == d {
		return c
	}
	switch dim {
	case 0:
		return Point
	case 1:
		return Interval
	case 2:
		return Triangle
	}
	panic("unreachable")
}

// FacetType returns the type of the cell's codimension-1 entities.
func (c CellType) FacetType() CellType {
	return c.EntityType(c.Dim() - 1)
}

// Sub-entity decomposition in cell-local vertex indices. Edge i of a
// triangle is opposite vertex i; face i of a tetrahedron is opposite
// vertex i; tetrahedron edges are ordered lexicographically by their
// opposite edge convention {2,3},{1,3},{1,2},{0,3},{0,2},{0,1}.
var (
	intervalVertices = [][]int32{{0}, {1}}

	triangleEdges = [][]int32{{1, 2}, {0, 2}, {0, 1}}

	tetrahedronEdges = [][]int32{
		{2, 3}, {1, 3}, {1, 2}, {0, 3}, {0, 2}, {0, 1},
	}
	tetrahedronFaces = [][]int32{
		{1, 2, 3}, {0, 2, 3}, {0, 1, 3}, {0, 1, 2},
	}
)

// EntityVertices returns, for each dimension-dim sub-entity of the
// cell, the cell-local vertex indices that form it. For dim equal to
// the cell dimension the single entry lists all cell vertices.
func (c CellType) EntityVertices(dim int) [][]int32 {
	d := c.Dim()
	if dim < 0 || dim > d {
		panic(fmt.Sprintf("no dimension-%d entities on a %s", dim, c))
	}
	if dim == d {
		all := make([]int32, c.NumVertices())
		for i := range all {
			all[i] = int32(i)
		}
		return [][]int32{all}
	}
	if dim == 0 {
		out := make([][]int32, c.NumVertices())
		for i := range out {
			out[i] = []int32{int32(i)}
		}
		return out
	}
	switch {
	case c == Interval:
		return intervalVertices
	case c == Triangle && dim == 1:
		return triangleEdges
	case c == Tetrahedron && dim == 1:
		return tetrahedronEdges
	case c == Tetrahedron && dim == 2:
		return tetrahedronFaces
	}
	panic("unreachable")
}

// NumEntities returns the number of dimension-dim sub-entities of the
// cell.
func (c CellType) NumEntities(dim int) int {
	return len(c.EntityVertices(dim))
}
