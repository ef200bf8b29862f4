package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellTypeBasics(t *testing.T) {
	assert.Equal(t, 1, Interval.Dim())
	assert.Equal(t, 2, Triangle.Dim())
	assert.Equal(t, 3, Tetrahedron.Dim())

	assert.Equal(t, 2, Interval.NumVertices())
	assert.Equal(t, 3, Triangle.NumVertices())
	assert.Equal(t, 4, Tetrahedron.NumVertices())

	assert.Equal(t, Point, Interval.FacetType())
	assert.Equal(t, Interval, Triangle.FacetType())
	assert.Equal(t, Triangle, Tetrahedron.FacetType())
}

func TestEntityCounts(t *testing.T) {
	assert.Equal(t, 3, Triangle.NumEntities(0))
	assert.Equal(t, 3, Triangle.NumEntities(1))
	assert.Equal(t, 1, Triangle.NumEntities(2))

	assert.Equal(t, 4, Tetrahedron.NumEntities(0))
	assert.Equal(t, 6, Tetrahedron.NumEntities(1))
	assert.Equal(t, 4, Tetrahedron.NumEntities(2))
	assert.Equal(t, 1, Tetrahedron.NumEntities(3))
}

func TestEntityVertexTables(t *testing.T) {
	// Edge i of a triangle is opposite vertex i.
	edges := Triangle.EntityVertices(1)
	for i, e := range edges {
		assert.NotContains(t, e, int32(i), "edge %d must not contain vertex %d", i, i)
	}

	// Face i of a tetrahedron is opposite vertex i.
	faces := Tetrahedron.EntityVertices(2)
	for i, f := range faces {
		assert.Len(t, f, 3)
		assert.NotContains(t, f, int32(i))
	}

	// Every tetrahedron edge joins two distinct vertices; each vertex
	// touches exactly three edges.
	touch := make(map[int32]int)
	for _, e := range Tetrahedron.EntityVertices(1) {
		assert.NotEqual(t, e[0], e[1])
		touch[e[0]]++
		touch[e[1]]++
	}
	for v := int32(0); v < 4; v++ {
		assert.Equal(t, 3, touch[v])
	}
}
