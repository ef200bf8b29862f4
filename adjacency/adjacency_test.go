package adjacency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListConstruction(t *testing.T) {
	a := New([][]int32{{0, 1, 2}, {2, 3}, {}, {1}})

	assert.Equal(t, int32(4), a.NumNodes())
	assert.Equal(t, []int32{0, 1, 2}, a.Links(0))
	assert.Equal(t, []int32{2, 3}, a.Links(1))
	assert.Empty(t, a.Links(2))
	assert.Equal(t, int32(1), a.NumLinks(3))
}

func TestNewFixed(t *testing.T) {
	a, err := NewFixed([]int32{0, 1, 2, 2, 3, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.NumNodes())
	assert.Equal(t, []int32{2, 3, 0}, a.Links(1))

	_, err = NewFixed([]int32{0, 1, 2, 3}, 3)
	assert.Error(t, err)
}

func TestFromCSRValidation(t *testing.T) {
	_, err := FromCSR([]int32{1, 2}, []int32{0, 1})
	assert.Error(t, err, "final offset must match data length")

	_, err = FromCSR([]int32{1, 2}, []int32{0, 2, 1})
	assert.Error(t, err, "offsets must be non-decreasing")

	a, err := FromCSR([]int32{1, 2, 0}, []int32{0, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, a.Links(0))
}

func TestTransposeMutualConsistency(t *testing.T) {
	// Two triangles sharing an edge: cell -> vertex.
	c2v := New([][]int32{{0, 1, 2}, {1, 3, 2}})
	v2c := c2v.Transpose(4)

	assert.Equal(t, int32(4), v2c.NumNodes())
	assert.Equal(t, []int32{0}, v2c.Links(0))
	assert.Equal(t, []int32{0, 1}, v2c.Links(1))
	assert.Equal(t, []int32{0, 1}, v2c.Links(2))
	assert.Equal(t, []int32{1}, v2c.Links(3))

	// e1 appears in e0's list iff e0 appears in e1's list.
	for c := int32(0); c < c2v.NumNodes(); c++ {
		for _, v := range c2v.Links(c) {
			assert.Contains(t, v2c.Links(v), c)
		}
	}

	// Round trip restores the original relation.
	assert.True(t, c2v.Equal(v2c.Transpose(c2v.NumNodes())))
}

func TestList64(t *testing.T) {
	a := New64([][]int64{{100, 200, 300}, {200, 400, 300}})
	assert.Equal(t, int32(2), a.NumNodes())
	assert.Equal(t, []int64{200, 400, 300}, a.Links(1))
	assert.Equal(t, int32(3), a.NumLinks(0))
}
