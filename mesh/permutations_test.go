package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/adjacency"
	"github.com/notargets/femesh/partitions"
)

func TestTrianglePermutations(t *testing.T) {
	m := unitSquareMesh(t)
	top := m.Topology()
	require.NoError(t, top.CreateEntityPermutations())

	words, err := top.CellPermutations()
	require.NoError(t, err)
	require.Len(t, words, 2)

	// Cell 0 = (0,1,2): every edge pattern is already ascending.
	assert.Equal(t, uint32(0), words[0])
	// Cell 1 = (1,3,2): edge 0 is (3,2), a reflection; edges 1 and 2
	// are (1,2) and (1,3), ascending.
	assert.Equal(t, uint32(1), words[1])

	perms, err := top.FacetPermutations()
	require.NoError(t, err)
	require.Len(t, perms, 6)
	assert.Equal(t, uint8(0), perms[0*3+0])
	assert.Equal(t, uint8(1), perms[1*3+0])
}

func TestPermutationsIdempotent(t *testing.T) {
	m := unitSquareMesh(t)
	top := m.Topology()

	require.NoError(t, top.CreateEntityPermutations())
	first, err := top.CellPermutations()
	require.NoError(t, err)

	require.NoError(t, top.CreateEntityPermutations())
	second, err := top.CellPermutations()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTetIdentityPermutations(t *testing.T) {
	// With vertices listed in ascending global order every sub-entity
	// is already canonical.
	m := unitTetMesh(t)
	top := m.Topology()
	require.NoError(t, top.CreateEntityPermutations())

	words, err := top.CellPermutations()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), words[0])

	perms, err := top.FacetPermutations()
	require.NoError(t, err)
	for _, p := range perms {
		assert.Equal(t, uint8(0), p)
	}
}

func TestTetFacePermutationCodes(t *testing.T) {
	// Cell (2,0,1,3): face 3 (opposite vertex 3) has local vertices
	// (2,0,1); the lowest global is at position 1 so rotation is 1,
	// and the remaining pair (1,2) is in order, no reflection.
	cells := adjacency.New64([][]int64{{2, 0, 1, 3}})
	x := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	m, err := CreateMesh(partitions.SelfComm{}, cells,
		CoordinateLayout{Cell: Tetrahedron, Degree: 1}, x)
	require.NoError(t, err)

	top := m.Topology()
	require.NoError(t, top.CreateEntityPermutations())
	perms, err := top.FacetPermutations()
	require.NoError(t, err)
	assert.Equal(t, uint8(1<<1|0), perms[3])
}

// Two cells sharing a facet must encode orientations that reconcile to
// the same canonical vertex order: applying each cell's code to its
// local view of the facet yields the stored (canonical) entity
// vertices.
func TestSharedFacetOrientationConsistency(t *testing.T) {
	m := unitSquareMesh(t)
	top := m.Topology()
	require.NoError(t, top.CreateEntityPermutations())
	require.NoError(t, top.CreateConnectivity(1, 2))

	c2v, err := top.Connectivity(2, 0)
	require.NoError(t, err)
	c2f, err := top.Connectivity(2, 1)
	require.NoError(t, err)
	e2v, err := top.Connectivity(1, 0)
	require.NoError(t, err)
	f2c, err := top.Connectivity(1, 2)
	require.NoError(t, err)
	perms, err := top.FacetPermutations()
	require.NoError(t, err)
	interior, err := top.InteriorFacets()
	require.NoError(t, err)

	edgePatterns := Triangle.EntityVertices(1)
	for f := int32(0); f < f2c.NumNodes(); f++ {
		if !interior[f] {
			continue
		}
		for _, c := range f2c.Links(f) {
			// Local facet position within the cell.
			local := -1
			for i, fc := range c2f.Links(c) {
				if fc == f {
					local = i
				}
			}
			require.GreaterOrEqual(t, local, 0)

			pat := edgePatterns[local]
			cellLocal := []int32{
				c2v.Links(c)[pat[0]],
				c2v.Links(c)[pat[1]],
			}
			if perms[int(c)*3+local]&1 == 1 {
				cellLocal[0], cellLocal[1] = cellLocal[1], cellLocal[0]
			}
			assert.Equal(t, e2v.Links(f), cellLocal,
				"cell %d view of facet %d must reconcile to canonical order", c, f)
		}
	}
}

func TestPermutationDeterminism(t *testing.T) {
	build := func() []uint32 {
		m := unitSquareMesh(t)
		require.NoError(t, m.Topology().CreateEntityPermutations())
		w, err := m.Topology().CellPermutations()
		require.NoError(t, err)
		return w
	}
	assert.Equal(t, build(), build())
}
