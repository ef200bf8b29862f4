package mesh

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/adjacency"
	"github.com/notargets/femesh/partitions"
)

// runRanks executes fn once per rank on its own goroutine.
func runRanks(t *testing.T, n int, fn func(c *partitions.LocalComm)) {
	t.Helper()
	comms := partitions.NewLocalComms(n)
	var wg sync.WaitGroup
	for _, c := range comms {
		wg.Add(1)
		go func(c *partitions.LocalComm) {
			defer wg.Done()
			fn(c)
		}(c)
	}
	wg.Wait()
}

// Unit square split across two ranks along the diagonal 1-2.
func distributedSquare(t *testing.T, c *partitions.LocalComm) *Mesh {
	t.Helper()
	var cells *adjacency.List64
	if c.Rank() == 0 {
		cells = adjacency.New64([][]int64{{0, 1, 2}})
	} else {
		cells = adjacency.New64([][]int64{{1, 3, 2}})
	}
	x := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	})
	m, err := CreateMesh(c, cells, CoordinateLayout{Cell: Triangle, Degree: 1}, x)
	require.NoError(t, err)
	return m
}

func TestDistributedVertexOwnership(t *testing.T) {
	runRanks(t, 2, func(c *partitions.LocalComm) {
		m := distributedSquare(t, c)
		vm, err := m.Topology().IndexMap(0)
		require.NoError(t, err)

		// Shared vertices 1 and 2 go to the lowest rank touching them.
		if c.Rank() == 0 {
			assert.Equal(t, int32(3), vm.SizeLocal())
			assert.Equal(t, int32(0), vm.NumGhosts())
			assert.Equal(t, [2]int64{0, 3}, vm.LocalRange())
		} else {
			assert.Equal(t, int32(1), vm.SizeLocal())
			assert.Equal(t, int32(2), vm.NumGhosts())
			assert.Equal(t, [2]int64{3, 4}, vm.LocalRange())
			assert.Equal(t, []int32{0, 0}, vm.GhostOwners())
		}
		assert.Equal(t, int64(4), vm.SizeGlobal())
	})
}

func TestDistributedEdgeDeduplication(t *testing.T) {
	runRanks(t, 2, func(c *partitions.LocalComm) {
		m := distributedSquare(t, c)
		em, err := m.Topology().IndexMap(1)
		require.NoError(t, err)

		// Five distinct edges globally: the diagonal is counted once.
		assert.Equal(t, int64(5), em.SizeGlobal())

		if c.Rank() == 0 {
			// Rank 0 owns all three of its edges, diagonal included.
			assert.Equal(t, int32(3), em.SizeLocal())
			assert.Equal(t, int32(0), em.NumGhosts())
		} else {
			// Rank 1 sees the diagonal as a ghost owned by rank 0.
			assert.Equal(t, int32(2), em.SizeLocal())
			assert.Equal(t, int32(1), em.NumGhosts())
			assert.Equal(t, []int32{0}, em.GhostOwners())

			// The diagonal {1,2} is rank 0's first-seen edge, global 0.
			assert.Equal(t, []int64{0}, em.Ghosts())
			assert.Equal(t, int64(0), em.GlobalIndex(em.SizeLocal()))
		}
	})
}

func TestDistributedDeterminism(t *testing.T) {
	type result struct {
		local  int32
		ghosts []int64
	}
	collect := func() [2]result {
		var out [2]result
		runRanks(t, 2, func(c *partitions.LocalComm) {
			m := distributedSquare(t, c)
			em, err := m.Topology().IndexMap(1)
			require.NoError(t, err)
			out[c.Rank()] = result{local: em.SizeLocal(), ghosts: em.Ghosts()}
		})
		return out
	}
	assert.Equal(t, collect(), collect())
}

// Three triangles fanned around a central vertex, one per rank. The
// center vertex is listed by all three ranks and must resolve to rank
// 0 transitively; each pairwise shared edge goes to the lower rank of
// the pair.
func TestThreeWayVertexSharing(t *testing.T) {
	cellsByRank := [][][]int64{
		{{0, 1, 2}},
		{{0, 2, 3}},
		{{0, 3, 1}},
	}
	x := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 0,
		-0.5, 1,
		-0.5, -1,
	})
	runRanks(t, 3, func(c *partitions.LocalComm) {
		cells := adjacency.New64(cellsByRank[c.Rank()])
		m, err := CreateMesh(c, cells, CoordinateLayout{Cell: Triangle, Degree: 1}, x)
		require.NoError(t, err)

		vm, err := m.Topology().IndexMap(0)
		require.NoError(t, err)
		assert.Equal(t, int64(4), vm.SizeGlobal())

		em, err := m.Topology().IndexMap(1)
		require.NoError(t, err)
		// Six distinct edges globally: three spokes plus three rims.
		assert.Equal(t, int64(6), em.SizeGlobal())

		switch c.Rank() {
		case 0:
			// Owns vertices 0,1,2 and all three of its edges.
			assert.Equal(t, int32(3), vm.SizeLocal())
			assert.Equal(t, int32(3), em.SizeLocal())
			assert.Equal(t, int32(0), em.NumGhosts())
		case 1:
			// Vertex 3 plus rim {2,3} and spoke... spoke {0,3} is
			// shared with rank 2 and rank 1 is the lower rank.
			assert.Equal(t, int32(1), vm.SizeLocal())
			assert.Equal(t, []int32{0, 0}, vm.GhostOwners())
			assert.Equal(t, int32(2), em.SizeLocal())
			assert.Equal(t, int32(1), em.NumGhosts())
			assert.Equal(t, []int32{0}, em.GhostOwners())
		case 2:
			// Everything it touches is owned elsewhere except the rim
			// edge {3,1}.
			assert.Equal(t, int32(0), vm.SizeLocal())
			assert.Equal(t, int32(1), em.SizeLocal())
			assert.Equal(t, int32(2), em.NumGhosts())
			for _, o := range em.GhostOwners() {
				assert.Less(t, o, int32(2))
			}
		}
	})
}
