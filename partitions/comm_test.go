package partitions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRanks executes fn once per rank, each on its own goroutine.
func runRanks(t *testing.T, n int, fn func(c *LocalComm)) {
	t.Helper()
	comms := NewLocalComms(n)
	var wg sync.WaitGroup
	for _, c := range comms {
		wg.Add(1)
		go func(c *LocalComm) {
			defer wg.Done()
			fn(c)
		}(c)
	}
	wg.Wait()
}

func TestSelfComm(t *testing.T) {
	var c SelfComm
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, int64(0), c.ExScan(7))

	got := c.AllGather64([]int64{1, 2})
	require.Len(t, got, 1)
	assert.Equal(t, []int64{1, 2}, got[0])

	recv := c.Exchange(map[int][]int64{0: {9}})
	assert.Equal(t, []int64{9}, recv[0])
}

func TestLocalCommAllGather(t *testing.T) {
	runRanks(t, 3, func(c *LocalComm) {
		local := []int64{int64(c.Rank()) * 10}
		all := c.AllGather64(local)
		require.Len(t, all, 3)
		for r := 0; r < 3; r++ {
			assert.Equal(t, int64(r)*10, all[r][0])
		}
	})
}

func TestLocalCommExchange(t *testing.T) {
	// Each rank sends its rank id to every other rank.
	runRanks(t, 4, func(c *LocalComm) {
		payload := make(map[int][]int64)
		for r := 0; r < c.Size(); r++ {
			if r != c.Rank() {
				payload[r] = []int64{int64(c.Rank())}
			}
		}
		recv := c.Exchange(payload)
		assert.Len(t, recv, 3)
		for src, vals := range recv {
			assert.Equal(t, []int64{int64(src)}, vals)
		}
	})
}

func TestLocalCommExchangeSelective(t *testing.T) {
	// Only rank 0 sends, only to rank 1.
	runRanks(t, 3, func(c *LocalComm) {
		payload := map[int][]int64{}
		if c.Rank() == 0 {
			payload[1] = []int64{42}
		}
		recv := c.Exchange(payload)
		if c.Rank() == 1 {
			assert.Equal(t, map[int][]int64{0: {42}}, recv)
		} else {
			assert.Empty(t, recv)
		}
	})
}

func TestLocalCommExScan(t *testing.T) {
	runRanks(t, 4, func(c *LocalComm) {
		// Rank r contributes r+1; exclusive scan is 0, 1, 3, 6.
		got := c.ExScan(int64(c.Rank() + 1))
		want := []int64{0, 1, 3, 6}[c.Rank()]
		assert.Equal(t, want, got)
	})
}

func TestLocalCommRepeatedCollectives(t *testing.T) {
	// Back-to-back collectives must not interfere.
	runRanks(t, 3, func(c *LocalComm) {
		for i := 0; i < 10; i++ {
			v := int64(c.Rank()*100 + i)
			all := c.AllGather64([]int64{v})
			for r := 0; r < 3; r++ {
				assert.Equal(t, int64(r*100+i), all[r][0])
			}
		}
	})
}
