// Package partitions provides the communicator abstraction, ownership
// index maps, and cell-to-partition layout used to build distributed
// mesh topology.
package partitions

import (
	"sync"
)

// Comm is the communicator handle shared by all ranks cooperating on
// one mesh. All collective calls are blocking and must be entered by
// every rank; there are no cancellation or timeout semantics.
type Comm interface {
	Rank() int
	Size() int

	// AllGather64 gathers each rank's slice; the result is indexed by
	// rank. The returned slices must be treated as read-only.
	AllGather64(local []int64) [][]int64

	// Exchange sends payload[r] to rank r and returns the payloads
	// received, indexed by source rank. Ranks with nothing to send to
	// a destination omit it from the map.
	Exchange(payload map[int][]int64) map[int][]int64

	// ExScan returns the exclusive prefix sum of v across ranks: the
	// sum of v over all ranks with lower rank than the caller.
	ExScan(v int64) int64
}

// SelfComm is the single-rank communicator used for serial meshes.
type SelfComm struct{}

func (SelfComm) Rank() int { return 0 }
func (SelfComm) Size() int { return 1 }

func (SelfComm) AllGather64(local []int64) [][]int64 {
	return [][]int64{local}
}

func (SelfComm) Exchange(payload map[int][]int64) map[int][]int64 {
	recv := make(map[int][]int64)
	if p, ok := payload[0]; ok {
		recv[0] = p
	}
	return recv
}

func (SelfComm) ExScan(int64) int64 { return 0 }

// localGroup is the shared state behind a set of in-process ranks.
// Collectives follow a write / barrier / read / barrier protocol: each
// rank writes only its own row, so the slots need no locking beyond
// the barrier itself.
type localGroup struct {
	n       int
	mu      sync.Mutex
	cond    *sync.Cond
	phase   uint64
	arrived int

	gather  [][]int64   // gather[src]
	mailbox [][][]int64 // mailbox[src][dest]
}

func (g *localGroup) barrier() {
	g.mu.Lock()
	defer g.mu.Unlock()
	phase := g.phase
	g.arrived++
	if g.arrived == g.n {
		g.arrived = 0
		g.phase++
		g.cond.Broadcast()
		return
	}
	for g.phase == phase {
		g.cond.Wait()
	}
}

// LocalComm is one rank of an in-process communicator group. Each rank
// is expected to run on its own goroutine; collectives rendezvous
// through shared memory, following the same unified-buffer model the
// partition communication buffers use.
type LocalComm struct {
	rank  int
	group *localGroup
}

// NewLocalComms creates a group of n in-process ranks.
func NewLocalComms(n int) []*LocalComm {
	g := &localGroup{
		n:       n,
		gather:  make([][]int64, n),
		mailbox: make([][][]int64, n),
	}
	g.cond = sync.NewCond(&g.mu)
	for i := range g.mailbox {
		g.mailbox[i] = make([][]int64, n)
	}
	comms := make([]*LocalComm, n)
	for i := range comms {
		comms[i] = &LocalComm{rank: i, group: g}
	}
	return comms
}

func (c *LocalComm) Rank() int { return c.rank }
func (c *LocalComm) Size() int { return c.group.n }

func (c *LocalComm) AllGather64(local []int64) [][]int64 {
	g := c.group
	g.gather[c.rank] = local
	g.barrier()
	out := make([][]int64, g.n)
	copy(out, g.gather)
	g.barrier()
	return out
}

func (c *LocalComm) Exchange(payload map[int][]int64) map[int][]int64 {
	g := c.group
	row := g.mailbox[c.rank]
	for dest := 0; dest < g.n; dest++ {
		row[dest] = payload[dest]
	}
	g.barrier()
	recv := make(map[int][]int64)
	for src := 0; src < g.n; src++ {
		if p := g.mailbox[src][c.rank]; p != nil {
			recv[src] = p
		}
	}
	g.barrier()
	return recv
}

func (c *LocalComm) ExScan(v int64) int64 {
	all := c.AllGather64([]int64{v})
	var sum int64
	for r := 0; r < c.rank; r++ {
		sum += all[r][0]
	}
	return sum
}
