// Package adjacency provides compact CSR incidence lists used for
// mesh entity-to-entity connectivity.
package adjacency

import (
	"fmt"
)

// List stores a fixed incidence relation in CSR form: node i is
// incident to the entities Data[Offsets[i]:Offsets[i+1]], in order.
type List struct {
	Data    []int32
	Offsets []int32
}

// New builds a List from per-node link slices.
func New(links [][]int32) *List {
	offsets := make([]int32, len(links)+1)
	var total int32
	for i, l := range links {
		total += int32(len(l))
		offsets[i+1] = total
	}
	data := make([]int32, 0, total)
	for _, l := range links {
		data = append(data, l...)
	}
	return &List{Data: data, Offsets: offsets}
}

// FromCSR wraps pre-built CSR arrays. The arrays are not copied.
func FromCSR(data, offsets []int32) (*List, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("offsets must contain at least one entry")
	}
	if int(offsets[len(offsets)-1]) != len(data) {
		return nil, fmt.Errorf("final offset %d does not match data length %d",
			offsets[len(offsets)-1], len(data))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("offsets must be non-decreasing at %d", i)
		}
	}
	return &List{Data: data, Offsets: offsets}, nil
}

// NewFixed builds a List where every node has the same number of links,
// taken row-wise from a flat array.
func NewFixed(data []int32, linksPerNode int) (*List, error) {
	if linksPerNode <= 0 {
		return nil, fmt.Errorf("links per node must be positive, got %d", linksPerNode)
	}
	if len(data)%linksPerNode != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of %d",
			len(data), linksPerNode)
	}
	n := len(data) / linksPerNode
	offsets := make([]int32, n+1)
	for i := 1; i <= n; i++ {
		offsets[i] = offsets[i-1] + int32(linksPerNode)
	}
	return &List{Data: data, Offsets: offsets}, nil
}

// NumNodes returns the number of nodes in the relation.
func (a *List) NumNodes() int32 {
	return int32(len(a.Offsets) - 1)
}

// Links returns the incident entities of node i. The slice aliases the
// underlying storage and must not be modified.
func (a *List) Links(i int32) []int32 {
	return a.Data[a.Offsets[i]:a.Offsets[i+1]]
}

// NumLinks returns the number of entities incident to node i.
func (a *List) NumLinks(i int32) int32 {
	return a.Offsets[i+1] - a.Offsets[i]
}

// Transpose returns the reverse relation over n target nodes: entity e
// links node i in the result iff i links e in a. Links in the result
// are ordered by increasing source node index.
func (a *List) Transpose(n int32) *List {
	counts := make([]int32, n)
	for _, e := range a.Data {
		counts[e]++
	}
	offsets := make([]int32, n+1)
	for i := int32(0); i < n; i++ {
		offsets[i+1] = offsets[i] + counts[i]
	}
	data := make([]int32, len(a.Data))
	pos := make([]int32, n)
	copy(pos, offsets[:n])
	for i := int32(0); i < a.NumNodes(); i++ {
		for _, e := range a.Links(i) {
			data[pos[e]] = i
			pos[e]++
		}
	}
	return &List{Data: data, Offsets: offsets}
}

// Equal reports whether two lists hold identical content.
func (a *List) Equal(b *List) bool {
	if b == nil || len(a.Data) != len(b.Data) || len(a.Offsets) != len(b.Offsets) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	for i := range a.Offsets {
		if a.Offsets[i] != b.Offsets[i] {
			return false
		}
	}
	return true
}

// List64 is a CSR incidence list carrying global (64-bit) identifiers,
// used for cell-to-global-vertex input connectivity.
type List64 struct {
	Data    []int64
	Offsets []int32
}

// New64 builds a List64 from per-node link slices.
func New64(links [][]int64) *List64 {
	offsets := make([]int32, len(links)+1)
	var total int32
	for i, l := range links {
		total += int32(len(l))
		offsets[i+1] = total
	}
	data := make([]int64, 0, total)
	for _, l := range links {
		data = append(data, l...)
	}
	return &List64{Data: data, Offsets: offsets}
}

// NumNodes returns the number of nodes in the relation.
func (a *List64) NumNodes() int32 {
	return int32(len(a.Offsets) - 1)
}

// Links returns the global identifiers linked by node i.
func (a *List64) Links(i int32) []int64 {
	return a.Data[a.Offsets[i]:a.Offsets[i+1]]
}

// NumLinks returns the number of identifiers linked by node i.
func (a *List64) NumLinks(i int32) int32 {
	return a.Offsets[i+1] - a.Offsets[i]
}
