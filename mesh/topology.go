package mesh

import (
	"errors"
	"fmt"
	"sync"

	"github.com/notargets/femesh/adjacency"
	"github.com/notargets/femesh/partitions"
)

// ErrNotComputed is returned when an index map or connectivity is
// queried for a dimension that has never been materialized.
var ErrNotComputed = errors.New("not computed")

// Topology holds the entity and connectivity data of a distributed
// mesh. Entities of a dimension and (d0,d1) connectivities are created
// on first demand and cached for the life of the object; construction
// is single-writer and must complete before concurrent readers start.
type Topology struct {
	comm     partitions.Comm
	cellType CellType

	mu sync.Mutex // guards lazy construction only

	indexMaps []*partitions.IndexMap
	conn      map[[2]int]*adjacency.List

	// interiorFacets[f] reports whether facet f is incident to two
	// local cells; computed with (tdim-1, tdim) connectivity.
	interiorFacets []bool

	// Orientation data, valid once permsComputed.
	cellPerms     []uint32
	facetPerms    []uint8 // cell*numCellFacets + localFacet
	permsComputed bool

	// vertexGlobal maps local vertex index to the caller-supplied
	// globally consistent identifier; canonical entity forms and
	// orientation codes are functions of these.
	vertexGlobal []int64

	// vertexSharers[v] lists the other ranks referencing vertex v,
	// nil for purely local vertices.
	vertexSharers [][]int32
}

// createTopology resolves vertex sharing and ownership across ranks
// and builds the cell and vertex index maps plus the cell-vertex
// connectivity. Collective over comm.
func createTopology(comm partitions.Comm, cells *adjacency.List64,
	cellType CellType) (*Topology, error) {

	nv := int32(cellType.NumVertices())
	numCells := cells.NumNodes()
	for c := int32(0); c < numCells; c++ {
		if cells.NumLinks(c) != nv {
			return nil, fmt.Errorf("cell %d has %d vertices, %s needs %d",
				c, cells.NumLinks(c), cellType, nv)
		}
	}

	// Referenced vertex identifiers in first-seen order.
	seen := make(map[int64]bool)
	var refIDs []int64
	for _, id := range cells.Data {
		if !seen[id] {
			seen[id] = true
			refIDs = append(refIDs, id)
		}
	}

	// Rendezvous: discover which other ranks reference each vertex.
	allRefs := comm.AllGather64(refIDs)
	sharers := make(map[int64][]int32)
	for r, ids := range allRefs {
		if r == comm.Rank() {
			continue
		}
		for _, id := range ids {
			if seen[id] {
				sharers[id] = append(sharers[id], int32(r))
			}
		}
	}

	owner := func(id int64) int32 {
		o := int32(comm.Rank())
		for _, r := range sharers[id] {
			if r < o {
				o = r
			}
		}
		return o
	}

	// Local numbering: owned vertices first, ghosts after, both in
	// first-seen order.
	localIdx := make(map[int64]int32, len(refIDs))
	var numOwned int32
	for _, id := range refIDs {
		if owner(id) == int32(comm.Rank()) {
			localIdx[id] = numOwned
			numOwned++
		}
	}
	next := numOwned
	for _, id := range refIDs {
		if _, ok := localIdx[id]; !ok {
			localIdx[id] = next
			next++
		}
	}

	// Owners distribute their assigned contiguous numbering so ghost
	// ranks learn the global identity of each ghost vertex.
	offset := comm.ExScan(int64(numOwned))
	payload := make(map[int][]int64)
	for _, id := range refIDs {
		l := localIdx[id]
		if l >= numOwned {
			continue
		}
		for _, r := range sharers[id] {
			payload[int(r)] = append(payload[int(r)], id, offset+int64(l))
		}
	}
	recv := comm.Exchange(payload)
	ownedGlobal := make(map[int64]int64)
	for _, pairs := range recv {
		for i := 0; i < len(pairs); i += 2 {
			ownedGlobal[pairs[i]] = pairs[i+1]
		}
	}

	numLocal := next
	ghosts := make([]int64, 0, numLocal-numOwned)
	ghostOwners := make([]int32, 0, numLocal-numOwned)
	vertexGlobal := make([]int64, numLocal)
	vertexSharers := make([][]int32, numLocal)
	for _, id := range refIDs {
		l := localIdx[id]
		vertexGlobal[l] = id
		vertexSharers[l] = sharers[id]
		if l >= numOwned {
			g, ok := ownedGlobal[id]
			if !ok {
				return nil, fmt.Errorf("no owner numbering received for vertex %d", id)
			}
			ghosts = append(ghosts, g)
			ghostOwners = append(ghostOwners, owner(id))
		}
	}
	// Ghost slices follow ghost-local order because refIDs were walked
	// in the same order numbering was assigned.

	vertexMap, err := partitions.NewIndexMap(comm, numOwned, ghosts, ghostOwners, 1)
	if err != nil {
		return nil, fmt.Errorf("vertex index map: %w", err)
	}
	cellMap, err := partitions.NewIndexMap(comm, numCells, nil, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("cell index map: %w", err)
	}

	data := make([]int32, len(cells.Data))
	for i, id := range cells.Data {
		data[i] = localIdx[id]
	}
	cellVerts, err := adjacency.NewFixed(data, int(nv))
	if err != nil {
		return nil, err
	}

	tdim := cellType.Dim()
	t := &Topology{
		comm:          comm,
		cellType:      cellType,
		indexMaps:     make([]*partitions.IndexMap, tdim+1),
		conn:          make(map[[2]int]*adjacency.List),
		vertexGlobal:  vertexGlobal,
		vertexSharers: vertexSharers,
	}
	t.indexMaps[0] = vertexMap
	t.indexMaps[tdim] = cellMap
	t.conn[[2]int{tdim, 0}] = cellVerts

	logger.Debug().
		Int("rank", comm.Rank()).
		Int32("cells", numCells).
		Int32("vertices_owned", numOwned).
		Int32("vertices_ghost", numLocal-numOwned).
		Msg("topology created")

	return t, nil
}

// Dim returns the topological dimension of the mesh.
func (t *Topology) Dim() int { return t.cellType.Dim() }

// CellType returns the mesh cell type.
func (t *Topology) CellType() CellType { return t.cellType }

// Comm returns the communicator the topology was built over.
func (t *Topology) Comm() partitions.Comm { return t.comm }

// IndexMap returns the ownership map for dimension d, or ErrNotComputed
// if entities of that dimension have never been created.
func (t *Topology) IndexMap(d int) (*partitions.IndexMap, error) {
	if d < 0 || d > t.Dim() {
		return nil, fmt.Errorf("dimension %d out of range for %s", d, t.cellType)
	}
	if t.indexMaps[d] == nil {
		return nil, fmt.Errorf("index map for dimension %d: %w", d, ErrNotComputed)
	}
	return t.indexMaps[d], nil
}

// Connectivity returns the (d0,d1) incidence relation, or
// ErrNotComputed if it has never been created.
func (t *Topology) Connectivity(d0, d1 int) (*adjacency.List, error) {
	c, ok := t.conn[[2]int{d0, d1}]
	if !ok {
		return nil, fmt.Errorf("connectivity (%d,%d): %w", d0, d1, ErrNotComputed)
	}
	return c, nil
}

// SetConnectivity attaches a connectivity relation. Used by the
// construction code; exposed so synthetic topologies can be assembled
// in tests and tooling.
func (t *Topology) SetConnectivity(d0, d1 int, c *adjacency.List) {
	t.conn[[2]int{d0, d1}] = c
}

// InteriorFacets reports, per facet, whether it is incident to exactly
// two local cells. Requires (tdim-1, tdim) connectivity.
func (t *Topology) InteriorFacets() ([]bool, error) {
	if t.interiorFacets == nil {
		return nil, fmt.Errorf("interior facets: %w", ErrNotComputed)
	}
	return t.interiorFacets, nil
}

// CellPermutations returns the packed per-cell orientation words.
// Requires CreateEntityPermutations.
func (t *Topology) CellPermutations() ([]uint32, error) {
	if !t.permsComputed {
		return nil, fmt.Errorf("cell permutations: %w", ErrNotComputed)
	}
	return t.cellPerms, nil
}

// FacetPermutations returns per-(cell, local facet) orientation bytes,
// indexed cell*NumEntities(tdim-1) + localFacet. Requires
// CreateEntityPermutations.
func (t *Topology) FacetPermutations() ([]uint8, error) {
	if !t.permsComputed {
		return nil, fmt.Errorf("facet permutations: %w", ErrNotComputed)
	}
	return t.facetPerms, nil
}

// numEntities returns the local (owned plus ghost) entity count of a
// materialized dimension.
func (t *Topology) numEntities(d int) int32 {
	m := t.indexMaps[d]
	return m.SizeLocal() + m.NumGhosts()
}

// CreateEntities materializes entities of the given dimension,
// including cross-partition deduplication, ownership and numbering.
// Returns the owned entity count, or -1 if the dimension was already
// present (the call is then a no-op). Collective over the topology's
// communicator on first invocation for a dimension.
func (t *Topology) CreateEntities(dim int) (int32, error) {
	if dim < 0 || dim > t.Dim() {
		return -1, fmt.Errorf("cannot create entities of dimension %d on a %s",
			dim, t.cellType)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	// Vertices and cells always exist after construction.
	if t.indexMaps[dim] != nil {
		return -1, nil
	}
	if err := t.computeEntities(dim); err != nil {
		return -1, err
	}
	return t.indexMaps[dim].SizeLocal(), nil
}

// CreateConnectivity materializes the (d0,d1) incidence relation,
// creating the entities of both dimensions first if needed. The
// transpose relation is cached too when it is derived along the way.
func (t *Topology) CreateConnectivity(d0, d1 int) error {
	if _, err := t.CreateEntities(d0); err != nil {
		return err
	}
	if _, err := t.CreateEntities(d1); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conn[[2]int{d0, d1}]; ok {
		return nil
	}
	return t.computeConnectivity(d0, d1)
}

// CreateEntityPermutations computes the per-cell orientation words and
// per-facet orientation bytes. All dimensions below the cell dimension
// are created first. A no-op when already computed.
func (t *Topology) CreateEntityPermutations() error {
	for d := 0; d < t.Dim(); d++ {
		if _, err := t.CreateEntities(d); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.permsComputed {
		return nil
	}
	t.computePermutations()
	t.permsComputed = true
	return nil
}
