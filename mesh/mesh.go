package mesh

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/adjacency"
	"github.com/notargets/femesh/partitions"
)

// Mesh couples a distributed Topology with its Geometry. Each mesh
// carries a process-unique identity so derived objects can tell meshes
// apart without comparing content.
type Mesh struct {
	ID       uuid.UUID
	comm     partitions.Comm
	topology *Topology
	geometry *Geometry
}

// CreateMesh builds the local part of a distributed mesh. cells maps
// each local cell to its globally consistent vertex identifiers in
// reference order; x holds one coordinate row per global vertex id.
// Collective: every rank of comm must call it with its own cells.
// Facet (and edge, in 3D) entities are created eagerly so assembly
// preconditions hold without further collective calls.
func CreateMesh(comm partitions.Comm, cells *adjacency.List64,
	layout CoordinateLayout, x mat.Matrix) (*Mesh, error) {

	if err := layout.validate(); err != nil {
		return nil, err
	}
	topology, err := createTopology(comm, cells, layout.Cell)
	if err != nil {
		return nil, fmt.Errorf("create topology: %w", err)
	}

	tdim := topology.Dim()
	if tdim > 1 {
		if _, err := topology.CreateEntities(1); err != nil {
			return nil, err
		}
		if _, err := topology.CreateEntities(tdim - 1); err != nil {
			return nil, err
		}
	}

	geometry, err := createGeometry(topology, layout, x)
	if err != nil {
		return nil, fmt.Errorf("create geometry: %w", err)
	}

	return &Mesh{
		ID:       uuid.New(),
		comm:     comm,
		topology: topology,
		geometry: geometry,
	}, nil
}

// Comm returns the communicator the mesh was built over.
func (m *Mesh) Comm() partitions.Comm { return m.comm }

// Topology returns the mesh topology.
func (m *Mesh) Topology() *Topology { return m.topology }

// Geometry returns the mesh geometry.
func (m *Mesh) Geometry() *Geometry { return m.geometry }

// NumEntities returns the local entity count (owned plus ghost) of a
// dimension, failing if the dimension was never materialized.
func (m *Mesh) NumEntities(d int) (int32, error) {
	im, err := m.topology.IndexMap(d)
	if err != nil {
		return 0, err
	}
	return im.SizeLocal() + im.NumGhosts(), nil
}

// NumEntitiesGlobal returns the global owned entity count of a
// dimension.
func (m *Mesh) NumEntitiesGlobal(d int) (int64, error) {
	im, err := m.topology.IndexMap(d)
	if err != nil {
		return 0, err
	}
	return im.SizeGlobal(), nil
}

// CreateConnectivityAll materializes every entity dimension and every
// (d0,d1) connectivity.
func (m *Mesh) CreateConnectivityAll() error {
	tdim := m.topology.Dim()
	for d := 0; d <= tdim; d++ {
		if _, err := m.topology.CreateEntities(d); err != nil {
			return err
		}
	}
	for d0 := 0; d0 <= tdim; d0++ {
		for d1 := 0; d1 <= tdim; d1++ {
			if err := m.topology.CreateConnectivity(d0, d1); err != nil {
				return err
			}
		}
	}
	return nil
}

// CellVolumes returns the measure of each local cell of an affine
// simplex mesh: length, area or volume by dimension. Used as reference
// values by assembly tests.
func CellVolumes(m *Mesh) []float64 {
	top := m.Topology()
	geo := m.Geometry()
	tdim := top.Dim()
	gdim := geo.Dim()
	dofmap := geo.Dofmap

	// measure = |det(edge matrix)| / tdim! for an affine simplex.
	factorial := [4]float64{1, 1, 2, 6}

	vols := make([]float64, dofmap.NumNodes())
	edges := mat.NewDense(tdim, tdim, nil)
	d := make([]float64, gdim)
	for c := int32(0); c < dofmap.NumNodes(); c++ {
		dofs := dofmap.Links(c)
		v0 := geo.X.RawRowView(int(dofs[0]))
		if tdim == 1 {
			vi := geo.X.RawRowView(int(dofs[1]))
			for j := 0; j < gdim; j++ {
				d[j] = vi[j] - v0[j]
			}
			vols[c] = mat.Norm(mat.NewVecDense(gdim, d), 2)
			continue
		}
		for i := 0; i < tdim; i++ {
			vi := geo.X.RawRowView(int(dofs[i+1]))
			for j := 0; j < tdim; j++ {
				edges.Set(i, j, vi[j]-v0[j])
			}
		}
		vols[c] = math.Abs(mat.Det(edges)) / factorial[tdim]
	}
	return vols
}
