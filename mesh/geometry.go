package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/adjacency"
)

// CoordinateLayout describes the coordinate element of the geometry:
// which cell it lives on and the polynomial degree of the coordinate
// map. Only the affine (degree 1) layout is supported, where the
// geometry dofs are the cell vertices.
type CoordinateLayout struct {
	Cell   CellType
	Degree int
}

// NumDofs returns the number of geometry dofs per cell.
func (l CoordinateLayout) NumDofs() int {
	return l.Cell.NumVertices()
}

func (l CoordinateLayout) validate() error {
	if l.Degree != 1 {
		return fmt.Errorf("coordinate layout degree %d not supported (affine only)", l.Degree)
	}
	if l.Cell.Dim() < 1 {
		return fmt.Errorf("coordinate layout needs a cell of dimension >= 1, got %s", l.Cell)
	}
	return nil
}

// Geometry holds the local coordinate block and the map from cells to
// geometry dofs. X is row-major (numLocalDofs × Dim()); the row-major
// layout is part of the kernel calling convention and must not change.
type Geometry struct {
	X      *mat.Dense
	Dofmap *adjacency.List
	Layout CoordinateLayout
}

// Dim returns the geometric (spatial) dimension.
func (g *Geometry) Dim() int {
	_, c := g.X.Dims()
	return c
}

// createGeometry selects the coordinate rows for the local vertices
// from the caller's global coordinate array (one row per global vertex
// id) and reuses the cell-vertex connectivity as the degree-1 dofmap.
func createGeometry(t *Topology, layout CoordinateLayout, x mat.Matrix) (*Geometry, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	rows, gdim := x.Dims()
	if gdim < t.Dim() {
		return nil, fmt.Errorf("geometric dimension %d below topological dimension %d",
			gdim, t.Dim())
	}

	numLocal := len(t.vertexGlobal)
	local := mat.NewDense(numLocal, gdim, nil)
	for v, id := range t.vertexGlobal {
		if id < 0 || id >= int64(rows) {
			return nil, fmt.Errorf("vertex global id %d outside coordinate array of %d rows",
				id, rows)
		}
		for j := 0; j < gdim; j++ {
			local.Set(v, j, x.At(int(id), j))
		}
	}

	c2v := t.conn[[2]int{t.Dim(), 0}]
	dofmap, err := adjacency.FromCSR(c2v.Data, c2v.Offsets)
	if err != nil {
		return nil, err
	}
	return &Geometry{X: local, Dofmap: dofmap, Layout: layout}, nil
}
