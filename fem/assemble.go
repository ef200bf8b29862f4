package fem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/mesh"
)

// AssembleScalar reduces a scalar-valued form over the local partition:
// every cell integral group, then every exterior facet group, then
// every interior facet group, each traversed in active-entity order.
// Cross-partition combination of the returned partial is the caller's
// concern. Entities, connectivities and permutations required by the
// form's domain types are created on demand before any entity is
// processed.
func AssembleScalar(form *Form) (float64, error) {
	prep, err := prepare(form)
	if err != nil {
		return 0, err
	}

	var value float64
	for _, integral := range form.Integrals[CellIntegral] {
		v, err := assembleCells(prep, integral.Entities, integral.Kernel)
		if err != nil {
			return 0, err
		}
		value += v
	}
	for _, integral := range form.Integrals[ExteriorFacetIntegral] {
		v, err := assembleExteriorFacets(prep, integral.Entities, integral.Kernel)
		if err != nil {
			return 0, err
		}
		value += v
	}
	for _, integral := range form.Integrals[InteriorFacetIntegral] {
		v, err := assembleInteriorFacets(prep, integral.Entities, integral.Kernel)
		if err != nil {
			return 0, err
		}
		value += v
	}
	return value, nil
}

// prepared carries the read-only state shared by every entity loop of
// one assembly: packed inputs plus the topology and geometry views the
// kernels are fed from.
type prepared struct {
	mesh      *mesh.Mesh
	gdim      int
	numDofsG  int
	x         *mat.Dense
	offsets   []int
	coeffs    *mat.Dense
	constants []float64

	cellPerms  []uint32
	facetPerms []uint8
	numFacets  int // facets per cell
}

func prepare(form *Form) (*prepared, error) {
	if form.Mesh == nil {
		return nil, fmt.Errorf("form has no mesh")
	}
	if err := form.AllConstantsSet(); err != nil {
		return nil, err
	}
	constants, err := form.packConstants()
	if err != nil {
		return nil, err
	}

	coeffSrc := form.Coefficients
	if coeffSrc == nil {
		coeffSrc = NoCoefficients{}
	}
	offsets := coeffSrc.Offsets()
	if len(offsets) == 0 || offsets[0] != 0 {
		return nil, fmt.Errorf("coefficient offsets must start at 0: %w", ErrBufferMismatch)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("coefficient offsets must be non-decreasing: %w", ErrBufferMismatch)
		}
	}
	coeffs, err := coeffSrc.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack coefficients: %w", err)
	}
	width := offsets[len(offsets)-1]
	if coeffs == nil {
		if width != 0 {
			return nil, fmt.Errorf("no coefficient matrix for declared width %d: %w",
				width, ErrBufferMismatch)
		}
	} else {
		rows, cols := coeffs.Dims()
		if cols != width {
			return nil, fmt.Errorf("coefficient matrix has %d columns, offsets declare %d: %w",
				cols, width, ErrBufferMismatch)
		}
		nc, err := form.Mesh.NumEntities(form.Mesh.Topology().Dim())
		if err != nil {
			return nil, err
		}
		if rows != int(nc) {
			return nil, fmt.Errorf("coefficient matrix has %d rows for %d cells: %w",
				rows, nc, ErrBufferMismatch)
		}
	}

	top := form.Mesh.Topology()
	tdim := top.Dim()
	needFacets := len(form.Integrals[ExteriorFacetIntegral]) > 0 ||
		len(form.Integrals[InteriorFacetIntegral]) > 0
	if needFacets {
		if _, err := top.CreateEntities(tdim - 1); err != nil {
			return nil, err
		}
		if err := top.CreateConnectivity(tdim-1, tdim); err != nil {
			return nil, err
		}
	}
	if err := top.CreateEntityPermutations(); err != nil {
		return nil, err
	}
	cellPerms, err := top.CellPermutations()
	if err != nil {
		return nil, err
	}
	facetPerms, err := top.FacetPermutations()
	if err != nil {
		return nil, err
	}

	geo := form.Mesh.Geometry()
	logger.Debug().
		Int("cell_groups", len(form.Integrals[CellIntegral])).
		Int("exterior_groups", len(form.Integrals[ExteriorFacetIntegral])).
		Int("interior_groups", len(form.Integrals[InteriorFacetIntegral])).
		Int("constants", len(constants)).
		Msg("assembly inputs packed")
	return &prepared{
		mesh:       form.Mesh,
		gdim:       geo.Dim(),
		numDofsG:   top.CellType().NumEntities(0),
		x:          geo.X,
		offsets:    offsets,
		coeffs:     coeffs,
		constants:  constants,
		cellPerms:  cellPerms,
		facetPerms: facetPerms,
		numFacets:  top.CellType().NumEntities(tdim - 1),
	}, nil
}

// coeffRow returns cell c's packed coefficient row.
func (p *prepared) coeffRow(c int32) []float64 {
	if p.coeffs == nil {
		return nil
	}
	return p.coeffs.RawRowView(int(c))
}

// gatherCoords copies the geometry-dof coordinates of a cell into dst,
// row-major (numDofsG × gdim).
func (p *prepared) gatherCoords(dst []float64, cell int32) {
	dofs := p.mesh.Geometry().Dofmap.Links(cell)
	for i, d := range dofs {
		copy(dst[i*p.gdim:(i+1)*p.gdim], p.x.RawRowView(int(d)))
	}
}

func assembleCells(p *prepared, active []int32, kernel Kernel) (float64, error) {
	coords := make([]float64, p.numDofsG*p.gdim)
	var out [1]float64

	var value float64
	for _, c := range active {
		p.gatherCoords(coords, c)
		out[0] = 0
		kernel.Cell(out[:], p.coeffRow(c), p.constants, coords, p.cellPerms[c])
		value += out[0]
	}
	return value, nil
}

// localFacetIndex finds a facet's position within a cell's facet list
// by linear scan.
func localFacetIndex(cellFacets []int32, facet int32) (int32, error) {
	for i, f := range cellFacets {
		if f == facet {
			return int32(i), nil
		}
	}
	return -1, fmt.Errorf("facet %d not found in incident cell: %w",
		facet, ErrTopologyInconsistent)
}

func assembleExteriorFacets(p *prepared, active []int32, kernel Kernel) (float64, error) {
	top := p.mesh.Topology()
	tdim := top.Dim()
	f2c, err := top.Connectivity(tdim-1, tdim)
	if err != nil {
		return 0, err
	}
	c2f, err := top.Connectivity(tdim, tdim-1)
	if err != nil {
		return 0, err
	}

	coords := make([]float64, p.numDofsG*p.gdim)
	var out [1]float64

	var value float64
	for _, f := range active {
		cells := f2c.Links(f)
		if len(cells) != 1 {
			return 0, fmt.Errorf("exterior facet %d has %d incident cells, want 1: %w",
				f, len(cells), ErrTopologyInconsistent)
		}
		cell := cells[0]
		local, err := localFacetIndex(c2f.Links(cell), f)
		if err != nil {
			return 0, err
		}

		p.gatherCoords(coords, cell)
		perm := p.facetPerms[int(cell)*p.numFacets+int(local)]
		out[0] = 0
		kernel.ExteriorFacet(out[:], p.coeffRow(cell), p.constants, coords,
			local, perm, p.cellPerms[cell])
		value += out[0]
	}
	return value, nil
}

func assembleInteriorFacets(p *prepared, active []int32, kernel Kernel) (float64, error) {
	top := p.mesh.Topology()
	tdim := top.Dim()
	f2c, err := top.Connectivity(tdim-1, tdim)
	if err != nil {
		return 0, err
	}
	c2f, err := top.Connectivity(tdim, tdim-1)
	if err != nil {
		return 0, err
	}

	coords := make([]float64, 2*p.numDofsG*p.gdim)
	width := p.offsets[len(p.offsets)-1]
	coeffBuf := make([]float64, 2*width)
	var out [1]float64

	var value float64
	for _, f := range active {
		cells := f2c.Links(f)
		if len(cells) != 2 {
			return 0, fmt.Errorf("interior facet %d has %d incident cells, want 2: %w",
				f, len(cells), ErrTopologyInconsistent)
		}

		var locals [2]int32
		var perms [2]uint8
		for i, cell := range cells {
			local, err := localFacetIndex(c2f.Links(cell), f)
			if err != nil {
				return 0, err
			}
			locals[i] = local
			perms[i] = p.facetPerms[int(cell)*p.numFacets+int(local)]
		}

		// Doubled coordinate buffer, cell0's block first.
		p.gatherCoords(coords[:p.numDofsG*p.gdim], cells[0])
		p.gatherCoords(coords[p.numDofsG*p.gdim:], cells[1])

		// Restriction layout: per coefficient, cell0's slice then
		// cell1's slice, adjacent.
		row0 := p.coeffRow(cells[0])
		row1 := p.coeffRow(cells[1])
		for i := 0; i < len(p.offsets)-1; i++ {
			lo, hi := p.offsets[i], p.offsets[i+1]
			copy(coeffBuf[2*lo:], row0[lo:hi])
			copy(coeffBuf[hi+lo:], row1[lo:hi])
		}

		out[0] = 0
		kernel.InteriorFacet(out[:], coeffBuf, p.constants, coords,
			locals, perms, p.cellPerms[cells[0]])
		value += out[0]
	}
	return value, nil
}
