// Package fem assembles variational forms over distributed meshes:
// it feeds geometry, packed coefficient and constant data to opaque
// numerical kernels and reduces their contributions to a scalar.
package fem

// Kernel is the opaque numerical callback of an integral. One method
// per domain type; an integral group only ever invokes the method
// matching its type.
//
// Buffer contract (part of the external ABI, do not reorder):
// out is a one-element accumulator slot, zeroed before every call; the
// kernel adds its contribution to out[0]. coeffs is the packed
// coefficient row for the entity, constants the flat constant buffer.
// coords is row-major (numGeometryDofs × gdim); for interior facets it
// is doubled, cell0's block first. Kernels must not retain the slices
// past the call, must not allocate through them, and must be safe to
// invoke concurrently on disjoint entities.
type Kernel interface {
	Cell(out, coeffs, constants, coords []float64, cellPerm uint32)

	ExteriorFacet(out, coeffs, constants, coords []float64,
		localFacet int32, facetPerm uint8, cellPerm uint32)

	InteriorFacet(out, coeffs, constants, coords []float64,
		localFacets [2]int32, facetPerms [2]uint8, cellPerm uint32)
}

// KernelFuncs adapts plain functions to the Kernel interface. Only the
// method matching the integral's domain type needs to be set.
type KernelFuncs struct {
	CellFn func(out, coeffs, constants, coords []float64, cellPerm uint32)

	ExteriorFacetFn func(out, coeffs, constants, coords []float64,
		localFacet int32, facetPerm uint8, cellPerm uint32)

	InteriorFacetFn func(out, coeffs, constants, coords []float64,
		localFacets [2]int32, facetPerms [2]uint8, cellPerm uint32)
}

func (k KernelFuncs) Cell(out, coeffs, constants, coords []float64, cellPerm uint32) {
	k.CellFn(out, coeffs, constants, coords, cellPerm)
}

func (k KernelFuncs) ExteriorFacet(out, coeffs, constants, coords []float64,
	localFacet int32, facetPerm uint8, cellPerm uint32) {
	k.ExteriorFacetFn(out, coeffs, constants, coords, localFacet, facetPerm, cellPerm)
}

func (k KernelFuncs) InteriorFacet(out, coeffs, constants, coords []float64,
	localFacets [2]int32, facetPerms [2]uint8, cellPerm uint32) {
	k.InteriorFacetFn(out, coeffs, constants, coords, localFacets, facetPerms, cellPerm)
}
