package fem

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// AssembleScalarParallel behaves like AssembleScalar but splits each
// integral's active entity list across workers goroutines. Each chunk
// accumulates privately and chunk partials are combined in chunk
// order, so repeated runs with the same worker count produce the same
// value bit for bit. Kernels must be safe for concurrent calls.
func AssembleScalarParallel(form *Form, workers int) (float64, error) {
	if workers < 1 {
		return 0, fmt.Errorf("worker count %d, want at least 1", workers)
	}
	prep, err := prepare(form)
	if err != nil {
		return 0, err
	}

	run := func(entities []int32, kernel Kernel,
		assemble func(*prepared, []int32, Kernel) (float64, error)) (float64, error) {

		n := len(entities)
		if n == 0 {
			return 0, nil
		}
		chunk := (n + workers - 1) / workers
		numChunks := (n + chunk - 1) / chunk
		partials := make([]float64, numChunks)

		var g errgroup.Group
		for i := 0; i < numChunks; i++ {
			i := i
			lo, hi := i*chunk, (i+1)*chunk
			if hi > n {
				hi = n
			}
			g.Go(func() error {
				v, err := assemble(prep, entities[lo:hi], kernel)
				if err != nil {
					return err
				}
				partials[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
		var v float64
		for _, p := range partials {
			v += p
		}
		return v, nil
	}

	var value float64
	for _, integral := range form.Integrals[CellIntegral] {
		v, err := run(integral.Entities, integral.Kernel, assembleCells)
		if err != nil {
			return 0, err
		}
		value += v
	}
	for _, integral := range form.Integrals[ExteriorFacetIntegral] {
		v, err := run(integral.Entities, integral.Kernel, assembleExteriorFacets)
		if err != nil {
			return 0, err
		}
		value += v
	}
	for _, integral := range form.Integrals[InteriorFacetIntegral] {
		v, err := run(integral.Entities, integral.Kernel, assembleInteriorFacets)
		if err != nil {
			return 0, err
		}
		value += v
	}
	return value, nil
}
