package fem

import (
	"fmt"
	"sync"
	"weak"

	"github.com/google/uuid"

	"github.com/notargets/femesh/mesh"
)

// FunctionSpace pairs a mesh with a value shape and, for derived
// spaces, the component path selecting a block of the root space.
// Derived spaces are cached per parent through weak references, so a
// repeated Sub call returns the identical object while the parent
// never keeps an unused subspace alive.
type FunctionSpace struct {
	id        uuid.UUID
	mesh      *mesh.Mesh
	valueSize int

	root      *FunctionSpace
	component []int

	mu        sync.Mutex
	subspaces map[int]weak.Pointer[FunctionSpace]
}

// NewFunctionSpace creates a root space over m with valueSize
// components per point (1 for a scalar space).
func NewFunctionSpace(m *mesh.Mesh, valueSize int) (*FunctionSpace, error) {
	if m == nil {
		return nil, fmt.Errorf("function space requires a mesh")
	}
	if valueSize < 1 {
		return nil, fmt.Errorf("value size %d, want at least 1", valueSize)
	}
	return &FunctionSpace{
		id:        uuid.New(),
		mesh:      m,
		valueSize: valueSize,
	}, nil
}

// Mesh returns the space's mesh.
func (v *FunctionSpace) Mesh() *mesh.Mesh { return v.mesh }

// ValueSize returns the number of components per point.
func (v *FunctionSpace) ValueSize() int { return v.valueSize }

// Component returns the component path relative to the root space. A
// root space has an empty path.
func (v *FunctionSpace) Component() []int {
	out := make([]int, len(v.component))
	copy(out, v.component)
	return out
}

// Sub extracts scalar component i. The result is cached: a second call
// with the same i returns the same *FunctionSpace for as long as the
// first result is still referenced elsewhere.
func (v *FunctionSpace) Sub(i int) (*FunctionSpace, error) {
	if v.valueSize == 1 {
		return nil, fmt.Errorf("scalar space has no subspaces")
	}
	if i < 0 || i >= v.valueSize {
		return nil, fmt.Errorf("component %d out of range [0, %d)", i, v.valueSize)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if wp, ok := v.subspaces[i]; ok {
		if s := wp.Value(); s != nil {
			return s, nil
		}
	}

	root := v.root
	if root == nil {
		root = v
	}
	s := &FunctionSpace{
		id:        uuid.New(),
		mesh:      v.mesh,
		valueSize: 1,
		root:      root,
		component: append(v.Component(), i),
	}
	if v.subspaces == nil {
		v.subspaces = make(map[int]weak.Pointer[FunctionSpace])
	}
	v.subspaces[i] = weak.Make(s)
	return s, nil
}

func (v *FunctionSpace) rootID() uuid.UUID {
	if v.root != nil {
		return v.root.id
	}
	return v.id
}

// Contains reports whether w is v itself or a subspace derived from v.
func (v *FunctionSpace) Contains(w *FunctionSpace) bool {
	if w == nil || v.rootID() != w.rootID() {
		return false
	}
	if len(v.component) > len(w.component) {
		return false
	}
	for i, c := range v.component {
		if w.component[i] != c {
			return false
		}
	}
	return true
}
