package fem

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/mesh"
)

// Fatal assembly error classes. All are non-retryable: a violation
// aborts assembly of the form with no partial result.
var (
	// ErrUnboundConstant marks a form referencing a constant with no
	// bound value.
	ErrUnboundConstant = errors.New("unbound constant")

	// ErrTopologyInconsistent marks a facet whose incident-cell count
	// contradicts its domain type.
	ErrTopologyInconsistent = errors.New("inconsistent topology")

	// ErrBufferMismatch marks coefficient or constant data whose size
	// disagrees with its declared layout.
	ErrBufferMismatch = errors.New("buffer size mismatch")
)

// IntegralType selects which entities an integral sums over.
type IntegralType uint8

const (
	CellIntegral IntegralType = iota
	ExteriorFacetIntegral
	InteriorFacetIntegral
)

func (t IntegralType) String() string {
	switch t {
	case CellIntegral:
		return "cell"
	case ExteriorFacetIntegral:
		return "exterior facet"
	case InteriorFacetIntegral:
		return "interior facet"
	}
	return fmt.Sprintf("integraltype(%d)", uint8(t))
}

// Constant is a named value referenced by a form. Size is the declared
// number of scalars; Value is nil until bound.
type Constant struct {
	Name  string
	Size  int
	Value []float64
}

// NewConstant declares an unbound constant.
func NewConstant(name string, size int) *Constant {
	return &Constant{Name: name, Size: size}
}

// Bind assigns the constant's value.
func (c *Constant) Bind(value []float64) error {
	if len(value) != c.Size {
		return fmt.Errorf("constant %q declared size %d, bound %d values: %w",
			c.Name, c.Size, len(value), ErrBufferMismatch)
	}
	c.Value = value
	return nil
}

// Integral is one integral group: a set of active local entity indices
// of the group's domain type and the kernel to run over them.
type Integral struct {
	ID       int
	Entities []int32
	Kernel   Kernel
}

// Coefficients is the coefficient packing boundary. Pack produces the
// dense row-major per-cell coefficient matrix (one row per local cell,
// columns the concatenated coefficient widths in declaration order);
// Offsets is the column offset table, Offsets[i] to Offsets[i+1]
// delimiting coefficient i. A form with no coefficients returns
// Offsets of [0] and a nil matrix.
type Coefficients interface {
	Offsets() []int
	Pack() (*mat.Dense, error)
}

// NoCoefficients is the empty coefficient set.
type NoCoefficients struct{}

func (NoCoefficients) Offsets() []int            { return []int{0} }
func (NoCoefficients) Pack() (*mat.Dense, error) { return nil, nil }

// PackedCoefficients wraps an externally packed coefficient matrix.
type PackedCoefficients struct {
	ColOffsets []int
	Values     *mat.Dense
}

func (p PackedCoefficients) Offsets() []int            { return p.ColOffsets }
func (p PackedCoefficients) Pack() (*mat.Dense, error) { return p.Values, nil }

// Form is a scalar-valued variational form: integral groups by domain
// type, named constants, and the coefficient packing boundary.
type Form struct {
	Mesh         *mesh.Mesh
	Integrals    map[IntegralType][]Integral
	Constants    []*Constant
	Coefficients Coefficients
}

// NewForm creates an empty form over a mesh.
func NewForm(m *mesh.Mesh) *Form {
	return &Form{
		Mesh:         m,
		Integrals:    make(map[IntegralType][]Integral),
		Coefficients: NoCoefficients{},
	}
}

// AddIntegral appends an integral group of the given domain type.
func (f *Form) AddIntegral(t IntegralType, id int, entities []int32, k Kernel) {
	f.Integrals[t] = append(f.Integrals[t], Integral{ID: id, Entities: entities, Kernel: k})
}

// AllConstantsSet verifies every declared constant carries a value.
func (f *Form) AllConstantsSet() error {
	for _, c := range f.Constants {
		if c.Value == nil {
			return fmt.Errorf("constant %q: %w", c.Name, ErrUnboundConstant)
		}
	}
	return nil
}

// packConstants concatenates all constant values in declaration order.
func (f *Form) packConstants() ([]float64, error) {
	var total int
	for _, c := range f.Constants {
		if len(c.Value) != c.Size {
			return nil, fmt.Errorf("constant %q has %d values, declared %d: %w",
				c.Name, len(c.Value), c.Size, ErrBufferMismatch)
		}
		total += c.Size
	}
	buf := make([]float64, 0, total)
	for _, c := range f.Constants {
		buf = append(buf, c.Value...)
	}
	return buf, nil
}
