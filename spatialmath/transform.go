package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Transform is a 4x4 homogeneous transform, used to map lidar-frame points
// into a camera frame and back.
type Transform struct {
	m *mat.Dense
}

// NewTransform builds a Transform from 16 row-major elements.
func NewTransform(elements []float64) (*Transform, error) {
	if len(elements) != 16 {
		return nil, errors.Errorf("expected 16 elements for a 4x4 transform, got %d", len(elements))
	}
	data := make([]float64, 16)
	copy(data, elements)
	return &Transform{m: mat.NewDense(4, 4, data)}, nil
}

// NewTransformFromRotationTranslation stacks a 3x4 [R|t] matrix, given as 12
// row-major elements, into a homogeneous transform.
func NewTransformFromRotationTranslation(elements []float64) (*Transform, error) {
	if len(elements) != 12 {
		return nil, errors.Errorf("expected 12 elements for a 3x4 matrix, got %d", len(elements))
	}
	data := make([]float64, 16)
	copy(data, elements)
	data[15] = 1
	return &Transform{m: mat.NewDense(4, 4, data)}, nil
}

// IdentityTransform returns the identity transform.
func IdentityTransform() *Transform {
	t, _ := NewTransform([]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	return t
}

// At returns the element at row i, column j.
func (t *Transform) At(i, j int) float64 {
	return t.m.At(i, j)
}

// Apply transforms p as a homogeneous point (w=1) and returns the first three
// components of the result.
func (t *Transform) Apply(p r3.Vector) r3.Vector {
	in := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	var out mat.VecDense
	out.MulVec(t.m, in)
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Inverse returns the inverse transform. It fails if the matrix is singular,
// which for a rigid-body extrinsic indicates a corrupt calibration.
func (t *Transform) Inverse() (*Transform, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.m); err != nil {
		return nil, errors.Wrap(err, "cannot invert extrinsic matrix")
	}
	return &Transform{m: &inv}, nil
}

// Mul returns the composition t·other.
func (t *Transform) Mul(other *Transform) *Transform {
	var out mat.Dense
	out.Mul(t.m, other.m)
	return &Transform{m: &out}
}

// RowMajor returns the 16 elements of the transform in row-major order.
func (t *Transform) RowMajor() []float64 {
	out := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out = append(out, t.m.At(i, j))
		}
	}
	return out
}
