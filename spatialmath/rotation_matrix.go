package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 values in row major order.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	var data [9]float64
	copy(data[:], m)
	return &RotationMatrix{data}, nil
}

// NewIdentityRotation returns the rotation that does nothing.
func NewIdentityRotation() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewRotationMatrixFromDense copies a 3x3 gonum matrix. The matrix is not checked for orthonormality.
func NewRotationMatrixFromDense(m mat.Matrix) (*RotationMatrix, error) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("rotation matrix must be 3x3, got %dx%d", r, c)
	}
	rm := &RotationMatrix{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rm.mat[3*i+j] = m.At(i, j)
		}
	}
	return rm, nil
}

// At returns the value of the matrix at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Row returns the given row as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[3*row], Y: rm.mat[3*row+1], Z: rm.mat[3*row+2]}
}

// Col returns the given column as a vector.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[col+3], Z: rm.mat[col+6]}
}

// Mul rotates the vector.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.Row(0).Dot(v),
		Y: rm.Row(1).Dot(v),
		Z: rm.Row(2).Dot(v),
	}
}

// MatMul returns rm * other.
func (rm *RotationMatrix) MatMul(other *RotationMatrix) *RotationMatrix {
	out := &RotationMatrix{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.mat[3*i+j] = rm.Row(i).Dot(other.Col(j))
		}
	}
	return out
}

// Transpose returns the inverse rotation.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	out := &RotationMatrix{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.mat[3*i+j] = rm.mat[3*j+i]
		}
	}
	return out
}

// Dense returns a copy of the matrix as a gonum matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	data := rm.mat
	return mat.NewDense(3, 3, data[:])
}

// Data returns a copy of the row major values.
func (rm *RotationMatrix) Data() []float64 {
	data := rm.mat
	return data[:]
}

// AxisAngles returns the orientation in axis angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return R3ToR4(MatrixToRotationVector(rm))
}

// RotationMatrix returns itself.
func (rm *RotationMatrix) RotationMatrix() *RotationMatrix {
	return rm
}

func (rm *RotationMatrix) String() string {
	return fmt.Sprintf("[%.4f %.4f %.4f; %.4f %.4f %.4f; %.4f %.4f %.4f]",
		rm.mat[0], rm.mat[1], rm.mat[2], rm.mat[3], rm.mat[4], rm.mat[5], rm.mat[6], rm.mat[7], rm.mat[8])
}

// RotationMatrixAlmostEqual compares two rotation matrices element-wise.
func RotationMatrixAlmostEqual(a, b *RotationMatrix, tol float64) bool {
	for i := range a.mat {
		d := a.mat[i] - b.mat[i]
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}

// NearestRotation returns the rotation matrix closest (in Frobenius norm) to m, computed from
// its singular value decomposition. Estimates built from noisy data are projected back onto
// SO(3) with this.
func NearestRotation(m mat.Matrix) (*RotationMatrix, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("could not factorize rotation estimate")
	}
	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		// flip the axis of the smallest singular value
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}
	return NewRotationMatrixFromDense(&r)
}
