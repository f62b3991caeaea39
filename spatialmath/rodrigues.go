package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	smallAngle = 1e-10
	// past this, the axis is taken from the symmetric part of the matrix since sin(theta) vanishes.
	nearPi = math.Pi - 1e-3
)

// RotationVectorToMatrix converts a rotation vector (axis scaled by angle) to a rotation matrix
// with Rodrigues' formula: R = cos(t)I + (1-cos(t))kk^T + sin(t)[k]x.
func RotationVectorToMatrix(v r3.Vector) *RotationMatrix {
	theta := v.Norm()
	if theta < smallAngle {
		// first order: I + [v]x
		return &RotationMatrix{[9]float64{
			1, -v.Z, v.Y,
			v.Z, 1, -v.X,
			-v.Y, v.X, 1,
		}}
	}
	k := v.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)
	t := 1 - c
	return &RotationMatrix{[9]float64{
		c + t*k.X*k.X, t*k.X*k.Y - s*k.Z, t*k.X*k.Z + s*k.Y,
		t*k.X*k.Y + s*k.Z, c + t*k.Y*k.Y, t*k.Y*k.Z - s*k.X,
		t*k.X*k.Z - s*k.Y, t*k.Y*k.Z + s*k.X, c + t*k.Z*k.Z,
	}}
}

// MatrixToRotationVector converts a rotation matrix to its rotation vector. The returned
// angle is in [0, pi].
func MatrixToRotationVector(rm *RotationMatrix) r3.Vector {
	trace := rm.At(0, 0) + rm.At(1, 1) + rm.At(2, 2)
	cosTheta := math.Max(-1, math.Min(1, (trace-1)/2))
	theta := math.Acos(cosTheta)

	// 2 sin(theta) k
	anti := r3.Vector{
		X: rm.At(2, 1) - rm.At(1, 2),
		Y: rm.At(0, 2) - rm.At(2, 0),
		Z: rm.At(1, 0) - rm.At(0, 1),
	}
	if theta < smallAngle {
		return anti.Mul(0.5)
	}
	if theta < nearPi {
		return anti.Mul(theta / (2 * math.Sin(theta)))
	}

	// R_ii = c + (1-c)k_i^2 and (R_ij + R_ji)/2 = (1-c)k_i k_j.
	oneMinusC := 1 - cosTheta
	diag := []float64{rm.At(0, 0), rm.At(1, 1), rm.At(2, 2)}
	largest := 0
	for i := 1; i < 3; i++ {
		if diag[i] > diag[largest] {
			largest = i
		}
	}
	axis := make([]float64, 3)
	axis[largest] = math.Sqrt(math.Max(0, (diag[largest]-cosTheta)/oneMinusC))
	for j := 0; j < 3; j++ {
		if j == largest {
			continue
		}
		axis[j] = (rm.At(largest, j) + rm.At(j, largest)) / (2 * oneMinusC * axis[largest])
	}
	k := r3.Vector{X: axis[0], Y: axis[1], Z: axis[2]}.Normalize()
	if k.Dot(anti) < 0 {
		k = k.Mul(-1)
	}
	return k.Mul(theta)
}
