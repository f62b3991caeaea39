package transform

import (
	"math"

	"github.com/pkg/errors"
)

// BrownConrady is the radial and tangential lens distortion model. It maps undistorted
// normalized coordinates to distorted ones:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of up to 5 floats in the order k1, k2, k3, p1, p2.
// Missing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	var p [5]float64
	copy(p[:], inp)
	bc := &BrownConrady{p[0], p[1], p[2], p[3], p[4]}
	return bc, bc.CheckValid()
}

// NewBrownConradyFromOpenCV takes coefficients in the OpenCV order k1, k2, p1, p2, k3.
// Fewer than 5 coefficients leave the rest at zero.
func NewBrownConradyFromOpenCV(coeffs ...float64) (*BrownConrady, error) {
	if len(coeffs) > 5 {
		return nil, errors.Errorf("expected at most 5 distortion coefficients, got %d", len(coeffs))
	}
	var p [5]float64
	copy(p[:], coeffs)
	bc := &BrownConrady{RadialK1: p[0], RadialK2: p[1], TangentialP1: p[2], TangentialP2: p[3], RadialK3: p[4]}
	return bc, bc.CheckValid()
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	for _, v := range bc.Parameters() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return InvalidDistortionError("BrownConrady parameters must be finite")
		}
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// OpenCVCoefficients returns the parameters in the OpenCV order k1, k2, p1, p2, k3.
func (bc *BrownConrady) OpenCVCoefficients() []float64 {
	if bc == nil {
		return []float64{0, 0, 0, 0, 0}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

// IsZero reports whether the model leaves every point where it is.
func (bc *BrownConrady) IsZero() bool {
	return bc == nil || *bc == BrownConrady{}
}

// Transform distorts a normalized point.
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	radDist := 1. + bc.RadialK1*r2 + bc.RadialK2*r2*r2 + bc.RadialK3*r2*r2*r2
	xd := x*radDist + 2.*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2.*x*x)
	yd := y*radDist + 2.*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2.*y*y)
	return xd, yd
}

// jacobian returns the partial derivatives of Transform at (x, y) as
// [[dxd/dx, dxd/dy], [dyd/dx, dyd/dy]].
func (bc *BrownConrady) jacobian(x, y float64) (float64, float64, float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	radDist := 1. + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r4*r2
	dRad := 2. * (bc.RadialK1 + 2.*bc.RadialK2*r2 + 3.*bc.RadialK3*r4)

	dxdx := radDist + x*x*dRad + 2.*bc.TangentialP1*y + 6.*bc.TangentialP2*x
	dxdy := x*y*dRad + 2.*bc.TangentialP1*x + 2.*bc.TangentialP2*y
	dydx := x*y*dRad + 2.*bc.TangentialP2*y + 2.*bc.TangentialP1*x
	dydy := radDist + y*y*dRad + 2.*bc.TangentialP2*x + 6.*bc.TangentialP1*y
	return dxdx, dxdy, dydx, dydy
}

// Inverse returns the model that removes this distortion.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	if bc == nil {
		return &InverseBrownConrady{}
	}
	return &InverseBrownConrady{Forward: *bc}
}
