package transform

// InverseBrownConrady applies the inverse of the Brown-Conrady distortion model.
// Given distorted points, it computes the corresponding undistorted points using
// an iterative Newton-Raphson method.
type InverseBrownConrady struct {
	Forward BrownConrady `json:"forward"`
}

const (
	inverseMaxIterations = 20
	inverseTolerance     = 1e-12
)

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return ibc.Forward.CheckValid()
}

// Parameters returns the parameters of the forward model.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.Forward.Parameters()
}

// Transform finds the undistorted point (x_u, y_u) whose forward distortion lands on (xd, yd).
// The distorted point is the initial guess; iteration stops when the residual drops below
// tolerance or the Jacobian becomes singular.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil || ibc.Forward.IsZero() {
		return xd, yd
	}
	fwd := &ibc.Forward
	xu, yu := xd, yd
	for i := 0; i < inverseMaxIterations; i++ {
		xEst, yEst := fwd.Transform(xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if errX*errX+errY*errY < inverseTolerance*inverseTolerance {
			break
		}
		a, b, c, d := fwd.jacobian(xu, yu)
		det := a*d - b*c
		if det == 0 {
			break
		}
		xu -= (d*errX - b*errY) / det
		yu -= (-c*errX + a*errY) / det
	}
	return xu, yu
}
