package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/arcamlabs/arcam/spatialmath"
)

const (
	// planarTolerance is the largest |z| relative to the target extent for a target to count as planar.
	planarTolerance = 1e-9
	// behindPenalty is the cost added per point that a candidate pose puts behind the camera.
	behindPenalty = 1e8
	minPlanarPoints = 4
	minDLTPoints    = 6
)

// SolvePnP estimates the pose of a target from the pixels its points were observed at.
// Planar targets (all z = 0) are initialized from the homography between the target plane and
// the undistorted image points; other targets use the direct linear transform and need at
// least 6 points. The estimate is then refined by minimizing the pixel reprojection error.
// The returned pose always places the target in front of the camera.
func SolvePnP(object []r3.Vector, imagePts []r2.Point, model *PinholeCameraModel) (*CamPose, error) {
	if len(object) != len(imagePts) {
		return nil, errors.Errorf("have %d object points but %d image points", len(object), len(imagePts))
	}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	normalized := make([]r2.Point, len(imagePts))
	for i, px := range imagePts {
		normalized[i] = model.Undistort(px)
	}

	var (
		initial *CamPose
		err     error
	)
	if isPlanar(object) {
		if len(object) < minPlanarPoints {
			return nil, errors.Errorf("need at least %d points for a planar target, got %d", minPlanarPoints, len(object))
		}
		initial, err = planarPose(object, normalized)
	} else {
		if len(object) < minDLTPoints {
			return nil, errors.Errorf("need at least %d points for a non-planar target, got %d", minDLTPoints, len(object))
		}
		initial, err = dltPose(object, normalized)
	}
	if err != nil {
		return nil, err
	}
	refined, _, err := RefinePose(object, imagePts, model, initial)
	if err != nil {
		return nil, err
	}
	return refined, nil
}

func isPlanar(object []r3.Vector) bool {
	extent := 0.
	for _, p := range object {
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	for _, p := range object {
		if math.Abs(p.Z) > planarTolerance*math.Max(extent, 1) {
			return false
		}
	}
	return true
}

func planarPose(object []r3.Vector, normalized []r2.Point) (*CamPose, error) {
	plane := make([]r2.Point, len(object))
	for i, p := range object {
		plane[i] = r2.Point{X: p.X, Y: p.Y}
	}
	h, err := FindHomography(plane, normalized)
	if err != nil {
		return nil, err
	}
	return PoseFromPlanarHomography(h.Matrix())
}

// PoseFromPlanarHomography decomposes a homography from the z = 0 target plane to normalized
// image coordinates, H ~ [r1 r2 t], into a pose in front of the camera. The rotation is
// projected onto the nearest orthonormal matrix.
func PoseFromPlanarHomography(h mat.Matrix) (*CamPose, error) {
	h1 := r3.Vector{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := r3.Vector{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := r3.Vector{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}
	norms := h1.Norm() + h2.Norm()
	if norms == 0 {
		return nil, errors.New("homography is degenerate")
	}
	lambda := 2 / norms
	if h3.Z < 0 {
		lambda = -lambda
	}
	r1, r2, t := h1.Mul(lambda), h2.Mul(lambda), h3.Mul(lambda)
	r3v := r1.Cross(r2)
	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3v.X,
		r1.Y, r2.Y, r3v.Y,
		r1.Z, r2.Z, r3v.Z,
	})
	rot, err := spatialmath.NearestRotation(approx)
	if err != nil {
		return nil, err
	}
	return &CamPose{Rotation: rot, Translation: t}, nil
}

// dltPose solves for the 3x4 projection matrix in normalized coordinates, P ~ [R|t].
func dltPose(object []r3.Vector, normalized []r2.Point) (*CamPose, error) {
	a := mat.NewDense(2*len(object), 12, nil)
	for i, p := range object {
		u, v := normalized[i].X, normalized[i].Y
		a.SetRow(2*i, []float64{p.X, p.Y, p.Z, 1, 0, 0, 0, 0, -u * p.X, -u * p.Y, -u * p.Z, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, 0, p.X, p.Y, p.Z, 1, -v * p.X, -v * p.Y, -v * p.Z, -v})
	}
	sol, err := nullVector(a, 11)
	if err != nil {
		return nil, errors.Wrap(err, "object points are degenerate, cannot solve for the pose")
	}
	pose := mat.NewDense(3, 4, sol)
	m := pose.Slice(0, 3, 0, 3)
	det := mat.Det(m)
	if det == 0 {
		return nil, errors.New("projection matrix is singular")
	}
	scale := 1 / math.Cbrt(det)
	pose.Scale(scale, pose)
	rot, err := spatialmath.NearestRotation(pose.Slice(0, 3, 0, 3))
	if err != nil {
		return nil, err
	}
	return &CamPose{Rotation: rot, Translation: r3.Vector{X: pose.At(0, 3), Y: pose.At(1, 3), Z: pose.At(2, 3)}}, nil
}

// RefinePose minimizes the squared pixel reprojection error of the pose with BFGS over its
// rotation vector and translation. It returns the refined pose and its RMS error in pixels.
// When the optimizer fails to improve on the initial pose, that pose is returned unchanged.
func RefinePose(object []r3.Vector, imagePts []r2.Point, model *PinholeCameraModel, initial *CamPose) (*CamPose, float64, error) {
	if len(object) != len(imagePts) {
		return nil, 0, errors.Errorf("have %d object points but %d image points", len(object), len(imagePts))
	}
	if len(object) == 0 {
		return nil, 0, errors.New("no points to refine the pose with")
	}
	cost := func(x []float64) float64 {
		pose := NewCamPoseFromParams(x)
		sum := 0.
		for i, p := range object {
			px, ok := model.ProjectPoint(pose.Apply(p))
			if !ok {
				sum += behindPenalty
				continue
			}
			d := px.Sub(imagePts[i])
			sum += d.Dot(d)
		}
		return sum
	}
	x0 := initial.Params()
	f0 := cost(x0)
	best, bestF := x0, f0

	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		MajorIterations:   500,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-12,
			Iterations: 25,
		},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result != nil && result.F < bestF && !math.IsNaN(result.F) {
		best, bestF = result.X, result.F
	} else if err != nil && bestF >= behindPenalty {
		return nil, 0, errors.Wrap(err, "could not refine pose")
	}
	if bestF >= behindPenalty {
		return nil, 0, errors.New("pose estimate places target points behind the camera")
	}
	return NewCamPoseFromParams(best), math.Sqrt(bestF / float64(len(object))), nil
}
