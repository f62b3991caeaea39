package calibrate

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage/transform"
)

// minViews is the number of views the closed form needs once skew is fixed to zero.
const minViews = 2

// CalibrationOptions tunes CalibrateCamera.
type CalibrationOptions struct {
	FixK3         bool    // keep the third radial coefficient at zero
	MaxIterations int     // Levenberg-Marquardt iterations
	Tolerance     float64 // relative decrease of the squared error under which refinement stops
}

// DefaultCalibrationOptions refines k3 with up to 100 iterations.
func DefaultCalibrationOptions() CalibrationOptions {
	return CalibrationOptions{MaxIterations: 100, Tolerance: 1e-10}
}

// CalibrationResult is a calibrated camera with the pose of the target in every view.
type CalibrationResult struct {
	Model         *transform.PinholeCameraModel
	Poses         []*transform.CamPose
	RMS           float64   // over all points of all views, in pixels
	PerViewErrors []float64 // RMS of each view, in pixels
	Iterations    int
}

// CalibrateCamera estimates intrinsics and Brown-Conrady distortion from at least two views
// of a planar target (all object points have z = 0). Each view lists the pixels of the
// object points in the same order. Intrinsics start from Zhang's closed form on the
// per-view homographies, with zero skew; poses start from decomposing those homographies.
// Everything is then refined jointly by minimizing the reprojection error.
func CalibrateCamera(
	views [][]r2.Point,
	object []r3.Vector,
	imageSize image.Point,
	opts CalibrationOptions,
) (*CalibrationResult, error) {
	if len(views) < minViews {
		return nil, errors.Errorf("need at least %d views to calibrate, got %d", minViews, len(views))
	}
	if len(object) < 4 {
		return nil, errors.Errorf("need at least 4 target points, got %d", len(object))
	}
	if imageSize.X <= 0 || imageSize.Y <= 0 {
		return nil, errors.Errorf("invalid image size %v", imageSize)
	}
	plane := make([]r2.Point, len(object))
	for i, p := range object {
		if p.Z != 0 {
			return nil, errors.New("calibration target must be planar with z = 0")
		}
		plane[i] = r2.Point{X: p.X, Y: p.Y}
	}
	homographies := make([]*transform.Homography, len(views))
	for i, view := range views {
		if len(view) != len(object) {
			return nil, errors.Errorf("view %d has %d points, expected %d", i, len(view), len(object))
		}
		h, err := transform.FindHomography(plane, view)
		if err != nil {
			return nil, errors.Wrapf(err, "view %d", i)
		}
		homographies[i] = h
	}

	intrinsics, err := initIntrinsics(homographies, imageSize)
	if err != nil || !insideImage(intrinsics) {
		// fall back to the principal point at the image center, which only needs focal lengths
		intrinsics, err = initFocalLengths(homographies, imageSize)
		if err != nil {
			return nil, err
		}
	}
	model := &transform.PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: &transform.BrownConrady{}}
	kInv, err := invert(intrinsics.GetCameraMatrix())
	if err != nil {
		return nil, err
	}
	poses := make([]*transform.CamPose, len(views))
	for i, h := range homographies {
		var normalized mat.Dense
		normalized.Mul(kInv, h.Matrix())
		pose, err := transform.PoseFromPlanarHomography(&normalized)
		if err != nil {
			return nil, errors.Wrapf(err, "view %d", i)
		}
		poses[i] = pose
	}

	prob := &bundle{views: views, object: object, fixK3: opts.FixK3, width: intrinsics.Width, height: intrinsics.Height}
	x, iterations := levenbergMarquardt(prob.residuals, prob.pack(model, poses), 2*len(views)*len(object), opts)
	model, poses = prob.unpack(x)
	if err := model.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "calibration did not converge to a valid camera")
	}

	result := &CalibrationResult{Model: model, Poses: poses, Iterations: iterations}
	total := 0.
	for i, view := range views {
		errs, err := model.ReprojectionErrors(object, view, poses[i])
		if err != nil {
			return nil, err
		}
		sum := 0.
		for _, e := range errs {
			sum += e * e
		}
		total += sum
		result.PerViewErrors = append(result.PerViewErrors, math.Sqrt(sum/float64(len(errs))))
	}
	result.RMS = math.Sqrt(total / float64(len(views)*len(object)))
	return result, nil
}

// initIntrinsics solves for the image of the absolute conic B = K^-T K^-1 from
// h1'Bh2 = 0 and h1'Bh1 = h2'Bh2 for every view plus B12 = 0 (no skew). Pixels are first
// centered and scaled so that the system is well conditioned.
func initIntrinsics(homographies []*transform.Homography, size image.Point) (*transform.PinholeCameraIntrinsics, error) {
	s := 2 / float64(size.X+size.Y)
	cx, cy := float64(size.X)/2, float64(size.Y)/2
	norm := mat.NewDense(3, 3, []float64{s, 0, -s * cx, 0, s, -s * cy, 0, 0, 1})

	v := mat.NewDense(2*len(homographies)+1, 6, nil)
	for i, h := range homographies {
		var hn mat.Dense
		hn.Mul(norm, h.Matrix())
		v.SetRow(2*i, conicRow(&hn, 0, 1))
		v11 := conicRow(&hn, 0, 0)
		v22 := conicRow(&hn, 1, 1)
		for j := range v11 {
			v11[j] -= v22[j]
		}
		v.SetRow(2*i+1, v11)
	}
	v.SetRow(2*len(homographies), []float64{0, 1, 0, 0, 0, 0})

	var svd mat.SVD
	if ok := svd.Factorize(v, mat.SVDFull); !ok {
		return nil, errors.New("could not factorize the calibration system")
	}
	var vt mat.Dense
	svd.VTo(&vt)
	b := mat.Col(nil, 5, &vt)
	b11, b12, b22, b13, b23, b33 := b[0], b[1], b[2], b[3], b[4], b[5]

	den := b11*b22 - b12*b12
	if den == 0 || b11 == 0 {
		return nil, errors.New("views are degenerate, cannot solve for the intrinsics")
	}
	v0 := (b12*b13 - b11*b23) / den
	lambda := b33 - (b13*b13+v0*(b12*b13-b11*b23))/b11
	if lambda/b11 <= 0 || lambda*b11/den <= 0 {
		return nil, errors.New("views are degenerate, cannot solve for the intrinsics")
	}
	alpha := math.Sqrt(lambda / b11)
	beta := math.Sqrt(lambda * b11 / den)
	u0 := -b13 * alpha * alpha / lambda

	return &transform.PinholeCameraIntrinsics{
		Width:  size.X,
		Height: size.Y,
		Fx:     alpha / s,
		Fy:     beta / s,
		Ppx:    u0/s + cx,
		Ppy:    v0/s + cy,
	}, nil
}

// initFocalLengths solves the same constraints as initIntrinsics with the principal point
// fixed at the image center, leaving only 1/fx^2 and 1/fy^2 as unknowns.
func initFocalLengths(homographies []*transform.Homography, size image.Point) (*transform.PinholeCameraIntrinsics, error) {
	cx, cy := float64(size.X)/2, float64(size.Y)/2
	center := mat.NewDense(3, 3, []float64{1, 0, -cx, 0, 1, -cy, 0, 0, 1})
	a := mat.NewDense(2*len(homographies), 2, nil)
	rhs := mat.NewVecDense(2*len(homographies), nil)
	for i, h := range homographies {
		var hc mat.Dense
		hc.Mul(center, h.Matrix())
		v12 := conicRow(&hc, 0, 1)
		v11 := conicRow(&hc, 0, 0)
		v22 := conicRow(&hc, 1, 1)
		// with B = diag(1/fx^2, 1/fy^2, 1) only B11, B22 and B33 remain
		a.SetRow(2*i, []float64{v12[0], v12[2]})
		rhs.SetVec(2*i, -v12[5])
		a.SetRow(2*i+1, []float64{v11[0] - v22[0], v11[2] - v22[2]})
		rhs.SetVec(2*i+1, -(v11[5] - v22[5]))
	}
	var sol mat.VecDense
	if err := sol.SolveVec(a, rhs); err != nil {
		return nil, errors.Wrap(err, "views are degenerate, cannot solve for the focal lengths")
	}
	if sol.AtVec(0) <= 0 || sol.AtVec(1) <= 0 {
		return nil, errors.New("views are degenerate, cannot solve for the focal lengths")
	}
	return &transform.PinholeCameraIntrinsics{
		Width:  size.X,
		Height: size.Y,
		Fx:     1 / math.Sqrt(sol.AtVec(0)),
		Fy:     1 / math.Sqrt(sol.AtVec(1)),
		Ppx:    cx,
		Ppy:    cy,
	}, nil
}

func insideImage(in *transform.PinholeCameraIntrinsics) bool {
	return in.Fx > 0 && in.Fy > 0 &&
		in.Ppx >= 0 && in.Ppx <= float64(in.Width) &&
		in.Ppy >= 0 && in.Ppy <= float64(in.Height)
}

// conicRow returns v_ij with h_i' B h_j = v_ij . (B11, B12, B22, B13, B23, B33).
func conicRow(h mat.Matrix, i, j int) []float64 {
	hi := [3]float64{h.At(0, i), h.At(1, i), h.At(2, i)}
	hj := [3]float64{h.At(0, j), h.At(1, j), h.At(2, j)}
	return []float64{
		hi[0] * hj[0],
		hi[0]*hj[1] + hi[1]*hj[0],
		hi[1] * hj[1],
		hi[2]*hj[0] + hi[0]*hj[2],
		hi[2]*hj[1] + hi[1]*hj[2],
		hi[2] * hj[2],
	}
}

func invert(m mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrap(err, "camera matrix is singular")
	}
	return &inv, nil
}

// bundle lays out every unknown of the calibration in one vector: fx, fy, ppx, ppy, then
// k1, k2, p1, p2 and k3 unless it is fixed, then a rotation vector and translation per view.
type bundle struct {
	views         [][]r2.Point
	object        []r3.Vector
	fixK3         bool
	width, height int
}

func (b *bundle) nIntrinsic() int {
	if b.fixK3 {
		return 8
	}
	return 9
}

func (b *bundle) pack(model *transform.PinholeCameraModel, poses []*transform.CamPose) []float64 {
	in := model.PinholeCameraIntrinsics
	d := model.Distortion
	x := []float64{in.Fx, in.Fy, in.Ppx, in.Ppy, d.RadialK1, d.RadialK2, d.TangentialP1, d.TangentialP2}
	if !b.fixK3 {
		x = append(x, d.RadialK3)
	}
	for _, p := range poses {
		x = append(x, p.Params()...)
	}
	return x
}

func (b *bundle) unpack(x []float64) (*transform.PinholeCameraModel, []*transform.CamPose) {
	model := &transform.PinholeCameraModel{
		PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{
			Width: b.width, Height: b.height,
			Fx: x[0], Fy: x[1], Ppx: x[2], Ppy: x[3],
		},
		Distortion: &transform.BrownConrady{
			RadialK1:     x[4],
			RadialK2:     x[5],
			TangentialP1: x[6],
			TangentialP2: x[7],
		},
	}
	if !b.fixK3 {
		model.Distortion.RadialK3 = x[8]
	}
	n := b.nIntrinsic()
	poses := make([]*transform.CamPose, len(b.views))
	for i := range poses {
		poses[i] = transform.NewCamPoseFromParams(x[n+6*i : n+6*i+6])
	}
	return model, poses
}

// residuals writes the x and y pixel error of every point of every view into y.
func (b *bundle) residuals(y, x []float64) {
	model, poses := b.unpack(x)
	k := 0
	for i, view := range b.views {
		for j, p := range b.object {
			px, ok := model.ProjectPoint(poses[i].Apply(p))
			if !ok {
				y[k], y[k+1] = behindResidual, behindResidual
			} else {
				y[k], y[k+1] = px.X-view[j].X, px.Y-view[j].Y
			}
			k += 2
		}
	}
}

// behindResidual is the error given to a point a candidate solution puts behind the camera.
const behindResidual = 1e4

// levenbergMarquardt minimizes the sum of squares of f over x, damping the Gauss-Newton step
// with lambda * diag(J'J). It returns the best x and the number of iterations run.
func levenbergMarquardt(f func(y, x []float64), x0 []float64, m int, opts CalibrationOptions) ([]float64, int) {
	n := len(x0)
	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	f(r, x)
	cost := sumSquares(r)

	jac := mat.NewDense(m, n, nil)
	settings := &fd.JacobianSettings{Formula: fd.Central, Concurrent: true}
	trial := make([]float64, n)
	rTrial := make([]float64, m)
	lambda := 1e-3

	iter := 0
	for ; iter < opts.MaxIterations; iter++ {
		fd.Jacobian(jac, f, x, settings)
		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var g mat.VecDense
		g.MulVec(jac.T(), mat.NewVecDense(m, r))

		improved := false
		for !improved && lambda < 1e12 {
			a := mat.NewDense(n, n, nil)
			a.Copy(&jtj)
			for i := 0; i < n; i++ {
				a.Set(i, i, jtj.At(i, i)*(1+lambda)+1e-12)
			}
			var step mat.VecDense
			if err := step.SolveVec(a, &g); err != nil {
				lambda *= 10
				continue
			}
			for i := range trial {
				trial[i] = x[i] - step.AtVec(i)
			}
			f(rTrial, trial)
			if c := sumSquares(rTrial); c < cost {
				improved = true
				rel := (cost - c) / cost
				copy(x, trial)
				copy(r, rTrial)
				cost = c
				lambda = math.Max(lambda/10, 1e-12)
				if rel < opts.Tolerance {
					return x, iter + 1
				}
			} else {
				lambda *= 10
			}
		}
		if !improved {
			break
		}
	}
	return x, iter
}

func sumSquares(v []float64) float64 {
	sum := 0.
	for _, e := range v {
		sum += e * e
	}
	return sum
}
