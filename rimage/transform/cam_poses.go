package transform

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/spatialmath"
)

// CamPose is the rigid transform from target (world) coordinates into camera coordinates:
// p_cam = Rotation * p_world + Translation.
type CamPose struct {
	Rotation    *spatialmath.RotationMatrix
	Translation r3.Vector
}

// NewCamPose builds a pose from a rotation vector and a translation.
func NewCamPose(rvec, tvec r3.Vector) *CamPose {
	return &CamPose{Rotation: spatialmath.RotationVectorToMatrix(rvec), Translation: tvec}
}

// NewCamPoseFromMat creates a pointer to a Camera pose from a 3x4 [R|t] pose dense matrix.
func NewCamPoseFromMat(pose *mat.Dense) (*CamPose, error) {
	r, c := pose.Dims()
	if r != 3 || c != 4 {
		return nil, errors.Errorf("pose matrix must be 3x4, got %dx%d", r, c)
	}
	rot, err := spatialmath.NewRotationMatrixFromDense(pose.Slice(0, 3, 0, 3))
	if err != nil {
		return nil, err
	}
	return &CamPose{
		Rotation:    rot,
		Translation: r3.Vector{X: pose.At(0, 3), Y: pose.At(1, 3), Z: pose.At(2, 3)},
	}, nil
}

// PoseMat returns the 3x4 [R|t] matrix.
func (cp *CamPose) PoseMat() *mat.Dense {
	var pose mat.Dense
	pose.Augment(cp.Rotation.Dense(), mat.NewDense(3, 1, []float64{cp.Translation.X, cp.Translation.Y, cp.Translation.Z}))
	return &pose
}

// RotationVector returns the rotation as axis times angle, in radians.
func (cp *CamPose) RotationVector() r3.Vector {
	return spatialmath.MatrixToRotationVector(cp.Rotation)
}

// Apply moves a target point into camera coordinates.
func (cp *CamPose) Apply(pt r3.Vector) r3.Vector {
	return cp.Rotation.Mul(pt).Add(cp.Translation)
}

// CameraCenter returns the camera position in target coordinates, -R^T t.
func (cp *CamPose) CameraCenter() r3.Vector {
	return cp.Rotation.Transpose().Mul(cp.Translation).Mul(-1)
}

// Params returns the pose as [rx ry rz tx ty tz].
func (cp *CamPose) Params() []float64 {
	rv := cp.RotationVector()
	return []float64{rv.X, rv.Y, rv.Z, cp.Translation.X, cp.Translation.Y, cp.Translation.Z}
}

// NewCamPoseFromParams is the inverse of Params.
func NewCamPoseFromParams(p []float64) *CamPose {
	return NewCamPose(r3.Vector{X: p[0], Y: p[1], Z: p[2]}, r3.Vector{X: p[3], Y: p[4], Z: p[5]})
}

func (cp *CamPose) String() string {
	rv := cp.RotationVector()
	return fmt.Sprintf("rvec=[%.6f %.6f %.6f] tvec=[%.6f %.6f %.6f]",
		rv.X, rv.Y, rv.Z, cp.Translation.X, cp.Translation.Y, cp.Translation.Z)
}
