package transform

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// minDepth is the smallest camera-space z that is still considered in front of the camera.
const minDepth = 1e-9

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               *BrownConrady `json:"distortion_parameters,omitempty"`
}

// NewPinholeCameraModel pairs intrinsics with an optional distortion.
func NewPinholeCameraModel(intrinsics *PinholeCameraIntrinsics, distortion *BrownConrady) (*PinholeCameraModel, error) {
	model := &PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: distortion}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	return model, nil
}

// CheckValid checks the intrinsics and the distortion.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if params.Distortion != nil {
		return params.Distortion.CheckValid()
	}
	return nil
}

// Distort maps an undistorted normalized point to its pixel.
func (params *PinholeCameraModel) Distort(pt r2.Point) r2.Point {
	x, y := params.Distortion.Transform(pt.X, pt.Y)
	return params.PointToPixel(r2.Point{X: x, Y: y})
}

// Undistort maps a pixel to its undistorted normalized coordinates on the z = 1 plane.
func (params *PinholeCameraModel) Undistort(pixel r2.Point) r2.Point {
	n := params.PixelToPoint(pixel)
	if params.Distortion.IsZero() {
		return n
	}
	x, y := params.Distortion.Inverse().Transform(n.X, n.Y)
	return r2.Point{X: x, Y: y}
}

// ProjectPoint projects a camera-space point to a pixel. ok is false when the point is not
// in front of the camera; the pixel is then meaningless.
func (params *PinholeCameraModel) ProjectPoint(pt r3.Vector) (r2.Point, bool) {
	if pt.Z < minDepth {
		return r2.Point{}, false
	}
	return params.Distort(r2.Point{X: pt.X / pt.Z, Y: pt.Y / pt.Z}), true
}

// ProjectPoints projects target points seen from the given pose to pixels. The returned
// flags report which points lie in front of the camera.
func (params *PinholeCameraModel) ProjectPoints(points []r3.Vector, pose *CamPose) ([]r2.Point, []bool, error) {
	if err := params.CheckValid(); err != nil {
		return nil, nil, err
	}
	if pose == nil || pose.Rotation == nil {
		return nil, nil, errors.New("cannot project points without a pose")
	}
	pixels := make([]r2.Point, len(points))
	visible := make([]bool, len(points))
	for i, pt := range points {
		pixels[i], visible[i] = params.ProjectPoint(pose.Apply(pt))
	}
	return pixels, visible, nil
}

// ReprojectionErrors returns the pixel distance between each observed pixel and the
// projection of its target point.
func (params *PinholeCameraModel) ReprojectionErrors(object []r3.Vector, observed []r2.Point, pose *CamPose) ([]float64, error) {
	if len(object) != len(observed) {
		return nil, errors.Errorf("have %d object points but %d image points", len(object), len(observed))
	}
	projected, visible, err := params.ProjectPoints(object, pose)
	if err != nil {
		return nil, err
	}
	errs := make([]float64, len(object))
	for i := range projected {
		if !visible[i] {
			return nil, errors.Errorf("object point %d is behind the camera", i)
		}
		errs[i] = projected[i].Sub(observed[i]).Norm()
	}
	return errs, nil
}
