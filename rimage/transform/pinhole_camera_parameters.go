// Package transform holds the camera model and the planar geometry used to place synthetic
// content on top of camera frames: intrinsics, lens distortion, homographies, and pose estimation.
package transform

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
// Width and Height may be zero when the calibration did not record the image size.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, ppx and ppy out of a row-major 3x3 camera matrix.
func NewPinholeCameraIntrinsicsFromMatrix(k []float64, width, height int) (*PinholeCameraIntrinsics, error) {
	if len(k) != 9 {
		return nil, errors.Errorf("camera matrix must have 9 values, got %d", len(k))
	}
	if k[1] != 0 || k[3] != 0 || k[6] != 0 || k[7] != 0 || k[8] != 1 {
		return nil, errors.Errorf("camera matrix %v is not of the form [fx 0 ppx; 0 fy ppy; 0 0 1]", k)
	}
	params := &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     k[0],
		Fy:     k[4],
		Ppx:    k[2],
		Ppy:    k[5],
	}
	return params, params.CheckValid()
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width < 0 || params.Height < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// PixelToPoint maps a pixel to normalized image coordinates, the point on the z = 1 plane.
func (params *PinholeCameraIntrinsics) PixelToPoint(pixel r2.Point) r2.Point {
	return r2.Point{
		X: (pixel.X - params.Ppx) / params.Fx,
		Y: (pixel.Y - params.Ppy) / params.Fy,
	}
}

// PointToPixel maps normalized image coordinates to a pixel.
func (params *PinholeCameraIntrinsics) PointToPixel(pt r2.Point) r2.Point {
	return r2.Point{
		X: pt.X*params.Fx + params.Ppx,
		Y: pt.Y*params.Fy + params.Ppy,
	}
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}
