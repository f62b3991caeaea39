// Package testutils renders synthetic camera frames of a chessboard for tests.
package testutils

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/arcamlabs/arcam/rimage/transform"
	"github.com/arcamlabs/arcam/spatialmath"
	"github.com/arcamlabs/arcam/utils"
)

// Gray levels of a rendered board.
const (
	DarkLevel       = 20
	LightLevel      = 235
	BackgroundLevel = 100
)

// BoardScene is a chessboard seen by a camera. Pattern counts inner corners, like the
// pattern sizes given to the detector. The board has one more square than that in each
// direction, surrounded by a light margin one square wide.
type BoardScene struct {
	Model       *transform.PinholeCameraModel
	Pose        *transform.CamPose
	Pattern     image.Point
	SquareSize  float64
	Supersample int
}

// CameraModel returns a 320x240 camera without distortion.
func CameraModel() *transform.PinholeCameraModel {
	return &transform.PinholeCameraModel{
		PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{
			Width: 320, Height: 240,
			Fx: 400, Fy: 400,
			Ppx: 160.5, Ppy: 119.5,
		},
	}
}

// DistortedCameraModel returns the camera of CameraModel with mild barrel distortion.
func DistortedCameraModel() *transform.PinholeCameraModel {
	model := CameraModel()
	model.Distortion, _ = transform.NewBrownConradyFromOpenCV(-0.08, 0.02, 0.0005, -0.0005)
	return model
}

// BoardPose returns a pose that puts the middle of the pattern on the optical axis at the
// given distance, rows running down the image and columns to the right, then rotates the
// board about its middle by the rotation vector tilt (in camera coordinates).
func BoardPose(pattern image.Point, squareSize, distance float64, tilt r3.Vector) *transform.CamPose {
	flip, _ := spatialmath.NewRotationMatrix([]float64{1, 0, 0, 0, -1, 0, 0, 0, -1})
	rot := spatialmath.RotationVectorToMatrix(tilt).MatMul(flip)
	center := r3.Vector{
		X: float64(pattern.X-1) * squareSize / 2,
		Y: -float64(pattern.Y-1) * squareSize / 2,
	}
	t := r3.Vector{Z: distance}.Sub(rot.Mul(center))
	return &transform.CamPose{Rotation: rot, Translation: t}
}

// RenderChessboard ray casts every pixel of the camera onto the board plane. Each pixel
// averages Supersample x Supersample rays.
func RenderChessboard(scene BoardScene) *image.RGBA {
	intr := scene.Model.PinholeCameraIntrinsics
	size := image.Point{intr.Width, intr.Height}
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	n := scene.Supersample
	if n < 1 {
		n = 1
	}
	rt := scene.Pose.Rotation.Transpose()
	camCenter := rt.Mul(scene.Pose.Translation)

	utils.ParallelForEachPixel(size, func(x, y int) {
		sum := 0.
		for sy := 0; sy < n; sy++ {
			for sx := 0; sx < n; sx++ {
				px := r2.Point{
					X: float64(x) + (float64(sx)+0.5)/float64(n) - 0.5,
					Y: float64(y) + (float64(sy)+0.5)/float64(n) - 0.5,
				}
				sum += scene.shade(rt, camCenter, px)
			}
		}
		v := uint8(math.Round(sum / float64(n*n)))
		img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
	})
	return img
}

// shade returns the gray level the ray through pixel px sees.
func (scene BoardScene) shade(rt *spatialmath.RotationMatrix, camCenter r3.Vector, px r2.Point) float64 {
	norm := scene.Model.Undistort(px)
	dir := rt.Mul(r3.Vector{X: norm.X, Y: norm.Y, Z: 1})
	if dir.Z == 0 {
		return BackgroundLevel
	}
	lambda := camCenter.Z / dir.Z
	if lambda <= 0 {
		return BackgroundLevel
	}
	hit := dir.Mul(lambda).Sub(camCenter)
	u := hit.X / scene.SquareSize
	v := -hit.Y / scene.SquareSize
	cols, rows := float64(scene.Pattern.X), float64(scene.Pattern.Y)
	switch {
	case u >= -1 && u < cols && v >= -1 && v < rows:
		if (int(math.Floor(u))+int(math.Floor(v)))%2 == 0 {
			return DarkLevel
		}
		return LightLevel
	case u >= -2 && u < cols+1 && v >= -2 && v < rows+1:
		return LightLevel
	default:
		return BackgroundLevel
	}
}
