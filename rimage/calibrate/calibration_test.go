package calibrate

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/arcamlabs/arcam/rimage/detection/chessboard"
	"github.com/arcamlabs/arcam/rimage/transform"
	"github.com/arcamlabs/arcam/testutils"
)

var (
	calibPattern = image.Point{9, 6}
	calibTilts   = []r3.Vector{
		{X: 0.3, Y: 0.1},
		{X: -0.25, Y: 0.3, Z: 0.1},
		{X: 0.1, Y: -0.35, Z: -0.2},
		{X: -0.3, Y: -0.2, Z: 0.3},
		{X: 0.2, Y: 0.3, Z: -0.1},
	}
)

// syntheticViews projects the target through model from several poses.
func syntheticViews(t *testing.T, model *transform.PinholeCameraModel) ([][]r2.Point, []r3.Vector) {
	t.Helper()
	object := chessboard.ObjectPoints(calibPattern, 1)
	views := make([][]r2.Point, len(calibTilts))
	for i, tilt := range calibTilts {
		pose := testutils.BoardPose(calibPattern, 1, 18+float64(i), tilt)
		pixels, visible, err := model.ProjectPoints(object, pose)
		test.That(t, err, test.ShouldBeNil)
		for _, v := range visible {
			test.That(t, v, test.ShouldBeTrue)
		}
		views[i] = pixels
	}
	return views, object
}

func TestCalibrateCamera(t *testing.T) {
	truth := testutils.DistortedCameraModel()
	views, object := syntheticViews(t, truth)

	opts := DefaultCalibrationOptions()
	opts.FixK3 = true
	result, err := CalibrateCamera(views, object, image.Point{320, 240}, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.RMS, test.ShouldBeLessThan, 0.01)
	test.That(t, len(result.PerViewErrors), test.ShouldEqual, len(views))
	test.That(t, len(result.Poses), test.ShouldEqual, len(views))

	got := result.Model
	test.That(t, got.Width, test.ShouldEqual, 320)
	test.That(t, got.Height, test.ShouldEqual, 240)
	test.That(t, got.Fx, test.ShouldAlmostEqual, truth.Fx, 1)
	test.That(t, got.Fy, test.ShouldAlmostEqual, truth.Fy, 1)
	test.That(t, got.Ppx, test.ShouldAlmostEqual, truth.Ppx, 1)
	test.That(t, got.Ppy, test.ShouldAlmostEqual, truth.Ppy, 1)
	test.That(t, got.Distortion.RadialK1, test.ShouldAlmostEqual, truth.Distortion.RadialK1, 0.01)
	test.That(t, got.Distortion.RadialK3, test.ShouldEqual, 0)

	for i, tilt := range calibTilts {
		want := testutils.BoardPose(calibPattern, 1, 18+float64(i), tilt)
		test.That(t, result.Poses[i].Translation.Sub(want.Translation).Norm(), test.ShouldBeLessThan, 0.1)
	}
}

func TestCalibrateCameraFreeK3(t *testing.T) {
	truth := testutils.DistortedCameraModel()
	views, object := syntheticViews(t, truth)
	result, err := CalibrateCamera(views, object, image.Point{320, 240}, DefaultCalibrationOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.RMS, test.ShouldBeLessThan, 0.05)
	test.That(t, result.Model.Fx, test.ShouldAlmostEqual, truth.Fx, 4)
	test.That(t, result.Iterations, test.ShouldBeGreaterThan, 0)
}

func TestCalibrateCameraErrors(t *testing.T) {
	views, object := syntheticViews(t, testutils.CameraModel())

	_, err := CalibrateCamera(views[:1], object, image.Point{320, 240}, DefaultCalibrationOptions())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 2 views")

	short := [][]r2.Point{views[0], views[1][:10]}
	_, err = CalibrateCamera(short, object, image.Point{320, 240}, DefaultCalibrationOptions())
	test.That(t, err, test.ShouldNotBeNil)

	lifted := append([]r3.Vector(nil), object...)
	lifted[3].Z = 1
	_, err = CalibrateCamera(views, lifted, image.Point{320, 240}, DefaultCalibrationOptions())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "planar")

	_, err = CalibrateCamera(views, object, image.Point{}, DefaultCalibrationOptions())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReport(t *testing.T) {
	report, err := NewReport(&CalibrationResult{RMS: 2.1, PerViewErrors: []float64{1, 3, 2}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Views, test.ShouldEqual, 3)
	test.That(t, report.Mean, test.ShouldAlmostEqual, 2)
	test.That(t, report.Median, test.ShouldAlmostEqual, 2)
	test.That(t, report.Max, test.ShouldEqual, 3)
	test.That(t, report.Worst, test.ShouldEqual, 1)
	test.That(t, report.String(), test.ShouldContainSubstring, "views=3")

	_, err = NewReport(&CalibrationResult{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlotResiduals(t *testing.T) {
	truth := testutils.DistortedCameraModel()
	views, object := syntheticViews(t, truth)
	opts := DefaultCalibrationOptions()
	opts.FixK3 = true
	result, err := CalibrateCamera(views, object, image.Point{320, 240}, opts)
	test.That(t, err, test.ShouldBeNil)

	residuals, err := Residuals(result, views, object)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(residuals), test.ShouldEqual, len(views))
	test.That(t, residuals[0][0].Norm(), test.ShouldBeLessThan, 0.05)

	path := filepath.Join(t.TempDir(), "residuals.png")
	test.That(t, PlotResiduals(path, result, views, object), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	_, err = Residuals(result, views[:2], object)
	test.That(t, err, test.ShouldNotBeNil)
}
