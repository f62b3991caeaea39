package calibrate

import (
	"image"
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage"
)

func squareImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 20; y < 44; y++ {
		for x := 20; x < 44; x++ {
			img.SetGray(x, y, color.Gray{255})
		}
	}
	return img
}

func TestHarrisCorners(t *testing.T) {
	gray := rimage.ConvertToGrayFloat(squareImage())
	corners, err := HarrisCorners(gray, DefaultHarrisConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(corners), test.ShouldBeGreaterThan, 0)

	squareCorners := [][2]float64{{20, 20}, {43, 20}, {20, 43}, {43, 43}}
	hit := make([]bool, len(squareCorners))
	for _, c := range corners {
		near := false
		for i, sc := range squareCorners {
			if math.Abs(c.X-sc[0]) <= 3 && math.Abs(c.Y-sc[1]) <= 3 {
				near = true
				hit[i] = true
			}
		}
		test.That(t, near, test.ShouldBeTrue)
		test.That(t, c.R, test.ShouldBeGreaterThan, 190)
	}
	for _, h := range hit {
		test.That(t, h, test.ShouldBeTrue)
	}

	best, ok := MaxResponse(corners)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, best.R, test.ShouldAlmostEqual, 255)
	SortCornerListByR(corners)
	test.That(t, corners[0].R, test.ShouldEqual, best.R)

	_, ok = MaxResponse(nil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestHarrisFlatImage(t *testing.T) {
	gray := mat.NewDense(16, 16, nil)
	response, err := CornerHarris(gray, 2, 3, 0.04)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Max(response), test.ShouldEqual, 0)
	test.That(t, mat.Min(response), test.ShouldEqual, 0)

	corners, err := HarrisCorners(gray, DefaultHarrisConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners, test.ShouldBeEmpty)
}

func TestHarrisConfig(t *testing.T) {
	cfg := DefaultHarrisConfig()
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)

	cfg.ApertureSize = 4
	test.That(t, cfg.CheckValid(), test.ShouldNotBeNil)
	cfg = DefaultHarrisConfig()
	cfg.BlockSize = 0
	test.That(t, cfg.CheckValid(), test.ShouldNotBeNil)
	cfg = DefaultHarrisConfig()
	cfg.Threshold = 256
	test.That(t, cfg.CheckValid(), test.ShouldNotBeNil)

	_, err := CornerHarris(mat.NewDense(4, 4, nil), 2, 2, 0.04)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNormalizeMinMax(t *testing.T) {
	m := mat.NewDense(1, 4, []float64{-2, 0, 2, 6})
	norm := NormalizeMinMax(m, 0, 255)
	test.That(t, norm.RawRowView(0), test.ShouldResemble, []float64{0, 63.75, 127.5, 255})
	// the input is left alone
	test.That(t, m.At(0, 0), test.ShouldEqual, -2)

	flat := NormalizeMinMax(mat.NewDense(2, 2, []float64{3, 3, 3, 3}), 10, 20)
	test.That(t, mat.Max(flat), test.ShouldEqual, 10)
	test.That(t, mat.Min(flat), test.ShouldEqual, 10)
}

func TestResponseImageAndDrawCorners(t *testing.T) {
	img := ResponseImage(mat.NewDense(1, 3, []float64{254.6, -3, 300}))
	test.That(t, img.RGBAAt(0, 0), test.ShouldResemble, color.RGBA{255, 255, 255, 255})
	test.That(t, img.RGBAAt(1, 0), test.ShouldResemble, color.RGBA{3, 3, 3, 255})
	test.That(t, img.RGBAAt(2, 0), test.ShouldResemble, color.RGBA{255, 255, 255, 255})

	canvas := image.NewRGBA(image.Rect(0, 0, 40, 40))
	DrawCorners(canvas, []Corner{{X: 20, Y: 20}}, color.RGBA{0, 0, 255, 255}, 5, -1)
	test.That(t, canvas.RGBAAt(20, 20), test.ShouldResemble, color.RGBA{0, 0, 255, 255})
	test.That(t, canvas.RGBAAt(2, 2), test.ShouldResemble, color.RGBA{})
}
