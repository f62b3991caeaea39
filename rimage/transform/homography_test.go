package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewHomography(t *testing.T) {
	_, err := NewHomography([]float64{})
	test.That(t, err, test.ShouldBeError, errors.New("input to NewHomography must have length of 9. Has length of 0"))

	vals := []float64{
		2.32700501e-01, -8.33535395e-03, -3.61894025e+01,
		-1.90671303e-03, 2.35303232e-01, 8.38582614e+00,
		-6.39101664e-05, -4.64582754e-05, 1.00000000e+00,
	}
	h, err := NewHomography(vals)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(0, 2), test.ShouldEqual, -3.61894025e+01)

	inv, err := h.Inverse()
	test.That(t, err, test.ShouldBeNil)
	pt := r2.Point{X: 320, Y: 240}
	back := inv.Apply(h.Apply(pt))
	test.That(t, back.X, test.ShouldAlmostEqual, pt.X, 1e-8)
	test.That(t, back.Y, test.ShouldAlmostEqual, pt.Y, 1e-8)

	_, err = NewHomography(make([]float64, 9))
	test.That(t, err, test.ShouldBeNil)
	singular, _ := NewHomography(make([]float64, 9))
	_, err = singular.Inverse()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindHomography(t *testing.T) {
	truth, err := NewHomography([]float64{
		1.2, 0.1, 30,
		-0.05, 0.9, 12,
		0.0004, -0.0002, 1,
	})
	test.That(t, err, test.ShouldBeNil)

	src := []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 80}, {X: 0, Y: 80}, {X: 50, Y: 40}, {X: 20, Y: 70}}
	dst := make([]r2.Point, len(src))
	for i, p := range src {
		dst[i] = truth.Apply(p)
	}

	// exactly 4 correspondences determine it
	h, err := FindHomography(src[:4], dst[:4])
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, h.At(i, j), test.ShouldAlmostEqual, truth.At(i, j), 1e-9)
		}
	}

	// more points give a least squares fit that is still exact on noise-free data
	h, err = FindHomography(src, dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(2, 2), test.ShouldEqual, 1)
	mapped := h.Apply(src[5])
	test.That(t, mapped.X, test.ShouldAlmostEqual, dst[5].X, 1e-8)
	test.That(t, mapped.Y, test.ShouldAlmostEqual, dst[5].Y, 1e-8)

	_, err = FindHomography(src[:3], dst[:3])
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 4")

	_, err = FindHomography(src, dst[:5])
	test.That(t, err, test.ShouldNotBeNil)

	collinear := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err = FindHomography(collinear, dst[:4])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWarpPerspective(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	src := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if x < 10 {
				src.SetRGBA(x, y, red)
			} else {
				src.SetRGBA(x, y, blue)
			}
		}
	}
	shift, err := NewHomography([]float64{1, 0, 5, 0, 1, 3, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)

	for _, interp := range []Interpolation{InterpolationBicubic, InterpolationBilinear, InterpolationNearest} {
		out, err := WarpPerspective(src, shift, image.Point{40, 20}, interp)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Bounds(), test.ShouldResemble, image.Rect(0, 0, 40, 20))
		test.That(t, out.RGBAAt(7, 5), test.ShouldResemble, red)
		test.That(t, out.RGBAAt(20, 8), test.ShouldResemble, blue)
		// outside of the source stays transparent
		test.That(t, out.RGBAAt(1, 1), test.ShouldResemble, color.RGBA{})
		test.That(t, out.RGBAAt(30, 15), test.ShouldResemble, color.RGBA{})
	}

	_, err = WarpPerspective(src, shift, image.Point{}, InterpolationBicubic)
	test.That(t, err, test.ShouldNotBeNil)

	interp, err := InterpolationFromString("Bilinear")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, interp, test.ShouldEqual, InterpolationBilinear)
	test.That(t, InterpolationBicubic.String(), test.ShouldEqual, "bicubic")
	_, err = InterpolationFromString("lanczos")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCubicWeights(t *testing.T) {
	w := cubicWeights(0)
	test.That(t, w, test.ShouldResemble, [4]float64{0, 1, 0, 0})
	w = cubicWeights(0.3)
	test.That(t, w[0]+w[1]+w[2]+w[3], test.ShouldAlmostEqual, 1)
	// the A = -0.75 kernel overshoots slightly on the far taps
	test.That(t, w[0], test.ShouldBeLessThan, 0)
}
