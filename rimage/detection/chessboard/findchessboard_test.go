package chessboard

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/testutils"
)

func requireClose(t *testing.T, got, want []r2.Point, tol float64) {
	t.Helper()
	test.That(t, len(got), test.ShouldEqual, len(want))
	for i := range got {
		test.That(t, got[i].Sub(want[i]).Norm(), test.ShouldBeLessThan, tol)
	}
}

func TestFindChessboardFrontal(t *testing.T) {
	img, truth := renderBoard(t, r3.Vector{}, false)
	corners, found, err := FindChessboard(img, testPattern, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	requireClose(t, corners, truth, 0.25)
	// row 0 is on top, column 0 on the left
	test.That(t, corners[0].X, test.ShouldBeLessThan, corners[8].X)
	test.That(t, corners[0].Y, test.ShouldBeLessThan, corners[45].Y)
}

func TestFindChessboardTiltedAndDistorted(t *testing.T) {
	img, truth := renderBoard(t, r3.Vector{X: 0.25, Y: -0.3, Z: 0.2}, true)
	corners, found, err := FindChessboard(img, testPattern, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	requireClose(t, corners, truth, 0.3)
}

func TestFindChessboardUpsideDown(t *testing.T) {
	img, truth := renderBoard(t, r3.Vector{Z: math.Pi}, false)
	corners, found, err := FindChessboard(img, testPattern, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	// the board's own first corner is now at the bottom right, the output still starts top left
	reversed := make([]r2.Point, len(truth))
	for i, p := range truth {
		reversed[len(truth)-1-i] = p
	}
	requireClose(t, corners, reversed, 0.25)
}

func TestFindChessboardPatternMismatch(t *testing.T) {
	img, _ := renderBoard(t, r3.Vector{}, false)

	// a smaller pattern than the board
	_, found, err := FindChessboard(img, image.Point{7, 6}, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeFalse)

	// a larger one
	corners, found, err := FindChessboard(img, image.Point{9, 7}, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeFalse)
	test.That(t, corners, test.ShouldBeNil)

	// the same pattern given rows first
	corners, found, err = FindChessboard(img, image.Point{6, 9}, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, len(corners), test.ShouldEqual, 54)
}

func TestFindChessboardNoBoard(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 48))
	corners, found, err := FindChessboard(blank, testPattern, DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeFalse)
	test.That(t, corners, test.ShouldBeNil)

	_, _, err = FindChessboard(blank, image.Point{1, 6}, DefaultDetectionConf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 2x2")

	_, _, err = FindChessboard(image.NewGray(image.Rectangle{}), testPattern, DefaultDetectionConf)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCornerSubPix(t *testing.T) {
	img, truth := renderBoard(t, r3.Vector{X: 0.2}, false)
	gray := rimage.ConvertToGrayFloat(img)
	start := make([]r2.Point, len(truth))
	for i, p := range truth {
		start[i] = p.Add(r2.Point{X: 1.5, Y: -1.2})
	}
	refined, err := CornerSubPix(gray, start, 5, 30, 0.01)
	test.That(t, err, test.ShouldBeNil)
	requireClose(t, refined, truth, 0.3)

	_, err = CornerSubPix(gray, start, 0, 30, 0.1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = CornerSubPix(gray, start, 5, 0, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCornerSubPixOffLattice(t *testing.T) {
	// corners a third of a pixel off the lattice are not pulled onto it
	model := testutils.CameraModel()
	model.Ppx += 0.3
	model.Ppy += 0.3
	pose := testutils.BoardPose(testPattern, 1, 20, r3.Vector{})
	img := testutils.RenderChessboard(testutils.BoardScene{
		Model:       model,
		Pose:        pose,
		Pattern:     testPattern,
		SquareSize:  1,
		Supersample: 3,
	})
	truth, _, err := model.ProjectPoints(ObjectPoints(testPattern, 1), pose)
	test.That(t, err, test.ShouldBeNil)
	start := make([]r2.Point, len(truth))
	for i, p := range truth {
		start[i] = r2.Point{X: math.Round(p.X), Y: math.Round(p.Y)}
	}
	refined, err := CornerSubPix(rimage.ConvertToGrayFloat(img), start, 5, 30, 0.01)
	test.That(t, err, test.ShouldBeNil)
	var bias r2.Point
	for i := range refined {
		bias = bias.Add(refined[i].Sub(truth[i]))
	}
	bias = bias.Mul(1 / float64(len(refined)))
	test.That(t, bias.Norm(), test.ShouldBeLessThan, 0.1)
}

func TestCornerSubPixLeavingImage(t *testing.T) {
	// two edges crossing above and to the left of the image pull the corner out of it
	gray := mat.NewDense(40, 40, nil)
	c := r2.Point{X: -2, Y: -2}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			d := r2.Point{X: float64(x), Y: float64(y)}.Sub(c)
			if d.Cross(r2.Point{X: 1, Y: 2})*d.Cross(r2.Point{X: 2, Y: 1}) > 0 {
				gray.Set(y, x, 255)
			}
		}
	}
	start := []r2.Point{{X: 2, Y: 2}}
	refined, err := CornerSubPix(gray, start, 5, 30, 0.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, refined[0].X, test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, refined[0].Y, test.ShouldBeGreaterThanOrEqualTo, 0)
}

func TestObjectPoints(t *testing.T) {
	pts := ObjectPoints(image.Point{3, 2}, 2.5)
	test.That(t, pts, test.ShouldResemble, []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 2.5, Y: 0, Z: 0}, {X: 5, Y: 0, Z: 0},
		{X: 0, Y: -2.5, Z: 0}, {X: 2.5, Y: -2.5, Z: 0}, {X: 5, Y: -2.5, Z: 0},
	})
	test.That(t, len(ObjectPoints(testPattern, 1)), test.ShouldEqual, 54)
}

func TestDrawChessboardCorners(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	pattern := image.Point{2, 2}
	corners := []r2.Point{{X: 20.5, Y: 20.5}, {X: 60.5, Y: 20.5}, {X: 20.5, Y: 45.5}, {X: 60.5, Y: 45.5}}
	DrawChessboardCorners(img, pattern, corners, true)
	// first row is red, second row orange
	first := img.RGBAAt(40, 20)
	test.That(t, first.R, test.ShouldBeGreaterThan, 200)
	test.That(t, first.G, test.ShouldEqual, 0)
	second := img.RGBAAt(40, 45)
	test.That(t, second.R, test.ShouldBeGreaterThan, 200)
	test.That(t, second.G, test.ShouldBeGreaterThan, 90)
	test.That(t, second.B, test.ShouldEqual, 0)
	test.That(t, img.RGBAAt(5, 5), test.ShouldResemble, color.RGBA{})

	img = image.NewRGBA(image.Rect(0, 0, 100, 60))
	DrawChessboardCorners(img, pattern, corners[:1], false)
	test.That(t, img.RGBAAt(24, 20).R, test.ShouldBeGreaterThan, 128)
	test.That(t, img.RGBAAt(20, 20), test.ShouldResemble, color.RGBA{})
	test.That(t, img.RGBAAt(40, 20), test.ShouldResemble, color.RGBA{})
}
