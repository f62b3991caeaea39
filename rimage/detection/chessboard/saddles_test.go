package chessboard

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/testutils"
)

var testPattern = image.Point{9, 6}

func renderBoard(t *testing.T, tilt r3.Vector, distorted bool) (*image.RGBA, []r2.Point) {
	t.Helper()
	model := testutils.CameraModel()
	if distorted {
		model = testutils.DistortedCameraModel()
	}
	pose := testutils.BoardPose(testPattern, 1, 20, tilt)
	img := testutils.RenderChessboard(testutils.BoardScene{
		Model:       model,
		Pose:        pose,
		Pattern:     testPattern,
		SquareSize:  1,
		Supersample: 3,
	})
	truth, visible, err := model.ProjectPoints(ObjectPoints(testPattern, 1), pose)
	test.That(t, err, test.ShouldBeNil)
	for _, v := range visible {
		test.That(t, v, test.ShouldBeTrue)
	}
	return img, truth
}

func TestNonMaxSuppression(t *testing.T) {
	m := mat.NewDense(20, 30, nil)
	m.Set(5, 5, 10)
	m.Set(5, 6, 8)
	m.Set(15, 20, 40)
	// a plateau keeps a single point
	m.Set(10, 25, 20)
	m.Set(10, 26, 20)

	pts := NonMaxSuppression(m, 3, 1)
	test.That(t, len(pts), test.ShouldEqual, 3)
	test.That(t, pts[0].Point, test.ShouldResemble, image.Point{20, 15})
	test.That(t, pts[0].Score, test.ShouldEqual, 40)
	test.That(t, pts[1].Point, test.ShouldResemble, image.Point{25, 10})
	test.That(t, pts[2].Point, test.ShouldResemble, image.Point{5, 5})

	pts = NonMaxSuppression(m, 3, 15)
	test.That(t, len(pts), test.ShouldEqual, 2)
}

func TestSaddleMap(t *testing.T) {
	img, truth := renderBoard(t, r3.Vector{}, false)
	gray := rimage.ConvertToGrayFloat(img)
	saddleMap, candidates, err := GetSaddleMapPoints(gray, &DefaultSaddleConf, &DefaultRingConf)
	test.That(t, err, test.ShouldBeNil)
	h, w := saddleMap.Dims()
	test.That(t, h, test.ShouldEqual, 240)
	test.That(t, w, test.ShouldEqual, 320)
	test.That(t, mat.Min(saddleMap), test.ShouldEqual, 0)

	// every inner corner and nothing else survives the ring test
	test.That(t, len(candidates), test.ShouldEqual, len(truth))
	for _, c := range candidates {
		best := 1e9
		for _, p := range truth {
			best = min(best, r2.Point{X: float64(c.Point.X), Y: float64(c.Point.Y)}.Sub(p).Norm())
		}
		test.That(t, best, test.ShouldBeLessThan, 1.5)
	}
}

func TestIsXJunction(t *testing.T) {
	img, truth := renderBoard(t, r3.Vector{}, false)
	blurred, err := rimage.GaussianBlur(rimage.ConvertToGrayFloat(img), 1)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, IsXJunction(blurred, truth[10], &DefaultRingConf), test.ShouldBeTrue)
	test.That(t, IsXJunction(blurred, truth[0], &DefaultRingConf), test.ShouldBeTrue)

	// middle of a square
	mid := truth[10].Add(truth[11]).Add(truth[19]).Add(truth[20]).Mul(0.25)
	test.That(t, IsXJunction(blurred, mid, &DefaultRingConf), test.ShouldBeFalse)

	// outer corner of the board, where it meets the margin
	outer := truth[0].Sub(truth[1].Sub(truth[0])).Sub(truth[9].Sub(truth[0]))
	test.That(t, IsXJunction(blurred, outer, &DefaultRingConf), test.ShouldBeFalse)

	// halfway along an edge between two corners
	edge := truth[10].Add(truth[11]).Mul(0.5)
	test.That(t, IsXJunction(blurred, edge, &DefaultRingConf), test.ShouldBeFalse)

	flat := mat.NewDense(20, 20, nil)
	test.That(t, IsXJunction(flat, r2.Point{X: 10, Y: 10}, &DefaultRingConf), test.ShouldBeFalse)
}
