package chessboard

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage"
)

// SubPixConfiguration stores the stopping criteria of the sub-pixel corner refinement.
type SubPixConfiguration struct {
	WinHalf       int     `json:"win-half"` // the search window is (2*WinHalf+1) pixels wide
	MaxIterations int     `json:"max-iterations"`
	Epsilon       float64 `json:"epsilon"` // stop once a corner moves less than this many pixels
}

const subPixSigma = 1.

// DefaultSubPixConf is an 11x11 window, 30 iterations and a 0.1 pixel tolerance.
var DefaultSubPixConf = SubPixConfiguration{
	WinHalf:       5,
	MaxIterations: 30,
	Epsilon:       0.1,
}

// CornerSubPix moves every corner to the point q of its window that minimizes
// sum_p (grad I(p) . (p - q))^2. At a corner every gradient in the window is orthogonal to
// the direction from the corner to where it was measured. The window is weighted with a
// gaussian and the gradients are taken on a copy of gray blurred by subPixSigma. Without the
// blur, bilinear sampling pulls corners toward the pixel lattice. A corner that leaves the
// image or drifts more than winHalf pixels away from its start is left where it started.
func CornerSubPix(gray *mat.Dense, corners []r2.Point, winHalf, maxIter int, eps float64) ([]r2.Point, error) {
	if winHalf < 1 {
		return nil, errors.Errorf("sub-pixel window half size must be at least 1, got %d", winHalf)
	}
	if maxIter < 1 && eps <= 0 {
		return nil, errors.New("sub-pixel refinement needs a max iteration count or an epsilon")
	}
	if maxIter < 1 {
		maxIter = 100
	}
	smooth, err := rimage.GaussianBlur(gray, subPixSigma)
	if err != nil {
		return nil, err
	}
	h, w := smooth.Dims()
	mask := subPixMask(winHalf)
	eps2 := eps * eps

	refined := make([]r2.Point, len(corners))
	for idx, start := range corners {
		cur := start
		inside := true
		for iter := 0; iter < maxIter; iter++ {
			var a, b, c, bb1, bb2 float64
			for i := -winHalf; i <= winHalf; i++ {
				py := cur.Y + float64(i)
				for j := -winHalf; j <= winHalf; j++ {
					px := cur.X + float64(j)
					gx := (rimage.BilinearAt(smooth, px+1, py) - rimage.BilinearAt(smooth, px-1, py)) / 2
					gy := (rimage.BilinearAt(smooth, px, py+1) - rimage.BilinearAt(smooth, px, py-1)) / 2
					m := mask[i+winHalf][j+winHalf]
					gxx := gx * gx * m
					gxy := gx * gy * m
					gyy := gy * gy * m
					a += gxx
					b += gxy
					c += gyy
					bb1 += gxx*float64(j) + gxy*float64(i)
					bb2 += gxy*float64(j) + gyy*float64(i)
				}
			}
			det := a*c - b*b
			if math.Abs(det) <= 1e-12*math.Max(1, a*c) {
				break
			}
			dx := (c*bb1 - b*bb2) / det
			dy := (a*bb2 - b*bb1) / det
			cur = r2.Point{X: cur.X + dx, Y: cur.Y + dy}
			if cur.X < 0 || cur.Y < 0 || cur.X >= float64(w) || cur.Y >= float64(h) {
				inside = false
				break
			}
			if dx*dx+dy*dy <= eps2 {
				break
			}
		}
		if !inside || math.Abs(cur.X-start.X) > float64(winHalf) || math.Abs(cur.Y-start.Y) > float64(winHalf) {
			cur = start
		}
		refined[idx] = cur
	}
	return refined, nil
}

func subPixMask(winHalf int) [][]float64 {
	coeff := 1. / float64(winHalf*winHalf)
	weights := make([]float64, 2*winHalf+1)
	for i := range weights {
		x := float64(i - winHalf)
		weights[i] = math.Exp(-x * x * coeff)
	}
	mask := make([][]float64, len(weights))
	for i := range mask {
		mask[i] = make([]float64, len(weights))
		for j := range mask[i] {
			mask[i][j] = weights[i] * weights[j]
		}
	}
	return mask
}
