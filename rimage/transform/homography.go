package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 matrix used to transform a plane from the perspective of a 2D
// camera to the perspective of another 2D camera.
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates a Homography from a slice of floats in row major order.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	data := make([]float64, 9)
	copy(data, vals)
	return &Homography{mat.NewDense(3, 3, data)}, nil
}

// At returns the value of the homography at the given row and column.
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Matrix returns a copy of the homography as a gonum matrix.
func (h *Homography) Matrix() *mat.Dense {
	return mat.DenseCopyOf(h.matrix)
}

// Apply will transform the given point according to the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// Inverse inverts the homography. If homography went from color -> depth, Inverse makes it point
// from depth -> color.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		return nil, errors.Wrap(err, "homography is not invertible")
	}
	return &Homography{&inv}, nil
}

// FindHomography estimates the homography mapping src onto dst from at least 4
// correspondences with the normalized direct linear transform. The result is scaled so
// that its bottom right element is 1.
func FindHomography(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("have %d source points but %d destination points", len(src), len(dst))
	}
	if len(src) < 4 {
		return nil, errors.Errorf("need at least 4 point correspondences to find a homography, got %d", len(src))
	}
	srcNorm, tSrc, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstNorm, tDst, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range srcNorm {
		x, y := srcNorm[i].X, srcNorm[i].Y
		u, v := dstNorm[i].X, dstNorm[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}
	hn, err := nullVector(a, 8)
	if err != nil {
		return nil, errors.Wrap(err, "points are degenerate, cannot find a homography")
	}

	// denormalize: H = T_dst^-1 * Hn * T_src
	var tDstInv, tmp, hMat mat.Dense
	if err := tDstInv.Inverse(tDst); err != nil {
		return nil, err
	}
	tmp.Mul(&tDstInv, mat.NewDense(3, 3, hn))
	hMat.Mul(&tmp, tSrc)
	scale := hMat.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		return nil, errors.New("homography maps a source point to infinity, cannot normalize it")
	}
	hMat.Scale(1/scale, &hMat)
	return &Homography{&hMat}, nil
}
