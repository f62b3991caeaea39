package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the ratio to the largest singular value under which a singular value
// is treated as zero.
const rankTolerance = 1e-10

// normalizePoints translates the points to their centroid and scales them so that their mean
// distance to the origin is sqrt(2). It returns the transformed points and the 3x3 transform.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := len(pts)
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	if d == 0 {
		return nil, nil, errors.New("all points are identical")
	}
	scale := math.Sqrt2 / d
	T := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	pointsTransformed := make([]r2.Point, nPoints)
	for i, pt := range pts {
		pointsTransformed[i] = pt.Sub(mu).Mul(scale)
	}
	return pointsTransformed, T, nil
}

// nullVector returns the right singular vector of a for its smallest singular value.
// rank is the rank a must have for that vector to be unique.
func nullVector(a *mat.Dense, rank int) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize matrix")
	}
	values := svd.Values(nil)
	if len(values) < rank || values[0] == 0 || values[rank-1] < rankTolerance*values[0] {
		return nil, errors.Errorf("matrix has rank below %d", rank)
	}
	var v mat.Dense
	svd.VTo(&v)
	_, cols := v.Dims()
	return mat.Col(nil, cols-1, &v), nil
}
