package chessboard

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage"
)

// SaddleConfiguration stores the parameters to process the Hessian determinant image into a relevant saddle points map
type SaddleConfiguration struct {
	BlurSigma         float64 `json:"blur-sigma"`         // gaussian blur applied before differentiating
	RelativeThreshold float64 `json:"relative-threshold"` // fraction of the strongest saddle score a candidate must reach
	NMSWindowSize     int     `json:"win-size"`           // half size of the non-maximum suppression window
}

// RingConfiguration stores the parameters of the X-junction test run around every saddle candidate.
type RingConfiguration struct {
	Radius        float64 `json:"radius"`
	Samples       int     `json:"samples"`
	MinContrast   float64 `json:"min-contrast"`   // min difference between darkest and brightest sample, in gray levels
	MinSymmetric  int     `json:"min-symmetric"`  // opposite sample pairs (out of Samples/2) that must agree
	Transitions   int     `json:"transitions"`    // dark/bright changes along the ring
	BorderPadding int     `json:"border-padding"` // candidates closer than Radius+BorderPadding to the border are dropped
}

// DefaultSaddleConf stores the default parameters for saddle extraction
var DefaultSaddleConf = SaddleConfiguration{
	BlurSigma:         1.0,
	RelativeThreshold: 0.05,
	NMSWindowSize:     4,
}

// DefaultRingConf stores the default parameters for the X-junction test
var DefaultRingConf = RingConfiguration{
	Radius:        5,
	Samples:       16,
	MinContrast:   30,
	MinSymmetric:  6,
	Transitions:   4,
	BorderPadding: 1,
}

// SaddlePoint is a candidate corner with its saddle score.
type SaddlePoint struct {
	Point image.Point
	Score float64
}

// computePixelWiseHessianDeterminant computes hessian components for each pixel and returns a *mat.Dense containing
// the value of the determinant of the Hessian for each pixel
// The sign and value of the determinant of the Hessian gives location of saddle points
func computePixelWiseHessianDeterminant(img *mat.Dense) (*mat.Dense, error) {
	nRows, nCols := img.Dims()
	sobelX := rimage.GetSobelX()
	sobelY := rimage.GetSobelY()
	gX, err := rimage.ConvolveGrayFloat64(img, sobelX, rimage.BorderReplicate)
	if err != nil {
		return nil, err
	}
	gY, err := rimage.ConvolveGrayFloat64(img, sobelY, rimage.BorderReplicate)
	if err != nil {
		return nil, err
	}
	gXX, err := rimage.ConvolveGrayFloat64(gX, sobelX, rimage.BorderReplicate)
	if err != nil {
		return nil, err
	}
	gYY, err := rimage.ConvolveGrayFloat64(gY, sobelY, rimage.BorderReplicate)
	if err != nil {
		return nil, err
	}
	gXY, err := rimage.ConvolveGrayFloat64(gX, sobelY, rimage.BorderReplicate)
	if err != nil {
		return nil, err
	}
	m1 := mat.NewDense(nRows, nCols, nil)
	m2 := mat.NewDense(nRows, nCols, nil)
	out := mat.NewDense(nRows, nCols, nil)
	m1.MulElem(gXX, gYY)
	m2.MulElem(gXY, gXY)
	out.Sub(m1, m2)
	return out, nil
}

// SaddleMap returns the negative determinant of the Hessian of a blurred gray image, with
// every negative value set to 0. X-junctions of a chessboard are its strongest positive peaks.
func SaddleMap(blurred *mat.Dense) (*mat.Dense, error) {
	hessian, err := computePixelWiseHessianDeterminant(blurred)
	if err != nil {
		return nil, err
	}
	hessian.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return 0
		}
		return -v
	}, hessian)
	return hessian, nil
}

// NonMaxSuppression keeps the points of the saddle map that reach threshold and are the
// largest value within a window of half size winSize. Of several equal maxima in a window
// only the first in raster order survives. Points are returned by decreasing score.
func NonMaxSuppression(img *mat.Dense, winSize int, threshold float64) []SaddlePoint {
	h, w := img.Dims()
	var out []SaddlePoint
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := img.At(y, x)
			if v <= 0 || v < threshold {
				continue
			}
			if isLocalMax(img, x, y, winSize) {
				out = append(out, SaddlePoint{Point: image.Point{x, y}, Score: v})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func isLocalMax(img *mat.Dense, x, y, winSize int) bool {
	h, w := img.Dims()
	v := img.At(y, x)
	for ny := max(0, y-winSize); ny <= min(h-1, y+winSize); ny++ {
		for nx := max(0, x-winSize); nx <= min(w-1, x+winSize); nx++ {
			n := img.At(ny, nx)
			if n > v {
				return false
			}
			if n == v && (ny < y || (ny == y && nx < x)) {
				return false
			}
		}
	}
	return true
}

// IsXJunction samples the image on a ring around pt and reports whether it sees the
// alternating dark/bright/dark/bright pattern of an inner chessboard corner. Opposite
// samples of such a corner lie in squares of the same color.
func IsXJunction(gray *mat.Dense, pt r2.Point, cfg *RingConfiguration) bool {
	n := cfg.Samples
	if n < 4 {
		return false
	}
	values := make([]float64, n)
	lo, hi := math.Inf(1), math.Inf(-1)
	for k := 0; k < n; k++ {
		// half step offset keeps samples off of axis aligned edges
		theta := 2 * math.Pi * (float64(k) + 0.5) / float64(n)
		v := rimage.BilinearAt(gray, pt.X+cfg.Radius*math.Cos(theta), pt.Y+cfg.Radius*math.Sin(theta))
		values[k] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < cfg.MinContrast {
		return false
	}
	mid := (lo + hi) / 2
	bright := make([]bool, n)
	for k, v := range values {
		bright[k] = v > mid
	}
	transitions := 0
	for k := 0; k < n; k++ {
		if bright[k] != bright[(k+1)%n] {
			transitions++
		}
	}
	if transitions != cfg.Transitions {
		return false
	}
	symmetric := 0
	for k := 0; k < n/2; k++ {
		if bright[k] == bright[k+n/2] {
			symmetric++
		}
	}
	return symmetric >= cfg.MinSymmetric
}

// GetSaddleMapPoints gets the saddle map of a gray image and its candidate corners, strongest
// first. Only candidates that pass the X-junction test are returned.
func GetSaddleMapPoints(gray *mat.Dense, saddleConf *SaddleConfiguration, ringConf *RingConfiguration) (*mat.Dense, []SaddlePoint, error) {
	blurred, err := rimage.GaussianBlur(gray, saddleConf.BlurSigma)
	if err != nil {
		return nil, nil, err
	}
	saddleMap, err := SaddleMap(blurred)
	if err != nil {
		return nil, nil, err
	}
	maxScore := mat.Max(saddleMap)
	if maxScore <= 0 {
		return saddleMap, nil, nil
	}
	candidates := NonMaxSuppression(saddleMap, saddleConf.NMSWindowSize, saddleConf.RelativeThreshold*maxScore)

	h, w := gray.Dims()
	margin := int(math.Ceil(ringConf.Radius)) + ringConf.BorderPadding
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Point.X < margin || c.Point.Y < margin || c.Point.X >= w-margin || c.Point.Y >= h-margin {
			continue
		}
		if IsXJunction(blurred, r2.Point{X: float64(c.Point.X), Y: float64(c.Point.Y)}, ringConf) {
			kept = append(kept, c)
		}
	}
	return saddleMap, kept, nil
}
