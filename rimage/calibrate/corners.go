// Package calibrate finds Harris corners and estimates camera intrinsics from views of a
// planar target.
package calibrate

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/utils"
)

// Corner refers to a point on an image with a corner value=R (Harris detection).
type Corner struct {
	X float64
	Y float64
	R float64 // Cornerness
}

// HarrisConfig holds the parameters of the Harris corner demo.
type HarrisConfig struct {
	BlockSize    int     `json:"block_size"`
	ApertureSize int     `json:"aperture_size"`
	K            float64 `json:"k"`
	Threshold    int     `json:"threshold"` // on the response normalized to [0, 255]
	Radius       float64 `json:"radius"`
	Thickness    float64 `json:"thickness"`
}

// DefaultHarrisConfig returns blockSize 2, aperture 3, k 0.04 and threshold 190, with
// corners drawn as circles of radius 5 and thickness 2.
func DefaultHarrisConfig() HarrisConfig {
	return HarrisConfig{
		BlockSize:    2,
		ApertureSize: 3,
		K:            0.04,
		Threshold:    190,
		Radius:       5,
		Thickness:    2,
	}
}

// CheckValid checks the detector parameters.
func (cfg *HarrisConfig) CheckValid() error {
	if cfg.BlockSize < 1 {
		return errors.Errorf("harris block size must be at least 1, got %d", cfg.BlockSize)
	}
	switch cfg.ApertureSize {
	case 1, 3, 5, 7:
	default:
		return errors.Errorf("harris aperture size must be 1, 3, 5 or 7, got %d", cfg.ApertureSize)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 255 {
		return errors.Errorf("harris threshold must be in [0, 255], got %d", cfg.Threshold)
	}
	return nil
}

// CornerHarris computes the Harris response R = det(M) - k*trace(M)^2 of every pixel, where
// M sums the products of the Sobel derivatives over a blockSize window. Gray values are in
// [0, 255] and derivatives are scaled as for an 8 bit image.
func CornerHarris(gray *mat.Dense, blockSize, apertureSize int, k float64) (*mat.Dense, error) {
	cfg := HarrisConfig{BlockSize: blockSize, ApertureSize: apertureSize}
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	gx, gy, err := rimage.SobelGradients(gray, apertureSize, rimage.BorderReflect101)
	if err != nil {
		return nil, err
	}
	scale := 1 / (float64(int(1)<<(apertureSize-1)) * float64(blockSize) * 255)
	gx.Scale(scale, gx)
	gy.Scale(scale, gy)

	h, w := gray.Dims()
	xx := mat.NewDense(h, w, nil)
	xy := mat.NewDense(h, w, nil)
	yy := mat.NewDense(h, w, nil)
	xx.MulElem(gx, gx)
	xy.MulElem(gx, gy)
	yy.MulElem(gy, gy)

	box := rimage.GetBoxKernel(blockSize)
	sxx, err := rimage.ConvolveGrayFloat64(xx, box, rimage.BorderReflect101)
	if err != nil {
		return nil, err
	}
	sxy, err := rimage.ConvolveGrayFloat64(xy, box, rimage.BorderReflect101)
	if err != nil {
		return nil, err
	}
	syy, err := rimage.ConvolveGrayFloat64(yy, box, rimage.BorderReflect101)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(h, w, nil)
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		a, b, c := sxx.At(y, x), sxy.At(y, x), syy.At(y, x)
		out.Set(y, x, a*c-b*b-k*(a+c)*(a+c))
	})
	return out, nil
}

// NormalizeMinMax linearly maps the values of m onto [lo, hi]. A constant matrix maps to lo.
func NormalizeMinMax(m *mat.Dense, lo, hi float64) *mat.Dense {
	raw := m.RawMatrix()
	out := mat.NewDense(raw.Rows, raw.Cols, nil)
	vmin, vmax := mat.Min(m), mat.Max(m)
	if vmax == vmin {
		out.Apply(func(_, _ int, _ float64) float64 { return lo }, out)
		return out
	}
	scale := (hi - lo) / (vmax - vmin)
	out.Apply(func(_, _ int, v float64) float64 {
		return (v-vmin)*scale + lo
	}, m)
	return out
}

// HarrisResponse returns the Harris response of a gray image normalized to [0, 255].
func HarrisResponse(gray *mat.Dense, cfg HarrisConfig) (*mat.Dense, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	response, err := CornerHarris(gray, cfg.BlockSize, cfg.ApertureSize, cfg.K)
	if err != nil {
		return nil, err
	}
	return NormalizeMinMax(response, 0, 255), nil
}

// HarrisCorners returns every pixel whose normalized response, truncated to an integer, is
// above the threshold. Corners are in raster order and R holds the normalized response.
func HarrisCorners(gray *mat.Dense, cfg HarrisConfig) ([]Corner, error) {
	norm, err := HarrisResponse(gray, cfg)
	if err != nil {
		return nil, err
	}
	return threshCornerList(norm, cfg.Threshold), nil
}

// threshCornerList keeps the pixels of a normalized response whose truncated value is above t.
func threshCornerList(norm *mat.Dense, t int) []Corner {
	h, w := norm.Dims()
	var out []Corner
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if v := norm.At(y, x); int(v) > t {
				out = append(out, Corner{X: float64(x), Y: float64(y), R: v})
			}
		}
	}
	return out
}

// SortCornerListByR sorts corners such that the highest R value (most corner-y) is first.
func SortCornerListByR(list []Corner) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].R > list[j].R
	})
}

// ResponseImage converts a normalized response to an RGBA image, rounding and saturating the
// absolute value of every element to 8 bits.
func ResponseImage(norm *mat.Dense) *image.RGBA {
	h, w := norm.Dims()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		mat.Row(row, y, norm)
		for x, v := range row {
			g := uint8(utils.ClampF64(math.Round(math.Abs(v)), 0, 255))
			out.SetRGBA(x, y, color.RGBA{g, g, g, 255})
		}
	}
	return out
}

// DrawCorners circles every corner on dst.
func DrawCorners(dst *image.RGBA, corners []Corner, c color.Color, radius, thickness float64) {
	dc := rimage.NewDrawContext(dst)
	for _, corner := range corners {
		rimage.DrawCircle(dc, r2.Point{X: corner.X, Y: corner.Y}, radius, c, thickness)
	}
}

// MaxResponse returns the strongest corner, or false when there is none.
func MaxResponse(corners []Corner) (Corner, bool) {
	if len(corners) == 0 {
		return Corner{}, false
	}
	rs := make([]float64, len(corners))
	for i, c := range corners {
		rs[i] = c.R
	}
	return corners[floats.MaxIdx(rs)], true
}
