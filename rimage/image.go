// Package rimage holds the image primitives the demos are built on: gray float conversion,
// convolution, sampling, and drawing.
package rimage

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/utils"
)

// Luminance weights, as in ITU-R BT.601.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// ConvertToGrayFloat converts an image to a matrix of luminance values in [0, 255].
// The matrix has one row per image row.
func ConvertToGrayFloat(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := mat.NewDense(h, w, nil)
	switch src := img.(type) {
	case *image.Gray:
		utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
			out.Set(y, x, float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y))
		})
	case *image.RGBA:
		utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
			c := src.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			out.Set(y, x, lumaR*float64(c.R)+lumaG*float64(c.G)+lumaB*float64(c.B))
		})
	default:
		utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.Set(y, x, (lumaR*float64(r)+lumaG*float64(g)+lumaB*float64(b))/257)
		})
	}
	return out
}

// GrayFloatToImage converts a matrix of values in [0, 255] back to an 8-bit gray image,
// clamping anything outside of that range.
func GrayFloatToImage(m *mat.Dense) *image.Gray {
	h, w := m.Dims()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(x, y, color.Gray{uint8(utils.ClampF64(math.Round(m.At(y, x)), 0, 255))})
		}
	}
	return out
}

// CloneToRGBA copies any image into a new RGBA image whose bounds start at the origin.
func CloneToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// BilinearAt samples a gray float matrix at a sub-pixel location. Coordinates outside of the
// matrix are clamped to the nearest edge.
func BilinearAt(m *mat.Dense, x, y float64) float64 {
	h, w := m.Dims()
	x = utils.ClampF64(x, 0, float64(w-1))
	y = utils.ClampF64(y, 0, float64(h-1))
	x0, y0 := int(x), int(y)
	x1, y1 := utils.ClampInt(x0+1, 0, w-1), utils.ClampInt(y0+1, 0, h-1)
	fx, fy := x-float64(x0), y-float64(y0)
	top := m.At(y0, x0)*(1-fx) + m.At(y0, x1)*fx
	bottom := m.At(y1, x0)*(1-fx) + m.At(y1, x1)*fx
	return top*(1-fy) + bottom*fy
}

// MaxAbs returns the largest absolute value in a matrix.
func MaxAbs(m *mat.Dense) float64 {
	best := 0.
	h, w := m.Dims()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if v := math.Abs(m.At(y, x)); v > best {
				best = v
			}
		}
	}
	return best
}
