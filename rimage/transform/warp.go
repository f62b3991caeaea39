package transform

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/utils"
)

// Interpolation selects how WarpPerspective samples the source image.
type Interpolation int

const (
	// InterpolationBicubic uses a 4x4 cubic convolution with A = -0.75.
	InterpolationBicubic Interpolation = iota
	// InterpolationBilinear blends the 4 surrounding pixels.
	InterpolationBilinear
	// InterpolationNearest takes the closest pixel.
	InterpolationNearest
)

const cubicA = -0.75

var interpolationNames = map[Interpolation]string{
	InterpolationBicubic:  "bicubic",
	InterpolationBilinear: "bilinear",
	InterpolationNearest:  "nearest",
}

func (i Interpolation) String() string {
	if name, ok := interpolationNames[i]; ok {
		return name
	}
	return "unknown"
}

// InterpolationFromString parses the name of an interpolation mode.
func InterpolationFromString(name string) (Interpolation, error) {
	for interp, n := range interpolationNames {
		if strings.EqualFold(name, n) {
			return interp, nil
		}
	}
	return 0, errors.Errorf("unknown interpolation %q, expected bicubic, bilinear or nearest", name)
}

// WarpPerspective maps src through the homography h onto a new image of the given size.
// Each output pixel is sampled from the source at h^-1 applied to its position; pixels that
// land outside of the source are left transparent.
func WarpPerspective(src image.Image, h *Homography, size image.Point, interp Interpolation) (*image.RGBA, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("cannot warp to an empty image of size %v", size)
	}
	inv, err := h.Inverse()
	if err != nil {
		return nil, err
	}
	srcRGBA := rimage.CloneToRGBA(src)
	sampler := newSampler(srcRGBA, interp)
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	w, hgt := float64(srcRGBA.Rect.Dx()), float64(srcRGBA.Rect.Dy())

	utils.ParallelForEachPixel(size, func(x, y int) {
		fx, fy, fz := float64(x), float64(y), 1.
		sx := inv.At(0, 0)*fx + inv.At(0, 1)*fy + inv.At(0, 2)*fz
		sy := inv.At(1, 0)*fx + inv.At(1, 1)*fy + inv.At(1, 2)*fz
		sz := inv.At(2, 0)*fx + inv.At(2, 1)*fy + inv.At(2, 2)*fz
		if sz == 0 {
			return
		}
		sx /= sz
		sy /= sz
		if sx < -0.5 || sy < -0.5 || sx > w-0.5 || sy > hgt-0.5 {
			return
		}
		dst.SetRGBA(x, y, sampler(sx, sy))
	})
	return dst, nil
}

func newSampler(src *image.RGBA, interp Interpolation) func(x, y float64) color.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	at := func(x, y int) color.RGBA {
		return src.RGBAAt(utils.ClampInt(x, 0, w-1), utils.ClampInt(y, 0, h-1))
	}
	switch interp {
	case InterpolationNearest:
		return func(x, y float64) color.RGBA {
			return at(int(math.Round(x)), int(math.Round(y)))
		}
	case InterpolationBilinear:
		return func(x, y float64) color.RGBA {
			x0, y0 := int(math.Floor(x)), int(math.Floor(y))
			fx, fy := x-float64(x0), y-float64(y0)
			var acc [4]float64
			accumulate(&acc, at(x0, y0), (1-fx)*(1-fy))
			accumulate(&acc, at(x0+1, y0), fx*(1-fy))
			accumulate(&acc, at(x0, y0+1), (1-fx)*fy)
			accumulate(&acc, at(x0+1, y0+1), fx*fy)
			return toRGBA(acc)
		}
	default:
		return func(x, y float64) color.RGBA {
			x0, y0 := int(math.Floor(x)), int(math.Floor(y))
			wx := cubicWeights(x - float64(x0))
			wy := cubicWeights(y - float64(y0))
			var acc [4]float64
			for j := 0; j < 4; j++ {
				for i := 0; i < 4; i++ {
					accumulate(&acc, at(x0-1+i, y0-1+j), wx[i]*wy[j])
				}
			}
			return toRGBA(acc)
		}
	}
}

// cubicWeights returns the weights of the 4 taps at offsets -1, 0, 1, 2 for a fractional position t.
func cubicWeights(t float64) [4]float64 {
	return [4]float64{
		cubicKernel(t + 1),
		cubicKernel(t),
		cubicKernel(1 - t),
		cubicKernel(2 - t),
	}
}

func cubicKernel(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return ((cubicA+2)*t-(cubicA+3))*t*t + 1
	case t < 2:
		return ((cubicA*t-5*cubicA)*t+8*cubicA)*t - 4*cubicA
	default:
		return 0
	}
}

func accumulate(acc *[4]float64, c color.RGBA, weight float64) {
	acc[0] += float64(c.R) * weight
	acc[1] += float64(c.G) * weight
	acc[2] += float64(c.B) * weight
	acc[3] += float64(c.A) * weight
}

// toRGBA rounds and clamps the accumulated channels, keeping the color premultiplied.
func toRGBA(acc [4]float64) color.RGBA {
	a := utils.ClampF64(math.Round(acc[3]), 0, 255)
	ch := func(v float64) uint8 {
		return uint8(utils.ClampF64(math.Round(v), 0, a))
	}
	return color.RGBA{ch(acc[0]), ch(acc[1]), ch(acc[2]), uint8(a)}
}
