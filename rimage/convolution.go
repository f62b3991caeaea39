package rimage

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/arcamlabs/arcam/utils"
)

// BorderPad selects how pixels outside of the image are synthesized during a convolution.
type BorderPad int

const (
	// BorderReplicate repeats the edge pixel: aaa|abcd|ddd.
	BorderReplicate BorderPad = iota
	// BorderReflect101 mirrors around the edge pixel: cb|abcd|cb.
	BorderReflect101
	// BorderConstant pads with zeros.
	BorderConstant
)

// Kernel is a convolution filter. Content is indexed [row][col] and the anchor is the
// kernel element placed over the output pixel.
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
	Anchor  image.Point
}

// NewKernel creates a kernel from rows of equal length with a centered anchor.
func NewKernel(content [][]float64) (*Kernel, error) {
	if len(content) == 0 || len(content[0]) == 0 {
		return nil, errors.New("kernel must not be empty")
	}
	w := len(content[0])
	for i, row := range content {
		if len(row) != w {
			return nil, errors.Errorf("kernel row %d has length %d, expected %d", i, len(row), w)
		}
	}
	return &Kernel{Content: content, Width: w, Height: len(content), Anchor: image.Point{w / 2, len(content) / 2}}, nil
}

// Size returns the kernel dimensions as a point.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the kernel element at column x and row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Sum returns the sum of the kernel elements.
func (k *Kernel) Sum() float64 {
	sum := 0.
	for _, row := range k.Content {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

// Normalize divides every element by the kernel sum so that it sums to one.
func (k *Kernel) Normalize() {
	sum := k.Sum()
	if sum == 0 {
		return
	}
	for _, row := range k.Content {
		for i := range row {
			row[i] /= sum
		}
	}
}

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() *Kernel {
	k, _ := NewKernel([][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	})
	return k
}

// GetSobelY returns the Kernel corresponding to the Sobel kernel in the y direction.
func GetSobelY() *Kernel {
	k, _ := NewKernel([][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	})
	return k
}

// GetSobelKernels returns the x and y derivative kernels for an aperture of 1, 3, 5 or 7.
// An aperture of 1 yields the plain central difference.
func GetSobelKernels(aperture int) (*Kernel, *Kernel, error) {
	var smooth, deriv []float64
	switch aperture {
	case 1:
		smooth, deriv = []float64{0, 1, 0}, []float64{-1, 0, 1}
	case 3:
		return GetSobelX(), GetSobelY(), nil
	case 5, 7:
		smooth, deriv = []float64{1}, []float64{1}
		// binomial smoothing and differentiation built by repeated convolution with [1 1]
		for len(smooth) < aperture {
			smooth = convolve1D(smooth, []float64{1, 1})
		}
		for len(deriv) < aperture-1 {
			deriv = convolve1D(deriv, []float64{1, 1})
		}
		deriv = convolve1D(deriv, []float64{-1, 1})
	default:
		return nil, nil, errors.Errorf("aperture must be 1, 3, 5 or 7, got %d", aperture)
	}
	return outer(smooth, deriv), outer(deriv, smooth), nil
}

func convolve1D(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// outer builds the kernel whose rows follow col and whose columns follow row.
func outer(col, row []float64) *Kernel {
	content := make([][]float64, len(col))
	for y := range col {
		content[y] = make([]float64, len(row))
		for x := range row {
			content[y][x] = col[y] * row[x]
		}
	}
	k, _ := NewKernel(content)
	return k
}

// GetGaussianKernel returns a normalized isotropic gaussian covering three sigma on each side.
func GetGaussianKernel(sigma float64) *Kernel {
	radius := int(3*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	size := 2*radius + 1
	gaus2D := GaussianFunction2D(sigma)
	xRange := makeRangeArray(size)
	content := make([][]float64, size)
	for j, dy := range xRange {
		content[j] = make([]float64, size)
		for i, dx := range xRange {
			content[j][i] = gaus2D(float64(dx), float64(dy))
		}
	}
	k, _ := NewKernel(content)
	k.Normalize()
	return k
}

// GetBoxKernel returns a size x size kernel of ones. For even sizes the anchor sits right of
// the middle, matching makeRangeArray.
func GetBoxKernel(size int) *Kernel {
	content := make([][]float64, size)
	for i := range content {
		content[i] = make([]float64, size)
		for j := range content[i] {
			content[i][j] = 1
		}
	}
	k, _ := NewKernel(content)
	return k
}

// borderIndex maps an index outside of [0, n) back inside according to the border mode.
// It returns -1 when the pixel should read as zero.
func borderIndex(i, n int, border BorderPad) int {
	if i >= 0 && i < n {
		return i
	}
	switch border {
	case BorderReplicate:
		return utils.ClampInt(i, 0, n-1)
	case BorderReflect101:
		if n == 1 {
			return 0
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i
	default:
		return -1
	}
}

// ConvolveGrayFloat64 implements a gray float64 image convolution with the Kernel filter.
// There is no clamping in this case. Like most image libraries this is a correlation: the
// kernel is not flipped.
func ConvolveGrayFloat64(m *mat.Dense, filter *Kernel, border BorderPad) (*mat.Dense, error) {
	if filter == nil {
		return nil, errors.New("convolution needs a kernel")
	}
	h, w := m.Dims()
	result := mat.NewDense(h, w, nil)
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		sum := 0.
		for ky := 0; ky < filter.Height; ky++ {
			yy := borderIndex(y+ky-filter.Anchor.Y, h, border)
			if yy < 0 {
				continue
			}
			for kx := 0; kx < filter.Width; kx++ {
				xx := borderIndex(x+kx-filter.Anchor.X, w, border)
				if xx < 0 {
					continue
				}
				sum += m.At(yy, xx) * filter.Content[ky][kx]
			}
		}
		result.Set(y, x, sum)
	})
	return result, nil
}

// Helper function for convolving matrices together, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the image.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	start := -(length / 2)
	for i := range rangeArray {
		rangeArray[i] = start + i
	}
	return rangeArray
}
