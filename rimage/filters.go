package rimage

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// GaussianFunction2D takes in a sigma and returns an isotropic 2D gaussian.
func GaussianFunction2D(sigma float64) func(p1, p2 float64) float64 {
	if sigma <= 0. {
		return func(p1, p2 float64) float64 {
			return 1.
		}
	}
	return func(p1, p2 float64) float64 {
		return math.Exp(-0.5*(p1*p1+p2*p2)/math.Pow(sigma, 2)) / (sigma * sigma * 2. * math.Pi)
	}
}

// GaussianBlur smooths a gray float image with a replicated border.
func GaussianBlur(m *mat.Dense, sigma float64) (*mat.Dense, error) {
	if sigma <= 0 {
		return mat.DenseCopyOf(m), nil
	}
	return ConvolveGrayFloat64(m, GetGaussianKernel(sigma), BorderReplicate)
}

// SobelGradients returns the x and y derivatives of a gray float image.
func SobelGradients(m *mat.Dense, aperture int, border BorderPad) (*mat.Dense, *mat.Dense, error) {
	kx, ky, err := GetSobelKernels(aperture)
	if err != nil {
		return nil, nil, err
	}
	gx, err := ConvolveGrayFloat64(m, kx, border)
	if err != nil {
		return nil, nil, err
	}
	gy, err := ConvolveGrayFloat64(m, ky, border)
	if err != nil {
		return nil, nil, err
	}
	return gx, gy, nil
}
