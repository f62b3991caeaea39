// Package chessboard finds the inner corners of a chessboard calibration target in an image.
package chessboard

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/arcamlabs/arcam/rimage"
)

// ErrPatternNotFound is returned by callers that cannot continue without a detected board.
var ErrPatternNotFound = errors.New("chessboard pattern not found")

// minCornerSeparation is the distance in pixels under which two refined candidates are the same corner.
const minCornerSeparation = 1.0

// DetectionConfiguration stores the parameters necessary for chessboard detection in an image
type DetectionConfiguration struct {
	Saddle SaddleConfiguration `json:"saddle"`
	Ring   RingConfiguration   `json:"ring"`
	SubPix SubPixConfiguration `json:"subpix"`
	Grid   GridConfiguration   `json:"grid"`
}

// DefaultDetectionConf stores the default parameters for every detection stage
var DefaultDetectionConf = DetectionConfiguration{
	Saddle: DefaultSaddleConf,
	Ring:   DefaultRingConf,
	SubPix: DefaultSubPixConf,
	Grid:   DefaultGridConf,
}

// FindChessboard looks for the patternSize.X by patternSize.Y inner corners of a chessboard.
// When the whole pattern is visible it returns the corners in row-major order, row 0 at the
// top and column 0 at the left, and true. A frame without the pattern is not an error and
// returns nil and false.
func FindChessboard(img image.Image, patternSize image.Point, cfg DetectionConfiguration) ([]r2.Point, bool, error) {
	if patternSize.X < 2 || patternSize.Y < 2 {
		return nil, false, errors.Errorf("pattern size must be at least 2x2, got %dx%d", patternSize.X, patternSize.Y)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, false, errors.New("cannot look for a chessboard in an empty image")
	}
	gray := rimage.ConvertToGrayFloat(img)
	_, candidates, err := GetSaddleMapPoints(gray, &cfg.Saddle, &cfg.Ring)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) < patternSize.X*patternSize.Y {
		return nil, false, nil
	}
	pts := make([]r2.Point, len(candidates))
	for i, c := range candidates {
		pts[i] = r2.Point{X: float64(c.Point.X), Y: float64(c.Point.Y)}
	}
	refined, err := CornerSubPix(gray, pts, cfg.SubPix.WinHalf, cfg.SubPix.MaxIterations, cfg.SubPix.Epsilon)
	if err != nil {
		return nil, false, err
	}
	refined = dedupe(refined, minCornerSeparation)
	if len(refined) < patternSize.X*patternSize.Y {
		return nil, false, nil
	}

	for seed := 0; seed < min(cfg.Grid.MaxSeeds, len(refined)); seed++ {
		if l, ok := growFromSeed(refined, seed, patternSize, &cfg.Grid); ok {
			return l.ordered(), true, nil
		}
	}
	return nil, false, nil
}

// dedupe drops every point closer than dist to a point before it.
func dedupe(pts []r2.Point, dist float64) []r2.Point {
	out := make([]r2.Point, 0, len(pts))
	for _, p := range pts {
		dup := false
		for _, q := range out {
			if p.Sub(q).Norm() < dist {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// ObjectPoints returns the board coordinates of the inner corners in the same order as
// FindChessboard: row i, column j is at (j*squareSize, -i*squareSize, 0).
func ObjectPoints(patternSize image.Point, squareSize float64) []r3.Vector {
	pts := make([]r3.Vector, 0, patternSize.X*patternSize.Y)
	for i := 0; i < patternSize.Y; i++ {
		for j := 0; j < patternSize.X; j++ {
			pts = append(pts, r3.Vector{X: float64(j) * squareSize, Y: -float64(i) * squareSize})
		}
	}
	return pts
}
