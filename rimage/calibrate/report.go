package calibrate

import (
	"fmt"
	"image/color"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Report summarizes the per-view reprojection errors of a calibration, in pixels.
type Report struct {
	Views  int
	RMS    float64
	Mean   float64
	Median float64
	StdDev float64
	Max    float64
	Worst  int // index of the view with the largest error
}

// NewReport computes summary statistics of the per-view errors of a calibration.
func NewReport(result *CalibrationResult) (*Report, error) {
	if result == nil || len(result.PerViewErrors) == 0 {
		return nil, errors.New("calibration has no views to report on")
	}
	data := stats.Float64Data(result.PerViewErrors)
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	stdDev, err := data.StandardDeviation()
	if err != nil {
		return nil, err
	}
	maxErr, err := data.Max()
	if err != nil {
		return nil, err
	}
	worst := 0
	for i, e := range result.PerViewErrors {
		if e == maxErr {
			worst = i
			break
		}
	}
	return &Report{
		Views:  len(result.PerViewErrors),
		RMS:    result.RMS,
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Max:    maxErr,
		Worst:  worst,
	}, nil
}

func (r *Report) String() string {
	return fmt.Sprintf("views=%d rms=%.4fpx mean=%.4fpx median=%.4fpx stddev=%.4fpx max=%.4fpx (view %d)",
		r.Views, r.RMS, r.Mean, r.Median, r.StdDev, r.Max, r.Worst)
}

// Residuals returns the pixel offset from every observed point to its reprojection, per view.
func Residuals(result *CalibrationResult, views [][]r2.Point, object []r3.Vector) ([][]r2.Point, error) {
	if len(views) != len(result.Poses) {
		return nil, errors.Errorf("have %d views but %d poses", len(views), len(result.Poses))
	}
	out := make([][]r2.Point, len(views))
	for i, view := range views {
		if len(view) != len(object) {
			return nil, errors.Errorf("view %d has %d points, expected %d", i, len(view), len(object))
		}
		projected, _, err := result.Model.ProjectPoints(object, result.Poses[i])
		if err != nil {
			return nil, err
		}
		out[i] = make([]r2.Point, len(view))
		for j := range view {
			out[i][j] = projected[j].Sub(view[j])
		}
	}
	return out, nil
}

// PlotResiduals saves a scatter plot of the reprojection residuals, one color per view, to
// path. The image format follows the file extension.
func PlotResiduals(path string, result *CalibrationResult, views [][]r2.Point, object []r3.Vector) error {
	residuals, err := Residuals(result, views, object)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reprojection residuals (rms %.3f px)", result.RMS)
	p.X.Label.Text = "dx (px)"
	p.Y.Label.Text = "dy (px)"
	p.Add(plotter.NewGrid())

	for i, view := range residuals {
		pts := make(plotter.XYs, len(view))
		for j, r := range view {
			pts[j] = plotter.XY{X: r.X, Y: r.Y}
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrapf(err, "view %d", i)
		}
		scatter.GlyphStyle.Color = viewColor(i)
		scatter.GlyphStyle.Radius = vg.Points(2)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("view %d", i), scatter)
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

var viewPalette = []color.RGBA{
	{230, 25, 75, 255},
	{60, 180, 75, 255},
	{0, 130, 200, 255},
	{245, 130, 48, 255},
	{145, 30, 180, 255},
	{70, 240, 240, 255},
	{240, 50, 230, 255},
	{128, 128, 0, 255},
}

func viewColor(i int) color.Color {
	return viewPalette[i%len(viewPalette)]
}
