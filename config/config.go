// Package config defines the JSON configuration shared by the arcam demos and how to read it.
package config

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/arcamlabs/arcam/ar"
	"github.com/arcamlabs/arcam/overlay"
	"github.com/arcamlabs/arcam/rimage/calibrate"
	"github.com/arcamlabs/arcam/rimage/transform"
)

// Config is the whole configuration of a run. Every field has a default, see Default.
type Config struct {
	Debug        bool   `json:"debug"`
	Frames       string `json:"frames"` // directory, glob or single image
	Output       string `json:"output"` // directory processed frames are written to
	Calibration  string `json:"calibration"`
	Rotate       bool   `json:"rotate"` // turn frames upside down before processing
	ResizeWidth  int    `json:"resize_width"`
	ResizeHeight int    `json:"resize_height"`

	Pattern   PatternConfig   `json:"pattern"`
	Overlay   OverlayConfig   `json:"overlay"`
	Colors    ColorConfig     `json:"colors"`
	Sticker   StickerConfig   `json:"sticker"`
	Harris    HarrisConfig    `json:"harris"`
	Calibrate CalibrateConfig `json:"calibrate"`
}

// PatternConfig is the calibration target: inner corners per row and per column.
type PatternConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	SquareSize float64 `json:"square_size"`
}

// Size returns the pattern as columns by rows.
func (pc PatternConfig) Size() image.Point {
	return image.Point{pc.Cols, pc.Rows}
}

// Validate checks the pattern.
func (pc *PatternConfig) Validate(path string) error {
	if pc.Cols < 2 || pc.Rows < 2 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("pattern must have at least 2x2 inner corners, got %dx%d", pc.Cols, pc.Rows))
	}
	if pc.SquareSize <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("square_size must be positive, got %v", pc.SquareSize))
	}
	return nil
}

// OverlayConfig configures the overlay demo.
type OverlayConfig struct {
	Mode         string    `json:"mode"`
	Object       string    `json:"object"` // .obj or .ply file drawn in object mode
	ObjectOffset []float64 `json:"object_offset"`
	Spin         float64   `json:"spin"` // radians per frame
	AxesScale    float64   `json:"axes_scale"`
	HUD          bool      `json:"hud"`
}

// Validate checks the overlay mode and its object.
func (oc *OverlayConfig) Validate(path string) error {
	mode, err := ar.ParseMode(oc.Mode)
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if mode == ar.ModeObject && oc.Object == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "object")
	}
	if len(oc.ObjectOffset) != 3 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("object_offset must have 3 values, got %d", len(oc.ObjectOffset)))
	}
	if oc.AxesScale <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("axes_scale must be positive, got %v", oc.AxesScale))
	}
	return nil
}

// Offset returns ObjectOffset as a vector.
func (oc OverlayConfig) Offset() r3.Vector {
	if len(oc.ObjectOffset) != 3 {
		return overlay.DefaultObjectOffset
	}
	return r3.Vector{X: oc.ObjectOffset[0], Y: oc.ObjectOffset[1], Z: oc.ObjectOffset[2]}
}

// ColorConfig holds hex colors, such as "#ff0000", for everything the demos draw.
type ColorConfig struct {
	X      string `json:"x"`
	Y      string `json:"y"`
	Z      string `json:"z"`
	Cube   string `json:"cube"`
	Walls  string `json:"walls"`
	Roof   string `json:"roof"`
	Door   string `json:"door"`
	Object string `json:"object"`
	Harris string `json:"harris"`
}

func (cc *ColorConfig) named() map[string]string {
	return map[string]string{
		"x":      cc.X,
		"y":      cc.Y,
		"z":      cc.Z,
		"cube":   cc.Cube,
		"walls":  cc.Walls,
		"roof":   cc.Roof,
		"door":   cc.Door,
		"object": cc.Object,
		"harris": cc.Harris,
	}
}

// Validate checks that every color parses.
func (cc *ColorConfig) Validate(path string) error {
	var errs error
	for name, hex := range cc.named() {
		if _, err := ParseColor(hex); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, name), err))
		}
	}
	return errs
}

// Palette returns the overlay colors. Colors that do not parse keep their default.
func (cc *ColorConfig) Palette() overlay.Palette {
	p := overlay.DefaultPalette()
	set := func(dst *color.Color, hex string) {
		if c, err := ParseColor(hex); err == nil {
			*dst = c
		}
	}
	set(&p.X, cc.X)
	set(&p.Y, cc.Y)
	set(&p.Z, cc.Z)
	set(&p.Cube, cc.Cube)
	set(&p.Walls, cc.Walls)
	set(&p.Roof, cc.Roof)
	set(&p.Door, cc.Door)
	set(&p.Object, cc.Object)
	return p
}

// ParseColor parses a "#rrggbb" or "#rgb" color into an opaque color.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "invalid color %q", hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 255}, nil
}

// StickerConfig configures the sticker demo.
type StickerConfig struct {
	Frames        string      `json:"frames"` // directory of images or an animated gif
	Region        [][]float64 `json:"region"` // 4 board points, clockwise from the sticker's top left
	Interpolation string      `json:"interpolation"`
}

// Validate checks the sticker region and interpolation.
func (sc *StickerConfig) Validate(path string) error {
	var errs error
	if len(sc.Region) != 4 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("region must have 4 points, got %d", len(sc.Region))))
	}
	for i, pt := range sc.Region {
		if len(pt) != 3 {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.region.%d", path, i),
				errors.Errorf("point must have 3 values, got %d", len(pt))))
		}
	}
	if _, err := transform.InterpolationFromString(sc.Interpolation); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
	}
	return errs
}

// NewSticker returns the sticker the section describes. It must be valid.
func (sc *StickerConfig) NewSticker() (*overlay.Sticker, error) {
	if err := sc.Validate("sticker"); err != nil {
		return nil, err
	}
	var region [4]r3.Vector
	for i, pt := range sc.Region {
		region[i] = r3.Vector{X: pt[0], Y: pt[1], Z: pt[2]}
	}
	interp, err := transform.InterpolationFromString(sc.Interpolation)
	if err != nil {
		return nil, err
	}
	return &overlay.Sticker{Region: region, Interpolation: interp}, nil
}

// HarrisConfig configures the Harris demo.
type HarrisConfig struct {
	calibrate.HarrisConfig
	ShowResponse bool `json:"show_response"`
}

// Validate checks the detector parameters.
func (hc *HarrisConfig) Validate(path string) error {
	if err := hc.CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// CalibrateConfig configures the calibration command.
type CalibrateConfig struct {
	FixK3         bool   `json:"fix_k3"`
	MaxIterations int    `json:"max_iterations"`
	Plot          string `json:"plot"` // optional residual plot, format from the extension
}

// Validate checks the calibration options.
func (cc *CalibrateConfig) Validate(path string) error {
	if cc.MaxIterations < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("max_iterations must be at least 1, got %d", cc.MaxIterations))
	}
	return nil
}

// Options returns the calibration options of the section.
func (cc *CalibrateConfig) Options() calibrate.CalibrationOptions {
	opts := calibrate.DefaultCalibrationOptions()
	opts.FixK3 = cc.FixK3
	opts.MaxIterations = cc.MaxIterations
	return opts
}

// Default returns the configuration used when no file is given: a 9x6 board, the axes
// overlay, the default sticker region and the Harris parameters of the corner demo.
func Default() *Config {
	region := make([][]float64, len(overlay.DefaultStickerRegion))
	for i, pt := range overlay.DefaultStickerRegion {
		region[i] = []float64{pt.X, pt.Y, pt.Z}
	}
	offset := overlay.DefaultObjectOffset
	return &Config{
		Frames: "frames",
		Output: "output",
		Pattern: PatternConfig{
			Cols:       9,
			Rows:       6,
			SquareSize: 1,
		},
		Overlay: OverlayConfig{
			Mode:         string(ar.ModeAxes),
			ObjectOffset: []float64{offset.X, offset.Y, offset.Z},
			AxesScale:    1,
			HUD:          true,
		},
		Colors: ColorConfig{
			X:      "#ff0000",
			Y:      "#00ff00",
			Z:      "#0000ff",
			Cube:   "#0000ff",
			Walls:  "#0000ff",
			Roof:   "#ff0000",
			Door:   "#000000",
			Object: "#0000ff",
			Harris: "#0000ff",
		},
		Sticker: StickerConfig{
			Frames:        "sticker",
			Region:        region,
			Interpolation: "bicubic",
		},
		Harris: HarrisConfig{HarrisConfig: calibrate.DefaultHarrisConfig()},
		Calibrate: CalibrateConfig{
			MaxIterations: calibrate.DefaultCalibrationOptions().MaxIterations,
		},
	}
}

// Validate checks every section and returns all problems found.
func (c *Config) Validate() error {
	if c.ResizeWidth < 0 || c.ResizeHeight < 0 {
		return utils.NewConfigValidationError("resize",
			errors.Errorf("size must not be negative, got %dx%d", c.ResizeWidth, c.ResizeHeight))
	}
	return multierr.Combine(
		c.Pattern.Validate("pattern"),
		c.Overlay.Validate("overlay"),
		c.Colors.Validate("colors"),
		c.Sticker.Validate("sticker"),
		c.Harris.Validate("harris"),
		c.Calibrate.Validate("calibrate"),
	)
}

// RequireCalibration fails when no calibration file is configured.
func (c *Config) RequireCalibration() error {
	if c.Calibration == "" {
		return utils.NewConfigValidationFieldRequiredError("config", "calibration")
	}
	return nil
}
