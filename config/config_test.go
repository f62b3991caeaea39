package config

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/arcamlabs/arcam/logging"
	"github.com/arcamlabs/arcam/overlay"
	"github.com/arcamlabs/arcam/rimage/transform"
	"github.com/arcamlabs/arcam/testutils"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Pattern.Size(), test.ShouldResemble, image.Point{9, 6})
	test.That(t, cfg.Overlay.Offset(), test.ShouldResemble, overlay.DefaultObjectOffset)
	test.That(t, cfg.Harris.Threshold, test.ShouldEqual, 190)
	test.That(t, cfg.Colors.Palette(), test.ShouldResemble, overlay.DefaultPalette())

	sticker, err := cfg.Sticker.NewSticker()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sticker, test.ShouldResemble, overlay.NewSticker(overlay.DefaultStickerRegion))

	test.That(t, cfg.RequireCalibration(), test.ShouldNotBeNil)
	cfg.Calibration = "camera.json"
	test.That(t, cfg.RequireCalibration(), test.ShouldBeNil)
}

func TestLoad(t *testing.T) {
	t.Setenv("ARCAM_FRAMES", "/data/run1")
	path := testutils.WriteTempFile(t, "arcam.json", `{
		"debug": true,
		"frames": "${ARCAM_FRAMES}/frames",
		"calibration": "camera.json",
		"pattern": {"cols": 7, "rows": 5},
		"overlay": {"mode": "House", "spin": 0.1},
		"colors": {"roof": "#00ff00"},
		"sticker": {"interpolation": "nearest"},
		"harris": {"threshold": 150, "show_response": true},
		"calibrate": {"fix_k3": true}
	}`)
	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Debug, test.ShouldBeTrue)
	test.That(t, cfg.Frames, test.ShouldEqual, "/data/run1/frames")
	test.That(t, cfg.Output, test.ShouldEqual, "output")
	test.That(t, cfg.Pattern, test.ShouldResemble, PatternConfig{Cols: 7, Rows: 5, SquareSize: 1})
	test.That(t, cfg.Overlay.Mode, test.ShouldEqual, "House")
	test.That(t, cfg.Overlay.Spin, test.ShouldEqual, 0.1)
	test.That(t, cfg.Overlay.HUD, test.ShouldBeTrue)

	palette := cfg.Colors.Palette()
	test.That(t, palette.Roof, test.ShouldResemble, color.RGBA{0, 255, 0, 255})
	test.That(t, palette.Walls, test.ShouldResemble, overlay.DefaultPalette().Walls)

	sticker, err := cfg.Sticker.NewSticker()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sticker.Interpolation, test.ShouldEqual, transform.InterpolationNearest)
	test.That(t, sticker.Region[2], test.ShouldResemble, r3.Vector{X: 9, Y: -6})

	test.That(t, cfg.Harris.Threshold, test.ShouldEqual, 150)
	test.That(t, cfg.Harris.BlockSize, test.ShouldEqual, 2)
	test.That(t, cfg.Harris.ShowResponse, test.ShouldBeTrue)

	opts := cfg.Calibrate.Options()
	test.That(t, opts.FixK3, test.ShouldBeTrue)
	test.That(t, opts.MaxIterations, test.ShouldEqual, 100)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("/does/not/exist.json")
	test.That(t, err, test.ShouldNotBeNil)

	for _, tc := range []struct {
		name string
		json string
		msg  string
	}{
		{"syntax", `{"frames": `, "cannot parse config"},
		{"unknown key", `{"framez": "x"}`, "framez"},
		{"pattern", `{"pattern": {"cols": 1}}`, "at least 2x2"},
		{"square size", `{"pattern": {"square_size": 0}}`, "square_size"},
		{"mode", `{"overlay": {"mode": "teapot"}}`, "teapot"},
		{"object mode", `{"overlay": {"mode": "object"}}`, "object"},
		{"offset", `{"overlay": {"object_offset": [1, 2]}}`, "object_offset"},
		{"color", `{"colors": {"x": "red"}}`, "invalid color"},
		{"region", `{"sticker": {"region": [[0, 0, 0]]}}`, "4 points"},
		{"region point", `{"sticker": {"region": [[0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]}}`, "3 values"},
		{"interpolation", `{"sticker": {"interpolation": "lanczos"}}`, "lanczos"},
		{"aperture", `{"harris": {"aperture_size": 4}}`, "aperture"},
		{"threshold", `{"harris": {"threshold": 300}}`, "threshold"},
		{"iterations", `{"calibrate": {"max_iterations": 0}}`, "max_iterations"},
		{"resize", `{"resize_width": -1}`, "negative"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tc.json))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestValidateCombinesErrors(t *testing.T) {
	cfg := Default()
	cfg.Pattern.Cols = 0
	cfg.Colors.Door = "nope"
	cfg.Harris.BlockSize = 0
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pattern")
	test.That(t, err.Error(), test.ShouldContainSubstring, "colors.door")
	test.That(t, err.Error(), test.ShouldContainSubstring, "block size")
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#f80")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.RGBA{255, 136, 0, 255})
	_, err = ParseColor("#zzzzzz")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAxisColors(t *testing.T) {
	p := Default().Colors.Palette()
	test.That(t, p.X, test.ShouldResemble, color.RGBA{255, 0, 0, 255})
	test.That(t, p.Y, test.ShouldResemble, color.RGBA{0, 255, 0, 255})
	test.That(t, p.Z, test.ShouldResemble, color.RGBA{0, 0, 255, 255})

	// swapping x and y gives the green x and red y of a BGR renderer
	cfg, err := FromJSON([]byte(`{"colors": {"x": "#00ff00", "y": "#ff0000"}}`))
	test.That(t, err, test.ShouldBeNil)
	p = cfg.Colors.Palette()
	test.That(t, p.X, test.ShouldResemble, color.RGBA{0, 255, 0, 255})
	test.That(t, p.Y, test.ShouldResemble, color.RGBA{255, 0, 0, 255})
}

func TestInitLogging(t *testing.T) {
	logger := logging.NewTestLogger(t)
	InitLogging(logger, false, Default())
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)
	InitLogging(logger, true, Default())
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)

	cfg := Default()
	cfg.Debug = true
	InitLogging(logger, false, cfg)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	InitLogging(logger, false, nil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)
}
