package main

import (
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"

	"github.com/arcamlabs/arcam/config"
	"github.com/arcamlabs/arcam/logging"
)

const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagFrames      = "frames"
	flagOut         = "out"
	flagCalibration = "calibration"
	flagMode        = "mode"
	flagObject      = "object"
	flagCols        = "cols"
	flagRows        = "rows"
	flagSticker     = "sticker"
	flagThreshold   = "threshold"
	flagResponse    = "response"
	flagPlot        = "plot"
	flagFixK3       = "fix-k3"
)

// arcamApp holds what every command shares. cfg is filled in before any command runs.
type arcamApp struct {
	logger logging.Logger
	clk    clock.Clock
	cfg    *config.Config
}

func framesFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagFrames,
		Usage: "read frames from `PATH`, a directory, a glob or a single image",
	}
}

func outFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagOut,
		Usage: "write processed frames to `DIR`",
	}
}

func calibrationFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagCalibration,
		Usage: "camera calibration `FILE` (.json or .csv)",
	}
}

func objectFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagObject,
		Usage: "3D model `FILE` (.obj or .ply)",
	}
}

func patternFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  flagCols,
			Usage: "inner corners per chessboard row",
		},
		&cli.IntFlag{
			Name:  flagRows,
			Usage: "inner corners per chessboard column",
		},
	}
}

func newApp(logger logging.Logger, clk clock.Clock, out, errOut io.Writer) *cli.App {
	a := &arcamApp{logger: logger, clk: clk}
	return &cli.App{
		Name:            "arcam",
		Usage:           "augmented reality on a chessboard",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: a.loadConfig,
		Commands: []*cli.Command{
			{
				Name:  "overlay",
				Usage: "draw axes, a cube, a house or a 3D model on the chessboard",
				Flags: append([]cli.Flag{
					framesFlag(), outFlag(), calibrationFlag(), objectFlag(),
					&cli.StringFlag{
						Name:  flagMode,
						Usage: "what to draw: axes, cube, house, object or corners",
					},
				}, patternFlags()...),
				Action: a.overlayAction,
			},
			{
				Name:  "sticker",
				Usage: "paste an image sequence onto the chessboard",
				Flags: append([]cli.Flag{
					framesFlag(), outFlag(), calibrationFlag(),
					&cli.StringFlag{
						Name:  flagSticker,
						Usage: "sticker frames, a directory of images or an animated gif at `PATH`",
					},
				}, patternFlags()...),
				Action: a.stickerAction,
			},
			{
				Name:  "harris",
				Usage: "circle Harris corners",
				Flags: []cli.Flag{
					framesFlag(), outFlag(),
					&cli.IntFlag{
						Name:  flagThreshold,
						Usage: "normalized response threshold in [0, 255]",
					},
					&cli.BoolFlag{
						Name:  flagResponse,
						Usage: "write the normalized response instead of circling corners",
					},
				},
				Action: a.harrisAction,
			},
			{
				Name:  "calibrate",
				Usage: "estimate the camera intrinsics and distortion from views of the chessboard",
				Flags: append([]cli.Flag{
					framesFlag(),
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "write the calibration to `FILE` (.json or .csv)",
						Value: "calibration.json",
					},
					&cli.StringFlag{
						Name:  flagPlot,
						Usage: "save a plot of the reprojection residuals to `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagFixK3,
						Usage: "keep the third radial distortion coefficient at zero",
					},
				}, patternFlags()...),
				Action: a.calibrateAction,
			},
			{
				Name:   "info",
				Usage:  "print a calibration and the points and connections of a model",
				Flags:  []cli.Flag{calibrationFlag(), objectFlag()},
				Action: a.infoAction,
			},
		},
	}
}

// loadConfig reads the config file, if any, and sets the log level.
func (a *arcamApp) loadConfig(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	config.InitLogging(a.logger, c.Bool(flagDebug), cfg)
	a.cfg = cfg
	return nil
}

// applyFlags copies the command's flags over the config and validates the result.
func (a *arcamApp) applyFlags(c *cli.Context) error {
	cfg := a.cfg
	if c.IsSet(flagFrames) {
		cfg.Frames = c.String(flagFrames)
	}
	if c.IsSet(flagCalibration) {
		cfg.Calibration = c.String(flagCalibration)
	}
	if c.IsSet(flagCols) {
		cfg.Pattern.Cols = c.Int(flagCols)
	}
	if c.IsSet(flagRows) {
		cfg.Pattern.Rows = c.Int(flagRows)
	}
	if c.IsSet(flagMode) {
		cfg.Overlay.Mode = c.String(flagMode)
	}
	if c.IsSet(flagObject) {
		cfg.Overlay.Object = c.String(flagObject)
	}
	if c.IsSet(flagSticker) {
		cfg.Sticker.Frames = c.String(flagSticker)
	}
	if c.IsSet(flagThreshold) {
		cfg.Harris.Threshold = c.Int(flagThreshold)
	}
	if c.IsSet(flagResponse) {
		cfg.Harris.ShowResponse = c.Bool(flagResponse)
	}
	if c.IsSet(flagPlot) {
		cfg.Calibrate.Plot = c.String(flagPlot)
	}
	if c.IsSet(flagFixK3) {
		cfg.Calibrate.FixK3 = c.Bool(flagFixK3)
	}
	return cfg.Validate()
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
