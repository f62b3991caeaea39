package main

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/arcamlabs/arcam/ar"
	"github.com/arcamlabs/arcam/config"
	"github.com/arcamlabs/arcam/models"
	"github.com/arcamlabs/arcam/overlay"
	"github.com/arcamlabs/arcam/rimage/calibrate"
	"github.com/arcamlabs/arcam/rimage/detection/chessboard"
	"github.com/arcamlabs/arcam/rimage/imagesource"
	"github.com/arcamlabs/arcam/rimage/transform"
)

func (a *arcamApp) overlayAction(c *cli.Context) error {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	model, err := a.cameraModel()
	if err != nil {
		return err
	}
	mode, err := ar.ParseMode(a.cfg.Overlay.Mode)
	if err != nil {
		return err
	}
	var object *models.Model
	if a.cfg.Overlay.Object != "" {
		if object, err = models.Load(a.cfg.Overlay.Object); err != nil {
			return err
		}
		a.logger.Infow("object loaded", "path", a.cfg.Overlay.Object, "vertices", len(object.Vertices), "edges", len(object.Edges()))
	}
	proc, err := ar.NewOverlayProcessor(ar.OverlayConfig{
		Model:        model,
		Pattern:      a.cfg.Pattern.Size(),
		Detection:    chessboard.DefaultDetectionConf,
		Mode:         mode,
		Palette:      a.cfg.Colors.Palette(),
		AxesScale:    a.cfg.Overlay.AxesScale,
		Object:       object,
		ObjectOffset: a.cfg.Overlay.Offset(),
		Spin:         a.cfg.Overlay.Spin,
		HUD:          a.cfg.Overlay.HUD,
	}, a.logger.Sublogger("overlay"))
	if err != nil {
		return err
	}
	return a.run(c, proc)
}

func (a *arcamApp) stickerAction(c *cli.Context) error {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	model, err := a.cameraModel()
	if err != nil {
		return err
	}
	frames, err := imagesource.LoadSequence(a.cfg.Sticker.Frames)
	if err != nil {
		return errors.Wrap(err, "cannot load sticker frames")
	}
	a.logger.Infow("sticker loaded", "path", a.cfg.Sticker.Frames, "frames", len(frames))
	sticker, err := a.cfg.Sticker.NewSticker()
	if err != nil {
		return err
	}
	proc, err := ar.NewStickerProcessor(ar.StickerConfig{
		Model:     model,
		Pattern:   a.cfg.Pattern.Size(),
		Detection: chessboard.DefaultDetectionConf,
		Sticker:   sticker,
		Frames:    frames,
	}, a.logger.Sublogger("sticker"))
	if err != nil {
		return err
	}
	return a.run(c, proc)
}

func (a *arcamApp) harrisAction(c *cli.Context) error {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	circle, err := config.ParseColor(a.cfg.Colors.Harris)
	if err != nil {
		return err
	}
	proc, err := ar.NewHarrisProcessor(a.cfg.Harris.HarrisConfig, circle, a.cfg.Harris.ShowResponse, a.logger.Sublogger("harris"))
	if err != nil {
		return err
	}
	return a.run(c, proc)
}

// cameraModel reads the configured calibration and logs it.
func (a *arcamApp) cameraModel() (*transform.PinholeCameraModel, error) {
	if err := a.cfg.RequireCalibration(); err != nil {
		return nil, err
	}
	model, err := transform.ReadCalibrationFile(a.cfg.Calibration)
	if err != nil {
		return nil, err
	}
	a.logger.Infow("calibration loaded",
		"path", a.cfg.Calibration,
		"fx", model.Fx, "fy", model.Fy, "ppx", model.Ppx, "ppy", model.Ppy,
		"distortion", model.Distortion.OpenCVCoefficients())
	return model, nil
}

// openSource opens the configured frames with the configured rotation and resizing.
func (a *arcamApp) openSource() (imagesource.Source, int, error) {
	files, err := imagesource.NewSource(a.cfg.Frames)
	if err != nil {
		return nil, 0, err
	}
	var src imagesource.Source = files
	if a.cfg.Rotate {
		src = &imagesource.RotateSource{Original: src}
	}
	if a.cfg.ResizeWidth > 0 || a.cfg.ResizeHeight > 0 {
		src = &imagesource.ResizeSource{Original: src, Width: a.cfg.ResizeWidth, Height: a.cfg.ResizeHeight}
	}
	return src, files.Len(), nil
}

// run feeds the configured frames through proc into the output directory.
func (a *arcamApp) run(c *cli.Context, proc ar.FrameProcessor) (err error) {
	if c.IsSet(flagOut) {
		a.cfg.Output = c.String(flagOut)
	}
	src, count, err := a.openSource()
	if err != nil {
		return err
	}
	sink, err := imagesource.NewDirectorySink(a.cfg.Output)
	if err != nil {
		return multierr.Combine(err, src.Close())
	}
	defer func() {
		err = multierr.Combine(err, src.Close(), sink.Close())
	}()
	a.logger.Infow("starting", "command", c.Command.Name, "frames", count, "output", sink.Dir())

	stats, err := ar.Run(c.Context, src, sink, proc, a.logger, a.clk)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%d frames written to %s, %d with detections (%.1f fps)",
		stats.Frames, sink.Dir(), stats.Detections, stats.FPS())
	return nil
}

func (a *arcamApp) calibrateAction(c *cli.Context) (err error) {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	src, count, err := a.openSource()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, src.Close())
	}()

	pattern := a.cfg.Pattern.Size()
	detections, size, err := a.detectViews(c, src, pattern)
	if err != nil {
		return err
	}
	if len(detections) < 2 {
		return errors.Wrapf(chessboard.ErrPatternNotFound,
			"found a %dx%d pattern in %d of %d frames, need at least 2", pattern.X, pattern.Y, len(detections), count)
	}

	object := chessboard.ObjectPoints(pattern, a.cfg.Pattern.SquareSize)
	result, err := calibrate.CalibrateCamera(detections, object, size, a.cfg.Calibrate.Options())
	if err != nil {
		return err
	}
	report, err := calibrate.NewReport(result)
	if err != nil {
		return err
	}
	a.logger.Infow("calibrated", "report", report.String(), "iterations", result.Iterations)
	printCameraModel(c.App.Writer, result.Model)
	printReport(c.App.Writer, report, result)

	out := c.String(flagOut)
	if err := transform.WriteCalibrationFile(out, result.Model); err != nil {
		return err
	}
	printf(c.App.Writer, "calibration written to %s", out)
	if a.cfg.Calibrate.Plot != "" {
		if err := calibrate.PlotResiduals(a.cfg.Calibrate.Plot, result, detections, object); err != nil {
			return errors.Wrap(err, "cannot plot residuals")
		}
		printf(c.App.Writer, "residuals plotted to %s", a.cfg.Calibrate.Plot)
	}
	return nil
}

func (a *arcamApp) infoAction(c *cli.Context) error {
	if err := a.applyFlags(c); err != nil {
		return err
	}
	if a.cfg.Calibration != "" {
		model, err := transform.ReadCalibrationFile(a.cfg.Calibration)
		if err != nil {
			return err
		}
		printCameraModel(c.App.Writer, model)
	}
	if a.cfg.Overlay.Object != "" {
		object, err := models.Load(a.cfg.Overlay.Object)
		if err != nil {
			return err
		}
		printWireframe(c.App.Writer, overlay.ObjectWireframe(object, a.cfg.Overlay.Offset(), a.cfg.Colors.Palette()))
		return nil
	}
	printWireframe(c.App.Writer, overlay.House(a.cfg.Colors.Palette()))
	return nil
}

// detectViews finds the pattern in every frame of src. All frames must be the same size.
func (a *arcamApp) detectViews(c *cli.Context, src imagesource.Source, pattern image.Point) ([][]r2.Point, image.Point, error) {
	var (
		views [][]r2.Point
		size  image.Point
	)
	for {
		frame, name, err := src.Next(c.Context)
		if errors.Is(err, imagesource.ErrEndOfStream) {
			return views, size, nil
		}
		if err != nil {
			return nil, image.Point{}, err
		}
		frameSize := frame.Bounds().Size()
		if size == (image.Point{}) {
			size = frameSize
		} else if frameSize != size {
			return nil, image.Point{}, errors.Errorf("frame %q is %v, expected %v like the first frame", name, frameSize, size)
		}
		corners, found, err := chessboard.FindChessboard(frame, pattern, chessboard.DefaultDetectionConf)
		if err != nil {
			return nil, image.Point{}, errors.Wrapf(err, "frame %q", name)
		}
		a.logger.Debugw("calibration frame", "name", name, "found", found)
		if found {
			views = append(views, corners)
		}
	}
}
