package ar

import (
	"context"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/arcamlabs/arcam/logging"
	"github.com/arcamlabs/arcam/models"
	"github.com/arcamlabs/arcam/overlay"
	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/rimage/detection/chessboard"
	"github.com/arcamlabs/arcam/rimage/transform"
)

// OverlayConfig describes what the overlay demo draws. Board coordinates are in squares,
// with the first inner corner at the origin, x along the first row and y up the board.
type OverlayConfig struct {
	Model     *transform.PinholeCameraModel
	Pattern   image.Point
	Detection chessboard.DetectionConfiguration
	Mode      Mode
	Palette   overlay.Palette
	AxesScale float64

	// Object is drawn in ModeObject, moved by ObjectOffset and turned about the board's z
	// axis by Spin radians more every frame.
	Object       *models.Model
	ObjectOffset r3.Vector
	Spin         float64

	HUD bool // label frames with the mode
}

// OverlayProcessor draws synthetic geometry on the chessboard of every frame.
type OverlayProcessor struct {
	cfg        OverlayConfig
	logger     logging.Logger
	board      []r3.Vector
	frames     int
	detections int
}

// NewOverlayProcessor checks the configuration and returns a processor for it.
func NewOverlayProcessor(cfg OverlayConfig, logger logging.Logger) (*OverlayProcessor, error) {
	if cfg.Model == nil {
		return nil, errors.New("overlay needs a calibrated camera")
	}
	if err := cfg.Model.CheckValid(); err != nil {
		return nil, err
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeObject && cfg.Object == nil {
		return nil, errors.New("object mode needs an object model")
	}
	if cfg.AxesScale <= 0 {
		cfg.AxesScale = 1
	}
	return &OverlayProcessor{
		cfg:    cfg,
		logger: logger,
		board:  chessboard.ObjectPoints(cfg.Pattern, 1),
	}, nil
}

// Detections returns the number of frames the board was found in.
func (op *OverlayProcessor) Detections() int {
	return op.detections
}

// Process draws on a copy of frame. A frame without the board is returned as is.
func (op *OverlayProcessor) Process(ctx context.Context, frame image.Image) (image.Image, error) {
	defer func() { op.frames++ }()
	corners, found, err := chessboard.FindChessboard(frame, op.cfg.Pattern, op.cfg.Detection)
	if err != nil {
		return nil, err
	}
	if !found {
		op.logger.Debug("pattern not found")
		return frame, nil
	}
	op.detections++

	dst := rimage.CloneToRGBA(frame)
	if op.cfg.Mode == ModeCorners {
		chessboard.DrawChessboardCorners(dst, op.cfg.Pattern, corners, true)
	} else {
		pose, err := transform.SolvePnP(op.board, corners, op.cfg.Model)
		if err != nil {
			return nil, errors.Wrap(err, "cannot estimate the board pose")
		}
		op.logger.Debugw("pattern found", "rotation", pose.RotationVector(), "translation", pose.Translation)
		if err := overlay.Render(dst, op.wireframe(), op.cfg.Model, pose); err != nil {
			return nil, err
		}
	}
	if op.cfg.HUD {
		overlay.DrawHUD(dst, string(op.cfg.Mode))
	}
	return dst, nil
}

func (op *OverlayProcessor) wireframe() *overlay.Wireframe {
	switch op.cfg.Mode {
	case ModeCube:
		center := r3.Vector{X: float64(op.cfg.Pattern.X-1) / 2, Y: -float64(op.cfg.Pattern.Y-1) / 2}
		return overlay.CubeWireframe(center.Sub(r3.Vector{X: 1, Y: -1}), 2, op.cfg.Palette)
	case ModeHouse:
		return overlay.House(op.cfg.Palette)
	case ModeObject:
		angle := math.Mod(float64(op.frames)*op.cfg.Spin, 2*math.Pi)
		off := op.cfg.ObjectOffset
		placed := op.cfg.Object.Transform(mgl64.Translate3D(off.X, off.Y, off.Z).Mul4(mgl64.HomogRotate3DZ(angle)))
		return overlay.ObjectWireframe(placed, r3.Vector{}, op.cfg.Palette)
	default:
		return overlay.AxesWireframe(r3.Vector{}, op.cfg.AxesScale, op.cfg.Palette)
	}
}
