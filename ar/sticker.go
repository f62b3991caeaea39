package ar

import (
	"context"
	"image"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/arcamlabs/arcam/logging"
	"github.com/arcamlabs/arcam/overlay"
	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/rimage/detection/chessboard"
	"github.com/arcamlabs/arcam/rimage/transform"
)

// StickerConfig describes the sticker demo.
type StickerConfig struct {
	Model     *transform.PinholeCameraModel
	Pattern   image.Point
	Detection chessboard.DetectionConfiguration
	Sticker   *overlay.Sticker
	Frames    []image.Image // pasted in turn, one per frame with the board
}

// StickerProcessor pastes an animation onto the chessboard, moving to the next animation
// frame every time the board is found.
type StickerProcessor struct {
	cfg        StickerConfig
	logger     logging.Logger
	board      []r3.Vector
	current    int
	detections int
}

// NewStickerProcessor checks the configuration and returns a processor for it. A nil
// Sticker covers the default region.
func NewStickerProcessor(cfg StickerConfig, logger logging.Logger) (*StickerProcessor, error) {
	if cfg.Model == nil {
		return nil, errors.New("sticker needs a calibrated camera")
	}
	if err := cfg.Model.CheckValid(); err != nil {
		return nil, err
	}
	if len(cfg.Frames) == 0 {
		return nil, errors.New("sticker needs at least one frame")
	}
	if cfg.Sticker == nil {
		cfg.Sticker = overlay.NewSticker(overlay.DefaultStickerRegion)
	}
	return &StickerProcessor{cfg: cfg, logger: logger, board: chessboard.ObjectPoints(cfg.Pattern, 1)}, nil
}

// Detections returns the number of frames the board was found in.
func (sp *StickerProcessor) Detections() int {
	return sp.detections
}

// Current is the index of the animation frame pasted next.
func (sp *StickerProcessor) Current() int {
	return sp.current
}

// Process pastes the current animation frame over the board. A frame without the board is
// returned as is.
func (sp *StickerProcessor) Process(ctx context.Context, frame image.Image) (image.Image, error) {
	corners, found, err := chessboard.FindChessboard(frame, sp.cfg.Pattern, sp.cfg.Detection)
	if err != nil {
		return nil, err
	}
	if !found {
		return frame, nil
	}
	sp.detections++

	pose, err := transform.SolvePnP(sp.board, corners, sp.cfg.Model)
	if err != nil {
		return nil, errors.Wrap(err, "cannot estimate the board pose")
	}
	sp.logger.Debugw("pattern found", "rotation", pose.RotationVector(), "translation", pose.Translation)

	dst := rimage.CloneToRGBA(frame)
	applied, err := sp.cfg.Sticker.Apply(dst, sp.cfg.Frames[sp.current], sp.cfg.Model, pose)
	if err != nil {
		return nil, err
	}
	if applied {
		sp.current = (sp.current + 1) % len(sp.cfg.Frames)
	}
	return dst, nil
}
