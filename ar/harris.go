package ar

import (
	"context"
	"image"
	"image/color"

	"github.com/arcamlabs/arcam/logging"
	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/rimage/calibrate"
)

// HarrisProcessor circles the Harris corners of every frame, or shows the normalized
// response itself.
type HarrisProcessor struct {
	cfg          calibrate.HarrisConfig
	color        color.Color
	showResponse bool
	logger       logging.Logger
	detections   int
}

// NewHarrisProcessor checks the detector parameters and returns a processor drawing corners
// in the given color.
func NewHarrisProcessor(cfg calibrate.HarrisConfig, c color.Color, showResponse bool, logger logging.Logger) (*HarrisProcessor, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &HarrisProcessor{cfg: cfg, color: c, showResponse: showResponse, logger: logger}, nil
}

// Detections returns the number of frames with at least one corner.
func (hp *HarrisProcessor) Detections() int {
	return hp.detections
}

// Process runs the detector on the gray version of frame.
func (hp *HarrisProcessor) Process(ctx context.Context, frame image.Image) (image.Image, error) {
	gray := rimage.ConvertToGrayFloat(frame)
	if hp.showResponse {
		norm, err := calibrate.HarrisResponse(gray, hp.cfg)
		if err != nil {
			return nil, err
		}
		return calibrate.ResponseImage(norm), nil
	}
	corners, err := calibrate.HarrisCorners(gray, hp.cfg)
	if err != nil {
		return nil, err
	}
	if len(corners) > 0 {
		hp.detections++
	}
	if best, ok := calibrate.MaxResponse(corners); ok {
		hp.logger.Debugw("harris corners", "count", len(corners), "strongest", best)
	}
	dst := rimage.CloneToRGBA(frame)
	calibrate.DrawCorners(dst, corners, hp.color, hp.cfg.Radius, hp.cfg.Thickness)
	return dst, nil
}
