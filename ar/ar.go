// Package ar runs the per-frame augmented reality loops: read a frame, find the chessboard,
// estimate its pose, draw on the frame and write it out.
package ar

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/arcamlabs/arcam/logging"
	"github.com/arcamlabs/arcam/rimage/imagesource"
)

// A FrameProcessor turns a camera frame into the frame to show.
type FrameProcessor interface {
	Process(ctx context.Context, frame image.Image) (image.Image, error)
}

// A DetectionCounter reports how many processed frames had something detected in them.
type DetectionCounter interface {
	Detections() int
}

// Stats describes a finished run.
type Stats struct {
	Frames     int
	Detections int
	Elapsed    time.Duration
}

// FPS is the average number of frames processed per second.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Run feeds every frame of src through proc and writes the result to sink, one frame at a
// time, until the source runs out or ctx is done. Frames are written under the name the
// source gave them.
func Run(
	ctx context.Context,
	src imagesource.Source,
	sink imagesource.Sink,
	proc FrameProcessor,
	logger logging.Logger,
	clk clock.Clock,
) (Stats, error) {
	var stats Stats
	start := clk.Now()
	finish := func() {
		stats.Elapsed = clk.Since(start)
		if counter, ok := proc.(DetectionCounter); ok {
			stats.Detections = counter.Detections()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			finish()
			return stats, err
		}
		frame, name, err := src.Next(ctx)
		if errors.Is(err, imagesource.ErrEndOfStream) {
			break
		}
		if err != nil {
			finish()
			return stats, err
		}

		frameStart := clk.Now()
		out, err := proc.Process(ctx, frame)
		if err != nil {
			finish()
			return stats, errors.Wrapf(err, "processing frame %q", name)
		}
		if err := sink.Write(ctx, name, out); err != nil {
			finish()
			return stats, errors.Wrapf(err, "writing frame %q", name)
		}
		stats.Frames++
		logger.Debugw("frame done", "name", name, "took", clk.Since(frameStart))
	}

	finish()
	logger.Infow("processed frames",
		"frames", stats.Frames,
		"detections", stats.Detections,
		"elapsed", stats.Elapsed,
		"fps", stats.FPS())
	return stats, nil
}
