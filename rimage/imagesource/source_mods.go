package imagesource

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
)

// RotateSource turns every frame of the original source upside down, for cameras mounted
// the wrong way round.
type RotateSource struct {
	Original Source
}

// Next returns the next frame rotated by 180 degrees.
func (rs *RotateSource) Next(ctx context.Context) (image.Image, string, error) {
	orig, name, err := rs.Original.Next(ctx)
	if err != nil {
		return nil, "", err
	}
	return imaging.Rotate180(orig), name, nil
}

// Close closes the original source.
func (rs *RotateSource) Close() error {
	return rs.Original.Close()
}

// ResizeSource scales every frame of the original source. A zero width or height keeps the
// aspect ratio.
type ResizeSource struct {
	Original      Source
	Width, Height int
}

// Next returns the next frame resized.
func (rs *ResizeSource) Next(ctx context.Context) (image.Image, string, error) {
	orig, name, err := rs.Original.Next(ctx)
	if err != nil {
		return nil, "", err
	}
	return imaging.Resize(orig, rs.Width, rs.Height, imaging.Lanczos), name, nil
}

// Close closes the original source.
func (rs *ResizeSource) Close() error {
	return rs.Original.Close()
}
