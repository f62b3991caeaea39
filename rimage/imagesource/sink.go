package imagesource

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// A Sink receives processed frames.
type Sink interface {
	Write(ctx context.Context, name string, img image.Image) error
	Close() error
}

// DirectorySink saves frames as <dir>/<name>.png.
type DirectorySink struct {
	dir string
}

// NewDirectorySink creates dir if needed and returns a sink writing into it.
func NewDirectorySink(dir string) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create output directory %q", dir)
	}
	return &DirectorySink{dir: dir}, nil
}

// Dir returns the directory frames are written to.
func (ds *DirectorySink) Dir() string {
	return ds.dir
}

// Write saves a frame.
func (ds *DirectorySink) Write(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name != filepath.Base(name) {
		return errors.Errorf("invalid frame name %q", name)
	}
	return imaging.Save(img, filepath.Join(ds.dir, name+".png"))
}

// Close does nothing.
func (ds *DirectorySink) Close() error {
	return nil
}

// DiscardSink drops every frame.
type DiscardSink struct{}

// Write does nothing.
func (DiscardSink) Write(ctx context.Context, name string, img image.Image) error {
	return ctx.Err()
}

// Close does nothing.
func (DiscardSink) Close() error {
	return nil
}
