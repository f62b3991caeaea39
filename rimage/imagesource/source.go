// Package imagesource reads camera frames from image files and writes processed frames back
// out.
package imagesource

import (
	"context"
	"image"
	// register the formats frames can come in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"
	_ "github.com/xfmoulet/qoi" // register qoi
	goutils "go.viam.com/utils"
	_ "golang.org/x/image/bmp"  // register bmp
	_ "golang.org/x/image/tiff" // register tiff
	_ "golang.org/x/image/webp" // register webp

	"github.com/arcamlabs/arcam/utils"
)

var (
	// ErrEndOfStream is returned by Next once every frame has been read.
	ErrEndOfStream = errors.New("end of stream")
	// ErrEmptyFrame is returned for a frame that has no pixels or cannot be decoded.
	ErrEmptyFrame = errors.New("frame is empty")
)

// ImageExtensions lists the file extensions a source picks up from a directory.
var ImageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".ppm", ".qoi",
}

// A Source produces frames in order along with a name for each.
type Source interface {
	Next(ctx context.Context) (image.Image, string, error)
	Close() error
}

// StaticSource returns the same image Count times.
type StaticSource struct {
	Img   image.Image
	Name  string
	Count int

	served int
}

// Next returns the image until Count frames have been served.
func (ss *StaticSource) Next(ctx context.Context) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if ss.served >= ss.Count {
		return nil, "", ErrEndOfStream
	}
	ss.served++
	return ss.Img, ss.Name, nil
}

// Close does nothing.
func (ss *StaticSource) Close() error {
	return nil
}

// -----

// FileSource decodes a list of image files one per frame. Frames are named after their
// files without the extension.
type FileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileSource returns a source over the given files in natural order, so that input-2
// comes before input-10.
func NewFileSource(paths ...string) (*FileSource, error) {
	if len(paths) == 0 {
		return nil, errors.New("no frame files given")
	}
	sorted := append([]string(nil), paths...)
	utils.SortNatural(sorted)
	return &FileSource{paths: sorted}, nil
}

// NewDirectorySource returns a source over the image files directly inside dir.
func NewDirectorySource(dir string) (*FileSource, error) {
	paths, err := imageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no image files in %q", dir)
	}
	return NewFileSource(paths...)
}

// NewGlobSource returns a source over the files matching pattern.
func NewGlobSource(pattern string) (*FileSource, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad frame pattern %q", pattern)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no files match %q", pattern)
	}
	return NewFileSource(paths...)
}

// NewSource picks a source for a frames argument: a directory, a glob pattern or a single
// file.
func NewSource(frames string) (*FileSource, error) {
	if strings.ContainsAny(frames, "*?[") {
		return NewGlobSource(frames)
	}
	info, err := os.Stat(frames)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return NewDirectorySource(frames)
	}
	return NewFileSource(frames)
}

// Len returns the number of frames of the source.
func (fs *FileSource) Len() int {
	return len(fs.paths)
}

// Paths returns the frame files in the order they are read.
func (fs *FileSource) Paths() []string {
	return append([]string(nil), fs.paths...)
}

// Next decodes the next file.
func (fs *FileSource) Next(ctx context.Context) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	fs.mu.Lock()
	if fs.next >= len(fs.paths) {
		fs.mu.Unlock()
		return nil, "", ErrEndOfStream
	}
	path := fs.paths[fs.next]
	fs.next++
	fs.mu.Unlock()

	img, err := DecodeImageFile(path)
	if err != nil {
		return nil, "", err
	}
	return img, FrameName(path), nil
}

// Close does nothing; files are only open while they are decoded.
func (fs *FileSource) Close() error {
	return nil
}

// FrameName is the base name of path without its extension.
func FrameName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DecodeImageFile reads an image in any registered format. Files that cannot be decoded or
// have no pixels fail with ErrEmptyFrame.
func DecodeImageFile(path string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(ErrEmptyFrame, "decoding %q: %v", path, err)
	}
	if img.Bounds().Empty() {
		return nil, errors.Wrapf(ErrEmptyFrame, "decoding %q", path)
	}
	return img, nil
}

// imageFiles lists the files directly inside dir with an image extension.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !utils.HasExtension(e.Name(), ImageExtensions...) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	utils.SortNatural(paths)
	return paths, nil
}
