package imagesource

import (
	"image"
	"image/gif"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"golang.org/x/image/draw"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/utils"
)

// LoadSequence reads every frame of an animation: the images of a directory in natural
// order, the frames of a GIF composited to its full size, or a single image.
func LoadSequence(path string) ([]image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		paths, err := imageFiles(path)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, errors.Errorf("no image files in %q", path)
		}
		frames := make([]image.Image, 0, len(paths))
		for _, p := range paths {
			img, err := DecodeImageFile(p)
			if err != nil {
				return nil, err
			}
			frames = append(frames, img)
		}
		return frames, nil
	}
	if utils.HasExtension(path, ".gif") {
		return loadGIF(path)
	}
	img, err := DecodeImageFile(path)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

// loadGIF renders every frame of an animated GIF onto the logical screen, honoring each
// frame's disposal method.
func loadGIF(path string) ([]image.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	anim, err := gif.DecodeAll(f)
	if err != nil {
		return nil, errors.Wrapf(ErrEmptyFrame, "decoding %q: %v", path, err)
	}
	if len(anim.Image) == 0 {
		return nil, errors.Wrapf(ErrEmptyFrame, "decoding %q", path)
	}
	bounds := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if bounds.Empty() {
		bounds = anim.Image[0].Bounds()
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(anim.Image))
	for i, frame := range anim.Image {
		var previous *image.RGBA
		disposal := byte(0)
		if i < len(anim.Disposal) {
			disposal = anim.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = rimage.CloneToRGBA(canvas)
		}
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, rimage.CloneToRGBA(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return frames, nil
}
