package imagesource

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.viam.com/test"
	"golang.org/x/image/bmp"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	test.That(t, os.WriteFile(path, buf.Bytes(), 0o600), test.ShouldBeNil)
}

func drain(t *testing.T, src Source) []string {
	t.Helper()
	var names []string
	for {
		_, name, err := src.Next(context.Background())
		if errors.Is(err, ErrEndOfStream) {
			return names
		}
		test.That(t, err, test.ShouldBeNil)
		names = append(names, name)
	}
}

func TestDirectorySourceNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"input-10", "input-2", "input-1", "input-0"} {
		writePNG(t, filepath.Join(dir, name+".png"), solid(4, 3, color.RGBA{1, 2, 3, 255}))
	}
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600), test.ShouldBeNil)
	test.That(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o750), test.ShouldBeNil)

	src, err := NewDirectorySource(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.Len(), test.ShouldEqual, 4)
	test.That(t, drain(t, src), test.ShouldResemble, []string{"input-0", "input-1", "input-2", "input-10"})

	// stays at the end
	_, _, err = src.Next(context.Background())
	test.That(t, errors.Is(err, ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, src.Close(), test.ShouldBeNil)

	_, err = NewDirectorySource(t.TempDir())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDirectorySource(filepath.Join(dir, "missing"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewSource(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), solid(2, 2, color.RGBA{A: 255}))
	writePNG(t, filepath.Join(dir, "b.png"), solid(2, 2, color.RGBA{A: 255}))

	src, err := NewSource(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.Len(), test.ShouldEqual, 2)

	src, err = NewSource(filepath.Join(dir, "b.*"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.Paths(), test.ShouldResemble, []string{filepath.Join(dir, "b.png")})

	src, err = NewSource(filepath.Join(dir, "a.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, drain(t, src), test.ShouldResemble, []string{"a"})

	_, err = NewSource(filepath.Join(dir, "*.jpg"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewSource(filepath.Join(dir, "nope.png"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFileSource()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeFormats(t *testing.T) {
	dir := t.TempDir()
	want := solid(5, 4, color.RGBA{10, 200, 30, 255})

	var buf bytes.Buffer
	test.That(t, bmp.Encode(&buf, want), test.ShouldBeNil)
	bmpPath := filepath.Join(dir, "frame.bmp")
	test.That(t, os.WriteFile(bmpPath, buf.Bytes(), 0o600), test.ShouldBeNil)

	buf.Reset()
	test.That(t, qoi.Encode(&buf, want), test.ShouldBeNil)
	qoiPath := filepath.Join(dir, "frame.qoi")
	test.That(t, os.WriteFile(qoiPath, buf.Bytes(), 0o600), test.ShouldBeNil)

	for _, path := range []string{bmpPath, qoiPath} {
		img, err := DecodeImageFile(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Size(), test.ShouldResemble, image.Point{5, 4})
		r, g, b, _ := img.At(2, 2).RGBA()
		test.That(t, []uint32{r >> 8, g >> 8, b >> 8}, test.ShouldResemble, []uint32{10, 200, 30})
	}
}

func TestEmptyFrame(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "input-0.png")
	test.That(t, os.WriteFile(empty, nil, 0o600), test.ShouldBeNil)
	garbage := filepath.Join(dir, "input-1.jpg")
	test.That(t, os.WriteFile(garbage, []byte("definitely not a jpeg"), 0o600), test.ShouldBeNil)

	src, err := NewFileSource(empty, garbage)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 2; i++ {
		_, _, err = src.Next(context.Background())
		test.That(t, errors.Is(err, ErrEmptyFrame), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "frame is empty")
	}
}

func TestSourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &StaticSource{Img: solid(1, 1, color.RGBA{}), Name: "s", Count: 3}
	_, _, err := src.Next(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, drain(t, src), test.ShouldResemble, []string{"s", "s", "s"})
}

func TestSourceMods(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})

	rot := &RotateSource{Original: &StaticSource{Img: img, Name: "f", Count: 1}}
	out, name, err := rot.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, name, test.ShouldEqual, "f")
	test.That(t, out.Bounds().Size(), test.ShouldResemble, image.Point{4, 2})
	r, _, _, _ := out.At(3, 1).RGBA()
	test.That(t, r>>8, test.ShouldEqual, 255)
	_, _, err = rot.Next(context.Background())
	test.That(t, errors.Is(err, ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, rot.Close(), test.ShouldBeNil)

	resize := &ResizeSource{Original: &StaticSource{Img: img, Count: 1}, Width: 8}
	out, _, err = resize.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds().Size(), test.ShouldResemble, image.Point{8, 4})
	_, _, err = resize.Next(context.Background())
	test.That(t, errors.Is(err, ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, resize.Close(), test.ShouldBeNil)
}

func TestDirectorySink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "frames")
	sink, err := NewDirectorySink(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sink.Dir(), test.ShouldEqual, dir)

	want := solid(6, 3, color.RGBA{0, 0, 255, 255})
	test.That(t, sink.Write(context.Background(), "input-3", want), test.ShouldBeNil)
	got, err := DecodeImageFile(filepath.Join(dir, "input-3.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Bounds().Size(), test.ShouldResemble, image.Point{6, 3})
	_, _, b, _ := got.At(1, 1).RGBA()
	test.That(t, b>>8, test.ShouldEqual, 255)

	test.That(t, sink.Write(context.Background(), "../escape", want), test.ShouldNotBeNil)
	test.That(t, sink.Write(context.Background(), "", want), test.ShouldNotBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, sink.Write(ctx, "late", want), test.ShouldNotBeNil)
	test.That(t, sink.Close(), test.ShouldBeNil)

	test.That(t, DiscardSink{}.Write(context.Background(), "x", want), test.ShouldBeNil)
}

func TestLoadSequenceGIF(t *testing.T) {
	palette := color.Palette{color.RGBA{0, 0, 0, 255}, color.RGBA{255, 0, 0, 255}, color.RGBA{0, 255, 0, 255}}
	first := image.NewPaletted(image.Rect(0, 0, 8, 6), palette)
	for i := range first.Pix {
		first.Pix[i] = 1
	}
	// the second frame only covers a corner of the screen
	second := image.NewPaletted(image.Rect(4, 3, 8, 6), palette)
	for i := range second.Pix {
		second.Pix[i] = 2
	}
	anim := &gif.GIF{
		Image:    []*image.Paletted{first, second},
		Delay:    []int{5, 5},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
		Config:   image.Config{Width: 8, Height: 6, ColorModel: palette},
	}
	var buf bytes.Buffer
	test.That(t, gif.EncodeAll(&buf, anim), test.ShouldBeNil)
	path := filepath.Join(t.TempDir(), "sticker.gif")
	test.That(t, os.WriteFile(path, buf.Bytes(), 0o600), test.ShouldBeNil)

	frames, err := LoadSequence(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(frames), test.ShouldEqual, 2)
	for _, f := range frames {
		test.That(t, f.Bounds(), test.ShouldResemble, image.Rect(0, 0, 8, 6))
	}
	r, g, _, _ := frames[1].At(1, 1).RGBA()
	test.That(t, []uint32{r >> 8, g >> 8}, test.ShouldResemble, []uint32{255, 0})
	r, g, _, _ = frames[1].At(6, 4).RGBA()
	test.That(t, []uint32{r >> 8, g >> 8}, test.ShouldResemble, []uint32{0, 255})
}

func TestLoadSequenceDirectory(t *testing.T) {
	dir := t.TempDir()
	for i, c := range []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}} {
		writePNG(t, filepath.Join(dir, []string{"input-10.png", "input-9.png"}[i]), solid(3, 3, c))
	}
	frames, err := LoadSequence(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(frames), test.ShouldEqual, 2)
	// input-9 comes first
	_, g, _, _ := frames[0].At(0, 0).RGBA()
	test.That(t, g>>8, test.ShouldEqual, 255)

	single, err := LoadSequence(filepath.Join(dir, "input-9.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(single), test.ShouldEqual, 1)

	_, err = LoadSequence(t.TempDir())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = LoadSequence(filepath.Join(dir, "missing"))
	test.That(t, err, test.ShouldNotBeNil)
}
