package overlay

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/arcamlabs/arcam/rimage"
	"github.com/arcamlabs/arcam/rimage/transform"
)

// DefaultStickerRegion covers the inner corners of a 9x6 board, going clockwise from the
// first corner.
var DefaultStickerRegion = [4]r3.Vector{
	{X: 0, Y: 0, Z: 0},
	{X: 9, Y: 0, Z: 0},
	{X: 9, Y: -6, Z: 0},
	{X: 0, Y: -6, Z: 0},
}

// Sticker pastes images onto a quadrilateral of the board.
type Sticker struct {
	Region        [4]r3.Vector
	Interpolation transform.Interpolation
}

// NewSticker returns a sticker over region, warped with bicubic interpolation.
func NewSticker(region [4]r3.Vector) *Sticker {
	return &Sticker{Region: region, Interpolation: transform.InterpolationBicubic}
}

// Apply warps frame so that its corners land on the projection of the region and pastes it
// over dst inside the projected quadrilateral. It reports false and leaves dst untouched when
// part of the region is behind the camera.
func (s *Sticker) Apply(dst *image.RGBA, frame image.Image, model *transform.PinholeCameraModel, pose *transform.CamPose) (bool, error) {
	b := frame.Bounds()
	if b.Empty() {
		return false, errors.New("sticker frame is empty")
	}
	quad, visible, err := model.ProjectPoints(s.Region[:], pose)
	if err != nil {
		return false, err
	}
	for _, v := range visible {
		if !v {
			return false, nil
		}
	}

	w, h := float64(b.Dx()), float64(b.Dy())
	corners := []r2.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
	homography, err := transform.FindHomography(corners, quad)
	if err != nil {
		return false, errors.Wrap(err, "sticker region is degenerate")
	}
	size := dst.Bounds().Size()
	warped, err := transform.WarpPerspective(frame, homography, size, s.Interpolation)
	if err != nil {
		return false, err
	}

	poly := make([]image.Point, len(quad))
	for i, p := range quad {
		poly[i] = image.Point{X: int(p.X), Y: int(p.Y)}
	}
	mask := rimage.PolygonMask(size, poly)
	draw.DrawMask(dst, dst.Bounds(), warped, image.Point{}, mask, image.Point{}, draw.Over)
	return true, nil
}
