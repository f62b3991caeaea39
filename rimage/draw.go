package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultArrowTip is the length of an arrow head relative to the arrow length.
const DefaultArrowTip = 0.1

var ttf *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	ttf, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return ttf
}

// NewDrawContext returns a gg context that draws directly into img.
func NewDrawContext(img *image.RGBA) *gg.Context {
	return gg.NewContextForRGBA(img)
}

// FontFace returns a face of the drawing font at the given point size.
func FontFace(size float64) font.Face {
	return truetype.NewFace(Font(), &truetype.Options{Size: size})
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(FontFace(size))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawRectangleEmpty draws the given rectangle into the context. The positions of the
// rectangle are used to place it within the context.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}

// DrawLine strokes a segment between two pixel positions.
func DrawLine(dc *gg.Context, p1, p2 r2.Point, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	dc.DrawLine(p1.X, p1.Y, p2.X, p2.Y)
	dc.Stroke()
}

// DrawArrowedLine strokes a segment from p1 to p2 with an arrow head at p2. The head's
// length is tipLength times the segment length, with 45 degree barbs.
func DrawArrowedLine(dc *gg.Context, p1, p2 r2.Point, c color.Color, width, tipLength float64) {
	DrawLine(dc, p1, p2, c, width)
	tip := p1.Sub(p2).Norm() * tipLength
	if tip == 0 {
		return
	}
	angle := math.Atan2(p1.Y-p2.Y, p1.X-p2.X)
	for _, side := range []float64{math.Pi / 4, -math.Pi / 4} {
		barb := r2.Point{
			X: p2.X + tip*math.Cos(angle+side),
			Y: p2.Y + tip*math.Sin(angle+side),
		}
		DrawLine(dc, p2, barb, c, width)
	}
}

// DrawCircle draws a circle outline of the given thickness. A negative thickness fills it.
func DrawCircle(dc *gg.Context, center r2.Point, radius float64, c color.Color, thickness float64) {
	dc.SetColor(c)
	dc.DrawCircle(center.X, center.Y, radius)
	if thickness < 0 {
		dc.Fill()
		return
	}
	dc.SetLineWidth(thickness)
	dc.Stroke()
}

// FillConvexPolygon fills the polygon with the given vertices.
func FillConvexPolygon(dc *gg.Context, pts []image.Point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	dc.SetColor(c)
	dc.MoveTo(float64(pts[0].X), float64(pts[0].Y))
	for _, p := range pts[1:] {
		dc.LineTo(float64(p.X), float64(p.Y))
	}
	dc.ClosePath()
	dc.Fill()
}

// PolygonMask returns an image of the given size that is opaque inside the polygon and
// transparent elsewhere, for use with draw.DrawMask.
func PolygonMask(size image.Point, pts []image.Point) image.Image {
	dc := gg.NewContext(size.X, size.Y)
	FillConvexPolygon(dc, pts, color.White)
	return dc.Image()
}
