package overlay

import (
	"image"
	"image/color"

	"github.com/arcamlabs/arcam/rimage"
)

const hudFontSize = 14

var (
	hudBackground = color.RGBA{0, 0, 0, 160}
	hudText       = color.RGBA{255, 255, 255, 255}
)

// DrawHUD writes a label in the top left corner of dst over a dark band.
func DrawHUD(dst *image.RGBA, label string) {
	if label == "" {
		return
	}
	dc := rimage.NewDrawContext(dst)
	dc.SetFontFace(rimage.FontFace(hudFontSize))
	w, h := dc.MeasureString(label)
	dc.SetColor(hudBackground)
	dc.DrawRectangle(0, 0, w+8, h+8)
	dc.Fill()
	rimage.DrawString(dc, label, image.Point{4, 4}, hudText, hudFontSize)
}
