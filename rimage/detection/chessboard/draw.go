package chessboard

import (
	"image"
	"image/color"

	"github.com/golang/geo/r2"

	"github.com/arcamlabs/arcam/rimage"
)

const cornerRadius = 4

// rowColors cycles over the rows of a found board.
var rowColors = []color.RGBA{
	{255, 0, 0, 255},
	{255, 128, 0, 255},
	{200, 200, 0, 255},
	{0, 255, 0, 255},
	{0, 200, 200, 255},
	{0, 0, 255, 255},
	{255, 0, 255, 255},
}

// DrawChessboardCorners marks detected corners on dst. A found board is drawn as one
// polyline through all corners in order, each row in its own color, with a circle per
// corner. Corners of a board that was not found are drawn as red circles.
func DrawChessboardCorners(dst *image.RGBA, patternSize image.Point, corners []r2.Point, found bool) {
	dc := rimage.NewDrawContext(dst)
	if !found || patternSize.X <= 0 {
		for _, c := range corners {
			rimage.DrawCircle(dc, c, cornerRadius, rowColors[0], 1)
		}
		return
	}
	var prev *r2.Point
	for i, c := range corners {
		col := rowColors[(i/patternSize.X)%len(rowColors)]
		if prev != nil {
			rimage.DrawLine(dc, *prev, c, col, 1)
		}
		rimage.DrawCircle(dc, c, cornerRadius, col, 1)
		prev = &corners[i]
	}
}
