package overlay

import (
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/arcamlabs/arcam/models"
)

// DefaultObjectOffset places a loaded object over the middle of a 9x6 board, one square up.
var DefaultObjectOffset = r3.Vector{X: 4.5, Y: -3, Z: 1}

const (
	lineWidth       = 2
	objectLineWidth = 1
)

// Palette holds the colors of the built-in wireframes.
type Palette struct {
	X, Y, Z color.Color
	Cube    color.Color
	Walls   color.Color
	Roof    color.Color
	Door    color.Color
	Object  color.Color
}

// DefaultPalette draws axes as x red, y green and z blue, a house with blue walls, a red
// roof and a black door, and cubes and objects in blue.
func DefaultPalette() Palette {
	blue := color.RGBA{0, 0, 255, 255}
	return Palette{
		X:      color.RGBA{255, 0, 0, 255},
		Y:      color.RGBA{0, 255, 0, 255},
		Z:      blue,
		Cube:   blue,
		Walls:  blue,
		Roof:   color.RGBA{255, 0, 0, 255},
		Door:   color.RGBA{0, 0, 0, 255},
		Object: blue,
	}
}

// Axes returns the origin followed by the tips of the z, x and y axes, each scale long.
func Axes(origin r3.Vector, scale float64) []r3.Vector {
	return []r3.Vector{
		origin,
		origin.Add(r3.Vector{Z: scale}),
		origin.Add(r3.Vector{X: scale}),
		origin.Add(r3.Vector{Y: scale}),
	}
}

// Cube returns the 8 corners of a cube with side scale, laid out as RectPrism does.
func Cube(origin r3.Vector, scale float64) []r3.Vector {
	return RectPrism(origin, scale, scale, scale)
}

// RectPrism returns the 8 corners of a box extending w along +x, h along -y (down the
// board) and d along +z. The first four corners form the y = origin face, going
// (0,0,0) (1,0,0) (1,0,1) (0,0,1); the last four repeat them at y - h.
func RectPrism(origin r3.Vector, w, h, d float64) []r3.Vector {
	corner := func(i, j, k float64) r3.Vector {
		return origin.Add(r3.Vector{X: w * i, Y: -h * j, Z: d * k})
	}
	return []r3.Vector{
		corner(0, 0, 0), corner(1, 0, 0), corner(1, 0, 1), corner(0, 0, 1),
		corner(0, 1, 0), corner(1, 1, 0), corner(1, 1, 1), corner(0, 1, 1),
	}
}

// Roof returns two triangles of a gable roof h high over a w wide base, one at z = origin
// and one at z + d. Each triangle goes base left, apex, base right.
func Roof(origin r3.Vector, w, h, d float64) []r3.Vector {
	pts := make([]r3.Vector, 0, 6)
	for _, z := range []float64{0, d} {
		pts = append(pts,
			origin.Add(r3.Vector{Z: z}),
			origin.Add(r3.Vector{X: w / 2, Y: h, Z: z}),
			origin.Add(r3.Vector{X: w, Z: z}),
		)
	}
	return pts
}

// Door returns a w by h frame in the z = origin + d plane, followed by the knob.
func Door(origin r3.Vector, w, h, d float64) []r3.Vector {
	at := func(x, y float64) r3.Vector {
		return origin.Add(r3.Vector{X: x, Y: y, Z: d})
	}
	return []r3.Vector{
		at(0, 0), at(0, h), at(w, h), at(w, 0),
		at(0.2*w, 0.6*h),
	}
}

// AxesWireframe draws the board axes as arrows from origin.
func AxesWireframe(origin r3.Vector, scale float64, p Palette) *Wireframe {
	return &Wireframe{
		Points: Axes(origin, scale),
		Edges: []Edge{
			{From: 0, To: 2, Color: p.X, Width: lineWidth, Arrow: true},
			{From: 0, To: 3, Color: p.Y, Width: lineWidth, Arrow: true},
			{From: 0, To: 1, Color: p.Z, Width: lineWidth, Arrow: true},
		},
	}
}

func prismWireframe(pts []r3.Vector, c color.Color) *Wireframe {
	wf := &Wireframe{Points: pts}
	wf.connect(c, lineWidth, true, 0, 1, 2, 3)
	wf.connect(c, lineWidth, true, 4, 5, 6, 7)
	for i := 0; i < 4; i++ {
		wf.connect(c, lineWidth, false, i, i+4)
	}
	return wf
}

// CubeWireframe draws the 12 edges of a cube.
func CubeWireframe(origin r3.Vector, scale float64, p Palette) *Wireframe {
	return prismWireframe(Cube(origin, scale), p.Cube)
}

// House draws a house lying on the board: box walls, a gable roof and a door with a knob.
func House(p Palette) *Wireframe {
	const (
		w, h, d = 3., 4., 5.5
		roofH   = 2.
	)
	walls := r3.Vector{X: 4.5 - w/2, Y: -3 + h/2}
	house := prismWireframe(RectPrism(walls, w, h, d), p.Walls)

	roof := &Wireframe{Points: Roof(walls, w, roofH, d)}
	roof.connect(p.Roof, lineWidth, true, 0, 1, 2)
	roof.connect(p.Roof, lineWidth, true, 3, 4, 5)
	for i := 0; i < 3; i++ {
		roof.connect(p.Roof, lineWidth, false, i, i+3)
	}
	house.Append(roof)

	door := &Wireframe{Points: Door(r3.Vector{X: 4.5 - w/4, Y: walls.Y - h}, w/4, h/4, d)}
	door.connect(p.Door, lineWidth, true, 0, 1, 2, 3)
	door.Markers = []Marker{{Index: 4, Radius: 2, Thickness: 3, Color: p.Door}}
	house.Append(door)
	return house
}

// ObjectWireframe draws every edge of a model shifted by offset.
func ObjectWireframe(m *models.Model, offset r3.Vector, p Palette) *Wireframe {
	wf := &Wireframe{Points: make([]r3.Vector, len(m.Vertices))}
	for i, v := range m.Vertices {
		wf.Points[i] = v.Add(offset)
	}
	for _, e := range m.Edges() {
		wf.Edges = append(wf.Edges, Edge{From: e[0], To: e[1], Color: p.Object, Width: objectLineWidth})
	}
	return wf
}
