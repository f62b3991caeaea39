// Package overlay builds 3D wireframes in chessboard coordinates and draws them, or warped
// images, onto camera frames given the board's pose.
package overlay

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Edge is a segment between two points of a wireframe.
type Edge struct {
	From, To int
	Color    color.Color
	Width    float64
	Arrow    bool // draw an arrow head at To
}

// Marker is a circle around a point of a wireframe.
type Marker struct {
	Index     int
	Radius    float64
	Thickness float64 // negative fills the circle
	Color     color.Color
}

// Wireframe is a set of points in board coordinates and what to draw between them.
type Wireframe struct {
	Points  []r3.Vector
	Edges   []Edge
	Markers []Marker
}

// Append adds the points, edges and markers of other, shifting its indices past the points
// already in wf.
func (wf *Wireframe) Append(other *Wireframe) {
	base := len(wf.Points)
	wf.Points = append(wf.Points, other.Points...)
	for _, e := range other.Edges {
		e.From += base
		e.To += base
		wf.Edges = append(wf.Edges, e)
	}
	for _, m := range other.Markers {
		m.Index += base
		wf.Markers = append(wf.Markers, m)
	}
}

// CheckValid ensures every edge and marker refers to an existing point.
func (wf *Wireframe) CheckValid() error {
	n := len(wf.Points)
	for i, e := range wf.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return errors.Errorf("edge %d (%d -> %d) refers to a point outside of the %d points", i, e.From, e.To, n)
		}
	}
	for i, m := range wf.Markers {
		if m.Index < 0 || m.Index >= n {
			return errors.Errorf("marker %d refers to point %d outside of the %d points", i, m.Index, n)
		}
	}
	return nil
}

// connect adds an edge for every consecutive pair of indices.
func (wf *Wireframe) connect(c color.Color, width float64, closed bool, indices ...int) {
	for i := 1; i < len(indices); i++ {
		wf.Edges = append(wf.Edges, Edge{From: indices[i-1], To: indices[i], Color: c, Width: width})
	}
	if closed && len(indices) > 2 {
		wf.Edges = append(wf.Edges, Edge{From: indices[len(indices)-1], To: indices[0], Color: c, Width: width})
	}
}
