// Package models loads 3D objects from OBJ and PLY files for drawing as wireframes.
package models

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"
)

// Model is a 3D object. Faces and Lines hold 0-based indices into Vertices; a face is a
// closed loop, a line is an open polyline.
type Model struct {
	Vertices []r3.Vector
	Faces    [][]int
	Lines    [][]int
}

// Load reads a model, picking the format from the file extension.
func Load(path string) (*Model, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var m *Model
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		m, err = ParseOBJ(f)
	case ".ply":
		m, err = ReadPLY(f)
	default:
		return nil, errors.Errorf("do not know how to read model file %q", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return m, nil
}

// Edges returns every undirected edge of the faces and lines once, as ordered index pairs
// sorted by first then second index.
func (m *Model) Edges() [][2]int {
	var all [][2]int
	for _, face := range m.Faces {
		for i := range face {
			all = append(all, edge(face[i], face[(i+1)%len(face)]))
		}
	}
	for _, line := range m.Lines {
		for i := 1; i < len(line); i++ {
			all = append(all, edge(line[i-1], line[i]))
		}
	}
	edges := lo.Filter(lo.Uniq(all), func(e [2]int, _ int) bool { return e[0] != e[1] })
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func edge(a, b int) [2]int {
	if a > b {
		return [2]int{b, a}
	}
	return [2]int{a, b}
}

// Transform returns a copy of the model with every vertex mapped through the homogeneous
// transform t.
func (m *Model) Transform(t mgl64.Mat4) *Model {
	out := &Model{
		Vertices: make([]r3.Vector, len(m.Vertices)),
		Faces:    m.Faces,
		Lines:    m.Lines,
	}
	for i, v := range m.Vertices {
		p := t.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 1})
		w := p.W()
		if w == 0 {
			w = 1
		}
		out.Vertices[i] = r3.Vector{X: p.X() / w, Y: p.Y() / w, Z: p.Z() / w}
	}
	return out
}

// Bounds returns the corners of the axis-aligned box around the vertices.
func (m *Model) Bounds() (r3.Vector, r3.Vector) {
	if len(m.Vertices) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	minPt := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	maxPt := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range m.Vertices {
		minPt = r3.Vector{X: math.Min(minPt.X, v.X), Y: math.Min(minPt.Y, v.Y), Z: math.Min(minPt.Z, v.Z)}
		maxPt = r3.Vector{X: math.Max(maxPt.X, v.X), Y: math.Max(maxPt.Y, v.Y), Z: math.Max(maxPt.Z, v.Z)}
	}
	return minPt, maxPt
}

// checkIndices reports indices outside of the vertices, numbered from base as in the file.
func (m *Model) checkIndices(indices []int, base int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.Vertices) {
			return errors.Errorf("vertex index %d out of range [%d, %d]", idx+base, base, len(m.Vertices)-1+base)
		}
	}
	return nil
}
