package models

import (
	"io"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ReadPLY reads the vertex positions and faces of a PLY file. Faces are read from either a
// vertex_indices or a vertex_index list property.
func ReadPLY(r io.Reader) (m *Model, err error) {
	// goply panics on malformed input
	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = errors.Errorf("malformed ply: %v", rec)
		}
	}()
	ply := goply.New(r)

	m = &Model{}
	for i, vertex := range ply.Elements("vertex") {
		var xyz [3]float64
		for j, name := range []string{"x", "y", "z"} {
			raw, ok := vertex[name]
			if !ok {
				return nil, errors.Errorf("vertex %d has no %q property", i, name)
			}
			xyz[j], err = cast.ToFloat64E(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "vertex %d", i)
			}
		}
		m.Vertices = append(m.Vertices, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}

	for i, face := range ply.Elements("face") {
		raw, ok := face["vertex_indices"]
		if !ok {
			raw, ok = face["vertex_index"]
		}
		if !ok {
			return nil, errors.Errorf("face %d has no vertex_indices property", i)
		}
		indices, err := cast.ToIntSliceE(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "face %d", i)
		}
		if len(indices) < 3 {
			return nil, errors.Errorf("face %d has %d vertices, need at least 3", i, len(indices))
		}
		if err := m.checkIndices(indices, 0); err != nil {
			return nil, errors.Wrapf(err, "face %d", i)
		}
		m.Faces = append(m.Faces, indices)
	}
	return m, nil
}
