package models

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const objCommentChar = "#"

// ParseOBJ reads the vertices, faces and polylines of a Wavefront OBJ file. Face and line
// elements may reference texture and normal indices (i/t, i/t/n, i//n), which are dropped.
// Negative indices count back from the last vertex read so far. Every other statement is
// ignored.
func ParseOBJ(r io.Reader) (*Model, error) {
	m := &Model{}
	// positive indices may refer to vertices defined later, so they are checked at the end
	type pending struct {
		line    int
		indices []int
	}
	var elements []pending

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line, _, _ := strings.Cut(scanner.Text(), objCommentChar)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseOBJVertex(fields[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNum)
			}
			m.Vertices = append(m.Vertices, v)
		case "f", "l":
			minLen := 3
			if fields[0] == "l" {
				minLen = 2
			}
			if len(fields)-1 < minLen {
				return nil, errors.Errorf("line %d: %q element needs at least %d vertices, got %d",
					lineNum, fields[0], minLen, len(fields)-1)
			}
			indices := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				idx, err := parseOBJIndex(tok, len(m.Vertices))
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineNum)
				}
				indices = append(indices, idx)
			}
			if fields[0] == "f" {
				m.Faces = append(m.Faces, indices)
			} else {
				m.Lines = append(m.Lines, indices)
			}
			elements = append(elements, pending{lineNum, indices})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, el := range elements {
		if err := m.checkIndices(el.indices, 1); err != nil {
			return nil, errors.Wrapf(err, "line %d", el.line)
		}
	}
	return m, nil
}

// parseOBJVertex reads x y z with an optional w weight, which is ignored.
func parseOBJVertex(tokens []string) (r3.Vector, error) {
	if len(tokens) != 3 && len(tokens) != 4 {
		return r3.Vector{}, errors.Errorf("vertex needs 3 or 4 components, got %d", len(tokens))
	}
	var xyz [4]float64
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return r3.Vector{}, errors.Errorf("bad vertex component %q", tok)
		}
		xyz[i] = f
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// parseOBJIndex returns the 0-based vertex index of a face or line token given the number of
// vertices read so far.
func parseOBJIndex(tok string, numVertices int) (int, error) {
	vertex, _, _ := strings.Cut(tok, "/")
	idx, err := strconv.Atoi(vertex)
	if err != nil {
		return 0, errors.Errorf("bad vertex index %q", tok)
	}
	switch {
	case idx > 0:
		return idx - 1, nil
	case idx < 0:
		if -idx > numVertices {
			return 0, errors.Errorf("relative vertex index %d out of range with %d vertices", idx, numVertices)
		}
		return numVertices + idx, nil
	default:
		return 0, errors.New("vertex index 0 is not valid, indices start at 1")
	}
}
