package chessboard

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/arcamlabs/arcam/rimage/transform"
)

// GridConfiguration stores the parameters of the lattice growth that assembles corners into a board.
type GridConfiguration struct {
	Tolerance float64 `json:"tolerance"` // accepted distance to a predicted corner, relative to the local corner spacing
	MaxSeeds  int     `json:"max-seeds"` // strongest candidates tried as the first corner of the lattice
	Neighbors int     `json:"neighbors"` // closest candidates looked at to pick the two lattice directions
}

// DefaultGridConf stores the default parameters for the lattice growth
var DefaultGridConf = GridConfiguration{
	Tolerance: 0.3,
	MaxSeeds:  10,
	Neighbors: 8,
}

// cell is a lattice coordinate, a along the first direction and b along the second.
type cell struct {
	a, b int
}

type lattice struct {
	points  []r2.Point
	used    []bool
	cells   map[cell]int
	pattern image.Point
	tol     float64

	minA, maxA, minB, maxB int
}

func newLattice(points []r2.Point, pattern image.Point, tol float64) *lattice {
	return &lattice{
		points:  points,
		used:    make([]bool, len(points)),
		cells:   map[cell]int{},
		pattern: pattern,
		tol:     tol,
	}
}

func (l *lattice) assign(c cell, idx int) {
	if len(l.cells) == 0 {
		l.minA, l.maxA, l.minB, l.maxB = c.a, c.a, c.b, c.b
	}
	l.cells[c] = idx
	l.used[idx] = true
	l.minA, l.maxA = min(l.minA, c.a), max(l.maxA, c.a)
	l.minB, l.maxB = min(l.minB, c.b), max(l.maxB, c.b)
}

func (l *lattice) extent() (int, int) {
	return l.maxA - l.minA + 1, l.maxB - l.minB + 1
}

// fits reports whether the lattice can hold c and still fit the pattern in either orientation.
func (l *lattice) fits(c cell) bool {
	extA := max(l.maxA, c.a) - min(l.minA, c.a) + 1
	extB := max(l.maxB, c.b) - min(l.minB, c.b) + 1
	cols, rows := l.pattern.X, l.pattern.Y
	return (extA <= cols && extB <= rows) || (extA <= rows && extB <= cols)
}

// nearestFree returns the closest unassigned candidate within radius of pt.
func (l *lattice) nearestFree(pt r2.Point, radius float64) (int, bool) {
	best, bestDist := -1, radius
	for i, p := range l.points {
		if l.used[i] {
			continue
		}
		if d := p.Sub(pt).Norm(); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// frontier returns the unassigned 4-neighbors of the lattice in a stable order.
func (l *lattice) frontier() []cell {
	seen := map[cell]bool{}
	var out []cell
	for c := range l.cells {
		for _, n := range neighbors(c) {
			if _, ok := l.cells[n]; ok || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

func neighbors(c cell) []cell {
	return []cell{{c.a - 1, c.b}, {c.a + 1, c.b}, {c.a, c.b - 1}, {c.a, c.b + 1}}
}

// fit returns the homography from lattice coordinates to image points.
func (l *lattice) fit() (*transform.Homography, error) {
	src := make([]r2.Point, 0, len(l.cells))
	dst := make([]r2.Point, 0, len(l.cells))
	for c, idx := range l.cells {
		src = append(src, r2.Point{X: float64(c.a), Y: float64(c.b)})
		dst = append(dst, l.points[idx])
	}
	return transform.FindHomography(src, dst)
}

// predict returns where the homography puts cell c and how far that is from its closest
// neighbor, which sets the search radius.
func predict(h *transform.Homography, c cell) (r2.Point, float64) {
	at := func(c cell) r2.Point {
		return h.Apply(r2.Point{X: float64(c.a), Y: float64(c.b)})
	}
	p := at(c)
	spacing := math.Inf(1)
	for _, n := range neighbors(c) {
		spacing = math.Min(spacing, p.Sub(at(n)).Norm())
	}
	return p, spacing
}

// grow adds frontier cells whose predicted position has a candidate close by, refitting the
// homography after every pass, until the lattice stops growing.
func (l *lattice) grow() {
	for {
		h, err := l.fit()
		if err != nil {
			return
		}
		added := false
		for _, c := range l.frontier() {
			if !l.fits(c) {
				continue
			}
			p, spacing := predict(h, c)
			if idx, ok := l.nearestFree(p, l.tol*spacing); ok {
				l.assign(c, idx)
				added = true
			}
		}
		if !added {
			return
		}
	}
}

// complete reports whether the lattice is exactly the pattern: every cell filled and no
// candidate continuing the lattice past its edges.
func (l *lattice) complete() bool {
	extA, extB := l.extent()
	cols, rows := l.pattern.X, l.pattern.Y
	if !((extA == cols && extB == rows) || (extA == rows && extB == cols)) {
		return false
	}
	if len(l.cells) != extA*extB {
		return false
	}
	h, err := l.fit()
	if err != nil {
		return false
	}
	for a := l.minA - 1; a <= l.maxA+1; a++ {
		for b := l.minB - 1; b <= l.maxB+1; b++ {
			if a >= l.minA && a <= l.maxA && b >= l.minB && b <= l.maxB {
				continue
			}
			p, spacing := predict(h, cell{a, b})
			if _, ok := l.nearestFree(p, l.tol*spacing); ok {
				return false
			}
		}
	}
	return true
}

// growFromSeed starts a lattice at a candidate using its closest neighbor as the first
// direction and the closest non parallel neighbor as the second one.
func growFromSeed(points []r2.Point, seed int, pattern image.Point, cfg *GridConfiguration) (*lattice, bool) {
	closest := nearestIndices(points, seed, cfg.Neighbors)
	if len(closest) < 2 {
		return nil, false
	}
	s := points[seed]
	u := points[closest[0]].Sub(s)
	uLen := u.Norm()
	if uLen == 0 {
		return nil, false
	}
	vIdx := -1
	var v r2.Point
	for _, idx := range closest[1:] {
		d := points[idx].Sub(s)
		dLen := d.Norm()
		if dLen == 0 || dLen > 2*uLen {
			continue
		}
		if math.Abs(u.Cross(d))/(uLen*dLen) > 0.5 {
			vIdx, v = idx, d
			break
		}
	}
	if vIdx < 0 {
		return nil, false
	}

	l := newLattice(points, pattern, cfg.Tolerance)
	l.assign(cell{0, 0}, seed)
	l.assign(cell{1, 0}, closest[0])
	l.assign(cell{0, 1}, vIdx)
	idx, ok := l.nearestFree(s.Add(u).Add(v), cfg.Tolerance*math.Min(uLen, v.Norm()))
	if !ok {
		return nil, false
	}
	l.assign(cell{1, 1}, idx)
	l.grow()
	return l, l.complete()
}

// nearestIndices returns the indices of the k candidates closest to points[from], closest first.
func nearestIndices(points []r2.Point, from, k int) []int {
	idx := make([]int, 0, len(points))
	for i := range points {
		if i != from {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return points[idx[i]].Sub(points[from]).Norm() < points[idx[j]].Sub(points[from]).Norm()
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}

// ordered returns the lattice as rows of the pattern. Row 0 is the top row and column 0 the
// left column; the column direction turned toward the row direction is clockwise on screen.
func (l *lattice) ordered() []r2.Point {
	extA, extB := l.extent()
	cols, rows := l.pattern.X, l.pattern.Y
	at := func(a, b int) r2.Point {
		return l.points[l.cells[cell{l.minA + a, l.minB + b}]]
	}
	colsAlongA := extA == cols && extB == rows
	if cols == rows {
		du := at(extA-1, 0).Sub(at(0, 0))
		dv := at(0, extB-1).Sub(at(0, 0))
		colsAlongA = math.Abs(du.X) >= math.Abs(dv.X)
	}
	corner := func(i, j int) r2.Point {
		if colsAlongA {
			return at(j, i)
		}
		return at(i, j)
	}

	colDir := corner(0, cols-1).Sub(corner(0, 0))
	rowDir := corner(rows-1, 0).Sub(corner(0, 0))
	flipRows, flipCols := false, false
	if colDir.Cross(rowDir) < 0 {
		flipRows = true
		rowDir = rowDir.Mul(-1)
	}
	if colDir.X+rowDir.Y < 0 {
		flipRows = !flipRows
		flipCols = true
	}

	out := make([]r2.Point, 0, cols*rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			ii, jj := i, j
			if flipRows {
				ii = rows - 1 - i
			}
			if flipCols {
				jj = cols - 1 - j
			}
			out = append(out, corner(ii, jj))
		}
	}
	return out
}
