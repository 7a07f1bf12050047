package tile

import (
	"fmt"
	"strings"
)

// Reader is the read side of a tile grid consumed by the extractors,
// the resolver and the pathfinder.
type Reader interface {
	Bounds() (w, h int)
	TileAt(x, y int) Ref
}

// Point is a grid coordinate.
type Point struct {
	X, Y int
}

// P is shorthand for Point{X: x, Y: y}.
func P(x, y int) Point {
	return Point{X: x, Y: y}
}

// Step returns the neighbour of p in direction d.
func (p Point) Step(d Direction) Point {
	dx, dy := d.Offset()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Rect is a half-open rectangle [X0, X1) x [Y0, Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X < r.X1 && p.Y >= r.Y0 && p.Y < r.Y1
}

// Area returns the number of cells in r (0 if empty).
func (r Rect) Area() int {
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return 0
	}
	return (r.X1 - r.X0) * (r.Y1 - r.Y0)
}

// Points returns the cells of r in row-major order.
func (r Rect) Points() []Point {
	pts := make([]Point, 0, r.Area())
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			pts = append(pts, Point{X: x, Y: y})
		}
	}
	return pts
}

// Grid owns a rectangular tile buffer. Cells are addressed by y*width+x.
type Grid struct {
	cells  []Ref
	width  int
	height int
}

// NewGrid creates a w x h grid filled with fill.
func NewGrid(w, h int, fill Ref) *Grid {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	g := &Grid{cells: make([]Ref, w*h), width: w, height: h}
	for i := range g.cells {
		g.cells[i] = fill
	}
	return g
}

// GridFromRows builds a grid from equal-length rows.
func GridFromRows(rows [][]Ref) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0, Ref{}), nil
	}
	w := len(rows[0])
	g := NewGrid(w, len(rows), Ref{})
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d tiles, want %d", y, len(row), w)
		}
		copy(g.cells[y*w:(y+1)*w], row)
	}
	return g, nil
}

// Bounds returns the grid dimensions.
func (g *Grid) Bounds() (w, h int) {
	return g.width, g.height
}

// Rect returns the full grid rectangle.
func (g *Grid) Rect() Rect {
	return Rect{X1: g.width, Y1: g.height}
}

// InBounds reports whether (x, y) is a grid cell.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Index returns the buffer index of (x, y). The caller checks bounds.
func (g *Grid) Index(x, y int) int {
	return y*g.width + x
}

// XY converts a buffer index back to coordinates.
func (g *Grid) XY(i int) (x, y int) {
	return i % g.width, i / g.width
}

// TileAt returns the tile at (x, y), or EdgeOfMap outside the grid.
func (g *Grid) TileAt(x, y int) Ref {
	if !g.InBounds(x, y) {
		return EdgeOfMap
	}
	return g.cells[y*g.width+x]
}

// At is TileAt for a Point.
func (g *Grid) At(p Point) Ref {
	return g.TileAt(p.X, p.Y)
}

// Set writes r at p and reports whether p was in bounds.
func (g *Grid) Set(p Point, r Ref) bool {
	if !g.InBounds(p.X, p.Y) {
		return false
	}
	g.cells[p.Y*g.width+p.X] = r
	return true
}

// Cell returns the tile at buffer index i.
func (g *Grid) Cell(i int) Ref {
	return g.cells[i]
}

// SetCell writes the tile at buffer index i.
func (g *Grid) SetCell(i int, r Ref) {
	g.cells[i] = r
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{cells: make([]Ref, len(g.cells)), width: g.width, height: g.height}
	copy(c.cells, g.cells)
	return c
}

// Equal reports whether both grids have the same size and tiles.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Neighbor returns the tile next to (x, y) in direction d.
// ok is false (and the tile EdgeOfMap) when the neighbour is off the grid.
func Neighbor(r Reader, x, y int, d Direction) (Ref, bool) {
	dx, dy := d.Offset()
	nx, ny := x+dx, y+dy
	w, h := r.Bounds()
	if nx < 0 || nx >= w || ny < 0 || ny >= h {
		return EdgeOfMap, false
	}
	return r.TileAt(nx, ny), true
}

// String renders the grid one row per line.
func (g *Grid) String() string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(g.cells[y*g.width+x].String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
