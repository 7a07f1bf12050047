package circuit

import (
	"github.com/pthm-cable/tilegrid/tile"
)

// LookupMiss records a mask that resolved to the circuit default.
type LookupMiss struct {
	Circuit string
	Mask    tile.Mask
	At      tile.Point
}

// MissSink receives lookup-miss diagnostics.
type MissSink interface {
	RecordMiss(LookupMiss)
}

// Resolver picks circuit tiles for grid positions. It never fails: a
// missing mask resolves to the circuit default and is reported to the sink.
type Resolver struct {
	groups Groups
	sink   MissSink
}

// NewResolver creates a resolver. sink may be nil.
func NewResolver(groups Groups, sink MissSink) *Resolver {
	return &Resolver{groups: groups, sink: sink}
}

// Mask computes the membership bitmask around p. Off-grid neighbours are
// not members.
func (r *Resolver) Mask(g tile.Reader, p tile.Point, c *Circuit) tile.Mask {
	var m tile.Mask
	for _, d := range tile.Directions {
		n, ok := tile.Neighbor(g, p.X, p.Y, d)
		if ok && c.Member(r.groups, n) {
			m = m.With(d)
		}
	}
	return m
}

// Resolve returns the tile that belongs at p. The result depends only on
// neighbour membership, not on the neighbours' current tiles.
func (r *Resolver) Resolve(g tile.Reader, p tile.Point, c *Circuit) tile.Ref {
	mask := r.Mask(g, p, c)
	if ref, ok := c.Lookup(mask); ok {
		return ref
	}
	if r.sink != nil {
		r.sink.RecordMiss(LookupMiss{Circuit: c.Name, Mask: mask, At: p})
	}
	return c.Default
}

// resolveCell re-resolves p in place if it is a member. Returns true when
// the tile changed.
func (r *Resolver) resolveCell(g *tile.Grid, p tile.Point, c *Circuit) bool {
	if !g.InBounds(p.X, p.Y) {
		return false
	}
	i := g.Index(p.X, p.Y)
	cur := g.Cell(i)
	if !c.Member(r.groups, cur) {
		return false
	}
	next := r.Resolve(g, p, c)
	if next == cur {
		return false
	}
	g.SetCell(i, next)
	return true
}

// ResolveAround re-resolves the member neighbours of p after p changed.
// Returns the number of tiles rewritten.
func (r *Resolver) ResolveAround(g *tile.Grid, p tile.Point, c *Circuit) int {
	changed := 0
	for _, d := range tile.Directions {
		if r.resolveCell(g, p.Step(d), c) {
			changed++
		}
	}
	return changed
}

// Paint writes base at p, resolves p if base is a circuit member, then
// re-resolves its neighbours. Painting a non-member tile erases p from the
// circuit. Returns the number of neighbour tiles rewritten.
func (r *Resolver) Paint(g *tile.Grid, p tile.Point, base tile.Ref, c *Circuit) int {
	if !g.Set(p, base) {
		return 0
	}
	r.resolveCell(g, p, c)
	return r.ResolveAround(g, p, c)
}

// Relax re-resolves every member cell in region until a pass makes no
// change. It runs at most region.Area() changing passes plus one
// confirming pass and reports whether the region converged.
func (r *Resolver) Relax(g *tile.Grid, region tile.Rect, c *Circuit) (passes int, converged bool) {
	limit := region.Area() + 1
	pts := region.Points()
	for passes < limit {
		passes++
		changed := 0
		for _, p := range pts {
			if r.resolveCell(g, p, c) {
				changed++
			}
		}
		if changed == 0 {
			return passes, true
		}
	}
	return passes, false
}
