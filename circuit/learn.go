package circuit

import (
	"slices"

	"github.com/pthm-cable/tilegrid/extract"
	"github.com/pthm-cable/tilegrid/tile"
)

// Learn derives a circuit tile set from example levels. For every member
// cell the neighbourhood mask is computed and the tile drawn most often
// for that mask wins; ties go to the smallest Ref.
func Learn(name string, grids []tile.Reader, groups Groups, members []string, def tile.Ref) *Circuit {
	c := &Circuit{Name: name, Groups: slices.Clone(members), Tiles: make(TileSet), Default: def}
	r := NewResolver(groups, nil)
	counts := make(map[tile.Mask]map[tile.Ref]int)

	for _, g := range grids {
		w, h := g.Bounds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				ref := g.TileAt(x, y)
				if !c.Member(groups, ref) {
					continue
				}
				mask := r.Mask(g, tile.P(x, y), c)
				byRef, ok := counts[mask]
				if !ok {
					byRef = make(map[tile.Ref]int)
					counts[mask] = byRef
				}
				byRef[ref]++
			}
		}
	}

	for mask, byRef := range counts {
		var (
			best  tile.Ref
			score int
		)
		for ref, n := range byRef {
			if n > score || (n == score && ref.Less(best)) {
				best, score = ref, n
			}
		}
		c.Tiles[mask] = best
	}
	return c
}

// FromTransitions builds an area circuit for the inner group from the
// boundary shapes recorded against the outer group. A transition shape
// marks outer neighbours, so the circuit mask is its complement.
func FromTransitions(tt *extract.TransitionTable, name, outer, inner string, def tile.Ref) *Circuit {
	c := &Circuit{Name: name, Groups: []string{inner}, Tiles: make(TileSet), Default: def}
	for _, k := range tt.KeysFor(outer, inner) {
		tiles := tt.Tiles(k)
		if len(tiles) == 0 {
			continue
		}
		c.Tiles[tile.Full&^k.Shape] = tiles[0]
	}
	return c
}
