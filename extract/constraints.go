// Package extract learns adjacency constraints and group transitions from
// a corpus of hand-built level grids.
//
// Both extractors are batch operations meant for editor tooling, not the
// frame loop. Results are plain value tables; Tables provides an atomic
// swap for publishing a rebuilt pair to readers.
package extract

import (
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/pthm-cable/tilegrid/tile"
)

// constraintKey addresses one (tile, direction) neighbour set.
type constraintKey struct {
	ref tile.Ref
	dir tile.Direction
}

// ConstraintTable records, per tile and direction, the set of neighbour
// tiles observed in the corpus. Sets are order-insensitive.
type ConstraintTable struct {
	sets map[constraintKey]mapset.Set[tile.Ref]
}

// ConstraintRecord is one flattened (tile, direction, neighbour) entry.
type ConstraintRecord struct {
	Tile      tile.Ref
	Direction tile.Direction
	Neighbor  tile.Ref
}

// NewConstraintTable creates an empty table.
func NewConstraintTable() *ConstraintTable {
	return &ConstraintTable{sets: make(map[constraintKey]mapset.Set[tile.Ref])}
}

// ExtractConstraints scans every position of every grid and records each
// of its 8 neighbours (EdgeOfMap off the grid). Grid and position order do
// not affect the result.
func ExtractConstraints(grids []tile.Reader) *ConstraintTable {
	t := NewConstraintTable()
	for _, g := range grids {
		t.addGrid(g)
	}
	return t
}

func (t *ConstraintTable) addGrid(g tile.Reader) {
	w, h := g.Bounds()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := g.TileAt(x, y)
			for _, d := range tile.Directions {
				n, _ := tile.Neighbor(g, x, y, d)
				t.Add(center, d, n)
			}
		}
	}
}

// Add records neighbour n of ref in direction d.
func (t *ConstraintTable) Add(ref tile.Ref, d tile.Direction, n tile.Ref) {
	k := constraintKey{ref: ref, dir: d}
	set, ok := t.sets[k]
	if !ok {
		set = mapset.New[tile.Ref]()
		t.sets[k] = set
	}
	set.Put(n)
}

// Neighbors returns the recorded neighbours of ref in direction d, sorted.
// An empty result means no constraint was recorded, not that nothing fits.
func (t *ConstraintTable) Neighbors(ref tile.Ref, d tile.Direction) []tile.Ref {
	set, ok := t.sets[constraintKey{ref: ref, dir: d}]
	if !ok {
		return nil
	}
	out := make([]tile.Ref, 0, set.Size())
	set.Each(func(n tile.Ref) {
		out = append(out, n)
	})
	tile.SortRefs(out)
	return out
}

// Allows reports whether n may sit next to ref in direction d. When no
// constraint was recorded for (ref, d), allowed is true and recorded false.
func (t *ConstraintTable) Allows(ref tile.Ref, d tile.Direction, n tile.Ref) (allowed, recorded bool) {
	set, ok := t.sets[constraintKey{ref: ref, dir: d}]
	if !ok {
		return true, false
	}
	return set.Has(n), true
}

// Tiles returns every tile with at least one recorded constraint, sorted.
func (t *ConstraintTable) Tiles() []tile.Ref {
	seen := mapset.New[tile.Ref]()
	for k := range t.sets {
		seen.Put(k.ref)
	}
	out := make([]tile.Ref, 0, seen.Size())
	seen.Each(func(r tile.Ref) {
		out = append(out, r)
	})
	tile.SortRefs(out)
	return out
}

// Len returns the number of (tile, direction) entries.
func (t *ConstraintTable) Len() int {
	return len(t.sets)
}

// Equal compares set membership only.
func (t *ConstraintTable) Equal(o *ConstraintTable) bool {
	if len(t.sets) != len(o.sets) {
		return false
	}
	for k, set := range t.sets {
		other, ok := o.sets[k]
		if !ok || !sameSet(set, other) {
			return false
		}
	}
	return true
}

// Records flattens the table in a stable order: tile, direction, neighbour.
func (t *ConstraintTable) Records() []ConstraintRecord {
	var out []ConstraintRecord
	for k, set := range t.sets {
		set.Each(func(n tile.Ref) {
			out = append(out, ConstraintRecord{Tile: k.ref, Direction: k.dir, Neighbor: n})
		})
	}
	slices.SortFunc(out, func(a, b ConstraintRecord) int {
		if c := tile.Compare(a.Tile, b.Tile); c != 0 {
			return c
		}
		if a.Direction != b.Direction {
			return int(a.Direction) - int(b.Direction)
		}
		return tile.Compare(a.Neighbor, b.Neighbor)
	})
	return out
}

// ConstraintsFromRecords rebuilds a table from flattened records.
func ConstraintsFromRecords(records []ConstraintRecord) *ConstraintTable {
	t := NewConstraintTable()
	for _, r := range records {
		t.Add(r.Tile, r.Direction, r.Neighbor)
	}
	return t
}

func sameSet(a, b mapset.Set[tile.Ref]) bool {
	if a.Size() != b.Size() {
		return false
	}
	same := true
	a.Each(func(r tile.Ref) {
		if !b.Has(r) {
			same = false
		}
	})
	return same
}
