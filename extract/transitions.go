package extract

import (
	"cmp"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/pthm-cable/tilegrid/registry"
	"github.com/pthm-cable/tilegrid/tile"
)

// Wildcard replaces the outer group of a position touched by more than
// two groups.
const Wildcard = "*"

// GroupLookup is the registry view the transition extractor needs.
type GroupLookup interface {
	GroupOrUngrouped(ref tile.Ref) string
}

// TransitionKey addresses the tiles seen at one boundary shape.
// B is the group of the centre tile, A the group around it, and Shape has
// a bit set for every neighbour that belongs to A.
type TransitionKey struct {
	A     string
	B     string
	Shape tile.Mask
}

func compareKeys(x, y TransitionKey) int {
	if c := cmp.Compare(x.A, y.A); c != 0 {
		return c
	}
	if c := cmp.Compare(x.B, y.B); c != 0 {
		return c
	}
	return cmp.Compare(x.Shape, y.Shape)
}

// Ambiguity flags a position where more than two groups meet. It is kept
// for manual review; no tie-break is applied.
type Ambiguity struct {
	Level  int
	At     tile.Point
	Center tile.Ref
	Groups []string // sorted, centre group included
}

// TransitionTable maps boundary shapes to the centre tiles observed there.
type TransitionTable struct {
	sets map[TransitionKey]mapset.Set[tile.Ref]

	// Ambiguities lists positions recorded under a Wildcard key.
	Ambiguities []Ambiguity
}

// TransitionRecord is one flattened (groupA, groupB, shape, tile) entry.
type TransitionRecord struct {
	Key  TransitionKey
	Tile tile.Ref
}

// NewTransitionTable creates an empty table.
func NewTransitionTable() *TransitionTable {
	return &TransitionTable{sets: make(map[TransitionKey]mapset.Set[tile.Ref])}
}

// ExtractTransitions records the centre tile of every boundary position in
// the corpus. Positions on the rim of a grid are skipped because their
// neighbourhood is incomplete.
func ExtractTransitions(grids []tile.Reader, groups GroupLookup) *TransitionTable {
	t := NewTransitionTable()
	for level, g := range grids {
		t.addGrid(level, g, groups)
	}
	return t
}

func (t *TransitionTable) addGrid(level int, g tile.Reader, groups GroupLookup) {
	w, h := g.Bounds()
	var around [tile.NumDirections]string
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := g.TileAt(x, y)
			cg := groups.GroupOrUngrouped(center)

			other, found, multi := "", false, false
			for _, d := range tile.Directions {
				n, _ := tile.Neighbor(g, x, y, d)
				ng := groups.GroupOrUngrouped(n)
				around[d] = ng
				switch {
				case ng == cg:
				case !found:
					other, found = ng, true
				case ng != other:
					multi = true
				}
			}

			switch {
			case !found:
				continue
			case !multi:
				var shape tile.Mask
				for _, d := range tile.Directions {
					if around[d] == other {
						shape = shape.With(d)
					}
				}
				t.Add(TransitionKey{A: other, B: cg, Shape: shape}, center)
			default:
				var shape tile.Mask
				seen := []string{cg}
				for _, d := range tile.Directions {
					if around[d] != cg {
						shape = shape.With(d)
					}
					if !slices.Contains(seen, around[d]) {
						seen = append(seen, around[d])
					}
				}
				slices.Sort(seen)
				t.Add(TransitionKey{A: Wildcard, B: cg, Shape: shape}, center)
				t.Ambiguities = append(t.Ambiguities, Ambiguity{
					Level:  level,
					At:     tile.P(x, y),
					Center: center,
					Groups: seen,
				})
			}
		}
	}
}

// Add records ref under key.
func (t *TransitionTable) Add(key TransitionKey, ref tile.Ref) {
	set, ok := t.sets[key]
	if !ok {
		set = mapset.New[tile.Ref]()
		t.sets[key] = set
	}
	set.Put(ref)
}

// Tiles returns the tiles recorded under key, sorted.
func (t *TransitionTable) Tiles(key TransitionKey) []tile.Ref {
	set, ok := t.sets[key]
	if !ok {
		return nil
	}
	out := make([]tile.Ref, 0, set.Size())
	set.Each(func(r tile.Ref) {
		out = append(out, r)
	})
	tile.SortRefs(out)
	return out
}

// Keys returns all keys, sorted by A, B, Shape.
func (t *TransitionTable) Keys() []TransitionKey {
	keys := make([]TransitionKey, 0, len(t.sets))
	for k := range t.sets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// KeysFor returns the keys of one ordered group pair, sorted by shape.
func (t *TransitionTable) KeysFor(a, b string) []TransitionKey {
	var keys []TransitionKey
	for k := range t.sets {
		if k.A == a && k.B == b {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Len returns the number of keys.
func (t *TransitionTable) Len() int {
	return len(t.sets)
}

// Equal compares keys and tile sets. Ambiguity lists are not compared.
func (t *TransitionTable) Equal(o *TransitionTable) bool {
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

// Records flattens the table in key order, then tile order.
func (t *TransitionTable) Records() []TransitionRecord {
	var out []TransitionRecord
	for _, k := range t.Keys() {
		for _, r := range t.Tiles(k) {
			out = append(out, TransitionRecord{Key: k, Tile: r})
		}
	}
	return out
}

// TransitionsFromRecords rebuilds a table from flattened records.
func TransitionsFromRecords(records []TransitionRecord) *TransitionTable {
	t := NewTransitionTable()
	for _, r := range records {
		t.Add(r.Key, r.Tile)
	}
	return t
}

// ensure the registry satisfies the lookup used here.
var _ GroupLookup = (*registry.Registry)(nil)
