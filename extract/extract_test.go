package extract

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pthm-cable/tilegrid/registry"
	"github.com/pthm-cable/tilegrid/tile"
)

var (
	grass1 = tile.R(0, 1)
	grass2 = tile.R(0, 2)
	water  = tile.R(0, 9)
	sand   = tile.R(0, 5)
)

func groups() *registry.Registry {
	r := registry.New()
	r.AssignGroup(grass1, "ground")
	r.AssignGroup(grass2, "ground")
	r.AssignGroup(water, "water")
	r.AssignGroup(sand, "sand")
	return r
}

func mustGrid(t *testing.T, rows ...[]tile.Ref) *tile.Grid {
	t.Helper()
	g, err := tile.GridFromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// corpus returns three small levels with overlapping tile usage.
func corpus(t *testing.T) []tile.Reader {
	return []tile.Reader{
		mustGrid(t,
			[]tile.Ref{grass1, grass1, grass2},
			[]tile.Ref{grass1, water, grass2},
			[]tile.Ref{grass2, grass1, grass1},
		),
		mustGrid(t,
			[]tile.Ref{water, water, water, water},
			[]tile.Ref{water, grass1, grass1, water},
			[]tile.Ref{water, water, water, water},
		),
		mustGrid(t,
			[]tile.Ref{sand, grass1},
			[]tile.Ref{water, grass2},
		),
	}
}

// TestConstraintsRecordNeighbors verifies neighbour sets and the edge sentinel.
func TestConstraintsRecordNeighbors(t *testing.T) {
	g := mustGrid(t,
		[]tile.Ref{grass1, water},
		[]tile.Ref{sand, grass2},
	)
	ct := ExtractConstraints([]tile.Reader{g})

	if got := ct.Neighbors(grass1, tile.East); len(got) != 1 || got[0] != water {
		t.Errorf("grass1 east = %v, want [water]", got)
	}
	if got := ct.Neighbors(grass1, tile.SouthEast); len(got) != 1 || got[0] != grass2 {
		t.Errorf("grass1 south-east = %v, want [grass2]", got)
	}
	if got := ct.Neighbors(grass1, tile.North); len(got) != 1 || got[0] != tile.EdgeOfMap {
		t.Errorf("grass1 north = %v, want [edge]", got)
	}

	allowed, recorded := ct.Allows(grass1, tile.East, sand)
	if allowed || !recorded {
		t.Errorf("Allows(grass1 E sand) = %v,%v, want false,true", allowed, recorded)
	}
	allowed, recorded = ct.Allows(tile.R(7, 7), tile.East, sand)
	if !allowed || recorded {
		t.Errorf("Allows(unknown) = %v,%v, want true,false", allowed, recorded)
	}
	if ct.Len() != 4*8 {
		t.Errorf("Len = %d, want %d", ct.Len(), 4*8)
	}
}

// TestConstraintsOrderIndependent verifies permuting the corpus yields an equal table.
func TestConstraintsOrderIndependent(t *testing.T) {
	c := corpus(t)
	base := ExtractConstraints(c)

	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}
	for _, p := range perms {
		permuted := []tile.Reader{c[p[0]], c[p[1]], c[p[2]]}
		if got := ExtractConstraints(permuted); !got.Equal(base) {
			t.Errorf("permutation %v produced a different table", p)
		}
	}

	twice := ExtractConstraints(append(c, c...))
	if !twice.Equal(base) {
		t.Error("repeating the corpus should not change the table")
	}
}

func TestConstraintsEmptyCorpus(t *testing.T) {
	ct := ExtractConstraints(nil)
	if ct.Len() != 0 {
		t.Errorf("empty corpus Len = %d, want 0", ct.Len())
	}
	if got := ct.Neighbors(grass1, tile.East); got != nil {
		t.Errorf("Neighbors on empty table = %v, want nil", got)
	}
}

func TestConstraintRecordsRoundTrip(t *testing.T) {
	ct := ExtractConstraints(corpus(t))
	back := ConstraintsFromRecords(ct.Records())
	if !back.Equal(ct) {
		t.Error("table rebuilt from records differs")
	}
}

// TestTransitionsCenteredWater checks the water-in-ground scenario. The
// recorded tile is the centre (water), not the surrounding ground tile.
func TestTransitionsCenteredWater(t *testing.T) {
	g := mustGrid(t,
		[]tile.Ref{grass1, grass1, grass1},
		[]tile.Ref{grass1, water, grass1},
		[]tile.Ref{grass1, grass1, grass1},
	)
	tt := ExtractTransitions([]tile.Reader{g}, groups())

	if tt.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (keys %v)", tt.Len(), tt.Keys())
	}
	key := TransitionKey{A: "ground", B: "water", Shape: tile.Full}
	got := tt.Tiles(key)
	if len(got) != 1 || got[0] != water {
		t.Errorf("Tiles(%v) = %v, want [%v]", key, got, water)
	}
	if len(tt.Ambiguities) != 0 {
		t.Errorf("unexpected ambiguities: %v", tt.Ambiguities)
	}
}

func TestTransitionsShape(t *testing.T) {
	// Shore: water row on top, ground below.
	g := mustGrid(t,
		[]tile.Ref{water, water, water},
		[]tile.Ref{grass1, grass2, grass1},
		[]tile.Ref{grass1, grass1, grass1},
	)
	tt := ExtractTransitions([]tile.Reader{g}, groups())
	key := TransitionKey{A: "water", B: "ground", Shape: tile.MaskOf(tile.NorthWest, tile.North, tile.NorthEast)}
	if got := tt.Tiles(key); len(got) != 1 || got[0] != grass2 {
		t.Errorf("Tiles(%v) = %v, want [%v]; keys %v", key, got, grass2, tt.Keys())
	}
}

// TestTransitionsAmbiguity verifies three-group positions go to the wildcard key.
func TestTransitionsAmbiguity(t *testing.T) {
	g := mustGrid(t,
		[]tile.Ref{water, water, water},
		[]tile.Ref{grass1, grass1, grass1},
		[]tile.Ref{sand, sand, sand},
	)
	tt := ExtractTransitions([]tile.Reader{g}, groups())

	if len(tt.Ambiguities) != 1 {
		t.Fatalf("Ambiguities = %v, want 1 entry", tt.Ambiguities)
	}
	amb := tt.Ambiguities[0]
	if amb.At != tile.P(1, 1) || amb.Center != grass1 {
		t.Errorf("ambiguity at %v center %v", amb.At, amb.Center)
	}
	want := []string{"ground", "sand", "water"}
	for i := range want {
		if amb.Groups[i] != want[i] {
			t.Fatalf("Groups = %v, want %v", amb.Groups, want)
		}
	}
	wild := tt.KeysFor(Wildcard, "ground")
	if len(wild) != 1 {
		t.Fatalf("wildcard keys = %v", wild)
	}
	if wild[0].Shape != tile.MaskOf(tile.NorthEast, tile.North, tile.NorthWest, tile.SouthWest, tile.South, tile.SouthEast) {
		t.Errorf("wildcard shape = %v", wild[0].Shape)
	}
}

// TestTransitionsUngrouped verifies boundaries against unassigned tiles are captured.
func TestTransitionsUngrouped(t *testing.T) {
	stray := tile.R(4, 4)
	g := mustGrid(t,
		[]tile.Ref{stray, stray, stray},
		[]tile.Ref{stray, grass1, stray},
		[]tile.Ref{stray, stray, stray},
	)
	tt := ExtractTransitions([]tile.Reader{g}, groups())
	key := TransitionKey{A: registry.Ungrouped, B: "ground", Shape: tile.Full}
	if got := tt.Tiles(key); len(got) != 1 {
		t.Errorf("Tiles(%v) = %v, want one tile", key, got)
	}
}

// TestTransitionsIdempotent verifies two runs over the same corpus agree.
func TestTransitionsIdempotent(t *testing.T) {
	c := corpus(t)
	reg := groups()
	a := ExtractTransitions(c, reg)
	b := ExtractTransitions(c, reg)
	if !a.Equal(b) {
		t.Error("two extractions over the same corpus differ")
	}
	if !TransitionsFromRecords(a.Records()).Equal(a) {
		t.Error("table rebuilt from records differs")
	}
}

func TestTablesRebuild(t *testing.T) {
	tables := NewTables()
	if tables.Constraints().Len() != 0 || tables.Transitions().Len() != 0 {
		t.Fatal("new tables should be empty")
	}

	stats, err := tables.Rebuild(context.Background(), corpus(t), groups())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Levels != 3 || stats.Constraints == 0 {
		t.Errorf("stats = %+v", stats)
	}
	if tables.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", tables.Generation())
	}
	if !tables.Constraints().Equal(ExtractConstraints(corpus(t))) {
		t.Error("published constraints differ from a direct extraction")
	}
}

// TestTablesRebuildCancelled verifies a cancelled rebuild keeps the previous tables.
func TestTablesRebuildCancelled(t *testing.T) {
	tables := NewTables()
	before := tables.Constraints()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tables.Rebuild(ctx, corpus(t), groups())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Rebuild error = %v, want context.Canceled", err)
	}
	if tables.Constraints() != before {
		t.Error("cancelled rebuild should not swap tables")
	}
	if tables.Generation() != 0 {
		t.Errorf("Generation = %d, want 0", tables.Generation())
	}
}

func TestTablesSwapPublishesPairs(t *testing.T) {
	tables := NewTables()
	cs := []*ConstraintTable{NewConstraintTable(), NewConstraintTable()}
	ts := []*TransitionTable{NewTransitionTable(), NewTransitionTable()}
	tables.Swap(cs[0], ts[0])

	var (
		wg   sync.WaitGroup
		stop atomic.Bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 20000; i++ {
			tables.Swap(cs[i%2], ts[i%2])
		}
		stop.Store(true)
	}()

	mixed := 0
	for !stop.Load() {
		set := tables.Snapshot()
		if (set.Constraints == cs[0]) != (set.Transitions == ts[0]) {
			mixed++
		}
	}
	wg.Wait()

	if mixed != 0 {
		t.Errorf("mixed pairs observed %d times", mixed)
	}
	set := tables.Snapshot()
	if set.Generation != 20001 {
		t.Errorf("Generation = %d, want 20001", set.Generation)
	}
	if set.Constraints != cs[1] || set.Transitions != ts[1] {
		t.Error("last swap not published")
	}
}
