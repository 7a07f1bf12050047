package movers

import (
	"errors"
	"testing"

	"github.com/pthm-cable/tilegrid/collision"
	"github.com/pthm-cable/tilegrid/pathfind"
	"github.com/pthm-cable/tilegrid/registry"
	"github.com/pthm-cable/tilegrid/telemetry"
	"github.com/pthm-cable/tilegrid/tile"
)

var (
	floor = tile.R(0, 0)
	wall  = tile.R(0, 1)
)

func costs(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.AssignGroup(floor, "floor")
	r.AssignGroup(wall, "wall")
	if err := r.BindCategory("wall", collision.Category{Name: "solid", Blocking: true}); err != nil {
		t.Fatal(err)
	}
	return r
}

func runUntilDone(w *World, limit int) int {
	for i := 1; i <= limit; i++ {
		w.Tick()
		if w.Done() {
			return i
		}
	}
	return -1
}

func TestMoverWalksToGoal(t *testing.T) {
	g := tile.NewGrid(6, 6, floor)
	w := NewWorld(g, costs(t), pathfind.DefaultOptions(), Options{MaxRepaths: 3})

	e, err := w.Spawn(tile.P(0, 0), tile.P(5, 5))
	if err != nil {
		t.Fatal(err)
	}
	// Five diagonal steps.
	if got := runUntilDone(w, 20); got != 5 {
		t.Errorf("ticks = %d, want 5", got)
	}
	s, ok := w.Get(e)
	if !ok {
		t.Fatal("mover missing")
	}
	if s.At != tile.P(5, 5) || !s.Arrived || s.Plans != 1 {
		t.Errorf("status = %+v", s)
	}
	if w.IsOccupied(0, 0) || !w.IsOccupied(5, 5) {
		t.Error("occupancy index not updated")
	}
}

func TestSpawnErrors(t *testing.T) {
	g := tile.NewGrid(3, 3, floor)
	g.Set(tile.P(1, 1), wall)
	w := NewWorld(g, costs(t), pathfind.DefaultOptions(), Options{})
	if _, err := w.Spawn(tile.P(0, 0), tile.P(2, 2)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		at   tile.Point
		want error
	}{
		{"off grid", tile.P(3, 0), ErrOffGrid},
		{"blocking", tile.P(1, 1), ErrBlocked},
		{"occupied", tile.P(0, 0), ErrOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Spawn(tt.at, tile.P(2, 2))
			if !errors.Is(err, tt.want) {
				t.Errorf("Spawn = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplanAroundNewcomer(t *testing.T) {
	g := tile.NewGrid(5, 3, floor)
	w := NewWorld(g, costs(t), pathfind.DefaultOptions(), Options{MaxRepaths: 3})

	a, err := w.Spawn(tile.P(0, 1), tile.P(4, 1))
	if err != nil {
		t.Fatal(err)
	}
	w.Tick()
	if s, _ := w.Get(a); s.At != tile.P(1, 1) {
		t.Fatalf("after first tick at %v, want (1,1)", s.At)
	}

	// A stationary mover lands on the next step of the planned path.
	if _, err := w.Spawn(tile.P(2, 1), tile.P(2, 1)); err != nil {
		t.Fatal(err)
	}
	stats := w.Tick()
	if stats.Planned != 1 || stats.Moved != 1 {
		t.Errorf("stats = %+v, want one replan and one move", stats)
	}
	s, _ := w.Get(a)
	if s.At == tile.P(2, 1) || s.At == tile.P(1, 1) {
		t.Errorf("mover at %v after replanning", s.At)
	}
	if s.Plans != 2 {
		t.Errorf("Plans = %d, want 2", s.Plans)
	}

	if runUntilDone(w, 20) < 0 {
		t.Fatal("movers did not settle")
	}
	if s, _ := w.Get(a); s.At != tile.P(4, 1) {
		t.Errorf("final position = %v, want (4,1)", s.At)
	}
}

func TestOccupiedGoalGivesUp(t *testing.T) {
	g := tile.NewGrid(4, 1, floor)
	w := NewWorld(g, costs(t), pathfind.DefaultOptions(), Options{MaxRepaths: 3})

	a, _ := w.Spawn(tile.P(0, 0), tile.P(3, 0))
	if _, err := w.Spawn(tile.P(3, 0), tile.P(3, 0)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if st := w.Tick(); st.Planned != 1 || st.Moved != 0 {
			t.Fatalf("tick %d stats = %+v", i+1, st)
		}
	}
	st := w.Tick()
	if st.Stuck != 1 {
		t.Errorf("Stuck = %d, want 1", st.Stuck)
	}
	s, _ := w.Get(a)
	if !s.Stuck || s.Reason != pathfind.GoalOccupied || s.At != tile.P(0, 0) {
		t.Errorf("status = %+v", s)
	}
	if !w.Done() {
		t.Error("Done = false with every mover settled")
	}
}

func TestStepBudgetSpreadsSearch(t *testing.T) {
	g := tile.NewGrid(10, 1, floor)
	window := telemetry.NewPathWindow()
	perf := telemetry.NewPerfCollector(8)
	w := NewWorld(g, costs(t), pathfind.DefaultOptions(), Options{
		MaxRepaths: 3,
		StepBudget: 2,
		Perf:       perf,
		Paths:      window,
	})
	e, _ := w.Spawn(tile.P(0, 0), tile.P(9, 0))

	first := w.Tick()
	if first.Planned != 1 || first.Waiting != 1 || first.Moved != 0 {
		t.Errorf("first tick = %+v, want a pending search", first)
	}
	if runUntilDone(w, 40) < 0 {
		t.Fatal("mover did not arrive")
	}
	if s, _ := w.Get(e); s.At != tile.P(9, 0) || s.Plans != 1 {
		t.Errorf("status = %+v", s)
	}

	ps := window.Flush(1)
	if ps.Searches != 1 || ps.Reachable != 1 || ps.CostMean != 9 {
		t.Errorf("path stats = %+v", ps)
	}
	if _, ok := perf.Stats().PhaseAvg[telemetry.PhasePlan]; !ok {
		t.Error("plan phase not timed")
	}
}

func TestRemoveAndRetarget(t *testing.T) {
	g := tile.NewGrid(4, 4, floor)
	w := NewWorld(g, costs(t), pathfind.DefaultOptions(), Options{MaxRepaths: 2})
	a, _ := w.Spawn(tile.P(0, 0), tile.P(0, 0))
	b, _ := w.Spawn(tile.P(3, 3), tile.P(3, 3))

	w.Remove(b)
	if w.IsOccupied(3, 3) {
		t.Error("removed mover still occupies its cell")
	}
	if _, ok := w.Get(b); ok {
		t.Error("Get found a removed mover")
	}

	w.Retarget(a, tile.P(3, 3))
	if runUntilDone(w, 10) != 3 {
		t.Error("retargeted mover did not walk three diagonal steps")
	}
	snaps := w.Statuses()
	if len(snaps) != 1 || snaps[0].ID != 0 || snaps[0].At != tile.P(3, 3) {
		t.Errorf("Statuses = %+v", snaps)
	}
}

func TestSnapshotSaveRestore(t *testing.T) {
	g := tile.NewGrid(6, 3, floor)
	reg := costs(t)
	w := NewWorld(g, reg, pathfind.DefaultOptions(), Options{MaxRepaths: 3})
	w.Spawn(tile.P(0, 0), tile.P(5, 0))
	w.Spawn(tile.P(0, 2), tile.P(5, 2))
	w.Tick()
	w.Tick()

	path, err := SaveSnapshot(w.Capture(7), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snap, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Seed != 7 || snap.Tick != 2 || len(snap.Movers) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	restored, err := Restore(snap, g, reg, pathfind.DefaultOptions(), Options{MaxRepaths: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !restored.IsOccupied(2, 0) || !restored.IsOccupied(2, 2) {
		t.Error("restored movers not in the occupancy index")
	}
	if runUntilDone(restored, 10) != 3 {
		t.Error("restored movers did not finish in three ticks")
	}
	if _, err := restored.Spawn(tile.P(1, 1), tile.P(1, 1)); err != nil {
		t.Fatal(err)
	}
	if ids := restored.Statuses(); ids[2].ID != 2 {
		t.Errorf("new mover ID = %d, want 2", ids[2].ID)
	}

	if _, err := Restore(snap, tile.NewGrid(3, 3, floor), reg, pathfind.DefaultOptions(), Options{}); err == nil {
		t.Error("expected a size mismatch error")
	}
}
