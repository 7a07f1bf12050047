// Package movers runs grid-bound agents that plan with A* and walk their
// paths one cell per tick, replanning when another mover steps into the way.
package movers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/tilegrid/pathfind"
	"github.com/pthm-cable/tilegrid/telemetry"
	"github.com/pthm-cable/tilegrid/tile"
)

// ID is a stable mover number, independent of entity recycling.
type ID struct {
	N uint32
}

// Cell is the grid cell a mover stands on.
type Cell struct {
	X, Y int
}

// Point converts the component to a tile point.
func (c Cell) Point() tile.Point {
	return tile.P(c.X, c.Y)
}

// Route is a mover's goal and the path it is walking.
type Route struct {
	Goal     tile.Point
	Path     pathfind.Result
	Planned  bool
	Attempts int // plans since the last successful step
	Plans    int
	Arrived  bool
	Stuck    bool

	search *pathfind.Search
}

// Options configures a World.
type Options struct {
	// MaxRepaths is how many plans a mover may make without progress
	// before it gives up.
	MaxRepaths int
	// StepBudget caps node expansions per mover per tick. Zero or less
	// runs each search to completion in one tick.
	StepBudget int

	Perf  *telemetry.PerfCollector
	Paths *telemetry.PathWindow
}

var (
	ErrOffGrid  = errors.New("cell is off the grid")
	ErrBlocked  = errors.New("cell is blocking")
	ErrOccupied = errors.New("cell is occupied")
)

// World holds movers and the occupancy index they plan against.
type World struct {
	world   *ecs.World
	mapper  *ecs.Map3[ID, Cell, Route]
	filter  *ecs.Filter3[ID, Cell, Route]
	cellMap *ecs.Map1[Cell]
	routes  *ecs.Map1[Route]

	grid    tile.Reader
	costs   pathfind.Costs
	planner *pathfind.Planner
	opts    Options

	width, height int
	occupied      []ecs.Entity // flat index gy*width+gx; zero entity when free

	nextID uint32
	tick   int32
	order  []ecs.Entity
}

// NewWorld creates an empty world over grid.
func NewWorld(grid tile.Reader, costs pathfind.Costs, popts pathfind.Options, opts Options) *World {
	world := ecs.NewWorld()
	w, h := grid.Bounds()
	return &World{
		world:    world,
		mapper:   ecs.NewMap3[ID, Cell, Route](world),
		filter:   ecs.NewFilter3[ID, Cell, Route](world),
		cellMap:  ecs.NewMap1[Cell](world),
		routes:   ecs.NewMap1[Route](world),
		grid:     grid,
		costs:    costs,
		planner:  pathfind.NewPlanner(grid, costs, popts),
		opts:     opts,
		width:    w,
		height:   h,
		occupied: make([]ecs.Entity, w*h),
	}
}

// Spawn places a mover at 'at' heading for goal.
func (w *World) Spawn(at, goal tile.Point) (ecs.Entity, error) {
	if err := w.checkCell(at); err != nil {
		return ecs.Entity{}, fmt.Errorf("spawn at %v: %w", at, err)
	}
	id := ID{N: w.nextID}
	w.nextID++
	cell := Cell{X: at.X, Y: at.Y}
	route := Route{Goal: goal}
	e := w.mapper.NewEntity(&id, &cell, &route)
	w.occupied[w.index(at)] = e
	return e, nil
}

func (w *World) checkCell(p tile.Point) error {
	if p.X < 0 || p.Y < 0 || p.X >= w.width || p.Y >= w.height {
		return ErrOffGrid
	}
	if w.costs.IsBlocking(w.grid.TileAt(p.X, p.Y)) {
		return ErrBlocked
	}
	if w.occupied[w.index(p)] != (ecs.Entity{}) {
		return ErrOccupied
	}
	return nil
}

// Retarget gives a mover a new goal and drops its current path.
func (w *World) Retarget(e ecs.Entity, goal tile.Point) {
	if !w.world.Alive(e) {
		return
	}
	r := w.routes.Get(e)
	*r = Route{Goal: goal}
}

// Remove deletes a mover and frees its cell.
func (w *World) Remove(e ecs.Entity) {
	if !w.world.Alive(e) {
		return
	}
	c := w.cellMap.Get(e)
	if i := w.index(c.Point()); w.occupied[i] == e {
		w.occupied[i] = ecs.Entity{}
	}
	w.world.RemoveEntity(e)
}

func (w *World) index(p tile.Point) int {
	return p.Y*w.width + p.X
}

// IsOccupied implements pathfind.Occupancy over every mover.
func (w *World) IsOccupied(x, y int) bool {
	if x < 0 || y < 0 || x >= w.width || y >= w.height {
		return false
	}
	return w.occupied[y*w.width+x] != (ecs.Entity{})
}

// occupancyFor hides self so a mover never blocks its own search.
func (w *World) occupancyFor(self ecs.Entity) pathfind.Occupancy {
	return pathfind.OccupancyFunc(func(x, y int) bool {
		if x < 0 || y < 0 || x >= w.width || y >= w.height {
			return false
		}
		e := w.occupied[y*w.width+x]
		return e != (ecs.Entity{}) && e != self
	})
}

// TickStats summarises one tick.
type TickStats struct {
	Tick    int32
	Moved   int
	Planned int
	Waiting int
	Arrived int
	Stuck   int
}

// LogValue implements slog.LogValuer for structured logging.
func (s TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", int(s.Tick)),
		slog.Int("moved", s.Moved),
		slog.Int("planned", s.Planned),
		slog.Int("waiting", s.Waiting),
		slog.Int("arrived", s.Arrived),
		slog.Int("stuck", s.Stuck),
	)
}

// Tick advances every mover by at most one cell. Movers act in entity
// order, each seeing the moves made before it in the same tick.
func (w *World) Tick() TickStats {
	w.tick++
	stats := TickStats{Tick: w.tick}
	w.startTick()

	w.phase(telemetry.PhaseOccupancy)
	w.order = w.order[:0]
	clear(w.occupied)
	query := w.filter.Query()
	for query.Next() {
		e := query.Entity()
		_, cell, _ := query.Get()
		w.occupied[w.index(cell.Point())] = e
		w.order = append(w.order, e)
	}

	for _, e := range w.order {
		w.advance(e, &stats)
	}

	w.endTick()
	return stats
}

func (w *World) advance(e ecs.Entity, stats *TickStats) {
	cell := w.cellMap.Get(e)
	route := w.routes.Get(e)
	at := cell.Point()

	switch {
	case route.Stuck:
		stats.Stuck++
		return
	case at == route.Goal:
		route.Arrived = true
		stats.Arrived++
		return
	}

	occ := w.occupancyFor(e)
	if route.search != nil || !route.Planned || !route.Path.Valid(occ) {
		if route.search == nil {
			if route.Attempts >= w.maxRepaths() {
				route.Stuck = true
				stats.Stuck++
				return
			}
			route.search = w.planner.Start(at, route.Goal, occ)
			route.Attempts++
			route.Plans++
			stats.Planned++
		}
		w.phase(telemetry.PhasePlan)
		if route.search.Step(w.opts.StepBudget) == pathfind.Expanding {
			stats.Waiting++
			return
		}
		res := route.search.Result()
		route.search = nil
		if w.opts.Paths != nil {
			w.opts.Paths.Record(res)
		}
		pathfind.Notify(&agent{route: route}, res)
		// A search spread over several ticks may have been overtaken.
		if !res.Valid(occ) {
			stats.Waiting++
			return
		}
	}

	w.phase(telemetry.PhaseMove)
	next, ok := route.Path.Next()
	if !ok {
		stats.Waiting++
		return
	}
	w.occupied[w.index(at)] = ecs.Entity{}
	w.occupied[w.index(next)] = e
	cell.X, cell.Y = next.X, next.Y
	route.Path.Steps = route.Path.Steps[1:]
	route.Path.From = next
	route.Attempts = 0
	stats.Moved++
	if next == route.Goal {
		route.Arrived = true
	}
}

func (w *World) maxRepaths() int {
	if w.opts.MaxRepaths < 1 {
		return 1
	}
	return w.opts.MaxRepaths
}

func (w *World) startTick() {
	if w.opts.Perf != nil {
		w.opts.Perf.StartTick()
	}
}

func (w *World) phase(name string) {
	if w.opts.Perf != nil {
		w.opts.Perf.StartPhase(name)
	}
}

func (w *World) endTick() {
	if w.opts.Perf != nil {
		w.opts.Perf.EndTick()
	}
}

// agent receives search results for one mover's route.
type agent struct {
	route *Route
}

func (a *agent) PathFound(r pathfind.Result) {
	a.route.Path = r
	a.route.Planned = true
}

func (a *agent) PathFailed(r pathfind.Result) {
	a.route.Path = r
	a.route.Planned = false
}

var _ pathfind.Mover = (*agent)(nil)

// Status is a read-only view of one mover.
type Status struct {
	ID      uint32
	At      tile.Point
	Goal    tile.Point
	Steps   int
	Plans   int
	Arrived bool
	Stuck   bool
	Reason  pathfind.FailReason
}

// Statuses lists movers in entity order.
func (w *World) Statuses() []Status {
	var out []Status
	query := w.filter.Query()
	for query.Next() {
		id, cell, route := query.Get()
		out = append(out, Status{
			ID:      id.N,
			At:      cell.Point(),
			Goal:    route.Goal,
			Steps:   len(route.Path.Steps),
			Plans:   route.Plans,
			Arrived: route.Arrived,
			Stuck:   route.Stuck,
			Reason:  route.Path.Reason,
		})
	}
	return out
}

// Get returns the status of one mover.
func (w *World) Get(e ecs.Entity) (Status, bool) {
	if !w.world.Alive(e) {
		return Status{}, false
	}
	id, cell, route := w.mapper.Get(e)
	return Status{
		ID:      id.N,
		At:      cell.Point(),
		Goal:    route.Goal,
		Steps:   len(route.Path.Steps),
		Plans:   route.Plans,
		Arrived: route.Arrived,
		Stuck:   route.Stuck,
		Reason:  route.Path.Reason,
	}, true
}

// Done reports whether every mover has arrived or given up.
func (w *World) Done() bool {
	query := w.filter.Query()
	for query.Next() {
		_, _, route := query.Get()
		if !route.Arrived && !route.Stuck {
			query.Close()
			return false
		}
	}
	return true
}
