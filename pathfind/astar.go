// Package pathfind implements resumable A* search over a tile grid whose
// blocking and step costs come from the collision registry.
package pathfind

import (
	"container/heap"
	"log/slog"
	"math"

	"github.com/pthm-cable/tilegrid/tile"
)

// Costs is the registry view the planner needs.
type Costs interface {
	IsBlocking(ref tile.Ref) bool
	CostMultiplier(ref tile.Ref) float64
}

// Occupancy reports cells held by dynamic obstacles. It is queried only
// while a search runs.
type Occupancy interface {
	IsOccupied(x, y int) bool
}

// OccupancyFunc adapts a function to Occupancy.
type OccupancyFunc func(x, y int) bool

// IsOccupied implements Occupancy.
func (f OccupancyFunc) IsOccupied(x, y int) bool { return f(x, y) }

// Options configures a Planner.
type Options struct {
	Diagonal      bool // 8-way movement; false restricts to cardinals
	CutCorners    bool // allow diagonals past a blocking cardinal neighbour
	MaxExpansions int  // <= 0 means width*height
	Heuristic     Heuristic
}

// DefaultOptions returns 8-way movement without corner cutting and the
// octile heuristic.
func DefaultOptions() Options {
	return Options{Diagonal: true, Heuristic: Octile}
}

// State is the lifecycle of a Search.
type State uint8

const (
	Ready State = iota
	Expanding
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Expanding:
		return "expanding"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailReason explains an unreachable result.
type FailReason uint8

const (
	NoFailure FailReason = iota
	OutOfBounds
	GoalBlocked
	GoalOccupied
	Exhausted
	CapReached
)

func (r FailReason) String() string {
	switch r {
	case NoFailure:
		return "none"
	case OutOfBounds:
		return "out_of_bounds"
	case GoalBlocked:
		return "goal_blocked"
	case GoalOccupied:
		return "goal_occupied"
	case Exhausted:
		return "exhausted"
	case CapReached:
		return "cap_reached"
	default:
		return "unknown"
	}
}

// Result is the outcome of a search. Steps excludes the start and ends at
// the goal. An unreachable result has no steps; callers check Reachable.
type Result struct {
	From, To  tile.Point
	Steps     []tile.Point
	Reachable bool
	Cost      float64
	Expanded  int
	Reason    FailReason
}

// Next returns the first step, if any.
func (r Result) Next() (tile.Point, bool) {
	if len(r.Steps) == 0 {
		return tile.Point{}, false
	}
	return r.Steps[0], true
}

// Valid re-checks the next step against current occupancy. A path that was
// clear at search time may not be clear when the mover acts on it.
func (r Result) Valid(occ Occupancy) bool {
	if !r.Reachable {
		return false
	}
	next, ok := r.Next()
	if !ok || occ == nil {
		return true
	}
	return !occ.IsOccupied(next.X, next.Y)
}

// LogValue implements slog.LogValuer for structured logging.
func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("from", r.From.String()),
		slog.String("to", r.To.String()),
		slog.Bool("reachable", r.Reachable),
		slog.Int("steps", len(r.Steps)),
		slog.Float64("cost", r.Cost),
		slog.Int("expanded", r.Expanded),
		slog.String("reason", r.Reason.String()),
	)
}

// Planner finds paths on one grid. It holds no per-search state, so a
// planner can start any number of searches.
type Planner struct {
	grid  tile.Reader
	costs Costs
	opts  Options
}

// NewPlanner creates a planner. A nil heuristic selects Octile.
func NewPlanner(grid tile.Reader, costs Costs, opts Options) *Planner {
	if opts.Heuristic == nil {
		opts.Heuristic = Octile
	}
	return &Planner{grid: grid, costs: costs, opts: opts}
}

// Options returns the planner's options.
func (p *Planner) Options() Options {
	return p.opts
}

// FindPath runs a search to completion.
func (p *Planner) FindPath(from, to tile.Point, occ Occupancy) Result {
	s := p.Start(from, to, occ)
	s.Step(0)
	return s.Result()
}

// node is an entry in the open set.
type node struct {
	cell  int
	f     float64
	seq   uint64 // discovery order, breaks f ties
	index int    // heap index
}

// nodeHeap implements heap.Interface for the open set.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	nd := old[n-1]
	old[n-1] = nil
	nd.index = -1
	*h = old[0 : n-1]
	return nd
}

// Search is one resumable A* query. It owns its open and closed sets; the
// grid, costs and occupancy must not change while it is Expanding.
type Search struct {
	p        *Planner
	occ      Occupancy
	from, to tile.Point
	width    int
	height   int
	goal     int
	limit    int

	state    State
	result   Result
	open     nodeHeap
	openNode []*node // cell -> open entry, nil when not open
	closed   []bool
	g        []float64
	parent   []int
	seq      uint64
	expanded int
}

// Start prepares a search from from to to. Checks that need no expansion
// (bounds, a blocking or occupied goal, start == goal) settle the search
// immediately.
func (p *Planner) Start(from, to tile.Point, occ Occupancy) *Search {
	w, h := p.grid.Bounds()
	s := &Search{p: p, occ: occ, from: from, to: to, width: w, height: h}
	s.result = Result{From: from, To: to}

	switch {
	case !s.inBounds(from.X, from.Y) || !s.inBounds(to.X, to.Y):
		return s.fail(OutOfBounds)
	case p.costs.IsBlocking(p.grid.TileAt(to.X, to.Y)):
		return s.fail(GoalBlocked)
	case from == to:
		s.state = Succeeded
		s.result.Reachable = true
		return s
	case occ != nil && occ.IsOccupied(to.X, to.Y):
		return s.fail(GoalOccupied)
	}

	s.limit = p.opts.MaxExpansions
	if s.limit <= 0 {
		s.limit = w * h
	}
	n := w * h
	s.openNode = make([]*node, n)
	s.closed = make([]bool, n)
	s.g = make([]float64, n)
	s.parent = make([]int, n)
	for i := range s.g {
		s.g[i] = math.Inf(1)
		s.parent[i] = -1
	}
	s.goal = to.Y*w + to.X
	start := from.Y*w + from.X
	s.g[start] = 0
	s.push(start, p.opts.Heuristic(from, to))
	return s
}

// State returns the current state.
func (s *Search) State() State {
	return s.state
}

// Expanded returns the number of nodes expanded so far.
func (s *Search) Expanded() int {
	return s.expanded
}

// Result returns the outcome. It is only meaningful once the search has
// succeeded or failed.
func (s *Search) Result() Result {
	return s.result
}

func (s *Search) fail(reason FailReason) *Search {
	s.state = Failed
	s.result.Reachable = false
	s.result.Steps = nil
	s.result.Reason = reason
	s.result.Expanded = s.expanded
	return s
}

func (s *Search) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

// passable reports whether a cell is on the grid and not blocking.
func (s *Search) passable(x, y int) bool {
	return s.inBounds(x, y) && !s.p.costs.IsBlocking(s.p.grid.TileAt(x, y))
}

func (s *Search) push(cell int, f float64) {
	nd := &node{cell: cell, f: f, seq: s.seq}
	s.seq++
	s.openNode[cell] = nd
	heap.Push(&s.open, nd)
}

// Step expands up to budget nodes and returns the resulting state. A
// budget <= 0 runs until the search settles. Calling Step on a settled
// search is a no-op.
func (s *Search) Step(budget int) State {
	if s.state == Succeeded || s.state == Failed {
		return s.state
	}
	s.state = Expanding
	for i := 0; budget <= 0 || i < budget; i++ {
		if s.open.Len() == 0 {
			s.fail(Exhausted)
			return s.state
		}
		current := heap.Pop(&s.open).(*node)
		s.openNode[current.cell] = nil
		if current.cell == s.goal {
			s.succeed()
			return s.state
		}
		if s.expanded >= s.limit {
			s.fail(CapReached)
			return s.state
		}
		s.closed[current.cell] = true
		s.expanded++
		s.expand(current.cell)
	}
	return s.state
}

func (s *Search) expand(cell int) {
	cx, cy := cell%s.width, cell/s.width
	opts := s.p.opts
	for _, d := range tile.Directions {
		diagonal := !d.IsCardinal()
		if diagonal && !opts.Diagonal {
			continue
		}
		dx, dy := d.Offset()
		nx, ny := cx+dx, cy+dy
		if !s.passable(nx, ny) {
			continue
		}
		next := ny*s.width + nx
		if s.closed[next] {
			continue
		}
		// Corner cutting: both cardinal cells beside a diagonal must be open.
		if diagonal && !opts.CutCorners {
			if !s.passable(cx+dx, cy) || !s.passable(cx, cy+dy) {
				continue
			}
		}
		if next != s.goal && s.occ != nil && s.occ.IsOccupied(nx, ny) {
			continue
		}

		step := 1.0
		if diagonal {
			step = math.Sqrt2
		}
		tentative := s.g[cell] + step*s.p.costs.CostMultiplier(s.p.grid.TileAt(nx, ny))
		if tentative >= s.g[next] {
			continue
		}
		s.parent[next] = cell
		s.g[next] = tentative
		f := tentative + opts.Heuristic(tile.P(nx, ny), s.to)
		if nd := s.openNode[next]; nd != nil {
			nd.f = f
			heap.Fix(&s.open, nd.index)
			continue
		}
		s.push(next, f)
	}
}

func (s *Search) succeed() {
	var cells []int
	for c := s.goal; c >= 0 && s.parent[c] >= 0; c = s.parent[c] {
		cells = append(cells, c)
	}
	steps := make([]tile.Point, len(cells))
	for i, c := range cells {
		steps[len(cells)-1-i] = tile.P(c%s.width, c/s.width)
	}
	s.state = Succeeded
	s.result.Steps = steps
	s.result.Reachable = true
	s.result.Cost = s.g[s.goal]
	s.result.Expanded = s.expanded
	s.result.Reason = NoFailure
}
