package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/tilegrid/pathfind"
)

// PathWindow accumulates search results between flushes.
type PathWindow struct {
	expanded []float64
	costs    []float64
	failures map[pathfind.FailReason]int
	searches int
}

// NewPathWindow creates an empty window.
func NewPathWindow() *PathWindow {
	return &PathWindow{failures: make(map[pathfind.FailReason]int)}
}

// Record adds one search result.
func (w *PathWindow) Record(r pathfind.Result) {
	w.searches++
	w.expanded = append(w.expanded, float64(r.Expanded))
	if r.Reachable {
		w.costs = append(w.costs, r.Cost)
		return
	}
	w.failures[r.Reason]++
}

// PathStats holds aggregated search statistics for a window.
type PathStats struct {
	WindowEnd    int32   `csv:"window_end"`
	Searches     int     `csv:"searches"`
	Reachable    int     `csv:"reachable"`
	Exhausted    int     `csv:"exhausted"`
	CapReached   int     `csv:"cap_reached"`
	GoalRejected int     `csv:"goal_rejected"` // blocked, occupied or off grid
	ExpandedMean float64 `csv:"expanded_mean"`
	ExpandedP50  float64 `csv:"expanded_p50"`
	ExpandedP90  float64 `csv:"expanded_p90"`
	CostMean     float64 `csv:"cost_mean"`
	CostStd      float64 `csv:"cost_std"`
}

// Flush computes statistics and resets the window.
func (w *PathWindow) Flush(windowEnd int32) PathStats {
	s := PathStats{
		WindowEnd:    windowEnd,
		Searches:     w.searches,
		Reachable:    len(w.costs),
		Exhausted:    w.failures[pathfind.Exhausted],
		CapReached:   w.failures[pathfind.CapReached],
		GoalRejected: w.failures[pathfind.GoalBlocked] + w.failures[pathfind.GoalOccupied] + w.failures[pathfind.OutOfBounds],
	}
	if len(w.expanded) > 0 {
		sorted := slices.Clone(w.expanded)
		slices.Sort(sorted)
		s.ExpandedMean = stat.Mean(sorted, nil)
		s.ExpandedP50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		s.ExpandedP90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	}
	if len(w.costs) > 0 {
		s.CostMean, s.CostStd = stat.MeanStdDev(w.costs, nil)
	}

	w.expanded = w.expanded[:0]
	w.costs = w.costs[:0]
	clear(w.failures)
	w.searches = 0
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PathStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", int(s.WindowEnd)),
		slog.Int("searches", s.Searches),
		slog.Int("reachable", s.Reachable),
		slog.Int("exhausted", s.Exhausted),
		slog.Int("cap_reached", s.CapReached),
		slog.Int("goal_rejected", s.GoalRejected),
		slog.Float64("expanded_mean", s.ExpandedMean),
		slog.Float64("expanded_p50", s.ExpandedP50),
		slog.Float64("expanded_p90", s.ExpandedP90),
		slog.Float64("cost_mean", s.CostMean),
		slog.Float64("cost_std", s.CostStd),
	)
}
