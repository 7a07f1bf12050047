package pathfind

import (
	"fmt"
	"math"

	"github.com/pthm-cable/tilegrid/tile"
)

// Heuristic estimates the remaining cost from a to b. It should not
// overestimate for the search to return optimal paths; an overestimating
// heuristic still terminates but may return a longer path.
type Heuristic func(a, b tile.Point) float64

func deltas(a, b tile.Point) (dx, dy float64) {
	return math.Abs(float64(b.X - a.X)), math.Abs(float64(b.Y - a.Y))
}

// Octile is exact on an open 8-way grid with unit costs.
func Octile(a, b tile.Point) float64 {
	dx, dy := deltas(a, b)
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

// Manhattan is exact on an open 4-way grid with unit costs.
func Manhattan(a, b tile.Point) float64 {
	dx, dy := deltas(a, b)
	return dx + dy
}

// Euclidean is the straight-line distance.
func Euclidean(a, b tile.Point) float64 {
	dx, dy := deltas(a, b)
	return math.Sqrt(dx*dx + dy*dy)
}

// SquaredEuclidean overestimates beyond one tile. It expands fewer nodes
// at the price of optimality.
func SquaredEuclidean(a, b tile.Point) float64 {
	dx, dy := deltas(a, b)
	return dx*dx + dy*dy
}

// HeuristicByName maps a config name to a heuristic. "" selects Octile.
func HeuristicByName(name string) (Heuristic, error) {
	switch name {
	case "", "octile":
		return Octile, nil
	case "manhattan":
		return Manhattan, nil
	case "euclidean":
		return Euclidean, nil
	case "squared_euclidean":
		return SquaredEuclidean, nil
	default:
		return nil, fmt.Errorf("unknown heuristic %q", name)
	}
}
