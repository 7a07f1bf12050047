// Package collision evaluates per-tile collision boundaries.
//
// A Category is a named list of piecewise formulas over one tile-local axis.
// Evaluation is pure and allocation-free; range overlaps are rejected by
// Validate at load time rather than masked during evaluation.
package collision

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pthm-cable/tilegrid/tile"
)

// Axis selects which tile-local coordinate feeds the formulas.
type Axis uint8

const (
	Horizontal Axis = iota // input is local x, result is a y boundary
	Vertical               // input is local y, result is an x boundary
)

func (a Axis) String() string {
	switch a {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// ParseAxis accepts "horizontal"/"h" and "vertical"/"v".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "horizontal", "h", "":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// FormulaKind is the closed set of formula shapes.
type FormulaKind uint8

const (
	Linear FormulaKind = iota // slope*x + offset
	Flat                      // offset
	Void                      // explicitly no collision in range
	numFormulaKinds
)

var kindNames = [numFormulaKinds]string{"linear", "flat", "void"}

func (k FormulaKind) String() string {
	if k < numFormulaKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("FormulaKind(%d)", uint8(k))
}

// ParseKind maps a kind name to its FormulaKind. Empty means Linear.
func ParseKind(s string) (FormulaKind, error) {
	if s == "" {
		return Linear, nil
	}
	for i, name := range kindNames {
		if name == s {
			return FormulaKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown formula kind %q", s)
}

// Formula is one piece of a category, active on [Min, Max).
type Formula struct {
	Kind   FormulaKind
	Min    float64
	Max    float64
	Slope  float64
	Offset float64
}

// Contains reports whether v falls in [Min, Max).
func (f Formula) Contains(v float64) bool {
	return v >= f.Min && v < f.Max
}

// apply computes the formula value; ok is false for Void.
func (f Formula) apply(v float64) (float64, bool) {
	switch f.Kind {
	case Linear:
		return f.Slope*v + f.Offset, true
	case Flat:
		return f.Offset, true
	case Void:
		return 0, false
	default:
		return 0, false
	}
}

// Category is a named bundle of formulas bound to tile groups.
type Category struct {
	Name     string
	Axis     Axis
	Formulas []Formula

	// Blocking marks tiles of bound groups as non-traversable.
	Blocking bool
	// Cost multiplies the step cost of entering a bound tile (0 means 1).
	Cost float64
}

// CostMultiplier returns Cost, defaulting to 1.
func (c *Category) CostMultiplier() float64 {
	if c.Cost <= 0 {
		return 1
	}
	return c.Cost
}

// Evaluate returns the collision boundary for input v using the first
// formula whose range contains v. ok is false when no formula matches or
// the match is a Void piece.
func Evaluate(c *Category, v float64) (value float64, ok bool) {
	for i := range c.Formulas {
		f := &c.Formulas[i]
		if f.Contains(v) {
			return f.apply(v)
		}
	}
	return 0, false
}

// Input selects the axis coordinate from a tile-local point.
func (c *Category) Input(lx, ly float64) float64 {
	if c.Axis == Vertical {
		return ly
	}
	return lx
}

// Solid reports whether the tile-local point lies on the solid side of
// the boundary: at or below it for Horizontal, at or right of it for
// Vertical.
func (c *Category) Solid(lx, ly float64) bool {
	boundary, ok := Evaluate(c, c.Input(lx, ly))
	if !ok {
		return false
	}
	if c.Axis == Vertical {
		return lx >= boundary
	}
	return ly >= boundary
}

// Validate checks a category at load time. All problems are reported,
// each as a *tile.ConfigurationError, joined with errors.Join.
func Validate(c *Category) error {
	source := "category " + c.Name
	var errs []error
	if c.Name == "" {
		errs = append(errs, tile.ConfigErrorf("category", "missing name"))
	}
	if c.Axis != Horizontal && c.Axis != Vertical {
		errs = append(errs, tile.ConfigErrorf(source, "unknown axis %d", c.Axis))
	}
	if c.Cost < 0 {
		errs = append(errs, tile.ConfigErrorf(source, "negative cost %g", c.Cost))
	}
	for i, f := range c.Formulas {
		if f.Kind >= numFormulaKinds {
			errs = append(errs, tile.ConfigErrorf(source, "formula %d: unknown kind %d", i, f.Kind))
		}
		if !(f.Min < f.Max) {
			errs = append(errs, tile.ConfigErrorf(source, "formula %d: empty range [%g, %g)", i, f.Min, f.Max))
		}
	}

	// Overlap check on a sorted copy; authored order is kept for evaluation.
	idx := make([]int, len(c.Formulas))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		fa, fb := c.Formulas[a], c.Formulas[b]
		switch {
		case fa.Min < fb.Min:
			return -1
		case fa.Min > fb.Min:
			return 1
		}
		return a - b
	})
	reach := -1 // formula with the furthest Max seen so far
	for _, i := range idx {
		cur := c.Formulas[i]
		if !(cur.Min < cur.Max) {
			continue
		}
		if reach >= 0 {
			prev := c.Formulas[reach]
			if cur.Min < prev.Max {
				errs = append(errs, tile.ConfigErrorf(source,
					"formulas %d [%g, %g) and %d [%g, %g) overlap",
					reach, prev.Min, prev.Max, i, cur.Min, cur.Max))
			}
		}
		if reach < 0 || cur.Max > c.Formulas[reach].Max {
			reach = i
		}
	}
	return errors.Join(errs...)
}
