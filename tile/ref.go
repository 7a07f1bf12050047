// Package tile holds the shared tile-grid data model: tile identities,
// compass directions, neighbourhood masks and the flat grid buffer.
package tile

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Ref identifies one tile graphic by sheet and index within the sheet.
// Refs are compared by value and used as map keys throughout.
type Ref struct {
	Sheet int
	Tile  int
}

// EdgeOfMap is recorded in place of a neighbour that lies outside the grid.
var EdgeOfMap = Ref{Sheet: -1, Tile: -1}

// R is shorthand for Ref{Sheet: sheet, Tile: n}.
func R(sheet, n int) Ref {
	return Ref{Sheet: sheet, Tile: n}
}

// IsEdge reports whether r is the edge-of-map sentinel.
func (r Ref) IsEdge() bool {
	return r == EdgeOfMap
}

// Less orders refs by sheet, then tile.
func (r Ref) Less(o Ref) bool {
	if r.Sheet != o.Sheet {
		return r.Sheet < o.Sheet
	}
	return r.Tile < o.Tile
}

func (r Ref) String() string {
	if r.IsEdge() {
		return "edge"
	}
	return strconv.Itoa(r.Sheet) + ":" + strconv.Itoa(r.Tile)
}

// MarshalText encodes r as "sheet:tile".
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the "sheet:tile" form.
func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRef parses "sheet:tile" (or "edge").
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "edge" {
		return EdgeOfMap, nil
	}
	sheetStr, tileStr, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{}, fmt.Errorf("tile ref %q: missing ':'", s)
	}
	sheet, err := strconv.Atoi(sheetStr)
	if err != nil {
		return Ref{}, fmt.Errorf("tile ref %q: sheet: %w", s, err)
	}
	n, err := strconv.Atoi(tileStr)
	if err != nil {
		return Ref{}, fmt.Errorf("tile ref %q: tile: %w", s, err)
	}
	return Ref{Sheet: sheet, Tile: n}, nil
}

// Compare orders refs by sheet, then tile, for slices.SortFunc.
func Compare(a, b Ref) int {
	if c := cmp.Compare(a.Sheet, b.Sheet); c != 0 {
		return c
	}
	return cmp.Compare(a.Tile, b.Tile)
}

// SortRefs sorts refs in place.
func SortRefs(refs []Ref) {
	slices.SortFunc(refs, Compare)
}
