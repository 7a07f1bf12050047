package tile

import (
	"fmt"
	"strconv"
)

// Direction is one of the 8 compass directions around a tile.
// Values double as bit indices in a Mask, counter-clockwise from East.
// Grid y grows southward.
type Direction uint8

const (
	East Direction = iota
	NorthEast
	North
	NorthWest
	West
	SouthWest
	South
	SouthEast
	NumDirections
)

// Directions lists all 8 directions in bit order.
var Directions = [NumDirections]Direction{East, NorthEast, North, NorthWest, West, SouthWest, South, SouthEast}

// Cardinals lists the orthogonal directions.
var Cardinals = [4]Direction{East, North, West, South}

var directionOffsets = [NumDirections][2]int{
	{1, 0},   // E
	{1, -1},  // NE
	{0, -1},  // N
	{-1, -1}, // NW
	{-1, 0},  // W
	{-1, 1},  // SW
	{0, 1},   // S
	{1, 1},   // SE
}

var directionNames = [NumDirections]string{"E", "NE", "N", "NW", "W", "SW", "S", "SE"}

// Offset returns the grid delta for d.
func (d Direction) Offset() (dx, dy int) {
	o := directionOffsets[d%NumDirections]
	return o[0], o[1]
}

// Opposite returns the direction pointing back at the origin.
func (d Direction) Opposite() Direction {
	return (d + 4) % NumDirections
}

// IsCardinal reports whether d is orthogonal.
func (d Direction) IsCardinal() bool {
	return d%2 == 0
}

func (d Direction) String() string {
	if d < NumDirections {
		return directionNames[d]
	}
	return "Direction(" + strconv.Itoa(int(d)) + ")"
}

// ParseDirection accepts the short compass names used by String.
func ParseDirection(s string) (Direction, bool) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), true
		}
	}
	return 0, false
}

// Mask is an 8-neighbourhood bitmask; bit d is set for Direction d.
type Mask uint8

const (
	// CardinalBits selects E, N, W and S.
	CardinalBits Mask = 0x55
	// DiagonalBits selects NE, NW, SW and SE.
	DiagonalBits Mask = 0xAA
	// Full has every neighbour set.
	Full Mask = 0xFF
)

// MaskOf builds a mask from directions.
func MaskOf(dirs ...Direction) Mask {
	var m Mask
	for _, d := range dirs {
		m = m.With(d)
	}
	return m
}

// Has reports whether bit d is set.
func (m Mask) Has(d Direction) bool {
	return m&(1<<d) != 0
}

// With returns m with bit d set.
func (m Mask) With(d Direction) Mask {
	return m | 1<<d
}

// Cardinal drops the diagonal bits.
func (m Mask) Cardinal() Mask {
	return m & CardinalBits
}

// Count returns the number of set neighbours.
func (m Mask) Count() int {
	n := 0
	for v := m; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func (m Mask) String() string {
	s := strconv.FormatUint(uint64(m), 2)
	for len(s) < 8 {
		s = "0" + s
	}
	return "0b" + s
}

// ParseMask accepts any integer literal strconv understands ("0b00010001",
// "0x11", "17").
func ParseMask(s string) (Mask, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid mask %q: %w", s, err)
	}
	return Mask(v), nil
}
