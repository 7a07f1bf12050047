// Package circuit resolves connective tiles (roads, rivers, walls) from the
// group membership of their 8 neighbours.
package circuit

import (
	"errors"
	"slices"

	"github.com/pthm-cable/tilegrid/tile"
)

// Groups is the registry view the resolver needs.
type Groups interface {
	GroupOf(ref tile.Ref) (string, bool)
	HasGroup(name string) bool
}

// TileSet maps a neighbourhood mask to the tile drawn for it.
type TileSet map[tile.Mask]tile.Ref

// Circuit is a connectivity concept resolved by neighbourhood bitmask.
// A neighbour bit is set when the neighbour's tile belongs to one of the
// circuit's groups.
type Circuit struct {
	Name    string
	Groups  []string
	Tiles   TileSet
	Default tile.Ref
}

// Member reports whether ref belongs to one of the circuit's groups.
func (c *Circuit) Member(groups Groups, ref tile.Ref) bool {
	g, ok := groups.GroupOf(ref)
	if !ok {
		return false
	}
	return slices.Contains(c.Groups, g)
}

// Lookup returns the tile for mask using the exact mask, then its cardinal
// reduction. ok is false when neither is declared.
func (c *Circuit) Lookup(mask tile.Mask) (ref tile.Ref, ok bool) {
	if ref, ok = c.Tiles[mask]; ok {
		return ref, true
	}
	ref, ok = c.Tiles[mask.Cardinal()]
	return ref, ok
}

// Coverage counts how many of the 256 masks resolve without falling back
// to the default tile.
func (c *Circuit) Coverage() int {
	n := 0
	for m := 0; m < 256; m++ {
		if _, ok := c.Lookup(tile.Mask(m)); ok {
			n++
		}
	}
	return n
}

// Validate checks a circuit against the registry. Every declared tile and
// the default must belong to a member group; otherwise writing a resolved
// tile would change the membership it was resolved from.
func Validate(c *Circuit, groups Groups) error {
	source := "circuit " + c.Name
	var errs []error
	if c.Name == "" {
		errs = append(errs, tile.ConfigErrorf("circuit", "missing name"))
	}
	if len(c.Groups) == 0 {
		errs = append(errs, tile.ConfigErrorf(source, "no member groups"))
	}
	for _, g := range c.Groups {
		if !groups.HasGroup(g) {
			errs = append(errs, tile.ConfigErrorf(source, "unknown group %q", g))
		}
	}
	if !c.Member(groups, c.Default) {
		errs = append(errs, tile.ConfigErrorf(source, "default tile %v is not in a member group", c.Default))
	}
	masks := make([]int, 0, len(c.Tiles))
	for m := range c.Tiles {
		masks = append(masks, int(m))
	}
	slices.Sort(masks)
	for _, m := range masks {
		ref := c.Tiles[tile.Mask(m)]
		if !c.Member(groups, ref) {
			errs = append(errs, tile.ConfigErrorf(source, "tile %v for mask %v is not in a member group", ref, tile.Mask(m)))
		}
	}
	return errors.Join(errs...)
}

// Axis picks the orientation of a straight segment.
type Axis uint8

const (
	AlongX Axis = iota // east-west
	AlongY             // north-south
)

// Builder declares a circuit's tile set by point category.
type Builder struct {
	c *Circuit
}

// NewBuilder starts a circuit over the given member groups.
func NewBuilder(name string, groups ...string) *Builder {
	return &Builder{c: &Circuit{Name: name, Groups: slices.Clone(groups), Tiles: make(TileSet)}}
}

// Set declares the tile for an exact mask.
func (b *Builder) Set(mask tile.Mask, ref tile.Ref) *Builder {
	b.c.Tiles[mask] = ref
	return b
}

// Isolated declares the tile with no connected neighbours.
func (b *Builder) Isolated(ref tile.Ref) *Builder {
	return b.Set(0, ref)
}

// End declares a dead end open towards d.
func (b *Builder) End(d tile.Direction, ref tile.Ref) *Builder {
	return b.Set(tile.MaskOf(d), ref)
}

// Straight declares a straight segment.
func (b *Builder) Straight(axis Axis, ref tile.Ref) *Builder {
	if axis == AlongY {
		return b.Set(tile.MaskOf(tile.North, tile.South), ref)
	}
	return b.Set(tile.MaskOf(tile.East, tile.West), ref)
}

// Turn declares a bend joining two cardinal directions.
func (b *Builder) Turn(d1, d2 tile.Direction, ref tile.Ref) *Builder {
	return b.Set(tile.MaskOf(d1, d2), ref)
}

// Junction declares a T piece open towards the given directions.
func (b *Builder) Junction(ref tile.Ref, open ...tile.Direction) *Builder {
	return b.Set(tile.MaskOf(open...), ref)
}

// Cross declares the four-way piece.
func (b *Builder) Cross(ref tile.Ref) *Builder {
	return b.Set(tile.CardinalBits, ref)
}

// Corner declares an inner corner of an area circuit: every neighbour is
// connected except the diagonal d.
func (b *Builder) Corner(d tile.Direction, ref tile.Ref) *Builder {
	return b.Set(tile.Full&^tile.MaskOf(d), ref)
}

// Fill declares the tile fully surrounded by the circuit.
func (b *Builder) Fill(ref tile.Ref) *Builder {
	return b.Set(tile.Full, ref)
}

// Default sets the fallback tile.
func (b *Builder) Default(ref tile.Ref) *Builder {
	b.c.Default = ref
	return b
}

// Build returns the declared circuit.
func (b *Builder) Build() *Circuit {
	return b.c
}
