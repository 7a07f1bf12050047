// Package procgen fills tile grids from coherent noise, for test maps and
// stress corpora.
package procgen

import (
	"slices"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/tilegrid/tile"
)

// Band assigns Tile to noise values below Below. Bands are checked in
// order; values past the last band take the last band's tile.
type Band struct {
	Below float64  `yaml:"below"`
	Tile  tile.Ref `yaml:"tile"`
}

// ValidateBands checks that bands are present and strictly ascending.
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return tile.ConfigErrorf("procgen", "no bands")
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Below <= bands[i-1].Below {
			return tile.ConfigErrorf("procgen", "band %d threshold %g not above %g", i, bands[i].Below, bands[i-1].Below)
		}
	}
	return nil
}

// Generator samples normalized 2D simplex noise in [0, 1).
type Generator struct {
	noise opensimplex.Noise
	scale float64
}

// New creates a generator. scale is the noise frequency per tile.
func New(seed int64, scale float64) *Generator {
	if scale <= 0 {
		scale = 0.08
	}
	return &Generator{noise: opensimplex.NewNormalized(seed), scale: scale}
}

// Sample returns the noise value at a tile position. offset shifts the
// sample plane so independent passes do not correlate.
func (g *Generator) Sample(x, y int, offset float64) float64 {
	return g.noise.Eval2(float64(x)*g.scale+offset, float64(y)*g.scale+offset)
}

// Fill writes a band tile to every cell of grid.
func (g *Generator) Fill(grid *tile.Grid, bands []Band) error {
	if err := ValidateBands(bands); err != nil {
		return err
	}
	for i := 0; i < grid.Len(); i++ {
		x, y := grid.XY(i)
		grid.SetCell(i, pick(bands, g.Sample(x, y, 0)))
	}
	return nil
}

func pick(bands []Band, v float64) tile.Ref {
	for _, b := range bands {
		if v < b.Below {
			return b.Tile
		}
	}
	return bands[len(bands)-1].Tile
}

// Carve replaces cells whose tile is in from with ref where a second
// noise pass exceeds threshold. Returns the number of cells carved.
func (g *Generator) Carve(grid *tile.Grid, ref tile.Ref, threshold float64, from ...tile.Ref) int {
	carved := 0
	for i := 0; i < grid.Len(); i++ {
		cur := grid.Cell(i)
		if !slices.Contains(from, cur) {
			continue
		}
		x, y := grid.XY(i)
		if g.Sample(x, y, 300) > threshold {
			grid.SetCell(i, ref)
			carved++
		}
	}
	return carved
}

// ClearBorder writes ref to a frame of the given width around the grid so
// movers always have an open perimeter.
func ClearBorder(grid *tile.Grid, ref tile.Ref, width int) {
	w, h := grid.Bounds()
	for i := 0; i < grid.Len(); i++ {
		x, y := grid.XY(i)
		if x < width || y < width || x >= w-width || y >= h-width {
			grid.SetCell(i, ref)
		}
	}
}
