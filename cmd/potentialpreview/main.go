// Potential field preview tool - renders the procgen noise field and the
// banded map it produces side by side into a PNG.
//
// Usage: go run ./cmd/potentialpreview --out preview.png
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/pthm-cable/tilegrid/config"
	"github.com/pthm-cable/tilegrid/procgen"
	"github.com/pthm-cable/tilegrid/tile"
)

// bandColors shade bands from low to high noise.
var bandColors = []color.RGBA{
	{R: 30, G: 60, B: 140, A: 255},
	{R: 220, G: 200, B: 140, A: 255},
	{R: 70, G: 150, B: 60, A: 255},
	{R: 120, G: 110, B: 100, A: 255},
	{R: 240, G: 240, B: 240, A: 255},
}

func main() {
	cmd := &cli.Command{
		Name:  "potentialpreview",
		Usage: "render the procgen noise field and band map",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config YAML (empty = use defaults)"},
			&cli.StringFlag{Name: "out", Value: "preview.png", Usage: "output PNG path"},
			&cli.IntFlag{Name: "cell", Value: 8, Usage: "pixels per tile"},
			&cli.Int64Flag{Name: "seed", Usage: "noise seed (0 = config)"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("preview failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	pc := cfg.Procgen
	if seed := c.Int64("seed"); seed != 0 {
		pc.Seed = seed
	}
	if err := procgen.ValidateBands(pc.Bands); err != nil {
		return err
	}
	cell := max(c.Int("cell"), 1)

	gen := procgen.New(pc.Seed, pc.Scale)
	g := tile.NewGrid(pc.Width, pc.Height, pc.Bands[0].Tile)
	if err := gen.Fill(g, pc.Bands); err != nil {
		return err
	}

	bandOf := make(map[tile.Ref]int, len(pc.Bands))
	for i, b := range pc.Bands {
		if _, ok := bandOf[b.Tile]; !ok {
			bandOf[b.Tile] = i
		}
	}

	w, h := g.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, 2*w*cell+cell, h*cell))
	var minVal, maxVal, total float64 = 1, 0, 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gen.Sample(x, y, 0)
			total += v
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)

			grey := uint8(min(v, 1) * 255)
			fillCell(img, x*cell, y*cell, cell, color.RGBA{R: grey, G: grey, B: grey, A: 255})
			band := bandOf[g.TileAt(x, y)] % len(bandColors)
			fillCell(img, (w+1+x)*cell, y*cell, cell, bandColors[band])
		}
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		return fmt.Errorf("creating preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding preview: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	slog.Info("preview written",
		"path", c.String("out"),
		"min", minVal,
		"max", maxVal,
		"avg", total/float64(w*h),
	)
	return nil
}

func fillCell(img *image.RGBA, px, py, size int, col color.RGBA) {
	for y := py; y < py+size; y++ {
		for x := px; x < px+size; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
