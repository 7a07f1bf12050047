package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cmd := &cli.Command{
		Name:  "tilegrid",
		Usage: "tile rule extraction, autotiling and grid pathfinding",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to config.yaml (empty = use defaults)"},
			&cli.StringFlag{Name: "project", Usage: "path to project.yaml (empty = built-in project)"},
			&cli.StringFlag{Name: "output-dir", Usage: "directory for CSV logs and config snapshot (empty = config)"},
			&cli.Int64Flag{Name: "seed", Usage: "procgen and sampling seed (0 = config)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "derive constraint and transition tables from level rips",
				Action: runExtract,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "levels", Usage: "directory of level YAML files (empty = config)"},
					&cli.StringFlag{Name: "out", Usage: "directory for the table CSVs (empty = config)"},
				},
			},
			{
				Name:   "learn",
				Usage:  "learn a circuit from level rips and add it to the project",
				Action: runLearn,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "levels", Usage: "directory of level YAML files (empty = config)"},
					&cli.StringFlag{Name: "name", Usage: "circuit name", Required: true},
					&cli.StringSliceFlag{Name: "group", Usage: "member group (repeatable)", Required: true},
					&cli.StringFlag{Name: "default", Usage: "default tile, sheet:tile", Required: true},
					&cli.StringFlag{Name: "write", Usage: "path of the updated project file", Required: true},
					&cli.StringFlag{Name: "from-transitions", Usage: "build an area circuit from boundaries against this outer group"},
				},
			},
			{
				Name:   "paint",
				Usage:  "generate a map and resolve its circuit",
				Action: runPaint,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "save", Usage: "write the map as a level file instead of printing it"},
				},
			},
			{
				Name:   "path",
				Usage:  "benchmark searches between random open cells",
				Action: runPath,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "pairs", Value: 1000, Usage: "number of searches"},
					&cli.IntFlag{Name: "window", Value: 250, Usage: "searches per stats window"},
				},
			},
			{
				Name:   "simulate",
				Usage:  "run movers on a generated map",
				Action: runSimulate,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "movers", Usage: "mover count (0 = config)"},
					&cli.IntFlag{Name: "max-ticks", Usage: "stop after N ticks (0 = config)"},
					&cli.IntFlag{Name: "log-every", Value: 50, Usage: "ticks between stats records"},
					&cli.StringFlag{Name: "snapshot-dir", Usage: "write the final mover state here"},
					&cli.StringFlag{Name: "resume", Usage: "restore movers from a snapshot instead of spawning"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
