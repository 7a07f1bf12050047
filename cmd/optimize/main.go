// Package main tunes procgen band thresholds with CMA-ES so generated maps
// hit a target open area while staying connected.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/tilegrid/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// evalRow is one line of optimize_log.csv.
type evalRow struct {
	Eval       int     `csv:"eval"`
	Fitness    float64 `csv:"fitness"`
	Open       float64 `csv:"open"`
	Connected  float64 `csv:"connected"`
	Scale      float64 `csv:"scale"`
	Water      float64 `csv:"water"`
	ShoreWidth float64 `csv:"shore_width"`
	Rock       float64 `csv:"rock"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cmd := &cli.Command{
		Name:  "optimize",
		Usage: "tune procgen bands for open area and connectivity",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "base config YAML file (empty = use defaults)"},
			&cli.StringFlag{Name: "project", Usage: "project YAML file (empty = built-in project)"},
			&cli.StringFlag{Name: "output", Usage: "output directory for results", Required: true},
			&cli.IntFlag{Name: "seeds", Value: 4, Usage: "number of seeds per evaluation"},
			&cli.IntFlag{Name: "max-evals", Value: 200, Usage: "maximum number of evaluations"},
			&cli.IntFlag{Name: "population", Usage: "CMA-ES population size (0 = auto)"},
			&cli.IntFlag{Name: "pairs", Value: 64, Usage: "random pairs per map for connectivity"},
			&cli.FloatFlag{Name: "open", Value: 0.6, Usage: "target open fraction"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	outputDir := c.String("output")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	project := config.DefaultProject()
	if path := c.String("project"); path != "" {
		if project, err = config.LoadProject(path); err != nil {
			return err
		}
	}
	ws, err := project.Build()
	if err != nil {
		return err
	}

	params := NewParamVector()
	if err := params.ApplyToConfig(baseCfg, params.DefaultVector()); err != nil {
		return err
	}

	seeds := make([]int64, c.Int("seeds"))
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, seeds, baseCfg, ws.Registry, Targets{
		OpenFraction: c.Float("open"),
		Pairs:        c.Int("pairs"),
	})

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())
	maxEvals := c.Int("max-evals")

	popSize := c.Int("population")
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel
	}

	logFile, err := os.Create(filepath.Join(outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			evalCount++
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = raw
			}

			score := evaluator.LastScore()
			row := []evalRow{{
				Eval: evalCount, Fitness: fitness,
				Open: score.Open, Connected: score.Connected,
				Scale: raw[0], Water: raw[1], ShoreWidth: raw[2], Rock: raw[3],
			}}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(row, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if werr != nil {
				slog.Warn("optimize_log_write_failed", "error", werr)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			slog.Info("eval",
				"n", evalCount,
				"fitness", fitness,
				"open", score.Open,
				"connected", score.Connected,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	slog.Info("starting CMA-ES optimization", "params", dim, "population", popSize, "max_evals", maxEvals, "seeds", len(seeds))
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	attrs := []any{"evals", evalCount, "duration", formatDuration(time.Since(startTime)), "fitness", bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, bestParams[i])
	}
	slog.Info("optimization complete", attrs...)

	if err := params.ApplyToConfig(baseCfg, bestParams); err != nil {
		return err
	}
	path := filepath.Join(outputDir, "best_config.yaml")
	if err := baseCfg.WriteYAML(path); err != nil {
		return err
	}
	slog.Info("best config saved", "path", path)
	return nil
}
