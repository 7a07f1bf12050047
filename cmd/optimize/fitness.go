package main

import (
	"math"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/tilegrid/config"
	"github.com/pthm-cable/tilegrid/pathfind"
	"github.com/pthm-cable/tilegrid/procgen"
	"github.com/pthm-cable/tilegrid/registry"
	"github.com/pthm-cable/tilegrid/tile"
)

// Targets are what a good map looks like.
type Targets struct {
	OpenFraction float64 // share of non-blocking cells
	Pairs        int     // random pairs sampled per map for connectivity
}

// FitnessEvaluator generates maps for each seed and scores them.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []int64
	baseConfig *config.Config
	reg        *registry.Registry
	targets    Targets

	mu          sync.Mutex
	bestFitness float64
	lastScore   MapScore // mean score from most recent Evaluate call
}

// MapScore measures one generated map.
type MapScore struct {
	Open      float64 // non-blocking share of cells
	Connected float64 // share of sampled pairs with a path
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config, reg *registry.Registry, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		reg:         reg,
		targets:     targets,
		bestFitness: math.Inf(1),
	}
}

// LastScore returns the mean map score from the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() MapScore {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastScore
}

// Evaluate computes fitness for raw parameter values (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return math.Inf(1)
	}

	// Run all seeds in parallel
	scores := make([]MapScore, len(fe.seeds))
	var g errgroup.Group
	for i, seed := range fe.seeds {
		g.Go(func() error {
			scores[i] = fe.scoreMap(cfg.Procgen, seed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return math.Inf(1)
	}

	var mean MapScore
	for _, s := range scores {
		mean.Open += s.Open
		mean.Connected += s.Connected
	}
	n := float64(len(scores))
	mean.Open /= n
	mean.Connected /= n
	fitness := fe.fitness(mean)

	fe.mu.Lock()
	fe.bestFitness = min(fe.bestFitness, fitness)
	fe.lastScore = mean
	fe.mu.Unlock()
	return fitness
}

// fitness weighs the open-area error against lost connectivity.
func (fe *FitnessEvaluator) fitness(s MapScore) float64 {
	d := s.Open - fe.targets.OpenFraction
	return 4*d*d + (1 - s.Connected)
}

func (fe *FitnessEvaluator) scoreMap(pc config.ProcgenConfig, seed int64) MapScore {
	g, err := pc.Generate(seed)
	if err != nil || g.Len() == 0 {
		return MapScore{}
	}

	var open []tile.Point
	for i := 0; i < g.Len(); i++ {
		if !fe.reg.IsBlocking(g.Cell(i)) {
			open = append(open, tile.P(g.XY(i)))
		}
	}
	score := MapScore{Open: float64(len(open)) / float64(g.Len())}
	if len(open) < 2 || fe.targets.Pairs < 1 {
		return score
	}

	planner := pathfind.NewPlanner(g, fe.reg, fe.baseConfig.PathOptions())
	rng := rand.New(rand.NewSource(seed))
	reached := 0
	for i := 0; i < fe.targets.Pairs; i++ {
		from := open[rng.Intn(len(open))]
		to := open[rng.Intn(len(open))]
		if planner.FindPath(from, to, nil).Reachable {
			reached++
		}
	}
	score.Connected = float64(reached) / float64(fe.targets.Pairs)
	return score
}

// copyConfig deep-copies the base config so evaluations never share bands.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Procgen.Bands = append([]procgen.Band(nil), fe.baseConfig.Procgen.Bands...)
	return &cfg
}
