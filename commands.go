package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/pthm-cable/tilegrid/circuit"
	"github.com/pthm-cable/tilegrid/config"
	"github.com/pthm-cable/tilegrid/extract"
	"github.com/pthm-cable/tilegrid/movers"
	"github.com/pthm-cable/tilegrid/pathfind"
	"github.com/pthm-cable/tilegrid/store"
	"github.com/pthm-cable/tilegrid/telemetry"
	"github.com/pthm-cable/tilegrid/tile"
)

// env is what every command needs: settings, the active project and the
// telemetry sinks.
type env struct {
	cfg     *config.Config
	project *config.Project
	active  *config.Active
	diag    *telemetry.Diagnostics
	out     *telemetry.OutputManager
	runs    int32
}

func setup(c *cli.Command) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if seed := c.Int64("seed"); seed != 0 {
		cfg.Procgen.Seed = seed
	}

	project := config.DefaultProject()
	if path := c.String("project"); path != "" {
		if project, err = config.LoadProject(path); err != nil {
			return nil, err
		}
	}
	active := config.NewActive(nil)
	if err := active.Apply(project); err != nil {
		return nil, err
	}

	dir := c.String("output-dir")
	if dir == "" {
		dir = cfg.Telemetry.OutputDir
	}
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		return nil, err
	}
	if err := out.WriteConfig(cfg); err != nil {
		out.Close()
		return nil, err
	}
	return &env{
		cfg:     cfg,
		project: project,
		active:  active,
		diag:    telemetry.NewDiagnostics(),
		out:     out,
	}, nil
}

func (e *env) close() {
	if err := e.out.WriteDiagnostics(e.diag); err != nil {
		slog.Warn("diagnostics_write_failed", "error", err)
	}
	if err := e.out.Close(); err != nil {
		slog.Warn("output_close_failed", "error", err)
	}
}

func (e *env) loadLevels(dir string) ([]*store.Level, error) {
	if dir == "" {
		dir = e.cfg.Extraction.LevelsDir
	}
	levels, err := store.LoadLevels(dir)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("no levels in %s", dir)
	}
	return levels, nil
}

// timed runs fn as one perf sample under phase and appends it to perf.csv.
func (e *env) timed(phase string, fn func() error) error {
	stats, err := telemetry.TimeRun(phase, fn)
	if err != nil {
		return err
	}
	e.runs++
	return e.out.WritePerf(stats, e.runs)
}

// generate builds the procgen map and relaxes the configured circuit.
func (e *env) generate() (*tile.Grid, error) {
	pc := e.cfg.Procgen
	g, err := pc.Generate(pc.Seed)
	if err != nil {
		return nil, err
	}
	if pc.Circuit == "" {
		return g, nil
	}

	ws := e.active.Workspace()
	c, ok := ws.Circuit(pc.Circuit)
	if !ok {
		return nil, fmt.Errorf("procgen circuit %q not in project", pc.Circuit)
	}
	r := circuit.NewResolver(ws.Registry, e.diag)
	var (
		passes    int
		converged bool
	)
	err = e.timed(telemetry.PhaseRelax, func() error {
		passes, converged = r.Relax(g, g.Rect(), c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("relax", "circuit", c.Name, "passes", passes, "converged", converged, "diagnostics", e.diag)
	if !converged {
		return nil, fmt.Errorf("circuit %s did not settle after %d passes", c.Name, passes)
	}
	return g, nil
}

func runExtract(ctx context.Context, c *cli.Command) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	levels, err := e.loadLevels(c.String("levels"))
	if err != nil {
		return err
	}
	tables := extract.NewTables()
	var stats extract.RebuildStats
	err = e.timed(telemetry.PhaseExtract, func() error {
		stats, err = tables.Rebuild(ctx, store.Readers(levels), e.active.Workspace().Registry)
		return err
	})
	if err != nil {
		return err
	}
	set := tables.Snapshot()
	e.diag.AddAmbiguities(set.Transitions.Ambiguities)

	dir := c.String("out")
	if dir == "" {
		dir = e.cfg.Extraction.OutputDir
	}
	if err := store.WriteTablesFiles(dir, set.Constraints, set.Transitions); err != nil {
		return err
	}
	slog.Info("extract_done", "dir", dir, "stats", stats)
	return nil
}

func runLearn(ctx context.Context, c *cli.Command) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	def, err := tile.ParseRef(c.String("default"))
	if err != nil {
		return err
	}
	levels, err := e.loadLevels(c.String("levels"))
	if err != nil {
		return err
	}
	ws := e.active.Workspace()
	var learned *circuit.Circuit
	if outer := c.String("from-transitions"); outer != "" {
		groups := c.StringSlice("group")
		if len(groups) != 1 {
			return fmt.Errorf("--from-transitions takes exactly one --group, got %d", len(groups))
		}
		tables := extract.NewTables()
		err = e.timed(telemetry.PhaseExtract, func() error {
			_, err := tables.Rebuild(ctx, store.Readers(levels), ws.Registry)
			return err
		})
		if err != nil {
			return err
		}
		learned = circuit.FromTransitions(tables.Snapshot().Transitions, c.String("name"), outer, groups[0], def)
	} else {
		learned = circuit.Learn(c.String("name"), store.Readers(levels), ws.Registry, c.StringSlice("group"), def)
	}
	if err := circuit.Validate(learned, ws.Registry); err != nil {
		return err
	}

	e.project.Circuits = append(e.project.Circuits, config.CircuitDocOf(learned))
	// Build again so duplicate names are caught before anything is written.
	if err := e.active.Apply(e.project); err != nil {
		return err
	}
	path := c.String("write")
	if err := e.project.WriteProject(path); err != nil {
		return err
	}
	slog.Info("learn_done", "circuit", learned.Name, "masks", len(learned.Tiles), "coverage", learned.Coverage(), "path", path)
	return nil
}

func runPaint(ctx context.Context, c *cli.Command) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	g, err := e.generate()
	if err != nil {
		return err
	}
	path := c.String("save")
	if path == "" {
		fmt.Print(g.String())
		return nil
	}
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]
	return store.WriteLevel(path, &store.Level{Name: name, Grid: g})
}

// randomOpen picks a random non-blocking cell, giving up after as many
// draws as the grid has cells.
func randomOpen(rng *rand.Rand, g *tile.Grid, costs pathfind.Costs) (tile.Point, bool) {
	w, h := g.Bounds()
	for i := 0; i < w*h; i++ {
		p := tile.P(rng.Intn(w), rng.Intn(h))
		if !costs.IsBlocking(g.At(p)) {
			return p, true
		}
	}
	return tile.Point{}, false
}

func runPath(ctx context.Context, c *cli.Command) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	g, err := e.generate()
	if err != nil {
		return err
	}
	reg := e.active.Workspace().Registry
	planner := pathfind.NewPlanner(g, reg, e.cfg.PathOptions())
	rng := rand.New(rand.NewSource(e.cfg.Procgen.Seed))
	window := telemetry.NewPathWindow()

	pairs, every := c.Int("pairs"), c.Int("window")
	if every < 1 {
		every = pairs
	}
	for i := 1; i <= pairs; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		from, ok1 := randomOpen(rng, g, reg)
		to, ok2 := randomOpen(rng, g, reg)
		if !ok1 || !ok2 {
			return errors.New("map has no open cells")
		}
		window.Record(planner.FindPath(from, to, nil))

		if i%every == 0 || i == pairs {
			stats := window.Flush(int32(i))
			slog.Info("paths", "stats", stats)
			if err := e.out.WritePaths(stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func runSimulate(ctx context.Context, c *cli.Command) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	g, err := e.generate()
	if err != nil {
		return err
	}
	mc := e.cfg.Movers
	count, maxTicks := mc.Count, mc.Ticks
	if n := c.Int("movers"); n > 0 {
		count = n
	}
	if n := c.Int("max-ticks"); n > 0 {
		maxTicks = n
	}
	logEvery := max(c.Int("log-every"), 1)

	reg := e.active.Workspace().Registry
	perf := telemetry.NewPerfCollector(e.cfg.Telemetry.PerfWindow)
	window := telemetry.NewPathWindow()
	opts := movers.Options{
		MaxRepaths: mc.MaxRepaths,
		StepBudget: e.cfg.Pathfinding.StepBudget,
		Perf:       perf,
		Paths:      window,
	}
	var world *movers.World
	if path := c.String("resume"); path != "" {
		snap, err := movers.LoadSnapshot(path)
		if err != nil {
			return err
		}
		if world, err = movers.Restore(snap, g, reg, e.cfg.PathOptions(), opts); err != nil {
			return err
		}
	} else {
		world = movers.NewWorld(g, reg, e.cfg.PathOptions(), opts)
		if err := spawnRandom(world, g, reg, e.cfg.Procgen.Seed, count); err != nil {
			return err
		}
	}
	spawned := len(world.Statuses())
	slog.Info("starting simulation", "seed", e.cfg.Procgen.Seed, "movers", spawned, "max_ticks", maxTicks)

	for tick := 1; tick <= maxTicks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := world.Tick()
		done := world.Done()
		if tick%logEvery == 0 || done || tick == maxTicks {
			ps := perf.Stats()
			ps.LogStats()
			slog.Info("tick", "stats", st)
			if err := e.out.WritePerf(ps, int32(tick)); err != nil {
				return err
			}
			if err := e.out.WritePaths(window.Flush(int32(tick))); err != nil {
				return err
			}
		}
		if done {
			slog.Info("all movers settled", "tick", tick)
			break
		}
	}

	stuck := 0
	for _, s := range world.Statuses() {
		if s.Stuck {
			stuck++
			slog.Debug("mover stuck", "id", s.ID, "at", s.At.String(), "goal", s.Goal.String(), "reason", s.Reason.String())
		}
	}
	slog.Info("simulation_done", "movers", spawned, "stuck", stuck, "output", e.out.Dir())

	if dir := c.String("snapshot-dir"); dir != "" {
		path, err := movers.SaveSnapshot(world.Capture(e.cfg.Procgen.Seed), dir)
		if err != nil {
			return err
		}
		slog.Info("snapshot saved", "path", path)
	}
	return nil
}

// spawnRandom places up to count movers on random open cells with random
// goals. Draws that land on an occupied cell are retried a bounded number
// of times.
func spawnRandom(world *movers.World, g *tile.Grid, costs pathfind.Costs, seed int64, count int) error {
	rng := rand.New(rand.NewSource(seed))
	spawned := 0
	for attempt := 0; spawned < count && attempt < count*20; attempt++ {
		at, ok1 := randomOpen(rng, g, costs)
		goal, ok2 := randomOpen(rng, g, costs)
		if !ok1 || !ok2 {
			return errors.New("map has no open cells")
		}
		if _, err := world.Spawn(at, goal); err != nil {
			if errors.Is(err, movers.ErrOccupied) {
				continue
			}
			return err
		}
		spawned++
	}
	return nil
}
