// Package config provides runtime settings and the authored project
// documents (groups, collision categories, circuits).
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/tilegrid/pathfind"
	"github.com/pthm-cable/tilegrid/procgen"
	"github.com/pthm-cable/tilegrid/tile"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds runtime settings. Authored tile data lives in Project.
type Config struct {
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Procgen     ProcgenConfig     `yaml:"procgen"`
	Movers      MoversConfig      `yaml:"movers"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PathfindingConfig holds search parameters.
type PathfindingConfig struct {
	Diagonal      bool   `yaml:"diagonal"`       // 8-way movement
	CutCorners    bool   `yaml:"cut_corners"`    // allow diagonals past blocking corners
	MaxExpansions int    `yaml:"max_expansions"` // 0 = grid area
	Heuristic     string `yaml:"heuristic"`      // octile, manhattan, euclidean, squared_euclidean
	StepBudget    int    `yaml:"step_budget"`    // expansions per tick for incremental searches
}

// ExtractionConfig holds corpus locations for the extractors.
type ExtractionConfig struct {
	LevelsDir string `yaml:"levels_dir"`
	OutputDir string `yaml:"output_dir"`
}

// ProcgenConfig holds noise map generation parameters.
type ProcgenConfig struct {
	Width   int            `yaml:"width"`
	Height  int            `yaml:"height"`
	Seed    int64          `yaml:"seed"`
	Scale   float64        `yaml:"scale"`
	Circuit string         `yaml:"circuit"` // circuit relaxed after filling, optional
	Bands   []procgen.Band `yaml:"bands"`

	// Second noise pass turning CarveFrom tiles into CarveTile.
	CarveTile      tile.Ref   `yaml:"carve_tile"`
	CarveFrom      []tile.Ref `yaml:"carve_from"`
	CarveThreshold float64    `yaml:"carve_threshold"` // 0 = no carving

	Border     int      `yaml:"border"` // open frame width, 0 = none
	BorderTile tile.Ref `yaml:"border_tile"`
}

// Generate fills a grid from the bands, then applies the carve and border
// passes. Circuits are not resolved here.
func (pc ProcgenConfig) Generate(seed int64) (*tile.Grid, error) {
	if err := procgen.ValidateBands(pc.Bands); err != nil {
		return nil, err
	}
	if pc.Width < 1 || pc.Height < 1 {
		return nil, fmt.Errorf("procgen: size %dx%d", pc.Width, pc.Height)
	}
	g := tile.NewGrid(pc.Width, pc.Height, pc.Bands[0].Tile)
	gen := procgen.New(seed, pc.Scale)
	if err := gen.Fill(g, pc.Bands); err != nil {
		return nil, err
	}
	if pc.CarveThreshold > 0 && len(pc.CarveFrom) > 0 {
		gen.Carve(g, pc.CarveTile, pc.CarveThreshold, pc.CarveFrom...)
	}
	if pc.Border > 0 {
		procgen.ClearBorder(g, pc.BorderTile, pc.Border)
	}
	return g, nil
}

// MoversConfig holds simulation parameters.
type MoversConfig struct {
	Count      int `yaml:"count"`
	Ticks      int `yaml:"ticks"`
	MaxRepaths int `yaml:"max_repaths"` // consecutive failed repaths before a mover gives up
}

// TelemetryConfig holds diagnostics output settings.
type TelemetryConfig struct {
	OutputDir  string `yaml:"output_dir"`
	PerfWindow int    `yaml:"perf_window"` // samples kept per phase
}

// DerivedConfig holds values computed from the loaded settings.
type DerivedConfig struct {
	Heuristic pathfind.Heuristic
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) computeDerived() error {
	h, err := pathfind.HeuristicByName(c.Pathfinding.Heuristic)
	if err != nil {
		return fmt.Errorf("pathfinding: %w", err)
	}
	c.Derived.Heuristic = h

	if c.Pathfinding.StepBudget < 0 {
		c.Pathfinding.StepBudget = 0
	}
	if c.Telemetry.PerfWindow <= 0 {
		c.Telemetry.PerfWindow = 120
	}
	return nil
}

// PathOptions converts the pathfinding settings to planner options.
func (c *Config) PathOptions() pathfind.Options {
	return pathfind.Options{
		Diagonal:      c.Pathfinding.Diagonal,
		CutCorners:    c.Pathfinding.CutCorners,
		MaxExpansions: c.Pathfinding.MaxExpansions,
		Heuristic:     c.Derived.Heuristic,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
