package main

import (
	"fmt"

	"github.com/pthm-cable/tilegrid/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the procgen parameters for a four-band map:
// water, shore, open ground and rock.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "scale", Path: "procgen.scale", Min: 0.02, Max: 0.3, Default: 0.08},
			{Name: "water", Path: "procgen.bands[0].below", Min: 0.1, Max: 0.6, Default: 0.35},
			{Name: "shore_width", Path: "procgen.bands[1].below", Min: 0.01, Max: 0.2, Default: 0.1},
			{Name: "rock", Path: "procgen.bands[2].below", Min: 0.6, Max: 0.99, Default: 0.85},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes parameter values into the procgen settings. The
// config must carry exactly four bands.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	bands := cfg.Procgen.Bands
	if len(bands) != 4 {
		return fmt.Errorf("tuning needs 4 procgen bands, config has %d", len(bands))
	}
	v := pv.Clamp(values)
	cfg.Procgen.Scale = v[0]
	bands[0].Below = v[1]
	bands[1].Below = v[1] + v[2]
	// Keep thresholds strictly ascending.
	bands[2].Below = max(v[3], bands[1].Below+0.01)
	bands[3].Below = 1.0
	return nil
}
