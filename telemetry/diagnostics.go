// Package telemetry collects diagnostics and timing from extraction,
// circuit resolution and pathfinding, and writes them as CSV.
package telemetry

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/pthm-cable/tilegrid/circuit"
	"github.com/pthm-cable/tilegrid/extract"
	"github.com/pthm-cable/tilegrid/tile"
)

type missKey struct {
	circuit string
	mask    tile.Mask
}

// MissCount is the number of default fallbacks for one circuit mask.
type MissCount struct {
	Circuit string    `csv:"circuit"`
	Mask    tile.Mask `csv:"-"`
	MaskBin string    `csv:"mask"`
	Count   int       `csv:"count"`
	LastX   int       `csv:"last_x"`
	LastY   int       `csv:"last_y"`
}

// Diagnostics is a sink for recoverable problems: circuit lookup misses
// and extraction ambiguities. It is safe for concurrent use.
type Diagnostics struct {
	mu          sync.Mutex
	misses      map[missKey]*MissCount
	ambiguities []extract.Ambiguity
}

// NewDiagnostics creates an empty sink.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{misses: make(map[missKey]*MissCount)}
}

// RecordMiss implements circuit.MissSink.
func (d *Diagnostics) RecordMiss(m circuit.LookupMiss) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := missKey{circuit: m.Circuit, mask: m.Mask}
	mc, ok := d.misses[k]
	if !ok {
		mc = &MissCount{Circuit: m.Circuit, Mask: m.Mask, MaskBin: m.Mask.String()}
		d.misses[k] = mc
	}
	mc.Count++
	mc.LastX, mc.LastY = m.At.X, m.At.Y
}

// AddAmbiguities appends extraction ambiguities for review.
func (d *Diagnostics) AddAmbiguities(a []extract.Ambiguity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ambiguities = append(d.ambiguities, a...)
}

// Misses returns miss counts sorted by circuit, then mask.
func (d *Diagnostics) Misses() []MissCount {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MissCount, 0, len(d.misses))
	for _, mc := range d.misses {
		out = append(out, *mc)
	}
	slices.SortFunc(out, func(a, b MissCount) int {
		if c := cmp.Compare(a.Circuit, b.Circuit); c != 0 {
			return c
		}
		return cmp.Compare(a.Mask, b.Mask)
	})
	return out
}

// TotalMisses sums all miss counts.
func (d *Diagnostics) TotalMisses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, mc := range d.misses {
		n += mc.Count
	}
	return n
}

// Ambiguities returns a copy of the recorded ambiguities.
func (d *Diagnostics) Ambiguities() []extract.Ambiguity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.ambiguities)
}

// Reset clears all recorded diagnostics.
func (d *Diagnostics) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.misses)
	d.ambiguities = nil
}

// LogValue implements slog.LogValuer for structured logging.
func (d *Diagnostics) LogValue() slog.Value {
	misses := d.Misses()
	total := 0
	for _, m := range misses {
		total += m.Count
	}
	d.mu.Lock()
	amb := len(d.ambiguities)
	d.mu.Unlock()
	return slog.GroupValue(
		slog.Int("miss_masks", len(misses)),
		slog.Int("misses", total),
		slog.Int("ambiguities", amb),
	)
}

var _ circuit.MissSink = (*Diagnostics)(nil)
