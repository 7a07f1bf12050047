package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/tilegrid/tile"
)

// Tables publishes the derived constraint and transition tables. Both
// tables and the generation travel in one published value, so a reader
// holding a Snapshot never mixes tables from different rebuilds.
type Tables struct {
	active atomic.Pointer[TableSet]
}

// TableSet is one published generation of derived tables.
type TableSet struct {
	Constraints *ConstraintTable
	Transitions *TransitionTable
	Generation  uint64
}

// NewTables creates Tables holding empty tables.
func NewTables() *Tables {
	t := &Tables{}
	t.active.Store(&TableSet{
		Constraints: NewConstraintTable(),
		Transitions: NewTransitionTable(),
	})
	return t
}

// Snapshot returns the active pair. Callers needing both tables should
// use it rather than Constraints and Transitions separately.
func (t *Tables) Snapshot() *TableSet {
	return t.active.Load()
}

// Constraints returns the active constraint table.
func (t *Tables) Constraints() *ConstraintTable {
	return t.active.Load().Constraints
}

// Transitions returns the active transition table.
func (t *Tables) Transitions() *TransitionTable {
	return t.active.Load().Transitions
}

// Generation counts completed rebuilds.
func (t *Tables) Generation() uint64 {
	return t.active.Load().Generation
}

// Swap installs a new pair of tables.
func (t *Tables) Swap(c *ConstraintTable, tr *TransitionTable) {
	for {
		old := t.active.Load()
		next := &TableSet{Constraints: c, Transitions: tr, Generation: old.Generation + 1}
		if t.active.CompareAndSwap(old, next) {
			return
		}
	}
}

// RebuildStats summarises one rebuild for logging.
type RebuildStats struct {
	Levels      int
	Constraints int
	Transitions int
	Ambiguities int
	Duration    time.Duration
}

// LogValue implements slog.LogValuer for structured logging.
func (s RebuildStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("levels", s.Levels),
		slog.Int("constraints", s.Constraints),
		slog.Int("transitions", s.Transitions),
		slog.Int("ambiguities", s.Ambiguities),
		slog.Int64("duration_ms", s.Duration.Milliseconds()),
	)
}

// Rebuild runs both extractors concurrently over the corpus and swaps the
// results in. The grids and the group lookup must not be mutated until
// Rebuild returns. If ctx is cancelled first, the previous tables stay
// active and ctx.Err() is returned.
func (t *Tables) Rebuild(ctx context.Context, grids []tile.Reader, groups GroupLookup) (RebuildStats, error) {
	start := time.Now()
	var (
		ct *ConstraintTable
		tt *TransitionTable
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ct = ExtractConstraints(grids)
		return ctx.Err()
	})
	g.Go(func() error {
		tt = ExtractTransitions(grids, groups)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return RebuildStats{}, fmt.Errorf("rebuilding tables: %w", err)
	}

	t.Swap(ct, tt)
	stats := RebuildStats{
		Levels:      len(grids),
		Constraints: ct.Len(),
		Transitions: tt.Len(),
		Ambiguities: len(tt.Ambiguities),
		Duration:    time.Since(start),
	}
	slog.Info("extract_rebuild", "stats", stats)
	return stats, nil
}
