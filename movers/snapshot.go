package movers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/tilegrid/pathfind"
	"github.com/pthm-cable/tilegrid/tile"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds mover state for replay. The grid itself is not stored;
// it is regenerated from the seed.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Width   int   `json:"width"`
	Height  int   `json:"height"`
	Tick    int32 `json:"tick"`

	Movers []MoverState `json:"movers"`
}

// MoverState holds one mover's persistent state. Paths are replanned on
// restore.
type MoverState struct {
	ID      uint32 `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	GoalX   int    `json:"goal_x"`
	GoalY   int    `json:"goal_y"`
	Plans   int    `json:"plans"`
	Arrived bool   `json:"arrived,omitempty"`
	Stuck   bool   `json:"stuck,omitempty"`
}

// Capture records the world's movers.
func (w *World) Capture(seed int64) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		Seed:    seed,
		Width:   w.width,
		Height:  w.height,
		Tick:    w.tick,
	}
	query := w.filter.Query()
	for query.Next() {
		id, cell, route := query.Get()
		s.Movers = append(s.Movers, MoverState{
			ID:      id.N,
			X:       cell.X,
			Y:       cell.Y,
			GoalX:   route.Goal.X,
			GoalY:   route.Goal.Y,
			Plans:   route.Plans,
			Arrived: route.Arrived,
			Stuck:   route.Stuck,
		})
	}
	return s
}

// Restore builds a world over grid from a snapshot. The grid must have the
// snapshot's dimensions.
func Restore(s *Snapshot, grid tile.Reader, costs pathfind.Costs, popts pathfind.Options, opts Options) (*World, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if w, h := grid.Bounds(); w != s.Width || h != s.Height {
		return nil, fmt.Errorf("snapshot is %dx%d, grid is %dx%d", s.Width, s.Height, w, h)
	}

	w := NewWorld(grid, costs, popts, opts)
	w.tick = s.Tick
	for _, m := range s.Movers {
		at := tile.P(m.X, m.Y)
		if err := w.checkCell(at); err != nil {
			return nil, fmt.Errorf("restoring mover %d at %v: %w", m.ID, at, err)
		}
		id := ID{N: m.ID}
		cell := Cell{X: m.X, Y: m.Y}
		route := Route{
			Goal:    tile.P(m.GoalX, m.GoalY),
			Plans:   m.Plans,
			Arrived: m.Arrived,
			Stuck:   m.Stuck,
		}
		e := w.mapper.NewEntity(&id, &cell, &route)
		w.occupied[w.index(at)] = e
		w.nextID = max(w.nextID, m.ID+1)
	}
	return w, nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(s *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("movers_%d.json", s.Tick))

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}
