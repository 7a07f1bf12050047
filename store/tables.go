package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/tilegrid/extract"
	"github.com/pthm-cable/tilegrid/tile"
)

// ConstraintRow is one (tile, direction, neighbour) line of constraints.csv.
type ConstraintRow struct {
	Sheet         int    `csv:"sheet"`
	Tile          int    `csv:"tile"`
	Direction     string `csv:"direction"`
	NeighborSheet int    `csv:"neighbor_sheet"`
	NeighborTile  int    `csv:"neighbor_tile"`
}

// TransitionRow is one (groupA, groupB, shape, tile) line of transitions.csv.
type TransitionRow struct {
	GroupA string `csv:"group_a"`
	GroupB string `csv:"group_b"`
	Shape  string `csv:"shape"`
	Sheet  int    `csv:"sheet"`
	Tile   int    `csv:"tile"`
}

// WriteConstraints writes ct as CSV in record order.
func WriteConstraints(w io.Writer, ct *extract.ConstraintTable) error {
	records := ct.Records()
	rows := make([]ConstraintRow, len(records))
	for i, r := range records {
		rows[i] = ConstraintRow{
			Sheet:         r.Tile.Sheet,
			Tile:          r.Tile.Tile,
			Direction:     r.Direction.String(),
			NeighborSheet: r.Neighbor.Sheet,
			NeighborTile:  r.Neighbor.Tile,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing constraints: %w", err)
	}
	return nil
}

// ReadConstraints parses constraints CSV.
func ReadConstraints(r io.Reader) (*extract.ConstraintTable, error) {
	var rows []ConstraintRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading constraints: %w", err)
	}
	records := make([]extract.ConstraintRecord, len(rows))
	for i, row := range rows {
		d, ok := tile.ParseDirection(row.Direction)
		if !ok {
			return nil, fmt.Errorf("reading constraints: row %d: unknown direction %q", i+1, row.Direction)
		}
		records[i] = extract.ConstraintRecord{
			Tile:      tile.R(row.Sheet, row.Tile),
			Direction: d,
			Neighbor:  tile.R(row.NeighborSheet, row.NeighborTile),
		}
	}
	return extract.ConstraintsFromRecords(records), nil
}

// WriteTransitions writes tt as CSV in record order.
func WriteTransitions(w io.Writer, tt *extract.TransitionTable) error {
	records := tt.Records()
	rows := make([]TransitionRow, len(records))
	for i, r := range records {
		rows[i] = TransitionRow{
			GroupA: r.Key.A,
			GroupB: r.Key.B,
			Shape:  r.Key.Shape.String(),
			Sheet:  r.Tile.Sheet,
			Tile:   r.Tile.Tile,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing transitions: %w", err)
	}
	return nil
}

// ReadTransitions parses transitions CSV.
func ReadTransitions(r io.Reader) (*extract.TransitionTable, error) {
	var rows []TransitionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading transitions: %w", err)
	}
	records := make([]extract.TransitionRecord, len(rows))
	for i, row := range rows {
		shape, err := tile.ParseMask(row.Shape)
		if err != nil {
			return nil, fmt.Errorf("reading transitions: row %d: %w", i+1, err)
		}
		records[i] = extract.TransitionRecord{
			Key:  extract.TransitionKey{A: row.GroupA, B: row.GroupB, Shape: shape},
			Tile: tile.R(row.Sheet, row.Tile),
		}
	}
	return extract.TransitionsFromRecords(records), nil
}

// WriteTablesFiles writes constraints.csv and transitions.csv into dir.
func WriteTablesFiles(dir string, ct *extract.ConstraintTable, tt *extract.TransitionTable) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "constraints.csv"), func(w io.Writer) error { return WriteConstraints(w, ct) }); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "transitions.csv"), func(w io.Writer) error { return WriteTransitions(w, tt) })
}

// ReadTablesFiles reads constraints.csv and transitions.csv from dir.
func ReadTablesFiles(dir string) (*extract.ConstraintTable, *extract.TransitionTable, error) {
	cf, err := os.Open(filepath.Join(dir, "constraints.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening constraints: %w", err)
	}
	defer cf.Close()
	ct, err := ReadConstraints(cf)
	if err != nil {
		return nil, nil, err
	}

	tf, err := os.Open(filepath.Join(dir, "transitions.csv"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening transitions: %w", err)
	}
	defer tf.Close()
	tt, err := ReadTransitions(tf)
	if err != nil {
		return nil, nil, err
	}
	return ct, tt, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
