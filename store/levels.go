// Package store reads and writes the on-disk forms of level rips and the
// derived constraint and transition tables.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/tilegrid/tile"
)

// Level is one ripped level grid.
type Level struct {
	Name string
	Grid *tile.Grid
}

// levelDoc is the YAML form: one string per row, refs separated by spaces.
type levelDoc struct {
	Name string   `yaml:"name"`
	Rows []string `yaml:"rows"`
}

// ParseLevel decodes a level document.
func ParseLevel(data []byte) (*Level, error) {
	var doc levelDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing level: %w", err)
	}
	rows := make([][]tile.Ref, len(doc.Rows))
	for y, line := range doc.Rows {
		for x, field := range strings.Fields(line) {
			ref, err := tile.ParseRef(field)
			if err != nil {
				return nil, fmt.Errorf("level %s row %d col %d: %w", doc.Name, y, x, err)
			}
			rows[y] = append(rows[y], ref)
		}
	}
	g, err := tile.GridFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", doc.Name, err)
	}
	return &Level{Name: doc.Name, Grid: g}, nil
}

// MarshalLevel encodes a level document.
func MarshalLevel(l *Level) ([]byte, error) {
	w, h := l.Grid.Bounds()
	doc := levelDoc{Name: l.Name, Rows: make([]string, h)}
	var sb strings.Builder
	for y := 0; y < h; y++ {
		sb.Reset()
		for x := 0; x < w; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(l.Grid.TileAt(x, y).String())
		}
		doc.Rows[y] = sb.String()
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling level: %w", err)
	}
	return data, nil
}

// LoadLevel reads one level file. A level without a name takes the file
// name.
func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level file: %w", err)
	}
	l, err := ParseLevel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if l.Name == "" {
		l.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return l, nil
}

// LoadLevels reads every *.yaml file in dir, sorted by file name.
func LoadLevels(dir string) ([]*Level, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing levels: %w", err)
	}
	slices.Sort(paths)
	levels := make([]*Level, 0, len(paths))
	for _, p := range paths {
		l, err := LoadLevel(p)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, nil
}

// WriteLevel writes l to path.
func WriteLevel(path string, l *Level) error {
	data, err := MarshalLevel(l)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing level file: %w", err)
	}
	return nil
}

// Readers returns the level grids as extractor input.
func Readers(levels []*Level) []tile.Reader {
	out := make([]tile.Reader, len(levels))
	for i, l := range levels {
		out[i] = l.Grid
	}
	return out
}
