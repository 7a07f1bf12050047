package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/tilegrid/circuit"
	"github.com/pthm-cable/tilegrid/collision"
	"github.com/pthm-cable/tilegrid/registry"
	"github.com/pthm-cable/tilegrid/tile"
)

// Project is the authored tile data for one game: group membership,
// collision categories, their bindings and circuit definitions.
type Project struct {
	Groups     []GroupDoc    `yaml:"groups"`
	Categories []CategoryDoc `yaml:"categories"`
	Bindings   []BindingDoc  `yaml:"bindings"`
	Circuits   []CircuitDoc  `yaml:"circuits"`
}

// GroupDoc lists the tiles of one group.
type GroupDoc struct {
	Name  string     `yaml:"name"`
	Tiles []tile.Ref `yaml:"tiles"`
}

// CategoryDoc is a collision category with its formulas.
type CategoryDoc struct {
	Name     string       `yaml:"name"`
	Axis     string       `yaml:"axis,omitempty"`
	Blocking bool         `yaml:"blocking,omitempty"`
	Cost     float64      `yaml:"cost,omitempty"`
	Formulas []FormulaDoc `yaml:"formulas,omitempty"`
}

// FormulaDoc is one piece of a category on [min, max).
type FormulaDoc struct {
	Kind   string  `yaml:"kind,omitempty"` // linear (default), flat, void
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Slope  float64 `yaml:"slope,omitempty"`
	Offset float64 `yaml:"offset,omitempty"`
}

// BindingDoc binds categories to a group.
type BindingDoc struct {
	Group      string   `yaml:"group"`
	Categories []string `yaml:"categories"`
}

// CircuitDoc is a circuit definition. Masks are integer literals such as
// "0b00010001".
type CircuitDoc struct {
	Name    string           `yaml:"name"`
	Groups  []string         `yaml:"groups"`
	Default tile.Ref         `yaml:"default"`
	Tiles   []CircuitTileDoc `yaml:"tiles"`
}

// CircuitTileDoc maps one mask to a tile.
type CircuitTileDoc struct {
	Mask string   `yaml:"mask"`
	Tile tile.Ref `yaml:"tile"`
}

// Workspace is a built project: the registry and its validated circuits.
// It is constructed once per load and passed to every component.
type Workspace struct {
	Registry *registry.Registry
	Circuits map[string]*circuit.Circuit
}

// Circuit returns the named circuit.
func (w *Workspace) Circuit(name string) (*circuit.Circuit, bool) {
	c, ok := w.Circuits[name]
	return c, ok
}

// CircuitNames returns circuit names, sorted.
func (w *Workspace) CircuitNames() []string {
	names := make([]string, 0, len(w.Circuits))
	for n := range w.Circuits {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

//go:embed project.yaml
var defaultProjectYAML []byte

// DefaultProject returns the built-in project matching the default
// procgen bands.
func DefaultProject() *Project {
	p, err := ParseProject(defaultProjectYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded project: %v", err))
	}
	return p
}

// LoadProject reads a project document. Unknown fields are rejected.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	return ParseProject(data)
}

// ParseProject decodes a project document.
func ParseProject(data []byte) (*Project, error) {
	p := &Project{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("parsing project: %w", err)
	}
	return p, nil
}

// WriteProject writes the project document to path.
func (p *Project) WriteProject(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	return nil
}

// Build validates the project and constructs a Workspace. Every problem
// found is reported, joined; a project with any problem yields no
// workspace.
func (p *Project) Build() (*Workspace, error) {
	reg := registry.New()
	var errs []error

	owner := make(map[tile.Ref]string)
	for _, g := range p.Groups {
		if g.Name == "" {
			errs = append(errs, tile.ConfigErrorf("groups", "group with no name"))
			continue
		}
		if reg.HasGroup(g.Name) {
			errs = append(errs, tile.ConfigErrorf("groups", "group %q declared twice", g.Name))
		}
		reg.DefineGroup(g.Name)
		for _, ref := range g.Tiles {
			if prev, ok := owner[ref]; ok && prev != g.Name {
				errs = append(errs, tile.ConfigErrorf("groups", "tile %v in both %q and %q", ref, prev, g.Name))
				continue
			}
			owner[ref] = g.Name
			reg.AssignGroup(ref, g.Name)
		}
	}

	cats := make(map[string]collision.Category, len(p.Categories))
	for _, doc := range p.Categories {
		cat, err := doc.category()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := cats[cat.Name]; dup {
			errs = append(errs, tile.ConfigErrorf("categories", "category %q declared twice", cat.Name))
			continue
		}
		cats[cat.Name] = cat
	}

	for _, b := range p.Bindings {
		if !reg.HasGroup(b.Group) {
			errs = append(errs, tile.ConfigErrorf("bindings", "unknown group %q", b.Group))
			continue
		}
		for _, name := range b.Categories {
			cat, ok := cats[name]
			if !ok {
				errs = append(errs, tile.ConfigErrorf("bindings", "group %q: unknown category %q", b.Group, name))
				continue
			}
			if err := reg.BindCategory(b.Group, cat); err != nil {
				errs = append(errs, err)
			}
		}
	}

	circuits := make(map[string]*circuit.Circuit, len(p.Circuits))
	for _, doc := range p.Circuits {
		c, err := doc.circuit()
		if err == nil {
			err = circuit.Validate(c, reg)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := circuits[c.Name]; dup {
			errs = append(errs, tile.ConfigErrorf("circuits", "circuit %q declared twice", c.Name))
			continue
		}
		circuits[c.Name] = c
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Workspace{Registry: reg, Circuits: circuits}, nil
}

func (d CategoryDoc) category() (collision.Category, error) {
	source := "category " + d.Name
	axis, err := collision.ParseAxis(d.Axis)
	if err != nil {
		return collision.Category{}, tile.ConfigErrorf(source, "%v", err)
	}
	cat := collision.Category{Name: d.Name, Axis: axis, Blocking: d.Blocking, Cost: d.Cost}
	for i, f := range d.Formulas {
		kind, err := collision.ParseKind(f.Kind)
		if err != nil {
			return collision.Category{}, tile.ConfigErrorf(source, "formula %d: %v", i, err)
		}
		cat.Formulas = append(cat.Formulas, collision.Formula{
			Kind:   kind,
			Min:    f.Min,
			Max:    f.Max,
			Slope:  f.Slope,
			Offset: f.Offset,
		})
	}
	if err := collision.Validate(&cat); err != nil {
		return collision.Category{}, err
	}
	return cat, nil
}

func (d CircuitDoc) circuit() (*circuit.Circuit, error) {
	b := circuit.NewBuilder(d.Name, d.Groups...).Default(d.Default)
	seen := make(map[tile.Mask]bool, len(d.Tiles))
	for _, t := range d.Tiles {
		m, err := tile.ParseMask(t.Mask)
		if err != nil {
			return nil, tile.ConfigErrorf("circuit "+d.Name, "%v", err)
		}
		if seen[m] {
			return nil, tile.ConfigErrorf("circuit "+d.Name, "mask %v declared twice", m)
		}
		seen[m] = true
		b.Set(m, t.Tile)
	}
	return b.Build(), nil
}

// CircuitDocOf converts a circuit back to its document form, masks in
// ascending order.
func CircuitDocOf(c *circuit.Circuit) CircuitDoc {
	doc := CircuitDoc{Name: c.Name, Groups: slices.Clone(c.Groups), Default: c.Default}
	masks := make([]int, 0, len(c.Tiles))
	for m := range c.Tiles {
		masks = append(masks, int(m))
	}
	slices.Sort(masks)
	for _, m := range masks {
		doc.Tiles = append(doc.Tiles, CircuitTileDoc{Mask: tile.Mask(m).String(), Tile: c.Tiles[tile.Mask(m)]})
	}
	return doc
}
