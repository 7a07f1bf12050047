// Package registry maps tiles to semantic groups and binds collision
// categories to those groups. One Registry is built per loaded project and
// passed explicitly to the components that need it.
package registry

import (
	"fmt"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/pthm-cable/tilegrid/collision"
	"github.com/pthm-cable/tilegrid/tile"
)

// Ungrouped is the pseudo-group of tiles with no assignment.
const Ungrouped = "(ungrouped)"

// Group is a named set of tiles.
type Group struct {
	Name    string
	members mapset.Set[tile.Ref]
}

// Size returns the number of member tiles.
func (g *Group) Size() int {
	return g.members.Size()
}

// Has reports whether r belongs to g.
func (g *Group) Has(r tile.Ref) bool {
	return g.members.Has(r)
}

// Registry holds group membership and category bindings.
// It performs no locking; authoring and play must not overlap.
type Registry struct {
	groups   map[string]*Group
	groupOf  map[tile.Ref]string
	bindings map[string][]*collision.Category
	order    []string // group names in creation order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		groups:   make(map[string]*Group),
		groupOf:  make(map[tile.Ref]string),
		bindings: make(map[string][]*collision.Category),
	}
}

// DefineGroup creates an empty group if it does not exist yet.
func (r *Registry) DefineGroup(name string) *Group {
	if g, ok := r.groups[name]; ok {
		return g
	}
	g := &Group{Name: name, members: mapset.New[tile.Ref]()}
	r.groups[name] = g
	r.order = append(r.order, name)
	return g
}

// AssignGroup moves ref into group, removing it from its previous group.
// Assigning a tile to the group it already belongs to is a no-op.
func (r *Registry) AssignGroup(ref tile.Ref, group string) {
	if prev, ok := r.groupOf[ref]; ok {
		if prev == group {
			return
		}
		r.groups[prev].members.Remove(ref)
	}
	r.DefineGroup(group).members.Put(ref)
	r.groupOf[ref] = group
}

// Unassign removes ref from its group, if any.
func (r *Registry) Unassign(ref tile.Ref) {
	if prev, ok := r.groupOf[ref]; ok {
		r.groups[prev].members.Remove(ref)
		delete(r.groupOf, ref)
	}
}

// GroupOf returns the group name of ref.
func (r *Registry) GroupOf(ref tile.Ref) (string, bool) {
	g, ok := r.groupOf[ref]
	return g, ok
}

// GroupOrUngrouped returns the group of ref, or Ungrouped.
func (r *Registry) GroupOrUngrouped(ref tile.Ref) string {
	if g, ok := r.groupOf[ref]; ok {
		return g
	}
	return Ungrouped
}

// HasGroup reports whether a group with this name exists.
func (r *Registry) HasGroup(name string) bool {
	_, ok := r.groups[name]
	return ok
}

// Group returns a group by name.
func (r *Registry) Group(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// Groups returns all group names, sorted.
func (r *Registry) Groups() []string {
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// Members returns the tiles of a group, sorted. Unknown groups yield nil.
func (r *Registry) Members(group string) []tile.Ref {
	g, ok := r.groups[group]
	if !ok {
		return nil
	}
	refs := make([]tile.Ref, 0, g.members.Size())
	g.members.Each(func(ref tile.Ref) {
		refs = append(refs, ref)
	})
	tile.SortRefs(refs)
	return refs
}

// InGroups reports whether ref belongs to any of the named groups.
func (r *Registry) InGroups(ref tile.Ref, groups ...string) bool {
	g, ok := r.groupOf[ref]
	if !ok {
		return false
	}
	return slices.Contains(groups, g)
}

// BindCategory validates cat and binds it to group. A category that fails
// validation is rejected and the registry is left unchanged.
func (r *Registry) BindCategory(group string, cat collision.Category) error {
	if err := collision.Validate(&cat); err != nil {
		return fmt.Errorf("binding %s to %s: %w", cat.Name, group, err)
	}
	cat.Formulas = slices.Clone(cat.Formulas)
	r.DefineGroup(group)
	bound := r.bindings[group]
	for i, existing := range bound {
		if existing.Name == cat.Name {
			bound[i] = &cat
			return nil
		}
	}
	r.bindings[group] = append(bound, &cat)
	return nil
}

// CategoriesOf returns the categories bound to group. Unknown groups and
// groups without collision data yield an empty slice.
func (r *Registry) CategoriesOf(group string) []collision.Category {
	bound := r.bindings[group]
	cats := make([]collision.Category, len(bound))
	for i, c := range bound {
		cats[i] = *c
	}
	return cats
}

// IsBlocking reports whether any category bound to ref's group is
// non-traversable.
func (r *Registry) IsBlocking(ref tile.Ref) bool {
	g, ok := r.groupOf[ref]
	if !ok {
		return false
	}
	for _, c := range r.bindings[g] {
		if c.Blocking {
			return true
		}
	}
	return false
}

// CostMultiplier returns the largest cost multiplier among the categories
// bound to ref's group, or 1 when none are bound.
func (r *Registry) CostMultiplier(ref tile.Ref) float64 {
	g, ok := r.groupOf[ref]
	if !ok {
		return 1
	}
	m := 0.0
	for _, c := range r.bindings[g] {
		m = max(m, c.CostMultiplier())
	}
	if m == 0 {
		return 1
	}
	return m
}

// CollisionAt evaluates the first bound category of ref's group that has a
// formula for the tile-local point.
func (r *Registry) CollisionAt(ref tile.Ref, lx, ly float64) (float64, bool) {
	g, ok := r.groupOf[ref]
	if !ok {
		return 0, false
	}
	for _, c := range r.bindings[g] {
		if v, ok := collision.Evaluate(c, c.Input(lx, ly)); ok {
			return v, true
		}
	}
	return 0, false
}

// SolidAt reports whether the tile-local point is solid under any bound
// category of ref's group.
func (r *Registry) SolidAt(ref tile.Ref, lx, ly float64) bool {
	g, ok := r.groupOf[ref]
	if !ok {
		return false
	}
	for _, c := range r.bindings[g] {
		if c.Solid(lx, ly) {
			return true
		}
	}
	return false
}
