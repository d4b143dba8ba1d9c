package registry

import (
	"fmt"
)

// Builder assembles a Registry snapshot. It is structurally strict
// (duplicate component names and releases for unregistered components are
// rejected) but deliberately does not enforce the ordering, uniqueness or
// dependency invariants: a snapshot decoded from a corrupted store must
// still be buildable so Validate can enumerate everything wrong with it.
type Builder struct {
	reg *Registry
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{reg: &Registry{
		components: make(map[string]Component),
		graphs:     make(map[string]map[string]*ReleaseGraph),
		bySha:      make(map[string]Release),
		deps:       make(map[string][]Dependency),
		reqs:       make(map[string][]Requirement),
	}}
}

// AddComponent registers a component record.
func (b *Builder) AddComponent(c Component) error {
	if _, ok := b.reg.components[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateComponent, c.Name)
	}
	b.reg.components[c.Name] = c
	b.reg.graphs[c.Name] = make(map[string]*ReleaseGraph)
	return nil
}

// AddRelease appends a release to its series chain in creation order,
// deriving the predecessor link from the chain tail. Releases must be
// added oldest first within a series.
func (b *Builder) AddRelease(r Release) error {
	if _, ok := b.reg.components[r.Component]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, r.Component)
	}
	g, ok := b.reg.graphs[r.Component][r.Series]
	if !ok {
		g = newReleaseGraph(r.Component, r.Series)
		b.reg.graphs[r.Component][r.Series] = g
	}
	appended := g.append(r)
	if _, dup := b.reg.bySha[r.SHA]; !dup {
		b.reg.bySha[r.SHA] = appended
	}
	return nil
}

// AddDependency records a declared constraint set for owner.
func (b *Builder) AddDependency(owner string, d Dependency) error {
	if _, ok := b.reg.components[owner]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, owner)
	}
	b.reg.deps[owner] = append(b.reg.deps[owner], d)
	return nil
}

// SetRequirements records the resolved requirements of owner, replacing
// any previously set.
func (b *Builder) SetRequirements(owner string, reqs []Requirement) {
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	b.reg.reqs[owner] = out
}

// Build returns the assembled snapshot. The builder must not be reused.
func (b *Builder) Build() *Registry {
	reg := b.reg
	b.reg = nil
	return reg
}
