// Package registry models one immutable snapshot of the component
// metadata store: components, their release graphs, declared dependency
// constraints and resolved requirements. A snapshot is constructed once
// (through a Builder) and never mutated; a new commit in the backing
// store yields a new snapshot.
package registry

import (
	"fmt"
	"sort"

	"github.com/relware/relcomp/internal/version"
)

// Registry is one complete metadata snapshot.
type Registry struct {
	components map[string]Component
	graphs     map[string]map[string]*ReleaseGraph
	bySha      map[string]Release
	deps       map[string][]Dependency
	reqs       map[string][]Requirement
}

// Component returns the named component.
func (r *Registry) Component(name string) (Component, bool) {
	c, ok := r.components[name]
	return c, ok
}

// Components returns all components sorted by name.
func (r *Registry) Components() []Component {
	out := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Graph returns the release graph for one (component, series).
func (r *Registry) Graph(component, series string) (*ReleaseGraph, bool) {
	g, ok := r.graphs[component][series]
	return g, ok
}

// Series returns the series names of a component, sorted.
func (r *Registry) Series(component string) []string {
	out := make([]string, 0, len(r.graphs[component]))
	for s := range r.graphs[component] {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Releases returns every release of a component across all series, sorted
// newest first. Releases with equal versions in different series are
// ordered by series name, which makes the lexicographically-first series
// the canonical winner for resolution tie-breaks.
func (r *Registry) Releases(component string) []Release {
	var out []Release
	for _, s := range r.Series(component) {
		out = append(out, r.graphs[component][s].releases...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := version.Compare(out[i].Version, out[j].Version); c != 0 {
			return c > 0
		}
		return out[i].Series < out[j].Series
	})
	return out
}

// AllReleases returns every release in the snapshot, sorted by component,
// series and version.
func (r *Registry) AllReleases() []Release {
	var out []Release
	for _, name := range r.componentNames() {
		for _, s := range r.Series(name) {
			out = append(out, r.graphs[name][s].releases...)
		}
	}
	return out
}

// ReleaseBySha returns the release identified by sha, if any.
func (r *Registry) ReleaseBySha(sha string) (Release, bool) {
	rel, ok := r.bySha[sha]
	return rel, ok
}

// Dependencies returns the declared constraint sets of a component.
func (r *Registry) Dependencies(owner string) []Dependency {
	out := make([]Dependency, len(r.deps[owner]))
	copy(out, r.deps[owner])
	return out
}

// Requirements returns the currently pinned requirements of a component.
func (r *Registry) Requirements(owner string) []Requirement {
	out := make([]Requirement, len(r.reqs[owner]))
	copy(out, r.reqs[owner])
	return out
}

// PredecessorOf returns the predecessor of the release with the given
// version. When the version exists in more than one series the
// lexicographically-first series wins, matching the resolver tie-break.
// The second return is false when the release is the first of its series.
func (r *Registry) PredecessorOf(component string, v version.Version) (Release, bool, error) {
	if _, ok := r.components[component]; !ok {
		return Release{}, false, fmt.Errorf("%w: %q", ErrUnknownComponent, component)
	}
	for _, s := range r.Series(component) {
		g := r.graphs[component][s]
		if _, err := g.Release(v); err != nil {
			continue
		}
		return g.PredecessorOf(v)
	}
	return Release{}, false, fmt.Errorf("%w: %s has no release %s", ErrUnknownVersion, component, v)
}

// CheckAppend verifies that candidate could be appended to its series in
// this exact snapshot: the component must be registered, the sha must be
// well formed and unused anywhere in the snapshot, and the version must be
// strictly greater than the series latest. This is the append contract of
// the release graph surfaced at snapshot level so callers can implement a
// compare-and-swap against the store head.
func (r *Registry) CheckAppend(candidate Release) error {
	if _, ok := r.components[candidate.Component]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, candidate.Component)
	}
	if !ValidSha(candidate.SHA) {
		return fmt.Errorf("%w: %q", ErrMalformedSha, candidate.SHA)
	}
	if existing, ok := r.bySha[candidate.SHA]; ok {
		return fmt.Errorf("%w: %s already used by %s %s",
			ErrDuplicateSha, candidate.SHA, existing.Component, existing.Version)
	}
	g, ok := r.graphs[candidate.Component][candidate.Series]
	if !ok {
		return nil // first release of a new series
	}
	return g.checkAppend(candidate)
}

// Appended returns a new snapshot with candidate appended, after running
// CheckAppend. The receiver is not modified.
func (r *Registry) Appended(candidate Release) (*Registry, error) {
	if err := r.CheckAppend(candidate); err != nil {
		return nil, err
	}
	b := NewBuilder()
	for _, c := range r.Components() {
		_ = b.AddComponent(c)
	}
	for _, rel := range r.AllReleases() {
		_ = b.AddRelease(rel)
	}
	_ = b.AddRelease(candidate)
	for name := range r.components {
		for _, d := range r.deps[name] {
			_ = b.AddDependency(name, d)
		}
		if reqs := r.reqs[name]; len(reqs) > 0 {
			b.SetRequirements(name, reqs)
		}
	}
	return b.Build(), nil
}

func (r *Registry) componentNames() []string {
	names := make([]string, 0, len(r.components))
	for n := range r.components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
