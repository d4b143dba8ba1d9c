package registry

import (
	"fmt"
	"sort"
)

// DependentsOf returns the components that declare a constraint against
// the named component. Direct dependents only; transitive reachability is
// a traversal concern for callers, not part of the snapshot contract.
func DependentsOf(r *Registry, name string) ([]Component, error) {
	if _, ok := r.Component(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	var out []Component
	for _, c := range r.Components() {
		for _, d := range r.Dependencies(c.Name) {
			if d.Target == name {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
