// Package verifier decides whether the transition between two registry
// snapshots is a legal change: exactly one release addition, or exactly
// one component registration. It re-derives every check from the two
// snapshots instead of trusting the newer one, and reports every violated
// clause rather than stopping at the first.
package verifier

import (
	"fmt"
	"sort"

	"github.com/relware/relcomp/internal/registry"
)

// Delta is the structural difference between two snapshots.
type Delta struct {
	AddedComponents   []registry.Component
	RemovedComponents []registry.Component
	ChangedComponents []string

	NewReleases     []registry.Release
	RemovedReleases []registry.Release
	MutatedReleases []registry.Release

	ChangedDependencies []string

	AddedRequirements   map[string][]registry.Requirement
	RemovedRequirements map[string][]registry.Requirement
}

// Empty reports whether the two snapshots are structurally identical.
func (d *Delta) Empty() bool {
	return len(d.AddedComponents) == 0 && len(d.RemovedComponents) == 0 &&
		len(d.ChangedComponents) == 0 && len(d.NewReleases) == 0 &&
		len(d.RemovedReleases) == 0 && len(d.MutatedReleases) == 0 &&
		len(d.ChangedDependencies) == 0 && len(d.AddedRequirements) == 0 &&
		len(d.RemovedRequirements) == 0
}

func releaseKey(r registry.Release) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s", r.Component, r.Series, r.Version, r.SHA)
}

func releaseSlot(r registry.Release) string {
	return fmt.Sprintf("%s\x00%s\x00%s", r.Component, r.Series, r.Version)
}

func requirementKey(r registry.Requirement) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%s",
		r.Name, r.Ref, r.RefType, r.RepoURL, r.SHA, r.Version)
}

func depsEqual(a, b []registry.Dependency) bool {
	if len(a) != len(b) {
		return false
	}
	render := func(ds []registry.Dependency) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			s := d.Target
			for _, c := range d.Constraints {
				s += "\x00" + c.String()
			}
			out = append(out, s)
		}
		sort.Strings(out)
		return out
	}
	ra, rb := render(a), render(b)
	for i := range ra {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

// Compute returns the structural delta from before to after.
func Compute(before, after *registry.Registry) *Delta {
	d := &Delta{
		AddedRequirements:   make(map[string][]registry.Requirement),
		RemovedRequirements: make(map[string][]registry.Requirement),
	}

	for _, c := range after.Components() {
		prev, ok := before.Component(c.Name)
		switch {
		case !ok:
			d.AddedComponents = append(d.AddedComponents, c)
		case prev != c:
			d.ChangedComponents = append(d.ChangedComponents, c.Name)
		}
	}
	for _, c := range before.Components() {
		if _, ok := after.Component(c.Name); !ok {
			d.RemovedComponents = append(d.RemovedComponents, c)
		}
	}

	beforeByKey := make(map[string]registry.Release)
	beforeBySlot := make(map[string]registry.Release)
	for _, r := range before.AllReleases() {
		beforeByKey[releaseKey(r)] = r
		beforeBySlot[releaseSlot(r)] = r
	}
	afterByKey := make(map[string]registry.Release)
	afterBySlot := make(map[string]registry.Release)
	for _, r := range after.AllReleases() {
		afterByKey[releaseKey(r)] = r
		afterBySlot[releaseSlot(r)] = r
	}
	for _, r := range after.AllReleases() {
		if _, ok := beforeByKey[releaseKey(r)]; ok {
			continue
		}
		if _, slotTaken := beforeBySlot[releaseSlot(r)]; slotTaken {
			d.MutatedReleases = append(d.MutatedReleases, r)
		} else {
			d.NewReleases = append(d.NewReleases, r)
		}
	}
	for _, r := range before.AllReleases() {
		if _, ok := afterByKey[releaseKey(r)]; ok {
			continue
		}
		if _, slotTaken := afterBySlot[releaseSlot(r)]; !slotTaken {
			d.RemovedReleases = append(d.RemovedReleases, r)
		}
	}

	owners := make(map[string]bool)
	for _, c := range before.Components() {
		owners[c.Name] = true
	}
	for _, c := range after.Components() {
		owners[c.Name] = true
	}
	names := make([]string, 0, len(owners))
	for n := range owners {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if !depsEqual(before.Dependencies(n), after.Dependencies(n)) {
			d.ChangedDependencies = append(d.ChangedDependencies, n)
		}
		beforeReqs := make(map[string]registry.Requirement)
		for _, req := range before.Requirements(n) {
			beforeReqs[requirementKey(req)] = req
		}
		afterReqs := make(map[string]registry.Requirement)
		for _, req := range after.Requirements(n) {
			afterReqs[requirementKey(req)] = req
		}
		for _, req := range after.Requirements(n) {
			if _, ok := beforeReqs[requirementKey(req)]; !ok {
				d.AddedRequirements[n] = append(d.AddedRequirements[n], req)
			}
		}
		for _, req := range before.Requirements(n) {
			if _, ok := afterReqs[requirementKey(req)]; !ok {
				d.RemovedRequirements[n] = append(d.RemovedRequirements[n], req)
			}
		}
	}
	return d
}
