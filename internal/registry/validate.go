package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relware/relcomp/internal/version"
)

// Validate sweeps every registry invariant and returns all violations
// found. An empty result means the snapshot is internally consistent.
func Validate(r *Registry) []InvariantViolation {
	var out []InvariantViolation
	out = append(out, checkShas(r)...)
	out = append(out, checkSeriesOrder(r)...)
	out = append(out, checkTargets(r)...)
	out = append(out, checkAcyclic(r)...)
	out = append(out, checkPins(r)...)
	return out
}

func checkShas(r *Registry) []InvariantViolation {
	var out []InvariantViolation
	seen := make(map[string]Release)
	for _, rel := range r.AllReleases() {
		if !ValidSha(rel.SHA) {
			out = append(out, InvariantViolation{
				Which:  InvariantUniqueSha,
				Detail: fmt.Sprintf("%s %s has malformed sha %q", rel.Component, rel.Version, rel.SHA),
			})
			continue
		}
		if prev, dup := seen[rel.SHA]; dup {
			out = append(out, InvariantViolation{
				Which: InvariantUniqueSha,
				Detail: fmt.Sprintf("sha %s used by both %s %s and %s %s",
					rel.SHA, prev.Component, prev.Version, rel.Component, rel.Version),
			})
			continue
		}
		seen[rel.SHA] = rel
	}
	return out
}

func checkSeriesOrder(r *Registry) []InvariantViolation {
	var out []InvariantViolation
	for _, c := range r.Components() {
		for _, s := range r.Series(c.Name) {
			g, _ := r.Graph(c.Name, s)
			rels := g.Releases()
			for i, rel := range rels {
				if i == 0 {
					if rel.Predecessor != "" {
						out = append(out, InvariantViolation{
							Which: InvariantOrderedSeries,
							Detail: fmt.Sprintf("%s series %s: first release %s has predecessor %s",
								c.Name, s, rel.Version, rel.Predecessor),
						})
					}
					continue
				}
				if version.Compare(rel.Version, rels[i-1].Version) <= 0 {
					out = append(out, InvariantViolation{
						Which: InvariantOrderedSeries,
						Detail: fmt.Sprintf("%s series %s: %s does not increase on %s",
							c.Name, s, rel.Version, rels[i-1].Version),
					})
				}
				if rel.Predecessor != rels[i-1].SHA {
					out = append(out, InvariantViolation{
						Which: InvariantOrderedSeries,
						Detail: fmt.Sprintf("%s series %s: %s predecessor %q does not match %s",
							c.Name, s, rel.Version, rel.Predecessor, rels[i-1].SHA),
					})
				}
			}
		}
	}
	return out
}

func checkTargets(r *Registry) []InvariantViolation {
	var out []InvariantViolation
	for _, c := range r.Components() {
		for _, d := range r.Dependencies(c.Name) {
			if _, ok := r.Component(d.Target); !ok {
				out = append(out, InvariantViolation{
					Which:  InvariantKnownTargets,
					Detail: fmt.Sprintf("%s depends on unregistered component %q", c.Name, d.Target),
				})
			}
		}
	}
	return out
}

// checkAcyclic runs Kahn's algorithm over the owner -> target relation
// built from declared dependencies and resolved requirements. Nodes left
// with incoming edges after the sort form the cycle.
func checkAcyclic(r *Registry) []InvariantViolation {
	nodes := r.componentNames()
	edges := make(map[string][]string)
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n] = 0
	}
	addEdge := func(owner, target string) {
		if _, ok := r.Component(target); !ok {
			return // reported by checkTargets
		}
		for _, t := range edges[owner] {
			if t == target {
				return
			}
		}
		edges[owner] = append(edges[owner], target)
		inDegree[target]++
	}
	for _, n := range nodes {
		for _, d := range r.Dependencies(n) {
			addEdge(n, d.Target)
		}
		for _, req := range r.Requirements(n) {
			addEdge(n, req.Name)
		}
	}

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	done := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		done++
		for _, t := range edges[n] {
			inDegree[t]--
			if inDegree[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
	if done == len(nodes) {
		return nil
	}
	var cycle []string
	for _, n := range nodes {
		if inDegree[n] > 0 {
			cycle = append(cycle, n)
		}
	}
	sort.Strings(cycle)
	return []InvariantViolation{{
		Which:  InvariantAcyclicDeps,
		Detail: fmt.Sprintf("dependency cycle involving %s", strings.Join(cycle, ", ")),
	}}
}

func checkPins(r *Registry) []InvariantViolation {
	var out []InvariantViolation
	for _, c := range r.Components() {
		declared := make(map[string][]version.Constraint)
		for _, d := range r.Dependencies(c.Name) {
			declared[d.Target] = d.Constraints
		}
		for _, req := range r.Requirements(c.Name) {
			cs, ok := declared[req.Name]
			if !ok {
				out = append(out, InvariantViolation{
					Which:  InvariantPinnedSatisfies,
					Detail: fmt.Sprintf("%s pins %s without a declared dependency", c.Name, req.Name),
				})
				continue
			}
			if version.IsBranchConstraint(cs) {
				if req.RefType != RefTypeBranch || req.Ref != cs[0].Branch() {
					out = append(out, InvariantViolation{
						Which: InvariantPinnedSatisfies,
						Detail: fmt.Sprintf("%s pin of %s does not follow branch constraint %s",
							c.Name, req.Name, cs[0]),
					})
				}
				continue
			}
			v, err := version.Parse(req.Version)
			if err != nil {
				out = append(out, InvariantViolation{
					Which:  InvariantPinnedSatisfies,
					Detail: fmt.Sprintf("%s pin of %s has malformed version %q", c.Name, req.Name, req.Version),
				})
				continue
			}
			if !version.SatisfiesAll(cs, v) {
				out = append(out, InvariantViolation{
					Which: InvariantPinnedSatisfies,
					Detail: fmt.Sprintf("%s pin of %s at %s does not satisfy declared constraints",
						c.Name, req.Name, req.Version),
				})
			}
			rel, ok := r.ReleaseBySha(req.SHA)
			if !ok || rel.Component != req.Name || !version.Equal(rel.Version, v) {
				out = append(out, InvariantViolation{
					Which: InvariantPinnedSatisfies,
					Detail: fmt.Sprintf("%s pin of %s at %s does not match any release (sha %s)",
						c.Name, req.Name, req.Version, req.SHA),
				})
			}
		}
	}
	return out
}
