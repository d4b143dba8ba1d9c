package verifier

import (
	"fmt"
	"sort"

	"github.com/relware/relcomp/internal/registry"
	"github.com/relware/relcomp/internal/resolver"
)

// Mode selects what kind of transition is being verified.
type Mode string

const (
	// ModeRelease verifies the addition of exactly one release.
	ModeRelease Mode = "release"

	// ModeRegistration verifies the registration of exactly one component.
	ModeRegistration Mode = "registration"
)

// Result is the outcome of a verification. Reasons is empty iff Valid.
type Result struct {
	Valid   bool
	Reasons []string
}

func invalid(reasons []string) Result {
	sort.Strings(reasons)
	return Result{Valid: len(reasons) == 0, Reasons: reasons}
}

// Verify dispatches on mode.
func Verify(mode Mode, before, after *registry.Registry) (Result, error) {
	switch mode {
	case ModeRelease:
		return VerifyRelease(before, after), nil
	case ModeRegistration:
		return VerifyRegistration(before, after), nil
	default:
		return Result{}, fmt.Errorf("unknown verification mode %q", mode)
	}
}

// VerifyRelease reports whether the transition from before to after is
// exactly one legal release addition: one new release whose append would
// have succeeded against before, no other change to components, releases
// or constraints, optionally re-resolved requirements, and a fully
// consistent after snapshot.
func VerifyRelease(before, after *registry.Registry) Result {
	d := Compute(before, after)
	var reasons []string

	if n := len(d.NewReleases); n != 1 {
		reasons = append(reasons, fmt.Sprintf("expected exactly one new release, found %d", n))
	}
	for _, r := range d.RemovedReleases {
		reasons = append(reasons, fmt.Sprintf("release %s %s (series %s) was deleted", r.Component, r.Version, r.Series))
	}
	for _, r := range d.MutatedReleases {
		reasons = append(reasons, fmt.Sprintf("release %s %s (series %s) was modified", r.Component, r.Version, r.Series))
	}

	if len(d.NewReleases) == 1 {
		candidate := d.NewReleases[0]
		if err := before.CheckAppend(candidate); err != nil {
			reasons = append(reasons, fmt.Sprintf("new release %s %s: %v", candidate.Component, candidate.Version, err))
		}
	}

	for _, c := range d.AddedComponents {
		reasons = append(reasons, fmt.Sprintf("component %q was registered", c.Name))
	}
	for _, c := range d.RemovedComponents {
		reasons = append(reasons, fmt.Sprintf("component %q was deleted", c.Name))
	}
	for _, name := range d.ChangedComponents {
		reasons = append(reasons, fmt.Sprintf("component %q was modified", name))
	}
	for _, name := range d.ChangedDependencies {
		reasons = append(reasons, fmt.Sprintf("declared dependencies of %q changed", name))
	}

	reasons = append(reasons, checkRequirementChanges(d, after)...)

	for _, v := range registry.Validate(after) {
		reasons = append(reasons, v.Error())
	}
	return invalid(reasons)
}

// VerifyRegistration reports whether the transition from before to after
// is exactly one component registration. The new component may carry its
// own releases, dependencies and requirements; nothing else may change.
func VerifyRegistration(before, after *registry.Registry) Result {
	d := Compute(before, after)
	var reasons []string

	var newName string
	switch len(d.AddedComponents) {
	case 1:
		newName = d.AddedComponents[0].Name
	default:
		reasons = append(reasons, fmt.Sprintf("expected exactly one new component, found %d", len(d.AddedComponents)))
	}
	for _, c := range d.RemovedComponents {
		reasons = append(reasons, fmt.Sprintf("component %q was deleted", c.Name))
	}
	for _, name := range d.ChangedComponents {
		reasons = append(reasons, fmt.Sprintf("component %q was modified", name))
	}

	for _, r := range d.NewReleases {
		if r.Component != newName {
			reasons = append(reasons, fmt.Sprintf("release %s %s added outside the new component", r.Component, r.Version))
		}
	}
	for _, r := range d.RemovedReleases {
		reasons = append(reasons, fmt.Sprintf("release %s %s (series %s) was deleted", r.Component, r.Version, r.Series))
	}
	for _, r := range d.MutatedReleases {
		reasons = append(reasons, fmt.Sprintf("release %s %s (series %s) was modified", r.Component, r.Version, r.Series))
	}

	for _, name := range d.ChangedDependencies {
		if name != newName {
			reasons = append(reasons, fmt.Sprintf("declared dependencies of %q changed", name))
		}
	}
	for owner := range d.AddedRequirements {
		if owner != newName {
			reasons = append(reasons, fmt.Sprintf("requirements of %q changed", owner))
		}
	}
	for owner := range d.RemovedRequirements {
		reasons = append(reasons, fmt.Sprintf("requirements of %q were removed", owner))
	}

	for _, v := range registry.Validate(after) {
		reasons = append(reasons, v.Error())
	}
	return invalid(reasons)
}

// checkRequirementChanges allows a release addition to be bundled with an
// update-requirements step: requirements may only be added, and every
// added pin must be exactly what the resolver would produce against
// after. Branch pins reference repository state outside the snapshot and
// cannot be re-derived, so their recorded shas are taken at face value.
func checkRequirementChanges(d *Delta, after *registry.Registry) []string {
	var reasons []string
	for owner, reqs := range d.RemovedRequirements {
		for _, req := range reqs {
			reasons = append(reasons, fmt.Sprintf("requirement of %q on %q was removed", owner, req.Name))
		}
	}

	owners := make([]string, 0, len(d.AddedRequirements))
	for owner := range d.AddedRequirements {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		branchHead := branchHeadFromRequirements(after.Requirements(owner))
		resolved, err := resolver.Resolve(after, owner, branchHead)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("requirements of %q cannot be re-derived: %v", owner, err))
			continue
		}
		valid := make(map[string]bool, len(resolved))
		for _, req := range resolved {
			valid[requirementKey(req)] = true
		}
		for _, req := range d.AddedRequirements[owner] {
			if !valid[requirementKey(req)] {
				reasons = append(reasons, fmt.Sprintf(
					"requirement of %q on %q does not match resolution against the new snapshot", owner, req.Name))
			}
		}
	}
	return reasons
}

func branchHeadFromRequirements(reqs []registry.Requirement) resolver.BranchHeadFunc {
	return func(repoURL, branch string) (string, error) {
		for _, req := range reqs {
			if req.RefType == registry.RefTypeBranch && req.Ref == branch && req.RepoURL == repoURL {
				return req.SHA, nil
			}
		}
		return "", fmt.Errorf("no recorded branch pin for %s@%s", repoURL, branch)
	}
}
