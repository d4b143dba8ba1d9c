// Package resolver turns a component's declared dependency constraints
// into requirements pinned to concrete releases. Resolution is a pure
// function of (constraints, snapshot): re-running it against the same
// snapshot always produces the same pins.
package resolver

import (
	"errors"
	"fmt"

	"github.com/relware/relcomp/internal/registry"
	"github.com/relware/relcomp/internal/version"
)

// Resolver errors.
var (
	// ErrUnsatisfiable indicates that no release of the target component
	// meets the declared constraints.
	ErrUnsatisfiable = errors.New("unsatisfiable constraint")

	// ErrNoBranchResolver indicates a branch constraint encountered while
	// no BranchHeadFunc was supplied.
	ErrNoBranchResolver = errors.New("branch constraint requires a branch resolver")
)

// UnsatisfiableError carries the target and the constraint expressions
// that could not be met.
type UnsatisfiableError struct {
	Target      string
	Constraints []version.Constraint
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("%v: component %q has no release matching %v",
		ErrUnsatisfiable, e.Target, e.Constraints)
}

func (e *UnsatisfiableError) Unwrap() error { return ErrUnsatisfiable }

// BranchHeadFunc resolves the head sha of a branch in a component
// repository. It is the only impure step in resolution and is injected so
// the core stays free of I/O; pass nil when branch constraints should be
// rejected.
type BranchHeadFunc func(repoURL, branch string) (string, error)

// Resolve pins every declared dependency of owner against the snapshot.
// Version constraints are matched newest-first across all series of the
// target; when two series carry an equal version, the lexicographically
// first series wins. Branch constraints are resolved through branchHead.
func Resolve(reg *registry.Registry, owner string, branchHead BranchHeadFunc) ([]registry.Requirement, error) {
	if _, ok := reg.Component(owner); !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownComponent, owner)
	}
	deps := reg.Dependencies(owner)
	out := make([]registry.Requirement, 0, len(deps))
	for _, dep := range deps {
		target, ok := reg.Component(dep.Target)
		if !ok {
			return nil, fmt.Errorf("%w: %q", registry.ErrUnknownComponent, dep.Target)
		}
		var (
			req registry.Requirement
			err error
		)
		if version.IsBranchConstraint(dep.Constraints) {
			req, err = resolveBranch(target, dep.Constraints[0], branchHead)
		} else {
			req, err = resolveVersion(reg, target, dep.Constraints)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func resolveVersion(reg *registry.Registry, target registry.Component, cs []version.Constraint) (registry.Requirement, error) {
	for _, rel := range reg.Releases(target.Name) {
		if !version.SatisfiesAll(cs, rel.Version) {
			continue
		}
		return registry.Requirement{
			Name:    target.Name,
			Ref:     rel.Version.String(),
			RefType: registry.RefTypeTag,
			RepoURL: target.RepoURL,
			SHA:     rel.SHA,
			Version: rel.Version.String(),
		}, nil
	}
	return registry.Requirement{}, &UnsatisfiableError{Target: target.Name, Constraints: cs}
}

func resolveBranch(target registry.Component, c version.Constraint, branchHead BranchHeadFunc) (registry.Requirement, error) {
	if branchHead == nil {
		return registry.Requirement{}, fmt.Errorf("%w: %s on %s", ErrNoBranchResolver, c, target.Name)
	}
	sha, err := branchHead(target.RepoURL, c.Branch())
	if err != nil {
		return registry.Requirement{}, fmt.Errorf("resolve branch %s of %s: %w", c.Branch(), target.Name, err)
	}
	return registry.Requirement{
		Name:    target.Name,
		Ref:     c.Branch(),
		RefType: registry.RefTypeBranch,
		RepoURL: target.RepoURL,
		SHA:     sha,
	}, nil
}
