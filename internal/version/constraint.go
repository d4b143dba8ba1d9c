package version

import (
	"fmt"
	"regexp"
)

// Op is a comparison operator in a version constraint.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLte Op = "<="
	OpGte Op = ">="
	OpLt  Op = "<"
	OpGt  Op = ">"
)

var (
	versionConstraintRegex = regexp.MustCompile(
		`^version(?P<op>(=|!)=|(<|>)=?)(?P<version>r[0-9]+\.[0-9]+\.[0-9]+(-(alpha|beta|rc)\.[0-9]+)?)$`)
	branchConstraintRegex = regexp.MustCompile(`^branch==(?P<branch>.+)$`)
)

// Constraint is one parsed constraint expression: either a version
// comparison ("version<r2.0.0") or a branch pin ("branch==master").
// A dependency declares a list of constraints; a candidate must satisfy
// all of them (conjunction).
type Constraint struct {
	raw    string
	op     Op
	v      Version
	branch string
}

// ParseConstraint parses a single constraint expression.
func ParseConstraint(raw string) (Constraint, error) {
	if m := versionConstraintRegex.FindStringSubmatch(raw); m != nil {
		op := Op(m[versionConstraintRegex.SubexpIndex("op")])
		v, err := Parse(m[versionConstraintRegex.SubexpIndex("version")])
		if err != nil {
			return Constraint{}, fmt.Errorf("%w: %q: %v", ErrMalformedConstraint, raw, err)
		}
		return Constraint{raw: raw, op: op, v: v}, nil
	}
	if m := branchConstraintRegex.FindStringSubmatch(raw); m != nil {
		return Constraint{raw: raw, branch: m[branchConstraintRegex.SubexpIndex("branch")]}, nil
	}
	return Constraint{}, fmt.Errorf("%w: %q", ErrMalformedConstraint, raw)
}

// MustParseConstraint parses a constraint expression and panics on failure.
func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseConstraints parses a list of constraint expressions. Branch and
// version constraints cannot be mixed, and at most one branch constraint
// is allowed per dependency.
func ParseConstraints(raws []string) ([]Constraint, error) {
	cs := make([]Constraint, 0, len(raws))
	branches := 0
	for _, raw := range raws {
		c, err := ParseConstraint(raw)
		if err != nil {
			return nil, err
		}
		if c.IsBranch() {
			branches++
		}
		cs = append(cs, c)
	}
	if branches > 0 && (branches > 1 || len(cs) > 1) {
		return nil, fmt.Errorf("%w: a branch constraint must be the only constraint", ErrMalformedConstraint)
	}
	return cs, nil
}

// MustParseConstraints is ParseConstraints for known-good expressions,
// panicking on failure.
func MustParseConstraints(raws ...string) []Constraint {
	cs, err := ParseConstraints(raws)
	if err != nil {
		panic(err)
	}
	return cs
}

// String returns the original expression.
func (c Constraint) String() string {
	return c.raw
}

// IsBranch reports whether c pins a branch instead of constraining
// versions.
func (c Constraint) IsBranch() bool {
	return c.branch != ""
}

// Branch returns the pinned branch name, or "" for version constraints.
func (c Constraint) Branch() string {
	return c.branch
}

// Satisfies reports whether v meets the constraint. Branch constraints
// are never satisfied by a version; they are resolved against the
// component repository instead.
func (c Constraint) Satisfies(v Version) bool {
	if c.IsBranch() {
		return false
	}
	cmp := Compare(v, c.v)
	switch c.op {
	case OpEq:
		return cmp == 0
	case OpNeq:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

// SatisfiesAll reports whether v meets every constraint in cs.
func SatisfiesAll(cs []Constraint, v Version) bool {
	for _, c := range cs {
		if !c.Satisfies(v) {
			return false
		}
	}
	return true
}

// IsBranchConstraint reports whether cs is a single branch pin.
func IsBranchConstraint(cs []Constraint) bool {
	return len(cs) == 1 && cs[0].IsBranch()
}
