package registry

import (
	"regexp"

	"github.com/relware/relcomp/internal/version"
)

// RefType distinguishes how a resolved requirement is pinned.
const (
	RefTypeTag    = "tag"
	RefTypeBranch = "branch"
)

var (
	shaRegex     = regexp.MustCompile(`^[0-9a-f]{40}$`)
	repoURLRegex = regexp.MustCompile(`^https://github\.com/.+`)
)

// ValidSha reports whether s is a full lowercase git object sha.
func ValidSha(s string) bool {
	return shaRegex.MatchString(s)
}

// ValidRepoURL reports whether s is an acceptable component repository
// URL.
func ValidRepoURL(s string) bool {
	return repoURLRegex.MatchString(s)
}

// Component is a named, independently releasable unit. Name is the unique
// identifier; RepoURL may change across snapshots, the name never does.
type Component struct {
	Name      string
	RepoURL   string
	IsProduct bool
}

// Release is one immutable release of a component within a series.
// Predecessor holds the sha of the next-lower release in the same series
// at the time the release was created, or "" for the first release of a
// series.
type Release struct {
	Component   string
	Series      string
	Version     version.Version
	SHA         string
	Predecessor string
}

// sameIdentity reports whether two releases describe the same release
// record, ignoring the derived predecessor link.
func (r Release) sameIdentity(o Release) bool {
	return r.Component == o.Component &&
		r.Series == o.Series &&
		version.Equal(r.Version, o.Version) &&
		r.SHA == o.SHA
}

// Dependency is a declared constraint set of one component against a
// target component.
type Dependency struct {
	Target      string
	Constraints []version.Constraint
}

// Requirement is a dependency pinned to a concrete ref: either a release
// tag (Version set, SHA from the release record) or a branch head (Version
// empty, SHA from the branch tip at resolution time).
type Requirement struct {
	Name    string
	Ref     string
	RefType string
	RepoURL string
	SHA     string
	Version string
}
