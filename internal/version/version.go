// Package version implements the release version literal and the version
// constraint grammar used by the registry. Literals look like "r1.2.0" or
// "r2.0.0-rc.1"; comparison is delegated to Masterminds semver after the
// leading "r" is stripped.
package version

import (
	"errors"
	"fmt"
	"regexp"

	mm "github.com/Masterminds/semver/v3"
)

// Parsing errors.
var (
	// ErrMalformedVersion indicates a string that does not match the
	// r<major>.<minor>.<patch>[-(alpha|beta|rc).<n>] grammar.
	ErrMalformedVersion = errors.New("malformed version")

	// ErrMalformedConstraint indicates a constraint expression that is
	// neither a version comparison nor a branch pin.
	ErrMalformedConstraint = errors.New("malformed constraint")
)

var versionRegex = regexp.MustCompile(
	`^r(?P<major>0|[1-9][0-9]*)\.(?P<minor>0|[1-9][0-9]*)\.(?P<patch>0|[1-9][0-9]*)` +
		`(-(?P<prerelease>alpha|beta|rc)\.(?P<prerelease_version>0|[1-9][0-9]*))?$`)

// Version is a release version. The zero value is not a valid version;
// construct through Parse or MustParse.
type Version struct {
	raw string
	v   *mm.Version
}

// Parse parses a version literal such as "r1.2.0" or "r2.0.0-beta.3".
func Parse(raw string) (Version, error) {
	if !versionRegex.MatchString(raw) {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, raw)
	}
	v, err := mm.NewVersion(raw[1:])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, raw, err)
	}
	return Version{raw: raw, v: v}, nil
}

// MustParse parses a version literal and panics on failure. Intended for
// tests and compile-time constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original literal, including the leading "r".
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero value rather than a parsed version.
func (v Version) IsZero() bool {
	return v.v == nil
}

// Major returns the major field.
func (v Version) Major() uint64 { return v.v.Major() }

// Minor returns the minor field.
func (v Version) Minor() uint64 { return v.v.Minor() }

// Patch returns the patch field.
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the prerelease suffix without the leading dash, e.g.
// "rc.1", or "" for a final release.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// Compare returns -1, 0 or 1 when a is less than, equal to or greater
// than b. A release without a prerelease suffix sorts above any prerelease
// of the same numeric version, and alpha < beta < rc.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Less reports whether a sorts strictly before b.
func Less(a, b Version) bool {
	return Compare(a, b) < 0
}

// Equal reports whether a and b denote the same version.
func Equal(a, b Version) bool {
	return Compare(a, b) == 0
}
