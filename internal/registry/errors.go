package registry

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	// ErrUnknownComponent indicates a reference to a component that is not
	// registered in the snapshot.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnknownVersion indicates a reference to a version with no release
	// in the queried series.
	ErrUnknownVersion = errors.New("unknown version")

	// ErrDuplicateComponent indicates two component records with the same
	// name in one snapshot.
	ErrDuplicateComponent = errors.New("duplicate component")

	// ErrVersionNotMonotonic indicates a release append whose version is
	// not strictly greater than the latest release of its series.
	ErrVersionNotMonotonic = errors.New("version not monotonic")

	// ErrDuplicateSha indicates a release sha that already exists somewhere
	// in the snapshot.
	ErrDuplicateSha = errors.New("duplicate sha")

	// ErrMalformedSha indicates a sha that is not 40 lowercase hex chars.
	ErrMalformedSha = errors.New("malformed sha")
)

// Invariant names reported by Validate.
const (
	InvariantUniqueSha       = "unique-sha"
	InvariantOrderedSeries   = "ordered-series"
	InvariantKnownTargets    = "known-targets"
	InvariantAcyclicDeps     = "acyclic-dependencies"
	InvariantPinnedSatisfies = "pinned-satisfies"
)

// InvariantViolation describes one violated registry invariant. Validate
// reports every violation it finds, never just the first.
type InvariantViolation struct {
	Which  string
	Detail string
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", v.Which, v.Detail)
}
