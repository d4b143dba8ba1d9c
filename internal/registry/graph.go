package registry

import (
	"fmt"

	"github.com/relware/relcomp/internal/version"
)

// ReleaseGraph is the ordered release chain for one (component, series).
// Releases are kept in creation order, which for a valid registry is also
// strict version order. The graph is part of an immutable snapshot; the
// only mutation path is the builder, and appends against a live store go
// through Registry.CheckAppend so the monotonicity check is always made
// against an explicit snapshot.
type ReleaseGraph struct {
	component string
	series    string
	releases  []Release
}

func newReleaseGraph(component, series string) *ReleaseGraph {
	return &ReleaseGraph{component: component, series: series}
}

// Component returns the owning component name.
func (g *ReleaseGraph) Component() string { return g.component }

// Series returns the series name.
func (g *ReleaseGraph) Series() string { return g.series }

// Releases returns the chain in creation order (oldest first).
func (g *ReleaseGraph) Releases() []Release {
	out := make([]Release, len(g.releases))
	copy(out, g.releases)
	return out
}

// Latest returns the most recently created release of the series, or
// false for an empty series.
func (g *ReleaseGraph) Latest() (Release, bool) {
	if len(g.releases) == 0 {
		return Release{}, false
	}
	return g.releases[len(g.releases)-1], true
}

// Release returns the release with the given version.
func (g *ReleaseGraph) Release(v version.Version) (Release, error) {
	for _, r := range g.releases {
		if version.Equal(r.Version, v) {
			return r, nil
		}
	}
	return Release{}, fmt.Errorf("%w: %s has no release %s in series %s",
		ErrUnknownVersion, g.component, v, g.series)
}

// PredecessorOf returns the release created immediately before the release
// with the given version. The second return is false when the version is
// the first release of the series. An unknown version is an error.
func (g *ReleaseGraph) PredecessorOf(v version.Version) (Release, bool, error) {
	for i, r := range g.releases {
		if version.Equal(r.Version, v) {
			if i == 0 {
				return Release{}, false, nil
			}
			return g.releases[i-1], true, nil
		}
	}
	return Release{}, false, fmt.Errorf("%w: %s has no release %s in series %s",
		ErrUnknownVersion, g.component, v, g.series)
}

// checkAppend verifies that candidate may extend the chain: its version
// must be strictly greater than the current latest. Sha uniqueness is
// registry-wide and checked by the Registry.
func (g *ReleaseGraph) checkAppend(candidate Release) error {
	latest, ok := g.Latest()
	if !ok {
		return nil
	}
	if version.Compare(candidate.Version, latest.Version) <= 0 {
		return fmt.Errorf("%w: %s is not greater than latest %s of %s series %s",
			ErrVersionNotMonotonic, candidate.Version, latest.Version, g.component, g.series)
	}
	return nil
}

// append inserts candidate at the end of the chain, linking its
// predecessor to the current latest. Callers are expected to have run
// checkAppend (or to be rebuilding a snapshot that Validate will sweep).
func (g *ReleaseGraph) append(candidate Release) Release {
	if latest, ok := g.Latest(); ok {
		candidate.Predecessor = latest.SHA
	} else {
		candidate.Predecessor = ""
	}
	g.releases = append(g.releases, candidate)
	return candidate
}
