package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relware/relcomp/internal/version"
)

// sha produces a distinct well-formed sha per seed.
func sha(seed int) string {
	return fmt.Sprintf("%040x", seed)
}

func mustBuild(t *testing.T, fn func(b *Builder)) *Registry {
	t.Helper()
	b := NewBuilder()
	fn(b)
	return b.Build()
}

func addComponent(t *testing.T, b *Builder, name string) {
	t.Helper()
	require.NoError(t, b.AddComponent(Component{
		Name:    name,
		RepoURL: "https://github.com/relware/" + name,
	}))
}

func addRelease(t *testing.T, b *Builder, component, series, v string, seed int) {
	t.Helper()
	require.NoError(t, b.AddRelease(Release{
		Component: component,
		Series:    series,
		Version:   version.MustParse(v),
		SHA:       sha(seed),
	}))
}

func TestBuilder_DuplicateComponent(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddComponent(Component{Name: "api"}))
	require.ErrorIs(t, b.AddComponent(Component{Name: "api"}), ErrDuplicateComponent)
}

func TestBuilder_ReleaseForUnknownComponent(t *testing.T) {
	b := NewBuilder()
	err := b.AddRelease(Release{Component: "ghost", Series: "master", Version: version.MustParse("r1.0.0"), SHA: sha(1)})
	require.ErrorIs(t, err, ErrUnknownComponent)
}

func TestRegistry_Components_Sorted(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "zeta")
		addComponent(t, b, "alpha")
		addComponent(t, b, "mid")
	})
	var names []string
	for _, c := range reg.Components() {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_Releases_NewestFirstWithSeriesTieBreak(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "api")
		addRelease(t, b, "api", "newton", "r1.0.0", 1)
		addRelease(t, b, "api", "newton", "r1.1.0", 2)
		addRelease(t, b, "api", "master", "r2.0.0", 3)
		// Same version number in a second series; "maint" sorts before
		// "master" so it must win the tie.
		addRelease(t, b, "api", "maint", "r2.0.0", 4)
	})

	rels := reg.Releases("api")
	require.Len(t, rels, 4)
	require.Equal(t, "r2.0.0", rels[0].Version.String())
	require.Equal(t, "maint", rels[0].Series)
	require.Equal(t, "master", rels[1].Series)
	require.Equal(t, "r1.1.0", rels[2].Version.String())
	require.Equal(t, "r1.0.0", rels[3].Version.String())
}

func TestRegistry_PredecessorOf(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "api")
		addRelease(t, b, "api", "master", "r1.0.0", 1)
		addRelease(t, b, "api", "master", "r1.1.0", 2)
		addRelease(t, b, "api", "master", "r2.0.0", 3)
	})

	t.Run("middle of chain", func(t *testing.T) {
		pred, ok, err := reg.PredecessorOf("api", version.MustParse("r2.0.0"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "r1.1.0", pred.Version.String())
	})

	t.Run("first release has none", func(t *testing.T) {
		_, ok, err := reg.PredecessorOf("api", version.MustParse("r1.0.0"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, _, err := reg.PredecessorOf("api", version.MustParse("r9.9.9"))
		require.ErrorIs(t, err, ErrUnknownVersion)
	})

	t.Run("unknown component", func(t *testing.T) {
		_, _, err := reg.PredecessorOf("ghost", version.MustParse("r1.0.0"))
		require.ErrorIs(t, err, ErrUnknownComponent)
	})
}

func TestRegistry_CheckAppend(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "api")
		addComponent(t, b, "web")
		addRelease(t, b, "api", "master", "r1.0.0", 1)
	})

	t.Run("monotonic append is accepted", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "api", Series: "master", Version: version.MustParse("r1.1.0"), SHA: sha(9)})
		require.NoError(t, err)
	})

	t.Run("lower version is rejected", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "api", Series: "master", Version: version.MustParse("r0.9.0"), SHA: sha(9)})
		require.ErrorIs(t, err, ErrVersionNotMonotonic)
	})

	t.Run("equal version is rejected", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "api", Series: "master", Version: version.MustParse("r1.0.0"), SHA: sha(9)})
		require.ErrorIs(t, err, ErrVersionNotMonotonic)
	})

	t.Run("sha reuse across components is rejected", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "web", Series: "master", Version: version.MustParse("r1.0.0"), SHA: sha(1)})
		require.ErrorIs(t, err, ErrDuplicateSha)
	})

	t.Run("new series starts fresh", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "api", Series: "maint", Version: version.MustParse("r0.5.0"), SHA: sha(9)})
		require.NoError(t, err)
	})

	t.Run("unknown component", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "ghost", Series: "master", Version: version.MustParse("r1.0.0"), SHA: sha(9)})
		require.ErrorIs(t, err, ErrUnknownComponent)
	})

	t.Run("malformed sha", func(t *testing.T) {
		err := reg.CheckAppend(Release{Component: "api", Series: "master", Version: version.MustParse("r1.1.0"), SHA: "abc"})
		require.ErrorIs(t, err, ErrMalformedSha)
	})
}

func TestRegistry_Appended(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "api")
		addRelease(t, b, "api", "master", "r1.0.0", 1)
	})

	after, err := reg.Appended(Release{
		Component: "api", Series: "master",
		Version: version.MustParse("r1.1.0"), SHA: sha(2),
	})
	require.NoError(t, err)

	// The original snapshot is untouched.
	require.Len(t, reg.Releases("api"), 1)

	rels := after.Releases("api")
	require.Len(t, rels, 2)
	require.Equal(t, "r1.1.0", rels[0].Version.String())
	require.Equal(t, sha(1), rels[0].Predecessor, "append links to the previous latest")

	_, err = reg.Appended(Release{
		Component: "api", Series: "master",
		Version: version.MustParse("r0.9.0"), SHA: sha(3),
	})
	require.ErrorIs(t, err, ErrVersionNotMonotonic)
}

func TestGraph_LatestAndRelease(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "api")
		addRelease(t, b, "api", "master", "r1.0.0", 1)
		addRelease(t, b, "api", "master", "r1.1.0", 2)
	})

	g, ok := reg.Graph("api", "master")
	require.True(t, ok)

	latest, ok := g.Latest()
	require.True(t, ok)
	require.Equal(t, "r1.1.0", latest.Version.String())

	rel, err := g.Release(version.MustParse("r1.0.0"))
	require.NoError(t, err)
	require.Equal(t, sha(1), rel.SHA)

	_, err = g.Release(version.MustParse("r3.0.0"))
	require.ErrorIs(t, err, ErrUnknownVersion)

	_, ok = reg.Graph("api", "nope")
	require.False(t, ok)
}
