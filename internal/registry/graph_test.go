package registry

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/relware/relcomp/internal/version"
)

// TestAppendChainProperty appends a random strictly increasing version
// sequence and checks that the resulting snapshot links a proper
// predecessor chain and passes validation.
func TestAppendChainProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		patches := rapid.SliceOfNDistinct(rapid.IntRange(0, 500), 1, 8, rapid.ID[int]).Draw(t, "patches")
		sort.Ints(patches)

		b := NewBuilder()
		if err := b.AddComponent(Component{Name: "api", RepoURL: "https://github.com/relware/api"}); err != nil {
			t.Fatal(err)
		}
		reg := b.Build()

		var err error
		for i, p := range patches {
			reg, err = reg.Appended(Release{
				Component: "api",
				Series:    "master",
				Version:   version.MustParse(fmt.Sprintf("r1.0.%d", p)),
				SHA:       sha(1000 + i),
			})
			if err != nil {
				t.Fatalf("append %d: %v", p, err)
			}
		}

		if vs := Validate(reg); len(vs) != 0 {
			t.Fatalf("expected clean snapshot, got %v", vs)
		}
		g, _ := reg.Graph("api", "master")
		rels := g.Releases()
		for i, rel := range rels {
			want := ""
			if i > 0 {
				want = rels[i-1].SHA
			}
			if rel.Predecessor != want {
				t.Fatalf("release %s: predecessor %q, want %q", rel.Version, rel.Predecessor, want)
			}
		}
	})
}

func TestGraph_Releases_ReturnsCopy(t *testing.T) {
	reg := mustBuild(t, func(b *Builder) {
		addComponent(t, b, "api")
		addRelease(t, b, "api", "master", "r1.0.0", 1)
	})
	g, _ := reg.Graph("api", "master")
	rels := g.Releases()
	rels[0].SHA = "clobbered"
	again := g.Releases()
	require.Equal(t, sha(1), again[0].SHA)
}
