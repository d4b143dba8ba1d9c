package snapshot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relware/relcomp/internal/gitexec"
	"github.com/relware/relcomp/internal/registry"
)

// fakeExecutor serves file contents per commit from memory and records
// staging activity. Unused operations fail loudly.
type fakeExecutor struct {
	head      string
	revs      map[string]string            // commitish -> sha
	files     map[string]map[string][]byte // sha -> path -> content
	remoteRef map[string]string            // url\x00branch -> sha

	added     []string
	committed []string
	loads     int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		revs:      make(map[string]string),
		files:     make(map[string]map[string][]byte),
		remoteRef: make(map[string]string),
	}
}

func (f *fakeExecutor) addCommit(sha string, files map[string]string) {
	f.revs[sha] = sha
	byPath := make(map[string][]byte, len(files))
	for p, c := range files {
		byPath[p] = []byte(c)
	}
	f.files[sha] = byPath
	f.head = sha
}

func (f *fakeExecutor) IsGitRepo() bool { return true }

func (f *fakeExecutor) RevParse(commitish string) (string, error) {
	if commitish == "HEAD" {
		return f.head, nil
	}
	sha, ok := f.revs[commitish]
	if !ok {
		return "", fmt.Errorf("%w: %q", gitexec.ErrUnknownRevision, commitish)
	}
	return sha, nil
}

func (f *fakeExecutor) Show(commit, path string) ([]byte, error) {
	f.loads++
	data, ok := f.files[commit][path]
	if !ok {
		return nil, fmt.Errorf("%w: %q at %s", gitexec.ErrPathNotFound, path, commit)
	}
	return data, nil
}

func (f *fakeExecutor) ListTree(commit, dir string) ([]string, error) {
	var out []string
	for p := range f.files[commit] {
		if strings.HasPrefix(p, dir+"/") {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q at %s", gitexec.ErrPathNotFound, dir, commit)
	}
	return out, nil
}

func (f *fakeExecutor) Add(paths ...string) error {
	f.added = append(f.added, paths...)
	return nil
}

func (f *fakeExecutor) Commit(message string) error {
	f.committed = append(f.committed, message)
	return nil
}

func (f *fakeExecutor) Remove(paths ...string) error { return nil }

func (f *fakeExecutor) Clone(url, dir, branch string) error { return fmt.Errorf("not supported") }

func (f *fakeExecutor) Fetch(remote string) error { return fmt.Errorf("not supported") }

func (f *fakeExecutor) Pull() error { return fmt.Errorf("not supported") }

func (f *fakeExecutor) Checkout(commitish string) error { return fmt.Errorf("not supported") }

func (f *fakeExecutor) LsRemoteHead(url, branch string) (string, error) {
	sha, ok := f.remoteRef[url+"\x00"+branch]
	if !ok {
		return "", fmt.Errorf("%w: %s@%s", gitexec.ErrUnknownRevision, url, branch)
	}
	return sha, nil
}

const apiRecord = `name: api
repo_url: https://github.com/relware/api
is_product: false
releases:
  - series: master
    versions:
      - version: r1.1.0
        sha: "2222222222222222222222222222222222222222"
      - version: r1.0.0
        sha: "1111111111111111111111111111111111111111"
`

const webRecord = `name: web
repo_url: https://github.com/relware/web
is_product: true
dependencies:
  - name: api
    constraints:
      - version<r2.0.0
releases:
  - series: master
    versions:
      - version: r1.0.0
        sha: "3333333333333333333333333333333333333333"
`

const webRequirements = `dependencies:
  - name: api
    ref: r1.1.0
    ref_type: tag
    repo_url: https://github.com/relware/api
    sha: "2222222222222222222222222222222222222222"
    version: r1.1.0
`

func storedSnapshot(t *testing.T) (*fakeExecutor, *GitProvider) {
	t.Helper()
	git := newFakeExecutor()
	git.addCommit("c0ffee", map[string]string{
		"components/api.yml":   apiRecord,
		"components/web.yml":   webRecord,
		"requirements/web.yml": webRequirements,
	})
	return git, NewGitProvider(git)
}

func TestGitProvider_Load(t *testing.T) {
	_, p := storedSnapshot(t)

	reg, err := p.Load("c0ffee")
	require.NoError(t, err)
	require.Len(t, reg.Components(), 2)

	web, ok := reg.Component("web")
	require.True(t, ok)
	require.True(t, web.IsProduct)

	// Releases are stored newest first; the chain must come out oldest
	// first with linked predecessors.
	g, ok := reg.Graph("api", "master")
	require.True(t, ok)
	rels := g.Releases()
	require.Len(t, rels, 2)
	require.Equal(t, "r1.0.0", rels[0].Version.String())
	require.Equal(t, "", rels[0].Predecessor)
	require.Equal(t, "r1.1.0", rels[1].Version.String())
	require.Equal(t, rels[0].SHA, rels[1].Predecessor)

	deps := reg.Dependencies("web")
	require.Len(t, deps, 1)
	require.Equal(t, "api", deps[0].Target)

	reqs := reg.Requirements("web")
	require.Len(t, reqs, 1)
	require.Equal(t, registry.Requirement{
		Name:    "api",
		Ref:     "r1.1.0",
		RefType: registry.RefTypeTag,
		RepoURL: "https://github.com/relware/api",
		SHA:     "2222222222222222222222222222222222222222",
		Version: "r1.1.0",
	}, reqs[0])

	require.Empty(t, registry.Validate(reg))
}

func TestGitProvider_Load_CachesByCommit(t *testing.T) {
	git, p := storedSnapshot(t)

	first, err := p.Load("c0ffee")
	require.NoError(t, err)
	reads := git.loads

	again, err := p.Load("c0ffee")
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Equal(t, reads, git.loads, "second load must not hit git")
}

func TestGitProvider_Load_UnknownCommit(t *testing.T) {
	_, p := storedSnapshot(t)
	_, err := p.Load("deadbeef")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestGitProvider_Load_EmptyStore(t *testing.T) {
	git := newFakeExecutor()
	git.addCommit("c0", map[string]string{})
	reg, err := NewGitProvider(git).Load("c0")
	require.NoError(t, err)
	require.Empty(t, reg.Components())
}

func TestGitProvider_Load_CorruptRecord(t *testing.T) {
	git := newFakeExecutor()
	git.addCommit("c0", map[string]string{
		"components/api.yml": "name: api\nreleases: [",
	})
	_, err := NewGitProvider(git).Load("c0")
	require.ErrorContains(t, err, "components/api.yml")
}

func TestGitProvider_BranchHead(t *testing.T) {
	git, p := storedSnapshot(t)
	git.remoteRef["https://github.com/relware/api\x00develop"] = "4444444444444444444444444444444444444444"

	sha, err := p.BranchHead("https://github.com/relware/api", "develop")
	require.NoError(t, err)
	require.Equal(t, "4444444444444444444444444444444444444444", sha)

	_, err = p.BranchHead("https://github.com/relware/api", "gone")
	require.ErrorIs(t, err, gitexec.ErrUnknownRevision)
}

func TestStore_Commit_CAS(t *testing.T) {
	git, _ := storedSnapshot(t)
	store := NewStore(git, t.TempDir())

	head, err := store.Head()
	require.NoError(t, err)
	require.Equal(t, "c0ffee", head)

	t.Run("commits when head is unchanged", func(t *testing.T) {
		require.NoError(t, store.Commit(head, "Add release api r1.2.0", "components/api.yml"))
		require.Equal(t, []string{"components/api.yml"}, git.added)
		require.Equal(t, []string{"Add release api r1.2.0"}, git.committed)
	})

	t.Run("refuses when head moved", func(t *testing.T) {
		git.addCommit("facade", map[string]string{})
		err := store.Commit(head, "Add release api r1.3.0", "components/api.yml")
		require.ErrorIs(t, err, ErrStaleSnapshot)
		require.Len(t, git.committed, 1, "no commit on a stale head")
	})
}

func TestStore_WriteComponent_RoundTrip(t *testing.T) {
	git, p := storedSnapshot(t)
	dir := t.TempDir()
	store := NewStore(git, dir)

	reg, err := p.Load("c0ffee")
	require.NoError(t, err)

	path, err := store.WriteComponent(reg, "web")
	require.NoError(t, err)
	require.Equal(t, "components/web.yml", path)

	// The written record must decode back to the same snapshot content.
	data, err := EncodeComponent(reg, "web")
	require.NoError(t, err)
	cf, err := DecodeComponent(data)
	require.NoError(t, err)
	require.Equal(t, "web", cf.Name)
	require.True(t, cf.IsProduct)
	require.Equal(t, []DependencyRecord{{Name: "api", Constraints: []string{"version<r2.0.0"}}}, cf.Dependencies)
	require.Equal(t, []SeriesRecord{{
		Series: "master",
		Versions: []VersionRecord{{
			Version: "r1.0.0",
			Sha:     "3333333333333333333333333333333333333333",
		}},
	}}, cf.Releases)
}

func TestEncodeRequirements_CarriesHeader(t *testing.T) {
	data, err := EncodeRequirements([]registry.Requirement{{
		Name: "api", Ref: "r1.1.0", RefType: registry.RefTypeTag,
		RepoURL: "https://github.com/relware/api",
		SHA:     "2222222222222222222222222222222222222222",
		Version: "r1.1.0",
	}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# Do not modify by hand."))

	rf, err := DecodeRequirements(data)
	require.NoError(t, err)
	require.Len(t, rf.Dependencies, 1)
	require.Equal(t, "api", rf.Dependencies[0].Name)
}

func TestEncodeRegistry_SortedRecords(t *testing.T) {
	_, p := storedSnapshot(t)
	reg, err := p.Load("c0ffee")
	require.NoError(t, err)

	text, err := EncodeRegistry(reg)
	require.NoError(t, err)
	apiAt := strings.Index(text, "name: api")
	webAt := strings.Index(text, "name: web")
	require.True(t, apiAt >= 0 && webAt > apiAt)
	require.Equal(t, 2, strings.Count(text, "---\n"))
}

func TestDecodeComponent_MissingName(t *testing.T) {
	_, err := DecodeComponent([]byte("repo_url: https://github.com/relware/x\n"))
	require.ErrorContains(t, err, "missing name")
}
