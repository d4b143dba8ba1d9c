// Package snapshot loads registry snapshots out of the git-backed
// metadata store and writes changes back under a compare-and-swap
// discipline. All reads go through `git show` at an explicit commit, so a
// loaded Registry is a faithful image of one point in store history and
// never of a mutating working tree.
package snapshot

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/relware/relcomp/internal/gitexec"
	"github.com/relware/relcomp/internal/log"
	"github.com/relware/relcomp/internal/registry"
)

// Store layout.
const (
	ComponentsDir   = "components"
	RequirementsDir = "requirements"
)

// ErrSnapshotNotFound indicates a commitish that does not resolve in the
// metadata store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Provider loads registry snapshots by commitish.
type Provider interface {
	Load(commitish string) (*registry.Registry, error)
}

// GitProvider is a Provider reading a local clone of the releases repo.
// Snapshots are cached by resolved commit sha; since a commit's content
// never changes, entries are reusable for the life of the process.
type GitProvider struct {
	git   gitexec.Executor
	cache *gocache.Cache
}

// NewGitProvider creates a provider over the given executor.
func NewGitProvider(git gitexec.Executor) *GitProvider {
	return &GitProvider{
		git:   git,
		cache: gocache.New(30*time.Minute, time.Hour),
	}
}

// Load resolves commitish and builds the Registry snapshot at that
// commit.
func (p *GitProvider) Load(commitish string) (*registry.Registry, error) {
	sha, err := p.git.RevParse(commitish)
	if err != nil {
		if errors.Is(err, gitexec.ErrUnknownRevision) {
			return nil, fmt.Errorf("%w: %q", ErrSnapshotNotFound, commitish)
		}
		return nil, err
	}
	if cached, ok := p.cache.Get(sha); ok {
		log.Debug(log.CatSnapshot, "cache hit", "commit", sha)
		return cached.(*registry.Registry), nil
	}

	reg, err := p.load(sha)
	if err != nil {
		return nil, err
	}
	p.cache.Set(sha, reg, gocache.DefaultExpiration)
	log.Debug(log.CatSnapshot, "loaded snapshot", "commit", sha, "components", len(reg.Components()))
	return reg, nil
}

func (p *GitProvider) load(sha string) (*registry.Registry, error) {
	b := registry.NewBuilder()

	paths, err := p.git.ListTree(sha, ComponentsDir)
	if err != nil && !errors.Is(err, gitexec.ErrPathNotFound) {
		return nil, err
	}
	for _, file := range paths {
		if !strings.HasSuffix(file, ".yml") {
			continue
		}
		data, err := p.git.Show(sha, file)
		if err != nil {
			return nil, err
		}
		cf, err := DecodeComponent(data)
		if err != nil {
			return nil, fmt.Errorf("%s at %s: %w", file, sha, err)
		}
		if err := addToBuilder(b, cf); err != nil {
			return nil, fmt.Errorf("%s at %s: %w", file, sha, err)
		}
	}

	reqPaths, err := p.git.ListTree(sha, RequirementsDir)
	if err != nil && !errors.Is(err, gitexec.ErrPathNotFound) {
		return nil, err
	}
	for _, file := range reqPaths {
		if !strings.HasSuffix(file, ".yml") {
			continue
		}
		data, err := p.git.Show(sha, file)
		if err != nil {
			return nil, err
		}
		rf, err := DecodeRequirements(data)
		if err != nil {
			return nil, fmt.Errorf("%s at %s: %w", file, sha, err)
		}
		owner := strings.TrimSuffix(path.Base(file), ".yml")
		reqs := make([]registry.Requirement, 0, len(rf.Dependencies))
		for _, rec := range rf.Dependencies {
			reqs = append(reqs, registry.Requirement{
				Name:    rec.Name,
				Ref:     rec.Ref,
				RefType: rec.RefType,
				RepoURL: rec.RepoURL,
				SHA:     rec.Sha,
				Version: rec.Version,
			})
		}
		b.SetRequirements(owner, reqs)
	}

	return b.Build(), nil
}

// BranchHead resolves the head sha of a branch in an external component
// repository; it satisfies resolver.BranchHeadFunc.
func (p *GitProvider) BranchHead(repoURL, branch string) (string, error) {
	return p.git.LsRemoteHead(repoURL, branch)
}
