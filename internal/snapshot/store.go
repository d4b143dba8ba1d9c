package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/relware/relcomp/internal/gitexec"
	"github.com/relware/relcomp/internal/log"
	"github.com/relware/relcomp/internal/registry"
)

// ErrStaleSnapshot indicates that the store head moved between loading a
// snapshot and committing a change derived from it. The caller must
// reload and retry against the new head.
var ErrStaleSnapshot = errors.New("snapshot is stale")

// Store writes metadata records into the local clone of the releases repo
// and commits them. Every commit is conditional on the head the caller
// read its snapshot from, which is what makes release appends behave as a
// compare-and-swap on "current latest of the series".
type Store struct {
	git gitexec.Executor
	dir string
}

// NewStore creates a store over a local clone at dir.
func NewStore(git gitexec.Executor, dir string) *Store {
	return &Store{git: git, dir: dir}
}

// Head returns the current head sha of the store.
func (s *Store) Head() (string, error) {
	return s.git.RevParse("HEAD")
}

// ComponentPath returns the repo-relative path of a component record.
func ComponentPath(name string) string {
	return ComponentsDir + "/" + name + ".yml"
}

// RequirementsPath returns the repo-relative path of a requirements
// record.
func RequirementsPath(owner string) string {
	return RequirementsDir + "/" + owner + ".yml"
}

// WriteComponent renders and writes the record for one component of reg.
// Returns the repo-relative path for the subsequent Commit.
func (s *Store) WriteComponent(reg *registry.Registry, name string) (string, error) {
	data, err := EncodeComponent(reg, name)
	if err != nil {
		return "", err
	}
	rel := ComponentPath(name)
	if err := s.writeFile(rel, data); err != nil {
		return "", err
	}
	return rel, nil
}

// WriteComponentRecord writes an explicit component record, used when the
// record does not yet exist in any snapshot (registration) or is being
// edited (update, dependency declarations).
func (s *Store) WriteComponentRecord(cf ComponentFile) (string, error) {
	data, err := yaml.Marshal(cf)
	if err != nil {
		return "", err
	}
	rel := ComponentPath(cf.Name)
	if err := s.writeFile(rel, data); err != nil {
		return "", err
	}
	return rel, nil
}

// WriteRequirements renders and writes the requirements record of owner.
func (s *Store) WriteRequirements(owner string, reqs []registry.Requirement) (string, error) {
	data, err := EncodeRequirements(reqs)
	if err != nil {
		return "", err
	}
	rel := RequirementsPath(owner)
	if err := s.writeFile(rel, data); err != nil {
		return "", err
	}
	return rel, nil
}

// RemoveComponent stages the removal of a component record; paired with a
// WriteComponent under the new name when a component is renamed.
func (s *Store) RemoveComponent(name string) (string, error) {
	rel := ComponentPath(name)
	if err := s.git.Remove(rel); err != nil {
		return "", err
	}
	return rel, nil
}

// Commit stages paths and commits them, but only if the store head still
// equals expectedHead. A moved head means the snapshot the change was
// derived from is no longer current; the write is refused with
// ErrStaleSnapshot and the caller retries against a fresh snapshot.
//
// The head check and the commit are not atomic against concurrent writers
// of the same clone; single-writer access per clone is assumed, the CAS
// protects against racing through separate invocations.
func (s *Store) Commit(expectedHead, message string, paths ...string) error {
	head, err := s.Head()
	if err != nil {
		return err
	}
	if head != expectedHead {
		return fmt.Errorf("%w: head moved from %s to %s", ErrStaleSnapshot, expectedHead, head)
	}
	if err := s.git.Add(paths...); err != nil {
		return err
	}
	if err := s.git.Commit(message); err != nil {
		return err
	}
	log.Info(log.CatStore, "committed", "message", message, "files", len(paths))
	return nil
}

func (s *Store) writeFile(rel string, data []byte) error {
	abs := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, data, 0o644)
}

// EnsureRepo makes sure a local clone of the releases repo exists at dir
// and is current, cloning it on first use. Returns an executor rooted at
// the clone.
func EnsureRepo(dir, repoURL string) (gitexec.Executor, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		exec := gitexec.NewRealExecutor(dir)
		if err := exec.Pull(); err != nil {
			log.Warn(log.CatGit, "pull failed, using existing clone", "dir", dir, "error", err)
		}
		return exec, nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, err
	}
	if err := gitexec.NewRealExecutor("").Clone(repoURL, dir, ""); err != nil {
		return nil, fmt.Errorf("clone releases repo: %w", err)
	}
	return gitexec.NewRealExecutor(dir), nil
}
