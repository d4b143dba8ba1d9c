// Package gitexec wraps the git invocations the snapshot layer needs:
// resolving commitishes, reading files at a commit, committing metadata
// changes and querying remote branch heads.
package gitexec

// Executor defines the git operations used by the snapshot provider and
// store. This abstraction allows for easy testing with fake
// implementations.
type Executor interface {
	// IsGitRepo reports whether the work dir is inside a git repository.
	IsGitRepo() bool

	// RevParse resolves a commitish to a full sha.
	// Returns ErrUnknownRevision when the commitish does not resolve.
	RevParse(commitish string) (string, error)

	// Show returns the content of path as of the given commit.
	// Returns ErrPathNotFound when the path does not exist at that commit.
	Show(commit, path string) ([]byte, error)

	// ListTree returns the file paths under dir as of the given commit.
	ListTree(commit, dir string) ([]string, error)

	// Add stages paths.
	Add(paths ...string) error

	// Commit records the staged changes with the given message.
	Commit(message string) error

	// Remove stages the removal of paths; used when a component record is
	// renamed and the old file has to go away in the same commit.
	Remove(paths ...string) error

	// Clone clones url into dir. branch may be empty for the default.
	Clone(url, dir, branch string) error

	// Fetch updates the named remote.
	Fetch(remote string) error

	// Pull fast-forwards the current branch from its remote.
	Pull() error

	// Checkout detaches the work tree at the given commitish.
	Checkout(commitish string) error

	// LsRemoteHead returns the head sha of a branch in a remote repo; an
	// empty branch queries the remote HEAD.
	// Returns ErrUnknownRevision when the branch does not exist.
	LsRemoteHead(url, branch string) (string, error)
}
