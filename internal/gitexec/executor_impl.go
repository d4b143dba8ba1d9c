package gitexec

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Git-specific errors parsed from stderr.
var (
	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrUnknownRevision indicates a commitish or ref that does not resolve.
	ErrUnknownRevision = errors.New("unknown revision")

	// ErrPathNotFound indicates a path that does not exist at the requested
	// commit.
	ErrPathNotFound = errors.New("path not found at revision")
)

// Compile-time check that RealExecutor implements Executor.
var _ Executor = (*RealExecutor)(nil)

// RealExecutor implements Executor by executing actual git commands.
type RealExecutor struct {
	workDir string
}

// NewRealExecutor creates a new RealExecutor rooted at workDir.
func NewRealExecutor(workDir string) *RealExecutor {
	return &RealExecutor{workDir: workDir}
}

// runGit executes a git command and returns an error if it fails.
func (e *RealExecutor) runGit(args ...string) error {
	_, err := e.runGitOutput(args...)
	return err
}

// runGitOutput executes a git command and returns stdout and any error.
func (e *RealExecutor) runGitOutput(args ...string) ([]byte, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.Command("git", args...)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return nil, parseGitError(args, stderrStr, err)
		}
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return stdout.Bytes(), nil
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(args []string, stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}
	if strings.Contains(stderrLower, "unknown revision") ||
		strings.Contains(stderrLower, "bad revision") ||
		strings.Contains(stderrLower, "invalid object name") ||
		strings.Contains(stderrLower, "needed a single revision") ||
		strings.Contains(stderrLower, "ambiguous argument") {
		return fmt.Errorf("%w: %s", ErrUnknownRevision, stderr)
	}
	if strings.Contains(stderrLower, "does not exist in") ||
		strings.Contains(stderrLower, "exists on disk, but not in") ||
		strings.Contains(stderrLower, "path not in the working tree") {
		return fmt.Errorf("%w: %s", ErrPathNotFound, stderr)
	}

	return fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr, originalErr)
}

// IsGitRepo checks if the work dir is inside a git repository.
func (e *RealExecutor) IsGitRepo() bool {
	return e.runGit("rev-parse", "--git-dir") == nil
}

// RevParse resolves a commitish to a full sha.
func (e *RealExecutor) RevParse(commitish string) (string, error) {
	out, err := e.runGitOutput("rev-parse", "--verify", commitish+"^{commit}")
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(out)), nil
}

// Show returns the content of path as of the given commit.
func (e *RealExecutor) Show(commit, path string) ([]byte, error) {
	return e.runGitOutput("show", commit+":"+path)
}

// ListTree returns the file paths under dir as of the given commit.
func (e *RealExecutor) ListTree(commit, dir string) ([]string, error) {
	out, err := e.runGitOutput("ls-tree", "-r", "--name-only", commit, dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// Add stages paths.
func (e *RealExecutor) Add(paths ...string) error {
	return e.runGit(append([]string{"add", "--"}, paths...)...)
}

// Remove stages the removal of paths.
func (e *RealExecutor) Remove(paths ...string) error {
	return e.runGit(append([]string{"rm", "--quiet", "--"}, paths...)...)
}

// Commit records the staged changes.
func (e *RealExecutor) Commit(message string) error {
	return e.runGit("commit", "--message", message)
}

// Clone clones url into dir.
func (e *RealExecutor) Clone(url, dir, branch string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dir)
	return e.runGit(args...)
}

// Fetch updates the named remote.
func (e *RealExecutor) Fetch(remote string) error {
	return e.runGit("fetch", remote)
}

// Pull fast-forwards the current branch.
func (e *RealExecutor) Pull() error {
	return e.runGit("pull", "--ff-only")
}

// Checkout detaches the work tree at the given commitish.
func (e *RealExecutor) Checkout(commitish string) error {
	return e.runGit("checkout", "--detach", commitish)
}

// LsRemoteHead returns the head sha of a branch in a remote repository.
// An empty branch queries the remote HEAD, which doubles as a
// reachability check during component registration.
func (e *RealExecutor) LsRemoteHead(url, branch string) (string, error) {
	ref := "HEAD"
	if branch != "" {
		ref = "refs/heads/" + branch
	}
	out, err := e.runGitOutput("ls-remote", url, ref)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(out))
	if line == "" {
		return "", fmt.Errorf("%w: no branch %q at %s", ErrUnknownRevision, branch, url)
	}
	fields := strings.Fields(line)
	return fields[0], nil
}
