// Package worktree provisions the isolated git checkouts that back tazz
// instances. Each instance gets one worktree on its own branch, created in
// a single `git worktree add -b` step; every session the instance spawns
// shares that checkout.
package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/logging"
)

// gitTimeout bounds every git invocation. Worktree creation checks out a
// full tree, so this is looser than the tmux client's timeout.
const gitTimeout = 30 * time.Second

// maxGitOutput caps how much captured git output is attached to errors.
const maxGitOutput = 500

// Manager runs the git worktree operations for a single repository.
type Manager struct {
	repoDir string
	log     *logging.Logger
}

// FindGitRoot finds the root of the git repository by traversing up from
// startDir. It returns the directory containing .git, which can be a
// directory (normal repository) or a regular file (linked worktree).
func FindGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() || info.Mode().IsRegular() {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s up to filesystem root)", errors.ErrNotGitRepository, startDir)
		}
		dir = parent
	}
}

// New creates a Manager for the repository containing repoDir. repoDir may
// be any directory inside the repository.
func New(repoDir string) (*Manager, error) {
	gitRoot, err := FindGitRoot(repoDir)
	if err != nil {
		return nil, err
	}

	return &Manager{repoDir: gitRoot, log: logging.NopLogger()}, nil
}

// SetLogger replaces the manager's logger. Passing nil restores the no-op
// logger.
func (m *Manager) SetLogger(log *logging.Logger) {
	if log == nil {
		log = logging.NopLogger()
	}
	m.log = log
}

// Root returns the repository root the manager operates on.
func (m *Manager) Root() string {
	return m.repoDir
}

// Create creates a worktree at path with a new branch in one step. Failures
// come back as a ProvisioningError carrying the captured git output; when
// git refused because the branch or the path already exists, the error also
// matches ErrBranchExists or ErrWorktreeExists.
func (m *Manager) Create(ctx context.Context, path, branch string) error {
	output, err := m.runGit(ctx, m.repoDir, "worktree", "add", "-b", branch, path)
	if err != nil {
		out := strings.TrimSpace(string(output))
		return errors.NewProvisioningError("failed to create worktree", classifyCreateFailure(out, err)).
			WithBranch(branch).
			WithWorktree(path).
			WithGitOutput(truncateOutput(out, maxGitOutput))
	}

	m.log.Debug("created worktree", "branch", branch, "path", path)
	return nil
}

// classifyCreateFailure maps git's refusal messages onto sentinel errors so
// callers can distinguish "already exists" conflicts from real failures.
func classifyCreateFailure(output string, err error) error {
	if !strings.Contains(output, "already exists") {
		return err
	}
	if strings.Contains(output, "branch named") {
		return fmt.Errorf("%w: %v", errors.ErrBranchExists, err)
	}
	return fmt.Errorf("%w: %v", errors.ErrWorktreeExists, err)
}

// Remove removes a worktree. If git refuses, the directory is deleted
// manually and stale worktree references are pruned; the git error is still
// returned so callers can report it.
func (m *Manager) Remove(ctx context.Context, path string) error {
	output, err := m.runGit(ctx, m.repoDir, "worktree", "remove", "--force", path)
	if err != nil {
		_ = os.RemoveAll(path)
		_, _ = m.runGit(ctx, m.repoDir, "worktree", "prune")
		return fmt.Errorf("failed to remove worktree cleanly: %w\n%s", err, string(output))
	}

	m.log.Debug("removed worktree", "path", path)
	return nil
}

// Prune drops worktree bookkeeping for checkouts whose directories are gone.
func (m *Manager) Prune(ctx context.Context) error {
	if output, err := m.runGit(ctx, m.repoDir, "worktree", "prune"); err != nil {
		return fmt.Errorf("failed to prune worktrees: %w\n%s", err, string(output))
	}
	return nil
}

// List returns the paths of all worktrees, including the main checkout.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	output, err := m.outputGit(ctx, m.repoDir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}

	var worktrees []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "worktree ") {
			worktrees = append(worktrees, strings.TrimPrefix(line, "worktree "))
		}
	}
	return worktrees, nil
}

// GetBranch returns the branch checked out at a worktree path.
func (m *Manager) GetBranch(ctx context.Context, path string) (string, error) {
	output, err := m.outputGit(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get branch: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ListBranches returns all local branches whose names start with prefix.
func (m *Manager) ListBranches(ctx context.Context, prefix string) ([]string, error) {
	output, err := m.outputGit(ctx, m.repoDir,
		"branch", "--list", "--format=%(refname:short)", prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// ListRemoteBranches returns the local branch names under prefix that have
// a remote-tracking ref on the given remote. The remote/ part is stripped,
// so results are directly comparable with ListBranches output.
func (m *Manager) ListRemoteBranches(ctx context.Context, remote, prefix string) ([]string, error) {
	output, err := m.outputGit(ctx, m.repoDir,
		"branch", "-r", "--list", "--format=%(refname:short)", remote+"/"+prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list remote branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		branches = append(branches, strings.TrimPrefix(line, remote+"/"))
	}
	return branches, nil
}

// DeleteBranch force-deletes a local branch. Git refuses while the branch
// is checked out in a worktree, so remove the worktree first.
func (m *Manager) DeleteBranch(ctx context.Context, branch string) error {
	if output, err := m.runGit(ctx, m.repoDir, "branch", "-D", branch); err != nil {
		return fmt.Errorf("failed to delete branch: %w\n%s", err, string(output))
	}

	m.log.Debug("deleted branch", "branch", branch)
	return nil
}

// HasUncommittedChanges reports whether a worktree has staged, unstaged, or
// untracked changes.
func (m *Manager) HasUncommittedChanges(ctx context.Context, path string) (bool, error) {
	output, err := m.outputGit(ctx, path, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check status: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// runGit runs git in dir and returns combined stdout and stderr.
func (m *Manager) runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// outputGit runs git in dir and returns stdout only, for parsing.
func (m *Manager) outputGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// truncateOutput shortens command output for error and log payloads.
func truncateOutput(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
