// Package testutil provides shared helpers for tazz tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// SetupTestRepo creates a temporary git repository with a single commit on
// a branch named main. The repository lives in t.TempDir() and is removed
// when the test completes.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	if err := runGit(dir, "init"); err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}
	if err := runGit(dir, "config", "user.email", "test@tazz.dev"); err != nil {
		t.Fatalf("failed to configure git email: %v", err)
	}
	if err := runGit(dir, "config", "user.name", "Tazz Test"); err != nil {
		t.Fatalf("failed to configure git name: %v", err)
	}

	// git worktree add requires at least one commit.
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Test Repository\n"), 0644); err != nil {
		t.Fatalf("failed to create README: %v", err)
	}
	if err := runGit(dir, "add", "."); err != nil {
		t.Fatalf("failed to stage files: %v", err)
	}
	if err := runGit(dir, "commit", "-m", "Initial commit"); err != nil {
		t.Fatalf("failed to create initial commit: %v", err)
	}

	// Some systems still default to master.
	if err := runGit(dir, "branch", "-M", "main"); err != nil {
		t.Fatalf("failed to rename branch to main: %v", err)
	}

	return dir
}

// CommitFile creates or updates a file and commits it.
func CommitFile(t *testing.T, repoDir, path, content, message string) {
	t.Helper()

	fullPath := filepath.Join(repoDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	if err := runGit(repoDir, "add", path); err != nil {
		t.Fatalf("failed to stage file %s: %v", path, err)
	}
	if err := runGit(repoDir, "commit", "-m", message); err != nil {
		t.Fatalf("failed to commit file %s: %v", path, err)
	}
}

// CreateBranch creates a new branch in the repository without checking it out.
func CreateBranch(t *testing.T, repoDir, branch string) {
	t.Helper()

	if err := runGit(repoDir, "branch", branch); err != nil {
		t.Fatalf("failed to create branch %s: %v", branch, err)
	}
}

// TrackRemoteBranch fakes a remote-tracking ref for a local branch, as if
// the branch had been pushed to origin. No real remote is involved.
func TrackRemoteBranch(t *testing.T, repoDir, branch string) {
	t.Helper()

	if err := runGit(repoDir, "update-ref", "refs/remotes/origin/"+branch, branch); err != nil {
		t.Fatalf("failed to create remote-tracking ref for %s: %v", branch, err)
	}
}

// WriteTaskDoc writes a task document at <projectRoot>/.tazz/tasks.md.
func WriteTaskDoc(t *testing.T, projectRoot, content string) {
	t.Helper()

	dir := filepath.Join(projectRoot, ".tazz")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create .tazz directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tasks.md"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write task document: %v", err)
	}
}

// ListWorktrees returns the paths of all worktrees in the repository,
// independent of the code under test.
func ListWorktrees(t *testing.T, repoDir string) []string {
	t.Helper()

	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = repoDir
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("failed to list worktrees: %v", err)
	}

	var worktrees []string
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "worktree ") {
			worktrees = append(worktrees, strings.TrimPrefix(line, "worktree "))
		}
	}
	return worktrees
}

// SkipIfNoGit skips the test if git is not installed.
func SkipIfNoGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

// SkipIfNoTmux skips the test if tmux is not installed.
func SkipIfNoTmux(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not found in PATH, skipping test")
	}
}

// runGit runs a git command in the specified directory.
func runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Tazz Test",
		"GIT_AUTHOR_EMAIL=test@tazz.dev",
		"GIT_COMMITTER_NAME=Tazz Test",
		"GIT_COMMITTER_EMAIL=test@tazz.dev",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &gitError{args: args, output: output, err: err}
	}
	return nil
}

type gitError struct {
	args   []string
	output []byte
	err    error
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.err.Error() + "\n" + string(e.output)
}

func (e *gitError) Unwrap() error {
	return e.err
}
