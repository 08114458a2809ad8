// Package tmux drives the terminal multiplexer through its command-line
// interface.
//
// Sessions are created on the user's default tmux server so they show up
// in plain `tmux ls` and can be attached from any terminal. The engine
// talks to the multiplexer only through the Client interface; tests
// substitute the in-memory Fake.
package tmux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Energma/tazz-cli/internal/config"
	"github.com/Energma/tazz-cli/internal/errors"
)

// commandTimeout bounds every non-interactive tmux invocation.
const commandTimeout = 5 * time.Second

// listFormat is the line format used by List: one "name:created-epoch"
// line per session.
const listFormat = "#{session_name}:#{session_created}"

// Session describes one live multiplexer session.
type Session struct {
	Name    string
	Created time.Time
}

// Client is the capability surface the engine needs from the multiplexer.
type Client interface {
	// Available reports whether the multiplexer binary can be invoked.
	Available() error

	// Exists reports whether a session with the given name is live.
	// Any failure to ask, including no server running, reads as "does
	// not exist".
	Exists(ctx context.Context, name string) bool

	// Spawn creates a new detached session with the given name, rooted
	// in dir. Returns ErrSessionExists if the name is already taken.
	Spawn(ctx context.Context, name, dir string) error

	// SendKeys types text into the session and presses Enter.
	SendKeys(ctx context.Context, name, text string) error

	// Attach attaches the current terminal to the session. Blocks until
	// the user detaches or the session ends.
	Attach(name string) error

	// Kill terminates the session. Killing a session that does not
	// exist is a no-op.
	Kill(ctx context.Context, name string) error

	// List enumerates live sessions. No server running means no
	// sessions, not an error.
	List(ctx context.Context) ([]Session, error)
}

// CLIClient implements Client by shelling out to tmux.
type CLIClient struct {
	cfg config.TmuxConfig
}

// NewCLIClient creates a CLIClient with the given session dimensions and
// history settings.
func NewCLIClient(cfg config.TmuxConfig) *CLIClient {
	return &CLIClient{cfg: cfg}
}

var _ Client = (*CLIClient)(nil)

// Available checks that tmux is installed and on PATH.
func (c *CLIClient) Available() error {
	if _, err := exec.LookPath("tmux"); err != nil {
		return errors.ErrTmuxUnavailable
	}
	return nil
}

// exact prefixes a target with "=" so tmux matches the session name
// exactly. Bare targets prefix-match, which would conflate an instance
// session with its task sessions (tazz_auth vs tazz_auth_task-1).
func exact(name string) string {
	return "=" + name
}

// Exists reports whether the named session is live.
func (c *CLIClient) Exists(ctx context.Context, name string) bool {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return exec.CommandContext(ctx, "tmux", "has-session", "-t", exact(name)).Run() == nil
}

// Spawn creates a new detached session named name with dir as its working
// directory.
func (c *CLIClient) Spawn(ctx context.Context, name, dir string) error {
	if c.Exists(ctx, name) {
		return fmt.Errorf("%w: %s", errors.ErrSessionExists, name)
	}

	width := c.cfg.Width
	if width == 0 {
		width = config.Default().Tmux.Width
	}
	height := c.cfg.Height
	if height == 0 {
		height = config.Default().Tmux.Height
	}

	spawnCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(spawnCtx, "tmux",
		"new-session",
		"-d",
		"-s", name,
		"-x", strconv.Itoa(width),
		"-y", strconv.Itoa(height),
	)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create tmux session %s: %w: %s",
			name, err, strings.TrimSpace(string(output)))
	}

	// Session options are nice-to-have; the session works without them.
	if c.cfg.HistoryLimit > 0 {
		_ = c.run(ctx, "set-option", "-t", exact(name), "history-limit", strconv.Itoa(c.cfg.HistoryLimit))
	}
	_ = c.run(ctx, "set-option", "-t", exact(name), "default-terminal", "xterm-256color")

	return nil
}

// SendKeys types text into the named session and presses Enter.
func (c *CLIClient) SendKeys(ctx context.Context, name, text string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "tmux", "send-keys", "-t", exact(name), text, "Enter")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to send keys to tmux session %s: %w: %s",
			name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Attach attaches the current terminal to the named session. No timeout:
// the call lasts as long as the user stays attached.
func (c *CLIClient) Attach(name string) error {
	cmd := exec.Command("tmux", "attach-session", "-t", exact(name))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to attach to tmux session %s: %w", name, err)
	}
	return nil
}

// Kill terminates the named session. A session that is already gone is
// not an error.
func (c *CLIClient) Kill(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "tmux", "kill-session", "-t", exact(name))
	output, err := cmd.CombinedOutput()
	if err != nil {
		if isSessionNotFound(string(output)) {
			return nil
		}
		return fmt.Errorf("failed to kill tmux session %s: %w: %s",
			name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// List enumerates live sessions on the server.
func (c *CLIClient) List(ctx context.Context) ([]Session, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, "tmux", "list-sessions", "-F", listFormat).Output()
	if err != nil {
		// No server running, or no sessions.
		return nil, nil
	}
	return parseSessions(string(output)), nil
}

// run executes a tmux command with the standard timeout, discarding output.
func (c *CLIClient) run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, "tmux", args...).Run()
}

// parseSessions parses "name:created-epoch" lines. Session names cannot
// contain colons, so the first colon separates name from timestamp.
// Malformed lines are skipped.
func parseSessions(output string) []Session {
	var sessions []Session
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, epochStr, found := strings.Cut(line, ":")
		if !found || name == "" {
			continue
		}
		epoch, err := strconv.ParseInt(epochStr, 10, 64)
		if err != nil {
			continue
		}
		sessions = append(sessions, Session{Name: name, Created: time.Unix(epoch, 0)})
	}
	return sessions
}

// isSessionNotFound matches the error strings tmux prints when a target
// session or the whole server is missing.
func isSessionNotFound(output string) bool {
	return strings.Contains(output, "can't find session") ||
		strings.Contains(output, "session not found") ||
		strings.Contains(output, "no server running")
}
