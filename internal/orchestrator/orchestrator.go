// Package orchestrator drives the instance lifecycle. Run provisions a
// worktree and spawns the multiplexer sessions for an instance; the
// directory operations (list, join, stop, delete) and cleanup reconcile the
// store, the live sessions, and the git resources afterwards.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Energma/tazz-cli/internal/config"
	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/logging"
	"github.com/Energma/tazz-cli/internal/naming"
	"github.com/Energma/tazz-cli/internal/session"
	"github.com/Energma/tazz-cli/internal/tasks"
	"github.com/Energma/tazz-cli/internal/tmux"
	"github.com/Energma/tazz-cli/internal/worktree"
)

// Orchestrator coordinates the store, the multiplexer, and the worktree
// manager for one repository.
type Orchestrator struct {
	projectRoot string
	cfg         *config.Config
	store       *session.Store
	mux         tmux.Client
	worktrees   *worktree.Manager
	log         *logging.Logger
}

// New creates an Orchestrator rooted at the repository containing startDir.
func New(startDir string, cfg *config.Config) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	return NewWithClient(startDir, cfg, tmux.NewCLIClient(cfg.Tmux))
}

// NewWithClient creates an Orchestrator with an explicit multiplexer
// client. Tests use it to substitute the in-memory fake.
func NewWithClient(startDir string, cfg *config.Config, mux tmux.Client) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	worktrees, err := worktree.New(startDir)
	if err != nil {
		return nil, err
	}
	root := worktrees.Root()

	store, err := session.NewStore(root)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		projectRoot: root,
		cfg:         cfg,
		store:       store,
		mux:         mux,
		worktrees:   worktrees,
		log:         logging.NopLogger(),
	}, nil
}

// SetLogger replaces the orchestrator's logger (and the worktree
// manager's). Passing nil restores the no-op logger.
func (o *Orchestrator) SetLogger(log *logging.Logger) {
	if log == nil {
		log = logging.NopLogger()
	}
	o.log = log
	o.worktrees.SetLogger(log)
}

// Root returns the repository root the orchestrator operates on.
func (o *Orchestrator) Root() string {
	return o.projectRoot
}

// RunResult reports what Run did. AlreadyRunning means live sessions for
// the instance were found and nothing was created; Handles then lists those
// live handles instead of created ones. SaveErr carries a store write
// failure that did not fail the run: the sessions are already up and
// usable, so the record loss is reported, not fatal.
type RunResult struct {
	Record         *session.Record
	Handles        []string
	AlreadyRunning bool
	SaveErr        error
}

// spawnSpec pairs a session ID and its process handle with the task the
// session hosts. task is nil for the bare instance session.
type spawnSpec struct {
	id     string
	handle string
	task   *tasks.Task
}

// Run starts an instance: parse the task document, provision the worktree,
// spawn one detached session per task (or one bare session), seed each with
// a banner, then persist the instance record.
func (o *Orchestrator) Run(ctx context.Context, instance string) (*RunResult, error) {
	if err := naming.ValidateInstanceName(instance); err != nil {
		return nil, err
	}
	if err := o.mux.Available(); err != nil {
		return nil, err
	}
	log := o.log.WithInstance(instance)

	live, err := o.liveHandles(ctx, instance)
	if err != nil {
		return nil, err
	}
	if len(live) > 0 {
		log.Info("instance already running", "handles", strings.Join(live, ","))
		return &RunResult{AlreadyRunning: true, Handles: live}, nil
	}

	taskList, err := tasks.Load(session.TasksPath(o.projectRoot))
	if err != nil {
		return nil, err
	}

	branch := naming.BranchName(o.cfg.Git.BranchPrefix, instance)
	checkout := naming.WorktreePath(o.cfg.Paths.ResolveWorktreeDir(o.projectRoot), instance)

	provLog := log.WithStage("provision")
	if err := o.worktrees.Create(ctx, checkout, branch); err != nil {
		var pe *errors.ProvisioningError
		if errors.As(err, &pe) {
			pe.WithInstance(instance)
		}
		provLog.Error("failed to create worktree", "branch", branch, "path", checkout, "error", err)
		return nil, err
	}
	provLog.Info("worktree created", "branch", branch, "path", checkout)

	record := session.NewRecord(instance, branch, checkout, taskList)
	specs := o.spawnSpecs(record)

	spawnLog := log.WithStage("spawn")
	g, gctx := errgroup.WithContext(ctx)
	var (
		mu      sync.Mutex
		created []string
	)
	for _, sp := range specs {
		g.Go(func() error {
			if err := o.mux.Spawn(gctx, sp.handle, record.WorktreePath); err != nil {
				return errors.NewSpawnError("failed to create tmux session", err).
					WithInstance(instance).WithHandle(sp.handle)
			}
			mu.Lock()
			created = append(created, sp.handle)
			mu.Unlock()

			// A session that cannot even echo its banner is not usable.
			if err := o.mux.SendKeys(gctx, sp.handle, banner(sp, record)); err != nil {
				return errors.NewSpawnError("failed to seed session banner", err).
					WithInstance(instance).WithHandle(sp.handle)
			}
			spawnLog.WithSession(sp.id).Debug("session spawned", "handle", sp.handle)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		killed := o.teardown(created)
		var se *errors.SpawnError
		if errors.As(err, &se) {
			se.WithKilled(killed)
		}
		spawnLog.Error("spawn failed, batch torn down",
			"killed", strings.Join(killed, ","), "error", err)
		return nil, err
	}

	result := &RunResult{Record: record, Handles: record.Handles()}
	if err := o.store.Save(record); err != nil {
		// The sessions are up; losing the record must not fail the run.
		log.Warn("session store not updated", "error", err)
		result.SaveErr = err
	}

	log.Info("instance started", "branch", branch, "sessions", len(specs))
	return result, nil
}

// spawnSpecs derives the sessions to create for a record: one per task, or
// a single bare session when the task list is empty.
func (o *Orchestrator) spawnSpecs(record *session.Record) []spawnSpec {
	if len(record.Tasks) == 0 {
		return []spawnSpec{{id: record.ID, handle: naming.ProcessHandle(record.ID)}}
	}
	specs := make([]spawnSpec, 0, len(record.Tasks))
	for i := range record.Tasks {
		task := &record.Tasks[i]
		id := naming.SessionID(record.ID, task.Slug)
		specs = append(specs, spawnSpec{
			id:     id,
			handle: naming.ProcessHandle(id),
			task:   task,
		})
	}
	return specs
}

// teardown kills the handles created in a failed batch and returns the ones
// actually killed. It runs on a fresh context so compensation still happens
// when the parent context was canceled.
func (o *Orchestrator) teardown(handles []string) []string {
	ctx := context.Background()
	var killed []string
	for _, handle := range handles {
		if err := o.mux.Kill(ctx, handle); err != nil {
			o.log.Warn("failed to kill session during teardown", "handle", handle, "error", err)
			continue
		}
		killed = append(killed, handle)
	}
	return killed
}

// liveHandles returns the live process handles belonging to an instance.
func (o *Orchestrator) liveHandles(ctx context.Context, instance string) ([]string, error) {
	sessions, err := o.mux.List(ctx)
	if err != nil {
		return nil, err
	}
	var handles []string
	for _, sess := range sessions {
		inst, _, ok := naming.ParseHandle(sess.Name)
		if ok && inst == instance {
			handles = append(handles, sess.Name)
		}
	}
	return handles, nil
}

// banner builds the shell line echoed into a fresh session: identity,
// workdir, branch, task, and the commands to get back here.
func banner(sp spawnSpec, record *session.Record) string {
	lines := []string{
		fmt.Sprintf("=== %s ===", sp.handle),
		"workdir: " + record.WorktreePath,
		"branch:  " + record.Branch,
	}
	if sp.task != nil {
		lines = append(lines, "task:    "+sp.task.Name)
		if sp.task.Description != "" {
			lines = append(lines, "desc:    "+sp.task.Description)
		}
	}
	lines = append(lines,
		fmt.Sprintf("attach:  tazz join %s (or: tmux attach -t '=%s')", sp.handle, sp.handle),
		"peers:   tazz list",
	)

	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = "echo " + shellQuote(line)
	}
	return strings.Join(parts, "; ")
}

// shellQuote single-quotes s for the shell. Embedded single quotes are
// closed, backslash-escaped, and reopened.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
