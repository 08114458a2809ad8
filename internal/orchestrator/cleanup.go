package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Energma/tazz-cli/internal/naming"
	"github.com/Energma/tazz-cli/internal/session"
)

// StaleWorktree is a checkout eligible for removal.
type StaleWorktree struct {
	Path     string
	Branch   string
	Instance string
	Dirty    bool // uncommitted changes; Cleanup skips these
}

// CleanupPlan lists the stale resources discovery found. Plans are built by
// DiscoverStale and applied by Cleanup, so dry runs can show the plan
// without touching anything.
type CleanupPlan struct {
	OrphanRecords  []string
	StaleWorktrees []StaleWorktree
	StaleBranches  []string
}

// Empty reports whether the plan has nothing to do.
func (p *CleanupPlan) Empty() bool {
	return len(p.OrphanRecords) == 0 && len(p.StaleWorktrees) == 0 && len(p.StaleBranches) == 0
}

// CleanupResult counts what Cleanup actually removed. Skipped carries a
// human-readable line per item left in place.
type CleanupResult struct {
	RecordsRemoved   int
	WorktreesRemoved int
	BranchesDeleted  int
	Skipped          []string
}

// DiscoverStale scans for resources that lost their counterparts: store
// records whose sessions and checkout are both gone, and branches with the
// configured prefix that nothing references anymore. With all, checkouts
// and branches of stopped (or untracked) instances are included too, as
// long as no live session uses them.
func (o *Orchestrator) DiscoverStale(ctx context.Context, all bool) (*CleanupPlan, error) {
	liveInstances := make(map[string]bool)
	sessions, err := o.mux.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if instance, _, ok := naming.ParseHandle(sess.Name); ok {
			liveInstances[instance] = true
		}
	}

	records, err := o.store.GetAll()
	if err != nil {
		return nil, err
	}
	recordByInstance := make(map[string]session.Record, len(records))
	for _, rec := range records {
		recordByInstance[rec.ID] = rec
	}

	plan := &CleanupPlan{}

	// Records whose sessions are dead and whose checkout is gone.
	for _, rec := range records {
		if liveInstances[rec.ID] {
			continue
		}
		if _, err := os.Stat(rec.WorktreePath); os.IsNotExist(err) {
			plan.OrphanRecords = append(plan.OrphanRecords, rec.ID)
		}
	}

	prefix := o.cfg.Git.BranchPrefix

	// Checkouts on prefixed branches. checkedOut tracks branches still
	// backed by a worktree so the dangling-branch pass skips them.
	checkedOut := make(map[string]bool)
	worktrees, err := o.worktrees.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, path := range worktrees {
		if path == o.projectRoot {
			continue
		}
		branch, err := o.worktrees.GetBranch(ctx, path)
		if err != nil {
			// Deleted or broken checkout; the prune at the end of
			// Cleanup takes care of it.
			continue
		}
		if !strings.HasPrefix(branch, prefix) {
			continue
		}
		checkedOut[branch] = true
		if !all {
			continue
		}
		instance := strings.TrimPrefix(branch, prefix)
		if liveInstances[instance] {
			continue
		}
		if rec, tracked := recordByInstance[instance]; tracked && rec.Status != session.StatusStopped {
			continue
		}
		dirty, err := o.worktrees.HasUncommittedChanges(ctx, path)
		if err != nil {
			// Cannot verify, so do not touch it.
			dirty = true
		}
		plan.StaleWorktrees = append(plan.StaleWorktrees, StaleWorktree{
			Path:     path,
			Branch:   branch,
			Instance: instance,
			Dirty:    dirty,
		})
	}

	branches, err := o.worktrees.ListBranches(ctx, prefix)
	if err != nil {
		return nil, err
	}

	remote := make(map[string]bool)
	if o.cfg.Cleanup.KeepRemoteBranches {
		names, err := o.worktrees.ListRemoteBranches(ctx, "origin", prefix)
		if err != nil {
			o.log.Warn("failed to list remote branches", "error", err)
		}
		for _, branch := range names {
			remote[branch] = true
		}
	}

	orphanRecord := make(map[string]bool, len(plan.OrphanRecords))
	for _, id := range plan.OrphanRecords {
		orphanRecord[id] = true
	}
	// Branches whose checkout goes away in this plan become deletable too.
	freedByPlan := make(map[string]bool)
	for _, wt := range plan.StaleWorktrees {
		if !wt.Dirty {
			freedByPlan[wt.Branch] = true
		}
	}

	for _, branch := range branches {
		instance := strings.TrimPrefix(branch, prefix)
		if liveInstances[instance] || remote[branch] {
			continue
		}
		if checkedOut[branch] && !freedByPlan[branch] {
			continue
		}
		rec, tracked := recordByInstance[instance]
		switch {
		case !tracked, orphanRecord[instance]:
			plan.StaleBranches = append(plan.StaleBranches, branch)
		case all && rec.Status == session.StatusStopped:
			plan.StaleBranches = append(plan.StaleBranches, branch)
		}
	}

	return plan, nil
}

// Cleanup applies a plan item by item: worktrees first so their branches
// become deletable, then branches, then records, then a prune for leftover
// worktree metadata. Failures skip the item and the rest continues.
func (o *Orchestrator) Cleanup(ctx context.Context, plan *CleanupPlan) *CleanupResult {
	log := o.log.WithStage("cleanup")
	res := &CleanupResult{}

	for _, wt := range plan.StaleWorktrees {
		if wt.Dirty {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s (uncommitted changes)", wt.Path))
			continue
		}
		if err := o.worktrees.Remove(ctx, wt.Path); err != nil {
			log.Warn("failed to remove worktree", "path", wt.Path, "error", err)
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s (%v)", wt.Path, err))
			continue
		}
		res.WorktreesRemoved++
	}

	for _, branch := range plan.StaleBranches {
		if err := o.worktrees.DeleteBranch(ctx, branch); err != nil {
			log.Warn("failed to delete branch", "branch", branch, "error", err)
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s (%v)", branch, err))
			continue
		}
		res.BranchesDeleted++
	}

	for _, id := range plan.OrphanRecords {
		if err := o.store.Remove(id); err != nil {
			log.Warn("failed to remove record", "instance", id, "error", err)
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s (%v)", id, err))
			continue
		}
		res.RecordsRemoved++
	}

	if err := o.worktrees.Prune(ctx); err != nil {
		log.Warn("failed to prune worktrees", "error", err)
	}

	log.Info("cleanup finished",
		"records", res.RecordsRemoved,
		"worktrees", res.WorktreesRemoved,
		"branches", res.BranchesDeleted,
		"skipped", len(res.Skipped))
	return res
}
