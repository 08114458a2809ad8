package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Energma/tazz-cli/internal/orchestrator"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale records, worktrees, and branches",
	Long: `Cleanup reconciles the three resource layers and removes what lost its
counterparts:

- Records: store entries with no live session and no worktree on disk
- Worktrees: instance checkouts with no live session (skipped when they
  hold uncommitted changes)
- Branches: <prefix>* branches no worktree or record references
  (prefix is configured via git.branch_prefix, default: "tazz/")

By default only fully orphaned resources are touched. With --all the
worktrees and branches of stopped instances are reclaimed too.

Use --dry-run to see the plan without making changes.`,
	RunE: runCleanup,
}

var (
	cleanupDryRun bool
	cleanupForce  bool
	cleanupAll    bool
)

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be cleaned up without making changes")
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Also reclaim worktrees and branches of stopped instances")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	plan, err := orch.DiscoverStale(cmd.Context(), cleanupAll)
	if err != nil {
		return fmt.Errorf("failed to discover stale resources: %w", err)
	}

	if plan.Empty() {
		fmt.Println("No stale resources found. Nothing to clean up.")
		return nil
	}

	printCleanupPlan(plan)

	if cleanupDryRun {
		fmt.Println("\nDry run mode - no changes made.")
		return nil
	}

	if !cleanupForce {
		if !confirm("\nProceed with cleanup?") {
			fmt.Println("Cleanup cancelled.")
			return nil
		}
	}

	result := orch.Cleanup(cmd.Context(), plan)
	printCleanupSummary(result)
	return nil
}

// printCleanupPlan shows what discovery found, grouped by resource layer.
func printCleanupPlan(plan *orchestrator.CleanupPlan) {
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println("Stale Resources Found")
	fmt.Println(strings.Repeat("─", 60))

	if len(plan.OrphanRecords) > 0 {
		fmt.Printf("\nRecords (%d):\n", len(plan.OrphanRecords))
		for _, instance := range plan.OrphanRecords {
			fmt.Printf("  - %s\n", instance)
		}
	}

	if len(plan.StaleWorktrees) > 0 {
		fmt.Printf("\nWorktrees (%d):\n", len(plan.StaleWorktrees))
		for _, wt := range plan.StaleWorktrees {
			status := ""
			if wt.Dirty {
				status = " [uncommitted changes, will be skipped]"
			}
			fmt.Printf("  - %s%s\n", filepath.Base(wt.Path), status)
			if wt.Branch != "" {
				fmt.Printf("    Branch: %s\n", wt.Branch)
			}
		}
	}

	if len(plan.StaleBranches) > 0 {
		fmt.Printf("\nBranches (%d):\n", len(plan.StaleBranches))
		for _, branch := range plan.StaleBranches {
			fmt.Printf("  - %s\n", branch)
		}
	}
}

// printCleanupSummary reports what was removed and what was left in place.
func printCleanupSummary(result *orchestrator.CleanupResult) {
	fmt.Println()
	total := result.RecordsRemoved + result.WorktreesRemoved + result.BranchesDeleted
	if total == 0 && len(result.Skipped) == 0 {
		fmt.Println("Nothing removed.")
		return
	}

	if result.RecordsRemoved > 0 {
		fmt.Printf("Removed %d record(s)\n", result.RecordsRemoved)
	}
	if result.WorktreesRemoved > 0 {
		fmt.Printf("Removed %d worktree(s)\n", result.WorktreesRemoved)
	}
	if result.BranchesDeleted > 0 {
		fmt.Printf("Deleted %d branch(es)\n", result.BranchesDeleted)
	}

	if len(result.Skipped) > 0 {
		fmt.Printf("\nSkipped (%d):\n", len(result.Skipped))
		for _, line := range result.Skipped {
			fmt.Printf("  - %s\n", line)
		}
	}
}
