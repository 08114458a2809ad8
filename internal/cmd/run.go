package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Energma/tazz-cli/internal/config"
	"github.com/Energma/tazz-cli/internal/orchestrator"
	"github.com/Energma/tazz-cli/internal/session"
	"github.com/Energma/tazz-cli/internal/tasks"
)

var runCmd = &cobra.Command{
	Use:   "run <instance>",
	Short: "Start an instance: a worktree plus one tmux session per task",
	Long: `Run provisions an isolated checkout for the named instance and spawns
its sessions:

1. Create branch <prefix><instance> and a worktree checkout for it
2. Parse .tazz/tasks.md for up to ` + fmt.Sprint(tasks.MaxTasks) + ` tasks
3. Spawn one detached tmux session per task (or a single bare session
   when no task document exists), seeded with a banner
4. Record the instance in .tazz/sessions.json

Running an instance that already has live sessions is a no-op; the
existing sessions are listed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	instance := args[0]

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	result, err := orch.Run(cmd.Context(), instance)
	if err != nil {
		return err
	}

	if result.AlreadyRunning {
		fmt.Printf("Instance %s is already running (%d session(s)):\n", instance, len(result.Handles))
		for _, handle := range result.Handles {
			fmt.Printf("  %s\n", handle)
		}
		fmt.Println("\nAttach with: tazz join <handle>")
		return nil
	}

	record := result.Record
	fmt.Printf("Instance %s is up.\n\n", instance)
	fmt.Printf("  Branch:   %s\n", record.Branch)
	fmt.Printf("  Worktree: %s\n", record.WorktreePath)
	if len(record.Tasks) > 0 {
		fmt.Printf("  Tasks:    %d\n", len(record.Tasks))
	}
	fmt.Printf("  Sessions:\n")
	for _, handle := range result.Handles {
		fmt.Printf("    %s\n", handle)
	}
	fmt.Println("\nAttach with: tazz join <handle>")

	if result.SaveErr != nil {
		fmt.Printf("\nWarning: failed to record the instance in %s: %v\n",
			session.StorePath(orch.Root()), result.SaveErr)
		fmt.Println("The sessions are running; 'tazz list' will still show them as live.")
	}

	warnStale(cmd, orch)
	return nil
}

// warnStale nudges toward cleanup when stale resources have accumulated.
// Discovery failures are ignored; this is advisory output only.
func warnStale(cmd *cobra.Command, orch *orchestrator.Orchestrator) {
	if !config.Get().Cleanup.WarnOnStale {
		return
	}
	plan, err := orch.DiscoverStale(cmd.Context(), false)
	if err != nil || plan == nil || plan.Empty() {
		return
	}
	count := len(plan.OrphanRecords) + len(plan.StaleWorktrees) + len(plan.StaleBranches)
	fmt.Printf("\nNote: %d stale resource(s) found. Run 'tazz cleanup' to review them.\n", count)
}
