package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Energma/tazz-cli/internal/errors"
)

var stopCmd = &cobra.Command{
	Use:   "stop <instance>",
	Short: "Mark an instance stopped in the session store",
	Long: `Stop marks the instance's record stopped in .tazz/sessions.json.

The tmux sessions keep running: stop is bookkeeping, not process
control. Use 'tazz delete <handle>' to kill a session, and
'tazz cleanup' to reclaim the worktree and branch afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	instance := args[0]

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if err := orch.Stop(instance); err != nil {
		var notFound *errors.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("no record for instance %s (run 'tazz list' to see instances)", instance)
		}
		return err
	}

	fmt.Printf("Instance %s marked stopped.\n", instance)
	fmt.Println("Sessions keep running; kill one with 'tazz delete <handle>'.")
	return nil
}
