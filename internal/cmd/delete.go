package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/naming"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <handle>",
	Short: "Kill a live session",
	Long: `Delete kills the named tmux session. Anything running inside it is
terminated.

The instance record, worktree, and branch are left in place; run
'tazz cleanup' to reclaim them once the instance's sessions are gone.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteForce bool

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	handle := args[0]
	if !naming.IsHandle(handle) {
		handle = naming.ProcessHandle(handle)
	}

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if !deleteForce {
		if !confirm(fmt.Sprintf("Kill session %s?", handle)) {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	if err := orch.Delete(cmd.Context(), handle); err != nil {
		var notFound *errors.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w (run 'tazz list' to see sessions)", err)
		}
		return err
	}

	fmt.Printf("Killed session %s.\n", handle)
	return nil
}
