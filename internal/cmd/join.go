package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/naming"
	"github.com/Energma/tazz-cli/internal/session"
	"github.com/Energma/tazz-cli/internal/tui"
)

var joinCmd = &cobra.Command{
	Use:   "join [handle]",
	Short: "Attach the terminal to a running session",
	Long: `Join attaches to a live tmux session and blocks until you detach
(Ctrl+b d by default).

The handle is the tmux session name shown by 'tazz list' (for example
tazz_api_auth). The tazz_ prefix may be omitted. Without an argument,
join opens an interactive picker.

Joining from inside another tmux client is refused; the error shows the
switch-client command to use instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	var handle string
	if len(args) == 1 {
		handle = args[0]
		if !naming.IsHandle(handle) {
			// Accept bare session ids like "api_auth"
			handle = naming.ProcessHandle(handle)
		}
	} else {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("no session given and no terminal for the picker (usage: tazz join <handle>)")
		}
		handle, err = tui.Run(orch, session.StorePath(orch.Root()), false)
		if err != nil {
			return err
		}
		if handle == "" {
			// User quit the picker without choosing
			return nil
		}
	}

	if err := orch.Join(cmd.Context(), handle); err != nil {
		var notFound *errors.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w (run 'tazz list' to see sessions)", err)
		}
		return err
	}
	return nil
}
