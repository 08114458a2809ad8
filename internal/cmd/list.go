package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Energma/tazz-cli/internal/orchestrator"
	"github.com/Energma/tazz-cli/internal/session"
	"github.com/Energma/tazz-cli/internal/tui"
	"github.com/Energma/tazz-cli/internal/util"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List instances and their sessions",
	Long: `List every known instance with its sessions, reconciling the session
store against the tmux server:

- live: the tmux session exists right now
- stored: the session is recorded in .tazz/sessions.json

A session can be both (normal), live only (started outside the store or
the record was lost), or stored only (the process died or was deleted).`,
	RunE: runList,
}

var listInteractive bool

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listInteractive, "interactive", "i", false, "Browse sessions in an interactive picker")
}

func runList(cmd *cobra.Command, args []string) error {
	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if listInteractive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		_, err := tui.Run(orch, session.StorePath(orch.Root()), true)
		return err
	}

	entries, err := orch.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	fmt.Println(strings.Repeat("─", 70))
	fmt.Println("Tazz Instances")
	fmt.Println(strings.Repeat("─", 70))

	if len(entries) == 0 {
		fmt.Println("\nNo instances found.")
		fmt.Println("Run 'tazz run <instance>' to start one.")
		return nil
	}

	for _, entry := range entries {
		printInstance(entry)
	}

	fmt.Println(strings.Repeat("─", 70))
	fmt.Println("\nAttach with: tazz join <handle>")
	return nil
}

// printInstance renders one instance block.
func printInstance(entry orchestrator.InstanceEntry) {
	status := "untracked"
	if entry.Record != nil {
		status = string(entry.Record.Status)
	}
	fmt.Printf("\n  Instance: %s (%s)\n", entry.Instance, status)

	if entry.Record != nil {
		fmt.Printf("    Branch:   %s\n", entry.Record.Branch)
		fmt.Printf("    Worktree: %s\n", entry.Record.WorktreePath)
		fmt.Printf("    Created:  %s\n", entry.Record.CreatedAt.Format(time.RFC822))
		if ago := util.FormatTimeAgo(entry.Record.LastActive); ago != "" {
			fmt.Printf("    Active:   %s\n", ago)
		}
	}

	fmt.Printf("    Sessions:\n")
	for _, proc := range entry.Processes {
		fmt.Printf("      %s %-30s %s\n", badge(proc), proc.Handle, taskLabel(proc))
	}
}

// badge marks a session as live or stored-only.
func badge(proc orchestrator.ProcessEntry) string {
	if proc.Live {
		return "●"
	}
	return "○"
}

// taskLabel describes what the session hosts.
func taskLabel(proc orchestrator.ProcessEntry) string {
	state := "stored"
	if proc.Live {
		state = "live"
	}
	if proc.TaskName == "" {
		return fmt.Sprintf("(%s)", state)
	}
	return fmt.Sprintf("%s (%s)", util.TruncateString(proc.TaskName, 40), state)
}
