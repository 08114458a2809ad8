package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Energma/tazz-cli/internal/logging"
	"github.com/Energma/tazz-cli/internal/session"
	"github.com/Energma/tazz-cli/internal/worktree"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View workspace logs",
	Long: `View and filter the workspace log written under .tazz/logs.

Every run, join, and cleanup appends structured entries there. Use the
flags to narrow the output by level, time, instance, or pipeline stage,
or export matching entries to a file.

Examples:
  # Show the last 50 entries
  tazz logs

  # Show everything recorded for one instance
  tazz logs --instance api -n 0

  # Follow new entries in real time
  tazz logs -f

  # Only warnings and errors from the last hour
  tazz logs --level warn --since 1h

  # Search for spawn failures
  tazz logs --grep "spawn|kill"

  # Export matching entries as CSV
  tazz logs --level error --output errors.csv --format csv`,
	RunE: runLogs,
}

var (
	logsTail     int
	logsFollow   bool
	logsLevel    string
	logsSince    string
	logsInstance string
	logsStage    string
	logsSession  string
	logsGrep     string
	logsOutput   string
	logsFormat   string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsInstance, "instance", "", "Filter by instance name")
	logsCmd.Flags().StringVar(&logsStage, "stage", "", "Filter by pipeline stage (provision/spawn/cleanup)")
	logsCmd.Flags().StringVar(&logsSession, "session", "", "Filter by session ID (e.g., api_auth)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "Export matching entries to a file")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format (json/text/csv)")
}

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// levelColor returns the ANSI color code for a log level
func levelColor(level string) string {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return colorGray
	case logging.LevelInfo:
		return colorBlue
	case logging.LevelWarn:
		return colorYellow
	case logging.LevelError:
		return colorRed
	default:
		return colorReset
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry logging.LogEntry) string {
	var sb strings.Builder

	// Timestamp
	sb.WriteString(colorGray)
	sb.WriteString("[")
	sb.WriteString(entry.Timestamp.Format("15:04:05.000"))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	// Level with color
	sb.WriteString(" ")
	sb.WriteString(levelColor(entry.Level))
	sb.WriteString("[")
	sb.WriteString(strings.ToUpper(entry.Level))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	// Message
	sb.WriteString(" ")
	sb.WriteString(entry.Message)

	// Context fields
	if entry.SessionID != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("session=")
		sb.WriteString(entry.SessionID)
		sb.WriteString(colorReset)
	}
	if entry.Instance != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("instance=")
		sb.WriteString(entry.Instance)
		sb.WriteString(colorReset)
	}
	if entry.Stage != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("stage=")
		sb.WriteString(entry.Stage)
		sb.WriteString(colorReset)
	}

	// Extra fields
	for key, value := range entry.Attrs {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(colorReset)
		sb.WriteString(fmt.Sprintf("%v", value))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := worktree.FindGitRoot(cwd)
	if err != nil {
		return err
	}

	logDir := session.LogsDir(root)
	logPath := filepath.Join(logDir, "debug.log")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No logs found.")
		fmt.Println("Logs are stored at:", logPath)
		return nil
	}

	filter := logging.LogFilter{
		Instance:  logsInstance,
		Stage:     logsStage,
		SessionID: logsSession,
	}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.StartTime = time.Now().Add(-duration)
	}

	var grepRegex *regexp.Regexp
	if logsGrep != "" {
		grepRegex, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	if logsFollow {
		return followLogs(logPath, filter, grepRegex)
	}

	return displayLogs(logDir, filter, grepRegex)
}

// displayLogs aggregates the log file and prints or exports filtered entries.
func displayLogs(logDir string, filter logging.LogFilter, grepRegex *regexp.Regexp) error {
	entries, err := logging.AggregateLogs(logDir)
	if err != nil {
		return err
	}

	matched := logging.FilterLogs(entries, filter)
	if grepRegex != nil {
		grepped := matched[:0]
		for _, entry := range matched {
			if matchesGrep(entry, grepRegex) {
				grepped = append(grepped, entry)
			}
		}
		matched = grepped
	}

	if logsTail > 0 && len(matched) > logsTail {
		matched = matched[len(matched)-logsTail:]
	}

	if logsOutput != "" {
		if err := logging.ExportLogEntries(matched, logsOutput, logsFormat); err != nil {
			return fmt.Errorf("failed to export logs: %w", err)
		}
		fmt.Printf("Exported %d entries to %s\n", len(matched), logsOutput)
		return nil
	}

	for _, entry := range matched {
		fmt.Println(formatLogEntry(entry))
	}

	if len(matched) == 0 {
		fmt.Println("No matching log entries found.")
	}

	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(logPath string, filter logging.LogFilter, grepRegex *regexp.Regexp) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Seek to end of file
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Printf("Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// No new data, wait briefly and try again
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("error reading log file: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry, err := logging.ParseLogLine(line)
		if err != nil {
			// Not JSON, show the raw line
			fmt.Println(line)
			continue
		}

		if len(logging.FilterLogs([]logging.LogEntry{entry}, filter)) == 0 {
			continue
		}
		if grepRegex != nil && !matchesGrep(entry, grepRegex) {
			continue
		}

		fmt.Println(formatLogEntry(entry))
	}
}

// matchesGrep searches the message and attr values for the pattern.
func matchesGrep(entry logging.LogEntry, grepRegex *regexp.Regexp) bool {
	searchText := entry.Message
	for _, v := range entry.Attrs {
		searchText += " " + fmt.Sprintf("%v", v)
	}
	return grepRegex.MatchString(searchText)
}
