package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Energma/tazz-cli/internal/config"
	"github.com/Energma/tazz-cli/internal/logging"
	"github.com/Energma/tazz-cli/internal/orchestrator"
	"github.com/Energma/tazz-cli/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "tazz",
	Short: "Isolated work sessions on git worktrees and tmux",
	Long: `Tazz runs named instances of a repository in isolation: each instance
gets its own git branch and worktree checkout, and each task listed in
the workspace task document gets its own detached tmux session inside
that checkout.

Sessions outlive tazz itself. The list, join, stop, delete, and cleanup
commands reconcile the session store (.tazz/sessions.json) against what
is actually running.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/tazz/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/tazz")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TAZZ")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TAZZ_GIT_BRANCH_PREFIX for git.branch_prefix
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newOrchestrator builds an orchestrator for the repository containing the
// working directory, with the workspace logger attached. The caller must
// Close the returned logger.
func newOrchestrator() (*orchestrator.Orchestrator, *logging.Logger, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg := config.Get()
	orch, err := orchestrator.New(cwd, cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(orch.Root(), cfg)
	orch.SetLogger(logger)
	return orch, logger, nil
}

// newLogger builds the workspace logger per the logging config. A logger
// that cannot be created degrades to a no-op one; commands must not fail
// because the log file is unwritable.
func newLogger(projectRoot string, cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLoggerWithRotation(
		session.LogsDir(projectRoot),
		logging.ParseLevel(cfg.Logging.Level),
		logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	)
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// confirm prompts on stdin and returns true when the user answers yes.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
