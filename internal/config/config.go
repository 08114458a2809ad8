package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete tazz configuration
type Config struct {
	Git     GitConfig     `mapstructure:"git"`
	Tmux    TmuxConfig    `mapstructure:"tmux"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// GitConfig controls branch naming conventions
type GitConfig struct {
	// BranchPrefix is prepended to instance names to form branch names
	// (default: "tazz/"). Must end with a slash.
	// Example: prefix "tazz/" and instance "auth" yield branch "tazz/auth".
	BranchPrefix string `mapstructure:"branch_prefix"`
}

// TmuxConfig controls the dimensions of spawned tmux sessions
type TmuxConfig struct {
	// Width is the width of the tmux pane (default: 220)
	Width int `mapstructure:"width"`
	// Height is the height of the tmux pane (default: 50)
	Height int `mapstructure:"height"`
	// HistoryLimit is the number of lines of scrollback to keep (default: 50000)
	HistoryLimit int `mapstructure:"history_limit"`
}

// CleanupConfig controls maintenance behavior
type CleanupConfig struct {
	// WarnOnStale shows a warning on run if stale resources exist (default: true)
	WarnOnStale bool `mapstructure:"warn_on_stale"`
	// KeepRemoteBranches prevents deletion of branches that exist on remote (default: true)
	KeepRemoteBranches bool `mapstructure:"keep_remote_branches"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where tazz stores data
type PathsConfig struct {
	// WorktreeDir is the directory under which instance checkouts are created.
	// If empty, checkouts are created as siblings of the project root.
	// Can be an absolute path to store checkouts outside the repository
	// (e.g., on a faster drive or to avoid cluttering the parent directory).
	// Supports ~ for home directory expansion.
	WorktreeDir string `mapstructure:"worktree_dir"`
}

// ResolveWorktreeDir returns the directory under which instance checkouts
// are created. If WorktreeDir is empty, it returns the parent of projectRoot
// so checkouts land as siblings of the project. If WorktreeDir starts with ~,
// it expands to the user's home directory. A relative path is resolved
// relative to projectRoot.
func (p *PathsConfig) ResolveWorktreeDir(projectRoot string) string {
	if p.WorktreeDir == "" {
		return filepath.Dir(projectRoot)
	}

	path := p.WorktreeDir

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// If relative path, resolve relative to the project root
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Git: GitConfig{
			BranchPrefix: "tazz/",
		},
		Tmux: TmuxConfig{
			Width:        220,
			Height:       50,
			HistoryLimit: 50000, // 50k lines of scrollback
		},
		Cleanup: CleanupConfig{
			WarnOnStale:        true,
			KeepRemoteBranches: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			WorktreeDir: "", // Empty means sibling of the project root
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Git defaults
	viper.SetDefault("git.branch_prefix", defaults.Git.BranchPrefix)

	// Tmux defaults
	viper.SetDefault("tmux.width", defaults.Tmux.Width)
	viper.SetDefault("tmux.height", defaults.Tmux.Height)
	viper.SetDefault("tmux.history_limit", defaults.Tmux.HistoryLimit)

	// Cleanup defaults
	viper.SetDefault("cleanup.warn_on_stale", defaults.Cleanup.WarnOnStale)
	viper.SetDefault("cleanup.keep_remote_branches", defaults.Cleanup.KeepRemoteBranches)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.worktree_dir", defaults.Paths.WorktreeDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tazz")
	}
	// Fall back to ~/.config/tazz
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tazz"
	}
	return filepath.Join(home, ".config", "tazz")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
