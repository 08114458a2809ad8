package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "tmux.width")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// branchPrefixRegex validates branch prefix characters.
// The prefix must start with a letter, contain only alphanumeric characters,
// hyphens, or underscores, and end with a single slash so it can be
// prepended directly to instance names.
var branchPrefixRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*/$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGit()...)
	errors = append(errors, c.validateTmux()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateGit validates the GitConfig
func (c *Config) validateGit() []ValidationError {
	var errors []ValidationError

	if c.Git.BranchPrefix == "" {
		errors = append(errors, ValidationError{
			Field:   "git.branch_prefix",
			Value:   c.Git.BranchPrefix,
			Message: "cannot be empty",
		})
	} else if !branchPrefixRegex.MatchString(c.Git.BranchPrefix) {
		errors = append(errors, ValidationError{
			Field:   "git.branch_prefix",
			Value:   c.Git.BranchPrefix,
			Message: "must start with a letter, contain only alphanumeric characters, hyphens, or underscores, and end with '/'",
		})
	}

	// Git branch names have length limits
	const maxBranchPrefixLength = 50
	if len(c.Git.BranchPrefix) > maxBranchPrefixLength {
		errors = append(errors, ValidationError{
			Field:   "git.branch_prefix",
			Value:   c.Git.BranchPrefix,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", maxBranchPrefixLength),
		})
	}

	return errors
}

// validateTmux validates the TmuxConfig
func (c *Config) validateTmux() []ValidationError {
	var errors []ValidationError

	const minWidth = 80
	const maxWidth = 500
	const minHeight = 24
	const maxHeight = 200

	if c.Tmux.Width < minWidth {
		errors = append(errors, ValidationError{
			Field:   "tmux.width",
			Value:   c.Tmux.Width,
			Message: fmt.Sprintf("must be at least %d columns", minWidth),
		})
	}
	if c.Tmux.Width > maxWidth {
		errors = append(errors, ValidationError{
			Field:   "tmux.width",
			Value:   c.Tmux.Width,
			Message: fmt.Sprintf("exceeds maximum of %d columns", maxWidth),
		})
	}
	if c.Tmux.Height < minHeight {
		errors = append(errors, ValidationError{
			Field:   "tmux.height",
			Value:   c.Tmux.Height,
			Message: fmt.Sprintf("must be at least %d rows", minHeight),
		})
	}
	if c.Tmux.Height > maxHeight {
		errors = append(errors, ValidationError{
			Field:   "tmux.height",
			Value:   c.Tmux.Height,
			Message: fmt.Sprintf("exceeds maximum of %d rows", maxHeight),
		})
	}

	if c.Tmux.HistoryLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "tmux.history_limit",
			Value:   c.Tmux.HistoryLimit,
			Message: "must be non-negative",
		})
	}

	const maxHistoryLimit = 1_000_000
	if c.Tmux.HistoryLimit > maxHistoryLimit {
		errors = append(errors, ValidationError{
			Field:   "tmux.history_limit",
			Value:   c.Tmux.HistoryLimit,
			Message: fmt.Sprintf("exceeds maximum of %d lines", maxHistoryLimit),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	// WorktreeDir validation - if set, check for invalid characters
	if c.Paths.WorktreeDir != "" {
		path := c.Paths.WorktreeDir

		// Check for null bytes which are invalid in paths
		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "paths.worktree_dir",
				Value:   path,
				Message: "path contains invalid null character",
			})
		}

		// Reasonable path length limit (most filesystems have limits around 4096)
		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "paths.worktree_dir",
				Value:   path,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}
