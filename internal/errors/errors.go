// Package errors provides centralized error definitions and error handling
// utilities for the tazz codebase. It defines domain-specific errors for the
// orchestration pipeline, semantic error types, error constructors with
// context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from specific stages:
//   - ProvisioningError: the git worktree/branch step failed
//   - SpawnError: one or more tmux session spawns failed
//   - StorageError: the session store could not be read or written
//
// Semantic errors represent common conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewProvisioningError("worktree creation failed", cause).
//		WithInstance("auth").WithBranch("tazz/auth")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrWorktreeExists) { ... }
//
//	var spawnErr *errors.SpawnError
//	if errors.As(err, &spawnErr) { ... }
//
//	if errors.IsUserFacing(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Git-related sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrWorktreeExists indicates that a worktree already exists.
	ErrWorktreeExists = New("worktree already exists")
	// ErrBranchExists indicates that a branch already exists.
	ErrBranchExists = New("branch already exists")
)

// Multiplexer-related sentinel errors
var (
	// ErrTmuxUnavailable indicates that the tmux binary is not installed.
	ErrTmuxUnavailable = New("tmux is not installed or not in PATH")
	// ErrSessionExists indicates that a tmux session with this name already runs.
	ErrSessionExists = New("tmux session already exists")
	// ErrInsideTmux indicates that the caller is already inside a tmux client.
	ErrInsideTmux = New("already inside a tmux session")
)

// Store-related sentinel errors
var (
	// ErrStoreCorrupted indicates that the session store file is not valid JSON.
	ErrStoreCorrupted = New("session store corrupted")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// TazzError is the base interface for all tazz errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type TazzError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ProvisioningError represents a failure while creating the isolated
// checkout (worktree plus branch) for an instance. It is fatal for the
// run that raised it; no retry or renaming is attempted.
//
// Example:
//
//	err := errors.NewProvisioningError("worktree creation failed", cause)
//	err = err.WithInstance("auth").WithBranch("tazz/auth").WithGitOutput(out)
type ProvisioningError struct {
	baseError
	Instance  string
	Branch    string
	Worktree  string
	GitOutput string // Captured git command output
}

// NewProvisioningError creates a new ProvisioningError.
func NewProvisioningError(message string, cause error) *ProvisioningError {
	return &ProvisioningError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithInstance adds the instance name to the error context.
func (e *ProvisioningError) WithInstance(instance string) *ProvisioningError {
	e.Instance = instance
	return e
}

// WithBranch adds a branch name to the error context.
func (e *ProvisioningError) WithBranch(branch string) *ProvisioningError {
	e.Branch = branch
	return e
}

// WithWorktree adds a worktree path to the error context.
func (e *ProvisioningError) WithWorktree(path string) *ProvisioningError {
	e.Worktree = path
	return e
}

// WithGitOutput adds captured git command output to the error context.
func (e *ProvisioningError) WithGitOutput(output string) *ProvisioningError {
	e.GitOutput = output
	return e
}

// Error returns the formatted error message.
func (e *ProvisioningError) Error() string {
	var parts []string
	if e.Instance != "" {
		parts = append(parts, fmt.Sprintf("instance=%s", e.Instance))
	}
	if e.Branch != "" {
		parts = append(parts, fmt.Sprintf("branch=%s", e.Branch))
	}
	if e.Worktree != "" {
		parts = append(parts, fmt.Sprintf("worktree=%s", e.Worktree))
	}

	prefix := "provisioning error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("provisioning error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.GitOutput != "" {
		msg = fmt.Sprintf("%s\ngit output: %s", msg, e.GitOutput)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ProvisioningError) Is(target error) bool {
	if _, ok := target.(*ProvisioningError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SpawnError represents a failure while spawning one of the per-task tmux
// sessions. It is fatal for the run that raised it; sessions already
// created in the same batch are torn down before it is surfaced, and
// Killed records which handles that teardown removed.
//
// Example:
//
//	err := errors.NewSpawnError("tmux session creation failed", cause)
//	err = err.WithInstance("auth").WithHandle("tazz_auth_task-2")
type SpawnError struct {
	baseError
	Instance string
	Handle   string
	Killed   []string
}

// NewSpawnError creates a new SpawnError.
func NewSpawnError(message string, cause error) *SpawnError {
	return &SpawnError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithInstance adds the instance name to the error context.
func (e *SpawnError) WithInstance(instance string) *SpawnError {
	e.Instance = instance
	return e
}

// WithHandle adds the failing process handle to the error context.
func (e *SpawnError) WithHandle(handle string) *SpawnError {
	e.Handle = handle
	return e
}

// WithKilled records the handles that were torn down after the failure.
func (e *SpawnError) WithKilled(handles []string) *SpawnError {
	e.Killed = handles
	return e
}

// Error returns the formatted error message.
func (e *SpawnError) Error() string {
	var parts []string
	if e.Instance != "" {
		parts = append(parts, fmt.Sprintf("instance=%s", e.Instance))
	}
	if e.Handle != "" {
		parts = append(parts, fmt.Sprintf("handle=%s", e.Handle))
	}

	prefix := "spawn error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("spawn error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if len(e.Killed) > 0 {
		msg = fmt.Sprintf("%s (cleaned up: %s)", msg, strings.Join(e.Killed, ", "))
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *SpawnError) Is(target error) bool {
	if _, ok := target.(*SpawnError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StorageError represents a failure reading or writing the session store.
//
// Example:
//
//	err := errors.NewStorageError("failed to read session store", cause)
//	err = err.WithPath(".tazz/sessions.json").WithOp("read")
type StorageError struct {
	baseError
	Path string
	Op   string
}

// NewStorageError creates a new StorageError.
func NewStorageError(message string, cause error) *StorageError {
	return &StorageError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPath adds the store file path to the error context.
func (e *StorageError) WithPath(path string) *StorageError {
	e.Path = path
	return e
}

// WithOp adds the failing operation ("read" or "write") to the error context.
func (e *StorageError) WithOp(op string) *StorageError {
	e.Op = op
	return e
}

// Error returns the formatted error message.
func (e *StorageError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	prefix := "storage error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("storage error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StorageError) Is(target error) bool {
	if _, ok := target.(*StorageError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("session", "auth_task-1")
//	fmt.Println(err) // "session 'auth_task-1' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("instance name must not contain underscores")
//	err = err.WithField("instance").WithValue("my_app")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for tmux session", 5*time.Second)
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var tazzErr TazzError
	if As(err, &tazzErr) {
		return tazzErr.IsRetryable()
	}

	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to
// end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var tazzErr TazzError
	if As(err, &tazzErr) {
		return tazzErr.IsUserFacing()
	}

	var notFound *NotFoundError
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &notFound) || As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement TazzError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var tazzErr TazzError
	if As(err, &tazzErr) {
		return tazzErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load task list")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to spawn session %s", handle)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
