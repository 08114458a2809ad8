// Package logging provides structured logging for tazz.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. Logs
// are written to a single file under the workspace state directory
// (.tazz/logs/debug.log) so a run can be reconstructed after the fact.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (session ID, instance name, stage)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a log directory:
//
//	logger, err := logging.NewLogger(".tazz/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add instance context
//	instanceLogger := logger.WithInstance("auth")
//
//	// Add session context
//	sessionLogger := instanceLogger.WithSession("auth_task-1")
//
//	// Add stage context
//	stageLogger := sessionLogger.WithStage("spawning")
//
//	// All logs from stageLogger will include instance, session_id, and stage
//	stageLogger.Info("session created", "handle", "tazz_auth_task-1")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"session created","instance":"auth","session_id":"auth_task-1","stage":"spawning","handle":"tazz_auth_task-1"}
//
// # Log Rotation
//
// For long-lived workspaces, use log rotation to prevent unbounded growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,    // Rotate when file exceeds 10MB
//	    MaxBackups: 3,     // Keep 3 backup files
//	    Compress:   true,  // Gzip compress rotated files
//	}
//
//	logger, err := logging.NewLoggerWithRotation(".tazz/logs", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: debug.log.1, debug.log.2, etc., where .1 is the
// most recent backup. When compression is enabled, rotated files become
// debug.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via tazz's config file:
//
//	logging:
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
package logging
