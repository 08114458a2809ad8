// Package session persists instance metadata in the workspace session
// store, a single JSON file at .tazz/sessions.json. The store holds one
// record per instance; the terminal processes belonging to an instance
// are not persisted here but derived on demand from the record's tasks
// via the naming scheme and checked against the live multiplexer.
//
// Writes are read-modify-write over the whole file: safe for a single
// operator running one command at a time, last-writer-wins when two
// processes race. Each write lands via an atomic temp-file-then-rename
// so readers never observe a partially written store.
package session

import (
	"path/filepath"
	"time"

	"github.com/Energma/tazz-cli/internal/naming"
	"github.com/Energma/tazz-cli/internal/tasks"
)

// StateDirName is the workspace state directory, relative to the project root.
const StateDirName = ".tazz"

// StoreFileName is the session store file within the state directory.
const StoreFileName = "sessions.json"

// LogsDirName is the log directory within the state directory.
const LogsDirName = "logs"

// StateDir returns the path to the workspace state directory.
func StateDir(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName)
}

// StorePath returns the path to the session store file.
func StorePath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), StoreFileName)
}

// LogsDir returns the path to the workspace log directory.
func LogsDir(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), LogsDirName)
}

// TasksPath returns the path to the workspace task document.
func TasksPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), tasks.FileName)
}

// Status describes the lifecycle state of an instance's sessions.
//
// The machine is deliberately loose: any operation may set any status.
// StatusStopped and StatusFailed are terminal only in the sense that no
// automatic transition leaves them; explicit operator action still can.
type Status string

const (
	// StatusActive is the initial status, set when run completes.
	StatusActive Status = "active"

	// StatusStopped is set by an explicit stop operation. The external
	// processes are left running.
	StatusStopped Status = "stopped"

	// StatusFailed marks an instance whose processes died or whose spawn
	// did not complete.
	StatusFailed Status = "failed"

	// StatusPaused marks an instance deliberately set aside by the operator.
	StatusPaused Status = "paused"
)

// ValidStatuses returns all recognized status values.
func ValidStatuses() []Status {
	return []Status{StatusActive, StatusStopped, StatusFailed, StatusPaused}
}

// IsValid reports whether s is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusStopped, StatusFailed, StatusPaused:
		return true
	}
	return false
}

// Record is the persisted metadata for one instance. There is exactly one
// record per instance in the store; per-task process liveness is derived
// via SessionIDs/Handles and the multiplexer, never persisted.
type Record struct {
	ID           string       `json:"id"`
	Branch       string       `json:"branch"`
	WorktreePath string       `json:"worktreePath"`
	Tasks        []tasks.Task `json:"tasks"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastActive   time.Time    `json:"lastActive"`
}

// NewRecord creates an active record for a freshly provisioned instance.
// A nil task list is stored as an empty one so the record always carries
// a tasks array.
func NewRecord(instance, branch, worktreePath string, taskList []tasks.Task) *Record {
	if taskList == nil {
		taskList = []tasks.Task{}
	}
	now := time.Now().UTC()
	return &Record{
		ID:           instance,
		Branch:       branch,
		WorktreePath: worktreePath,
		Tasks:        taskList,
		Status:       StatusActive,
		CreatedAt:    now,
		LastActive:   now,
	}
}

// SessionIDs returns the session identifiers this record's processes run
// under: one per task, or the bare instance ID when the task list is empty.
func (r *Record) SessionIDs() []string {
	if len(r.Tasks) == 0 {
		return []string{r.ID}
	}
	ids := make([]string, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		ids = append(ids, naming.SessionID(r.ID, t.Slug))
	}
	return ids
}

// Handles returns the multiplexer process handles for this record's
// sessions, in task order.
func (r *Record) Handles() []string {
	ids := r.SessionIDs()
	handles := make([]string, len(ids))
	for i, id := range ids {
		handles[i] = naming.ProcessHandle(id)
	}
	return handles
}

// TaskBySlug returns the record's task with the given slug, or nil. An
// empty slug addresses the bare instance session, which has no task.
func (r *Record) TaskBySlug(slug string) *tasks.Task {
	if slug == "" {
		return nil
	}
	for i := range r.Tasks {
		if r.Tasks[i].Slug == slug {
			return &r.Tasks[i]
		}
	}
	return nil
}

// Touch updates the record's last-active timestamp.
func (r *Record) Touch() {
	r.LastActive = time.Now().UTC()
}
