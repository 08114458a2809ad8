// Package tasks parses the per-workspace task document into task
// descriptors. The document is a markdown checklist: each unchecked
// checkbox item opens a task, and indented lines under it may annotate
// the task with an explicit session slug and a description block.
//
// Example:
//
//   - [ ] Build feature
//     Session name: build-1
//     Description:
//     Implement X end to end
//     including tests
//   - [ ] Fix login bug
//
// Parsing is best-effort: malformed input degrades to partial results and
// never raises an error. At most MaxTasks tasks are returned; the rest are
// silently dropped.
package tasks

import (
	"os"
	"regexp"
	"strings"

	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/naming"
)

// MaxTasks is the fixed cap on tasks per instance.
const MaxTasks = 5

// FileName is the task document's name inside the workspace state directory.
const FileName = "tasks.md"

// Annotation prefixes recognized on indented lines under a checkbox item.
const (
	slugAnnotation        = "Session name:"
	descriptionAnnotation = "Description:"
)

// checkboxRe matches an unchecked checkbox item that opens a new task.
// Checked items and indented checkboxes are not task openers.
var checkboxRe = regexp.MustCompile(`^-\s+\[ \]\s+(.+)$`)

// Task describes one sub-unit of work within an instance.
type Task struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// pendingTask accumulates state for the checkbox item currently being
// scanned.
type pendingTask struct {
	name      string
	slug      string
	descParts []string
	inDesc    bool
}

// Parse scans raw text for unchecked checkbox items and returns the task
// descriptors they describe, in document order, capped at MaxTasks.
//
// A task's slug comes from a "Session name:" annotation when present,
// otherwise it is derived from the task name. A task's description is the
// space-joined "Description:" block when present, otherwise
// "Work on: <name>".
func Parse(text string) []Task {
	var result []Task
	var cur *pendingTask

	flush := func() {
		if cur == nil {
			return
		}
		task, ok := cur.build()
		cur = nil
		if ok && len(result) < MaxTasks {
			result = append(result, task)
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")

		if m := checkboxRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &pendingTask{name: strings.TrimSpace(m[1])}
			continue
		}

		if cur == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// Blank line ends a description block but not the task.
			cur.inDesc = false
			continue
		}

		indented := line[0] == ' ' || line[0] == '\t'
		if !indented {
			// Unindented prose ends the task body entirely.
			flush()
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, slugAnnotation):
			cur.slug = naming.Slugify(strings.TrimSpace(strings.TrimPrefix(trimmed, slugAnnotation)))
			cur.inDesc = false
		case strings.HasPrefix(trimmed, descriptionAnnotation):
			cur.inDesc = true
			if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, descriptionAnnotation)); rest != "" {
				cur.descParts = append(cur.descParts, rest)
			}
		case cur.inDesc:
			cur.descParts = append(cur.descParts, trimmed)
		}
	}
	flush()

	return result
}

// build finalizes a pending task, applying slug derivation and the
// description default. Returns false for unusable items (empty names).
func (p *pendingTask) build() (Task, bool) {
	if p.name == "" {
		return Task{}, false
	}

	slug := p.slug
	if slug == "" {
		slug = naming.Slugify(p.name)
	}
	if slug == "" {
		return Task{}, false
	}

	description := strings.Join(p.descParts, " ")
	if description == "" {
		description = "Work on: " + p.name
	}

	return Task{
		Name:        p.name,
		Slug:        slug,
		Description: description,
	}, true
}

// Load reads and parses the task document at path. A missing file is not
// an error: it yields an empty task list, meaning the instance runs as a
// single session.
func Load(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read task file %s", path)
	}
	return Parse(string(data)), nil
}
