// Package naming defines the pure naming scheme that ties instances, tasks,
// sessions, process handles, branches, and checkout directories together.
//
// The mapping is:
//
//	session ID      = <instance> or <instance>_<taskSlug>
//	process handle  = tazz_<session ID>
//	branch name     = <prefix><instance>      (prefix ends with "/")
//	checkout path   = <baseDir>/<instance>
//
// Listing operations recover (instance, taskSlug) from a process handle by
// stripping the handle prefix and splitting on the last underscore. That
// split is unambiguous because instance names are validated to never contain
// underscores and task slugs contain only lowercase alphanumerics and
// hyphens.
package naming

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Energma/tazz-cli/internal/errors"
)

// HandlePrefix is prepended to session IDs to form external process handles.
const HandlePrefix = "tazz_"

// maxInstanceNameLength bounds instance names so derived branch names and
// tmux session names stay manageable.
const maxInstanceNameLength = 50

// maxSlugLength bounds task slugs used in session IDs and branch-safe
// contexts.
const maxSlugLength = 30

// SessionID returns the session identifier for an instance and an optional
// task slug. With an empty slug the instance name itself is the session ID.
func SessionID(instance, taskSlug string) string {
	if taskSlug == "" {
		return instance
	}
	return instance + "_" + taskSlug
}

// ProcessHandle returns the external multiplexer session name for a session ID.
func ProcessHandle(sessionID string) string {
	return HandlePrefix + sessionID
}

// SessionIDFromHandle strips the handle prefix from a process handle.
// Returns false if the handle does not carry the prefix, or if nothing
// follows it.
func SessionIDFromHandle(handle string) (string, bool) {
	if !strings.HasPrefix(handle, HandlePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(handle, HandlePrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// Split breaks a session ID into its instance name and task slug.
// The task slug is empty for instance-only session IDs.
func Split(sessionID string) (instance, taskSlug string) {
	idx := strings.LastIndex(sessionID, "_")
	if idx < 0 {
		return sessionID, ""
	}
	return sessionID[:idx], sessionID[idx+1:]
}

// ParseHandle recovers (instance, taskSlug) from a process handle.
// Returns false if the handle does not carry the handle prefix.
func ParseHandle(handle string) (instance, taskSlug string, ok bool) {
	sessionID, ok := SessionIDFromHandle(handle)
	if !ok {
		return "", "", false
	}
	instance, taskSlug = Split(sessionID)
	return instance, taskSlug, true
}

// IsHandle reports whether name is a tazz-owned process handle.
func IsHandle(name string) bool {
	return strings.HasPrefix(name, HandlePrefix)
}

// BranchName returns the branch for an instance. The prefix is expected to
// end with a slash (validated by the config layer).
func BranchName(prefix, instance string) string {
	return prefix + instance
}

// WorktreePath returns the checkout directory for an instance under baseDir.
func WorktreePath(baseDir, instance string) string {
	return filepath.Join(baseDir, instance)
}

// Slugify derives a task slug from free text: lowercased, with every run
// of characters outside [a-z0-9] collapsed into a single hyphen, trimmed,
// and length-capped. The output alphabet is [a-z0-9-], so slugs are safe
// in session IDs, branch names, and directory names alike.
func Slugify(text string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen && b.Len() > 0:
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	// The builder emits ASCII only, so the byte cap lands on a character
	// boundary.
	s := b.String()
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return strings.TrimRight(s, "-")
}

// ValidateInstanceName checks that an instance name is safe to use across
// all three naming domains (session IDs, branch names, directory names).
// Underscores are rejected because they are the session ID separator; path
// separators and whitespace are rejected because the name becomes a
// directory; dots and colons are rejected because tmux does not accept
// them in session names.
func ValidateInstanceName(name string) error {
	if name == "" {
		return errors.NewValidationError("instance name cannot be empty").
			WithField("instance")
	}
	if len(name) > maxInstanceNameLength {
		return errors.NewValidationError("instance name is too long (max 50 characters)").
			WithField("instance").WithValue(name)
	}

	for i, r := range name {
		switch {
		case r == '_':
			return errors.NewValidationError("instance name cannot contain underscores").
				WithField("instance").WithValue(name)
		case r == '/' || r == '\\':
			return errors.NewValidationError("instance name cannot contain path separators").
				WithField("instance").WithValue(name)
		case r == '.' || r == ':':
			// tmux forbids '.' and ':' in session names.
			return errors.NewValidationError("instance name cannot contain dots or colons").
				WithField("instance").WithValue(name)
		case unicode.IsSpace(r):
			return errors.NewValidationError("instance name cannot contain whitespace").
				WithField("instance").WithValue(name)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			// ok
		case r == '-':
			if i == 0 {
				return errors.NewValidationError("instance name must start with a letter or digit").
					WithField("instance").WithValue(name)
			}
		default:
			return errors.NewValidationError("instance name may only contain letters, digits, and hyphens").
				WithField("instance").WithValue(name)
		}
	}

	return nil
}
