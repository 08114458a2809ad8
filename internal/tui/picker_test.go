package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Energma/tazz-cli/internal/orchestrator"
)

// fakeLister returns canned directory entries.
type fakeLister struct {
	entries []orchestrator.InstanceEntry
	err     error
}

func (f fakeLister) List(ctx context.Context) ([]orchestrator.InstanceEntry, error) {
	return f.entries, f.err
}

func testRows() []row {
	return []row{
		{handle: "tazz_api", instance: "api", session: "api", live: true, stored: true},
		{handle: "tazz_api_auth", instance: "api", session: "api_auth", task: "Auth flow", desc: "Implement login and logout", live: true, stored: true},
		{handle: "tazz_web_cache", instance: "web", session: "web_cache", task: "Cache layer", desc: "Add caching", live: false, stored: true},
	}
}

// loadRows feeds rows into a model the way a refresh would.
func loadRows(t *testing.T, m Model, rows []row) Model {
	t.Helper()
	updated, _ := m.Update(sessionsLoadedMsg{rows: rows})
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned unexpected model type %T", updated)
	}
	return model
}

// press sends a key message and returns the updated model and command.
func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned unexpected model type %T", updated)
	}
	return model, cmd
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestFlattenEntries(t *testing.T) {
	created := time.Now().Add(-time.Minute)
	entries := []orchestrator.InstanceEntry{
		{
			Instance: "api",
			Processes: []orchestrator.ProcessEntry{
				{Handle: "tazz_api", SessionID: "api", Live: true, Stored: true, Created: created},
				{Handle: "tazz_api_auth", SessionID: "api_auth", TaskName: "Auth flow", TaskDescription: "Implement login", Live: false, Stored: true},
			},
		},
		{
			Instance: "web",
			Processes: []orchestrator.ProcessEntry{
				{Handle: "tazz_web", SessionID: "web", Live: true, Stored: false},
			},
		},
	}

	rows := flattenEntries(entries)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].handle != "tazz_api" || rows[0].instance != "api" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if !rows[0].created.Equal(created) {
		t.Errorf("created not carried over: %+v", rows[0])
	}
	if rows[1].task != "Auth flow" || rows[1].desc != "Implement login" {
		t.Errorf("task fields not carried over: %+v", rows[1])
	}
	if !rows[2].live || rows[2].stored {
		t.Errorf("live/stored flags not carried over: %+v", rows[2])
	}
}

func TestModelNavigation(t *testing.T) {
	m := loadRows(t, New(fakeLister{}, false), testRows())

	t.Run("down moves selection", func(t *testing.T) {
		m, _ := press(t, m, tea.KeyMsg{Type: tea.KeyDown})
		if m.selected != 1 {
			t.Errorf("expected selected 1, got %d", m.selected)
		}
	})

	t.Run("down stops at last row", func(t *testing.T) {
		m := m
		for i := 0; i < 10; i++ {
			m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
		}
		if m.selected != 2 {
			t.Errorf("expected selected 2, got %d", m.selected)
		}
	})

	t.Run("up stops at first row", func(t *testing.T) {
		m, _ := press(t, m, tea.KeyMsg{Type: tea.KeyUp})
		if m.selected != 0 {
			t.Errorf("expected selected 0, got %d", m.selected)
		}
	})

	t.Run("end jumps to last, home back to first", func(t *testing.T) {
		m, _ := press(t, m, keyRune('G'))
		if m.selected != 2 {
			t.Errorf("expected selected 2 after G, got %d", m.selected)
		}
		m, _ = press(t, m, keyRune('g'))
		if m.selected != 0 {
			t.Errorf("expected selected 0 after g, got %d", m.selected)
		}
	})

	t.Run("vim keys work", func(t *testing.T) {
		m, _ := press(t, m, keyRune('j'))
		if m.selected != 1 {
			t.Errorf("expected selected 1 after j, got %d", m.selected)
		}
		m, _ = press(t, m, keyRune('k'))
		if m.selected != 0 {
			t.Errorf("expected selected 0 after k, got %d", m.selected)
		}
	})
}

func TestModelSelect(t *testing.T) {
	t.Run("enter on live row chooses and quits", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, false), testRows())

		m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.Choice() != "tazz_api" {
			t.Errorf("expected choice tazz_api, got %q", m.Choice())
		}
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg from command")
		}
	})

	t.Run("enter on stored-only row shows hint and stays open", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, false), testRows())
		m, _ = press(t, m, keyRune('G')) // web_cache is stored-only

		m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.Choice() != "" {
			t.Errorf("expected no choice, got %q", m.Choice())
		}
		if cmd != nil {
			t.Error("expected no quit command")
		}
		if !strings.Contains(m.note, "tazz run web") {
			t.Errorf("expected run hint in note, got %q", m.note)
		}
	})

	t.Run("enter is inert in read-only mode", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, true), testRows())

		m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.Choice() != "" {
			t.Errorf("expected no choice, got %q", m.Choice())
		}
		if cmd != nil {
			t.Error("expected no command in read-only mode")
		}
	})

	t.Run("q quits without choosing", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, false), testRows())

		m, cmd := press(t, m, keyRune('q'))
		if m.Choice() != "" {
			t.Errorf("expected no choice, got %q", m.Choice())
		}
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg from command")
		}
	})
}

func TestAdjustScroll(t *testing.T) {
	var rows []row
	for i := 0; i < 30; i++ {
		rows = append(rows, row{
			handle:  fmt.Sprintf("tazz_inst%02d", i),
			session: fmt.Sprintf("inst%02d", i),
			live:    true,
		})
	}

	m := loadRows(t, New(fakeLister{}, false), rows)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10}) // 5 visible rows
	m = updated.(Model)

	t.Run("scrolls down when selection leaves window", func(t *testing.T) {
		m := m
		for i := 0; i < 7; i++ {
			m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
		}
		if m.selected != 7 {
			t.Fatalf("expected selected 7, got %d", m.selected)
		}
		if m.scrollOffset != 3 {
			t.Errorf("expected scrollOffset 3, got %d", m.scrollOffset)
		}
	})

	t.Run("end scrolls to bottom, home resets", func(t *testing.T) {
		m := m
		m, _ = press(t, m, keyRune('G'))
		if m.scrollOffset != 25 {
			t.Errorf("expected scrollOffset 25, got %d", m.scrollOffset)
		}
		m, _ = press(t, m, keyRune('g'))
		if m.scrollOffset != 0 {
			t.Errorf("expected scrollOffset 0, got %d", m.scrollOffset)
		}
	})
}

func TestSessionsLoaded(t *testing.T) {
	t.Run("clamps selection when rows shrink", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, false), testRows())
		m, _ = press(t, m, keyRune('G'))
		if m.selected != 2 {
			t.Fatalf("expected selected 2, got %d", m.selected)
		}

		m = loadRows(t, m, testRows()[:1])
		if m.selected != 0 {
			t.Errorf("expected selection clamped to 0, got %d", m.selected)
		}
	})

	t.Run("keeps rows on refresh error", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, false), testRows())

		updated, _ := m.Update(sessionsLoadedMsg{err: fmt.Errorf("tmux gone")})
		m = updated.(Model)
		if len(m.rows) != 3 {
			t.Errorf("expected rows preserved on error, got %d", len(m.rows))
		}
		if m.loadErr == nil {
			t.Error("expected loadErr recorded")
		}
	})
}

func TestLoadSessionsCmd(t *testing.T) {
	t.Run("converts directory entries to rows", func(t *testing.T) {
		lister := fakeLister{entries: []orchestrator.InstanceEntry{
			{
				Instance: "api",
				Processes: []orchestrator.ProcessEntry{
					{Handle: "tazz_api", SessionID: "api", Live: true},
				},
			},
		}}

		m := New(lister, false)
		msg := m.loadSessions()()

		loaded, ok := msg.(sessionsLoadedMsg)
		if !ok {
			t.Fatalf("expected sessionsLoadedMsg, got %T", msg)
		}
		if loaded.err != nil {
			t.Fatalf("unexpected error: %v", loaded.err)
		}
		if len(loaded.rows) != 1 || loaded.rows[0].handle != "tazz_api" {
			t.Errorf("unexpected rows: %+v", loaded.rows)
		}
	})

	t.Run("surfaces list errors", func(t *testing.T) {
		m := New(fakeLister{err: fmt.Errorf("no tmux")}, false)
		msg := m.loadSessions()()

		loaded, ok := msg.(sessionsLoadedMsg)
		if !ok {
			t.Fatalf("expected sessionsLoadedMsg, got %T", msg)
		}
		if loaded.err == nil {
			t.Error("expected error to be surfaced")
		}
	})
}

func TestView(t *testing.T) {
	t.Run("shows badges and counts", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, false), testRows())

		view := m.View()
		if !strings.Contains(view, "● live") {
			t.Error("expected live badge in view")
		}
		if !strings.Contains(view, "○ stored") {
			t.Error("expected stored badge in view")
		}
		if !strings.Contains(view, "2 live, 1 stored") {
			t.Errorf("expected counts in view, got:\n%s", view)
		}
		if !strings.Contains(view, "api_auth") {
			t.Error("expected session id in view")
		}
	})

	t.Run("shows age for live sessions", func(t *testing.T) {
		rows := testRows()
		rows[1].created = time.Now().Add(-5 * time.Minute)
		m := loadRows(t, New(fakeLister{}, false), rows)

		view := m.View()
		if !strings.Contains(view, "5m ago") {
			t.Errorf("expected session age in view, got:\n%s", view)
		}
	})

	t.Run("shows empty state", func(t *testing.T) {
		m := New(fakeLister{}, false)

		view := m.View()
		if !strings.Contains(view, "No sessions") {
			t.Errorf("expected empty state, got:\n%s", view)
		}
	})

	t.Run("marks read-only mode", func(t *testing.T) {
		m := loadRows(t, New(fakeLister{}, true), testRows())

		view := m.View()
		if !strings.Contains(view, "read-only") {
			t.Error("expected read-only marker in title")
		}
	})
}

func TestStoreWatcher(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "sessions.json")

	watcher, err := newStoreWatcher(storePath)
	if err != nil {
		t.Fatalf("newStoreWatcher failed: %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	t.Run("ignores unrelated files", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to write unrelated file: %v", err)
		}

		select {
		case <-watcher.changes:
			t.Error("unexpected notification for unrelated file")
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("notifies on store write", func(t *testing.T) {
		if err := os.WriteFile(storePath, []byte(`{"sessions":{}}`), 0644); err != nil {
			t.Fatalf("failed to write store: %v", err)
		}

		select {
		case <-watcher.changes:
		case <-time.After(2 * time.Second):
			t.Error("expected notification for store write")
		}
	})

	t.Run("notifies on atomic rename", func(t *testing.T) {
		tmp := filepath.Join(dir, "sessions.json.tmp")
		if err := os.WriteFile(tmp, []byte(`{"sessions":{}}`), 0644); err != nil {
			t.Fatalf("failed to write temp file: %v", err)
		}
		if err := os.Rename(tmp, storePath); err != nil {
			t.Fatalf("failed to rename: %v", err)
		}

		select {
		case <-watcher.changes:
		case <-time.After(2 * time.Second):
			t.Error("expected notification for renamed store")
		}
	})
}

func TestNewStoreWatcherMissingDir(t *testing.T) {
	_, err := newStoreWatcher(filepath.Join(t.TempDir(), "missing", "sessions.json"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
