// Package tui implements the interactive session picker opened by
// `tazz join` (no arguments) and `tazz list --interactive`.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/Energma/tazz-cli/internal/orchestrator"
	"github.com/Energma/tazz-cli/internal/util"
)

// Lister supplies the reconciled session directory shown by the picker.
// *orchestrator.Orchestrator satisfies it.
type Lister interface {
	List(ctx context.Context) ([]orchestrator.InstanceEntry, error)
}

// listTimeout bounds a single directory refresh.
const listTimeout = 10 * time.Second

// refreshInterval is the periodic re-list cadence. Live tmux sessions have
// no file to watch, so the picker polls in addition to watching the store.
const refreshInterval = 2 * time.Second

// row is one selectable line in the picker.
type row struct {
	handle   string
	instance string
	session  string
	task     string
	desc     string
	created  time.Time
	live     bool
	stored   bool
}

// Messages
type sessionsLoadedMsg struct {
	rows []row
	err  error
}

type storeChangedMsg struct{}

type tickMsg time.Time

// Model is the Bubble Tea model for the session picker.
type Model struct {
	lister   Lister
	readOnly bool

	rows         []row
	selected     int
	scrollOffset int

	width  int
	height int

	keys KeyMap
	help help.Model

	// changes delivers debounced store-file notifications. Nil when the
	// watcher could not be started; the periodic tick still refreshes.
	changes <-chan struct{}

	choice  string // handle chosen with enter, empty if the user quit
	note    string // transient hint shown below the list
	loadErr error
}

// New creates a picker model. In read-only mode enter does not select;
// the picker is purely a live view of the directory.
func New(lister Lister, readOnly bool) Model {
	keys := DefaultKeyMap()
	if readOnly {
		keys.Select.SetEnabled(false)
	}
	return Model{
		lister:   lister,
		readOnly: readOnly,
		keys:     keys,
		help:     help.New(),
	}
}

// Choice returns the handle selected with enter, or "" if the user quit.
func (m Model) Choice() string {
	return m.choice
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSessions(), m.waitForStoreChange(), tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.adjustScroll()
		return m, nil

	case sessionsLoadedMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.rows = msg.rows
			if m.selected >= len(m.rows) {
				m.selected = len(m.rows) - 1
			}
			if m.selected < 0 {
				m.selected = 0
			}
			m.adjustScroll()
		}
		return m, nil

	case storeChangedMsg:
		return m, tea.Batch(m.loadSessions(), m.waitForStoreChange())

	case tickMsg:
		return m, tea.Batch(m.loadSessions(), tickCmd())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes a key press.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.note = ""
		if m.selected > 0 {
			m.selected--
			m.adjustScroll()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.note = ""
		if m.selected < len(m.rows)-1 {
			m.selected++
			m.adjustScroll()
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.note = ""
		m.selected = 0
		m.adjustScroll()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.note = ""
		if len(m.rows) > 0 {
			m.selected = len(m.rows) - 1
		}
		m.adjustScroll()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if m.readOnly || len(m.rows) == 0 {
			return m, nil
		}
		current := m.rows[m.selected]
		if !current.live {
			m.note = fmt.Sprintf("%s is not running; start it with: tazz run %s", current.session, current.instance)
			return m, nil
		}
		m.choice = current.handle
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		m.note = ""
		return m, m.loadSessions()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := "tazz sessions"
	if m.readOnly {
		title += " (read-only)"
	}
	live, stored := m.counts()
	b.WriteString(titleStyle.Render(title))
	b.WriteString(" ")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d live, %d stored", live, stored)))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		if m.loadErr != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.loadErr)))
		} else {
			b.WriteString(emptyStyle.Render("No sessions. Start one with: tazz run <instance>"))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render(m.help.View(m.keys)))
		return b.String()
	}

	visible := m.visibleRows()
	end := m.scrollOffset + visible
	if end > len(m.rows) {
		end = len(m.rows)
	}

	idWidth := m.sessionColumnWidth()
	for i := m.scrollOffset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.selected, idWidth))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.note != "":
		b.WriteString(emptyStyle.Render(m.note))
		b.WriteString("\n")
	case m.loadErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("refresh failed: %v", m.loadErr)))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderRow formats one session line: cursor, badge, session id, task,
// description, and age for live sessions.
func (m Model) renderRow(r row, selected bool, idWidth int) string {
	cursor := "  "
	if selected {
		cursor = selectedStyle.Render("▸ ")
	}

	badge := storedBadgeStyle.Render("○ stored")
	if r.live {
		badge = liveBadgeStyle.Render("● live  ")
	}

	id := fmt.Sprintf("%-*s", idWidth, r.session)
	if selected {
		id = selectedStyle.Render(id)
	} else {
		id = instanceStyle.Render(id)
	}

	line := cursor + badge + "  " + id
	rest := r.task
	if r.desc != "" {
		if rest != "" {
			rest += "  "
		}
		rest += descStyle.Render(r.desc)
	}
	if ago := util.FormatTimeAgo(r.created); ago != "" {
		if rest != "" {
			rest += "  "
		}
		rest += countStyle.Render(ago)
	}
	if rest != "" {
		line += "  " + rest
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	return util.TruncateANSI(line, width)
}

// counts tallies live sessions and stored-only sessions.
func (m Model) counts() (live, stored int) {
	for _, r := range m.rows {
		if r.live {
			live++
		} else {
			stored++
		}
	}
	return live, stored
}

// sessionColumnWidth sizes the session id column to the widest id, capped
// so long names cannot push descriptions off screen.
func (m Model) sessionColumnWidth() int {
	const maxID = 28
	w := 0
	for _, r := range m.rows {
		if len(r.session) > w {
			w = len(r.session)
		}
	}
	if w > maxID {
		w = maxID
	}
	return w
}

// visibleRows returns how many list lines fit in the current terminal,
// leaving room for the title, spacing, and help bar.
func (m Model) visibleRows() int {
	if m.height == 0 {
		return 20
	}
	visible := m.height - 5
	if visible < 1 {
		visible = 1
	}
	return visible
}

// adjustScroll keeps the selected row inside the visible window.
func (m *Model) adjustScroll() {
	visible := m.visibleRows()
	if m.selected < m.scrollOffset {
		m.scrollOffset = m.selected
	} else if m.selected >= m.scrollOffset+visible {
		m.scrollOffset = m.selected - visible + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// loadSessions re-lists the directory off the UI goroutine.
func (m Model) loadSessions() tea.Cmd {
	lister := m.lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		entries, err := lister.List(ctx)
		if err != nil {
			return sessionsLoadedMsg{err: err}
		}
		return sessionsLoadedMsg{rows: flattenEntries(entries)}
	}
}

// waitForStoreChange blocks on the watcher channel and converts a
// notification into a message. Returns nil when no watcher is attached.
func (m Model) waitForStoreChange() tea.Cmd {
	ch := m.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// tickCmd schedules the next periodic refresh.
func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// flattenEntries turns the per-instance directory into flat picker rows,
// preserving the directory's ordering.
func flattenEntries(entries []orchestrator.InstanceEntry) []row {
	var rows []row
	for _, entry := range entries {
		for _, proc := range entry.Processes {
			rows = append(rows, row{
				handle:   proc.Handle,
				instance: entry.Instance,
				session:  proc.SessionID,
				task:     proc.TaskName,
				desc:     proc.TaskDescription,
				created:  proc.Created,
				live:     proc.Live,
				stored:   proc.Stored,
			})
		}
	}
	return rows
}

// Run opens the picker and blocks until the user selects a session or
// quits. storePath is watched for changes so external runs and stops show
// up while the picker is open. Returns the chosen handle, or "" if the
// user quit without selecting.
func Run(lister Lister, storePath string, readOnly bool) (string, error) {
	m := New(lister, readOnly)

	watcher, err := newStoreWatcher(storePath)
	if err == nil {
		watcher.Start()
		defer watcher.Stop()
		m.changes = watcher.changes
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("failed to run session picker: %w", err)
	}

	fm, ok := final.(Model)
	if !ok {
		return "", nil
	}
	return fm.choice, nil
}

// storeWatcher watches the session store file and delivers debounced
// change notifications. The store is written atomically via temp file and
// rename, so the watcher observes the parent directory and filters events
// down to the store file name.
type storeWatcher struct {
	watcher *fsnotify.Watcher
	target  string
	changes chan struct{}
	stopCh  chan struct{}
}

// newStoreWatcher creates a watcher for the given store file. Fails when
// the containing directory does not exist yet.
func newStoreWatcher(storePath string) (*storeWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(storePath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch store directory: %w", err)
	}

	return &storeWatcher{
		watcher: watcher,
		target:  filepath.Base(storePath),
		changes: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins delivering notifications.
func (w *storeWatcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher. The changes channel is closed once the loop exits.
func (w *storeWatcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

// watchLoop processes filesystem events, debouncing rapid write bursts.
func (w *storeWatcher) watchLoop() {
	defer close(w.changes)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce to avoid multiple rapid notifications
			debounceTimer.Reset(100 * time.Millisecond)

		case <-debounceTimer.C:
			select {
			case w.changes <- struct{}{}:
			default: // a notification is already pending
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors only cost a refresh; the periodic tick
			// still re-lists.
		}
	}
}
