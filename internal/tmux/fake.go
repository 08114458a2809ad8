package tmux

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Energma/tazz-cli/internal/errors"
)

// FakeSession is the in-memory state Fake keeps per session.
type FakeSession struct {
	Name    string
	Dir     string
	Created time.Time
	Keys    []string
}

// Fake is an in-memory Client for tests. It mirrors CLIClient semantics:
// Spawn rejects duplicate names, Kill is a no-op for missing sessions,
// and List reports no error when empty. Error hooks force failures for
// specific names.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]*FakeSession
	attached []string
	seq      int64

	// Error hooks, all optional.
	AvailableErr error
	SpawnErr     map[string]error
	SendKeysErr  map[string]error
	KillErr      map[string]error
	AttachErr    error
	ListErr      error
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{sessions: make(map[string]*FakeSession)}
}

var _ Client = (*Fake)(nil)

func (f *Fake) Available() error {
	return f.AvailableErr
}

func (f *Fake) Exists(ctx context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[name]
	return ok
}

func (f *Fake) Spawn(ctx context.Context, name, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.SpawnErr[name]; err != nil {
		return err
	}
	if _, ok := f.sessions[name]; ok {
		return fmt.Errorf("%w: %s", errors.ErrSessionExists, name)
	}

	f.seq++
	f.sessions[name] = &FakeSession{
		Name:    name,
		Dir:     dir,
		Created: time.Unix(1700000000+f.seq, 0),
	}
	return nil
}

func (f *Fake) SendKeys(ctx context.Context, name, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.SendKeysErr[name]; err != nil {
		return err
	}
	sess, ok := f.sessions[name]
	if !ok {
		return fmt.Errorf("can't find session: %s", name)
	}
	sess.Keys = append(sess.Keys, text)
	return nil
}

func (f *Fake) Attach(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AttachErr != nil {
		return f.AttachErr
	}
	if _, ok := f.sessions[name]; !ok {
		return fmt.Errorf("can't find session: %s", name)
	}
	f.attached = append(f.attached, name)
	return nil
}

func (f *Fake) Kill(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.KillErr[name]; err != nil {
		return err
	}
	delete(f.sessions, name)
	return nil
}

func (f *Fake) List(ctx context.Context) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	sessions := make([]Session, 0, len(f.sessions))
	for _, sess := range f.sessions {
		sessions = append(sessions, Session{Name: sess.Name, Created: sess.Created})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })
	return sessions, nil
}

// Session returns a copy of the named session's state for assertions.
func (f *Fake) Session(name string) (FakeSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sess, ok := f.sessions[name]
	if !ok {
		return FakeSession{}, false
	}
	copied := *sess
	copied.Keys = append([]string(nil), sess.Keys...)
	return copied, true
}

// Names returns the live session names in sorted order.
func (f *Fake) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.sessions))
	for name := range f.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attached returns the names passed to Attach, in call order.
func (f *Fake) Attached() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attached...)
}
