package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Energma/tazz-cli/internal/config"
	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/session"
	"github.com/Energma/tazz-cli/internal/tasks"
	"github.com/Energma/tazz-cli/internal/tmux"
)

// newFakeOrchestrator builds an orchestrator on a directory that merely
// looks like a repository. The directory operations never shell out to
// git, so no git binary is needed.
func newFakeOrchestrator(t *testing.T) (*Orchestrator, *tmux.Fake, string) {
	t.Helper()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	fake := tmux.NewFake()
	o, err := NewWithClient(dir, config.Default(), fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	return o, fake, dir
}

func seedRecord(t *testing.T, projectRoot string, rec *session.Record) {
	t.Helper()

	store, err := session.NewStore(projectRoot)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func spawn(t *testing.T, fake *tmux.Fake, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := fake.Spawn(context.Background(), name, "/work"); err != nil {
			t.Fatalf("Spawn(%s) error = %v", name, err)
		}
	}
}

func TestListEmpty(t *testing.T) {
	o, _, _ := newFakeOrchestrator(t)

	entries, err := o.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}

func TestListReconciliation(t *testing.T) {
	o, fake, dir := newFakeOrchestrator(t)

	seedRecord(t, dir, session.NewRecord("auth", "tazz/auth", "/work/auth", []tasks.Task{
		{Name: "One", Slug: "task-1", Description: "Work on: One"},
		{Name: "Two", Slug: "task-2", Description: "Work on: Two"},
	}))
	seedRecord(t, dir, session.NewRecord("billing", "tazz/billing", "/work/billing", nil))

	// task-1 is live, task-2 died, payments runs without a record, and
	// dev-shell belongs to another tool.
	spawn(t, fake, "tazz_auth_task-1", "tazz_payments", "dev-shell")

	entries, err := o.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3: %+v", len(entries), entries)
	}

	auth := entries[0]
	if auth.Instance != "auth" || auth.Record == nil {
		t.Fatalf("entries[0] = %+v, want tracked instance auth", auth)
	}
	if len(auth.Processes) != 2 {
		t.Fatalf("auth processes = %+v, want 2", auth.Processes)
	}
	p1, p2 := auth.Processes[0], auth.Processes[1]
	if p1.Handle != "tazz_auth_task-1" || !p1.Live || !p1.Stored {
		t.Errorf("auth process 1 = %+v, want live and stored", p1)
	}
	if p1.TaskName != "One" || p1.Created.IsZero() {
		t.Errorf("auth process 1 = %+v, want task name and creation time", p1)
	}
	if p2.Handle != "tazz_auth_task-2" || p2.Live || !p2.Stored {
		t.Errorf("auth process 2 = %+v, want stored only", p2)
	}

	billing := entries[1]
	if billing.Instance != "billing" || billing.Record == nil {
		t.Fatalf("entries[1] = %+v, want tracked instance billing", billing)
	}
	if len(billing.Processes) != 1 {
		t.Fatalf("billing processes = %+v, want the bare session", billing.Processes)
	}
	bare := billing.Processes[0]
	if bare.Handle != "tazz_billing" || bare.TaskSlug != "" || bare.Live || !bare.Stored {
		t.Errorf("billing process = %+v, want stored bare session", bare)
	}

	payments := entries[2]
	if payments.Instance != "payments" || payments.Record != nil {
		t.Fatalf("entries[2] = %+v, want untracked instance payments", payments)
	}
	if len(payments.Processes) != 1 || !payments.Processes[0].Live || payments.Processes[0].Stored {
		t.Errorf("payments processes = %+v, want one live-only entry", payments.Processes)
	}
}

func TestListExtraProcessUnderRecord(t *testing.T) {
	o, fake, dir := newFakeOrchestrator(t)

	seedRecord(t, dir, session.NewRecord("auth", "tazz/auth", "/work/auth", []tasks.Task{
		{Name: "One", Slug: "task-1", Description: "Work on: One"},
	}))
	spawn(t, fake, "tazz_auth_task-1", "tazz_auth_hotfix")

	entries, err := o.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || len(entries[0].Processes) != 2 {
		t.Fatalf("entries = %+v, want one instance with 2 processes", entries)
	}

	stored, extra := entries[0].Processes[0], entries[0].Processes[1]
	if stored.Handle != "tazz_auth_task-1" || !stored.Stored {
		t.Errorf("process 1 = %+v, want the stored task", stored)
	}
	if extra.Handle != "tazz_auth_hotfix" || extra.Stored || !extra.Live {
		t.Errorf("process 2 = %+v, want the live-only extra", extra)
	}
}

func TestListStoreError(t *testing.T) {
	o, _, dir := newFakeOrchestrator(t)
	if err := os.WriteFile(session.StorePath(dir), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := o.List(context.Background()); !errors.Is(err, errors.ErrStoreCorrupted) {
		t.Errorf("List() error = %v, want ErrStoreCorrupted", err)
	}
}

func TestJoinNotFound(t *testing.T) {
	o, _, _ := newFakeOrchestrator(t)

	err := o.Join(context.Background(), "tazz_ghost")
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Join() error = %v, want NotFoundError", err)
	}
}

func TestJoinInsideTmux(t *testing.T) {
	o, fake, _ := newFakeOrchestrator(t)
	spawn(t, fake, "tazz_auth")
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1234,0")

	err := o.Join(context.Background(), "tazz_auth")
	if !errors.Is(err, errors.ErrInsideTmux) {
		t.Fatalf("Join() error = %v, want ErrInsideTmux", err)
	}
	if got := err.Error(); !strings.Contains(got, "switch-client") {
		t.Errorf("error = %q, want a switch-client hint", got)
	}
	if attached := fake.Attached(); len(attached) != 0 {
		t.Errorf("Attach called despite nested client: %v", attached)
	}
}

func TestJoinAttachesAndTouches(t *testing.T) {
	o, fake, dir := newFakeOrchestrator(t)
	t.Setenv("TMUX", "")

	seedRecord(t, dir, session.NewRecord("auth", "tazz/auth", "/work/auth", nil))
	spawn(t, fake, "tazz_auth")

	store, err := session.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	before, err := store.Get("auth")
	if err != nil || before == nil {
		t.Fatalf("Get() = (%v, %v), want the seeded record", before, err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := o.Join(context.Background(), "tazz_auth"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if attached := fake.Attached(); len(attached) != 1 || attached[0] != "tazz_auth" {
		t.Errorf("Attached() = %v, want tazz_auth", attached)
	}
	after, err := store.Get("auth")
	if err != nil || after == nil {
		t.Fatalf("Get() after join = (%v, %v)", after, err)
	}
	if !after.LastActive.After(before.LastActive) {
		t.Errorf("LastActive not bumped: before %v, after %v", before.LastActive, after.LastActive)
	}
}

func TestStopMarksRecordOnly(t *testing.T) {
	o, fake, dir := newFakeOrchestrator(t)
	seedRecord(t, dir, session.NewRecord("auth", "tazz/auth", "/work/auth", nil))
	spawn(t, fake, "tazz_auth")

	if err := o.Stop("auth"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	store, err := session.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := store.Get("auth")
	if err != nil || rec == nil {
		t.Fatalf("Get() = (%v, %v)", rec, err)
	}
	if rec.Status != session.StatusStopped {
		t.Errorf("Status = %q, want %q", rec.Status, session.StatusStopped)
	}
	if !fake.Exists(context.Background(), "tazz_auth") {
		t.Error("stop killed the live session; it must only touch the store")
	}
}

func TestStopNotFound(t *testing.T) {
	o, _, _ := newFakeOrchestrator(t)

	err := o.Stop("ghost")
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Stop() error = %v, want NotFoundError", err)
	}
}

func TestDeleteKillsProcessOnly(t *testing.T) {
	o, fake, dir := newFakeOrchestrator(t)
	seedRecord(t, dir, session.NewRecord("auth", "tazz/auth", "/work/auth", nil))
	spawn(t, fake, "tazz_auth")

	if err := o.Delete(context.Background(), "tazz_auth"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if fake.Exists(context.Background(), "tazz_auth") {
		t.Error("session still live after delete")
	}

	store, err := session.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := store.Get("auth")
	if err != nil || rec == nil {
		t.Fatalf("Get() = (%v, %v), record must survive delete", rec, err)
	}
	if rec.Status != session.StatusActive {
		t.Errorf("Status = %q, delete must not change it", rec.Status)
	}
}

func TestDeleteNotFound(t *testing.T) {
	o, _, _ := newFakeOrchestrator(t)

	err := o.Delete(context.Background(), "tazz_ghost")
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Delete() error = %v, want NotFoundError", err)
	}
}
