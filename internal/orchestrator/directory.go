package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Energma/tazz-cli/internal/errors"
	"github.com/Energma/tazz-cli/internal/naming"
	"github.com/Energma/tazz-cli/internal/session"
)

// ProcessEntry describes one multiplexer session of an instance, merged
// from the live session list and the stored record. Live-only entries have
// Stored false (the session exists but the store never heard of it);
// stored-only entries have Live false (the record survived its processes).
type ProcessEntry struct {
	Handle          string
	SessionID       string
	TaskSlug        string // empty for the bare instance session
	TaskName        string
	TaskDescription string
	Live            bool
	Stored          bool
	Created         time.Time // zero unless live
}

// InstanceEntry groups the sessions of one instance. Record is nil when
// only live sessions exist for the instance.
type InstanceEntry struct {
	Instance  string
	Record    *session.Record
	Processes []ProcessEntry
}

// List reconciles the store with the live multiplexer sessions and returns
// one entry per instance, sorted by instance name. Live sessions that do
// not carry a parseable handle belong to other tools and are dropped.
func (o *Orchestrator) List(ctx context.Context) ([]InstanceEntry, error) {
	live, err := o.mux.List(ctx)
	if err != nil {
		return nil, err
	}
	liveByHandle := make(map[string]time.Time)
	for _, sess := range live {
		if _, _, ok := naming.ParseHandle(sess.Name); ok {
			liveByHandle[sess.Name] = sess.Created
		}
	}

	records, err := o.store.GetAll()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]*InstanceEntry, len(records))
	for i := range records {
		rec := &records[i]
		entry := &InstanceEntry{Instance: rec.ID, Record: rec}
		for _, id := range rec.SessionIDs() {
			handle := naming.ProcessHandle(id)
			_, slug := naming.Split(id)
			proc := ProcessEntry{
				Handle:    handle,
				SessionID: id,
				TaskSlug:  slug,
				Stored:    true,
			}
			if task := rec.TaskBySlug(slug); task != nil {
				proc.TaskName = task.Name
				proc.TaskDescription = task.Description
			}
			if created, ok := liveByHandle[handle]; ok {
				proc.Live = true
				proc.Created = created
				delete(liveByHandle, handle)
			}
			entry.Processes = append(entry.Processes, proc)
		}
		entries[rec.ID] = entry
	}

	// Whatever is left in liveByHandle runs without a stored counterpart.
	extras := make(map[string][]ProcessEntry)
	for handle, created := range liveByHandle {
		instance, slug, _ := naming.ParseHandle(handle)
		id, _ := naming.SessionIDFromHandle(handle)
		extras[instance] = append(extras[instance], ProcessEntry{
			Handle:    handle,
			SessionID: id,
			TaskSlug:  slug,
			Live:      true,
			Created:   created,
		})
	}
	for instance, procs := range extras {
		sort.Slice(procs, func(i, j int) bool { return procs[i].Handle < procs[j].Handle })
		entry := entries[instance]
		if entry == nil {
			entry = &InstanceEntry{Instance: instance}
			entries[instance] = entry
		}
		entry.Processes = append(entry.Processes, procs...)
	}

	out := make([]InstanceEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out, nil
}

// Join attaches the caller's terminal to a live session and blocks until
// the user detaches. From inside an existing tmux client it refuses with
// ErrInsideTmux so the caller can print a switch-client hint instead of
// nesting clients.
func (o *Orchestrator) Join(ctx context.Context, handle string) error {
	if !o.mux.Exists(ctx, handle) {
		return errors.NewNotFoundError("session", handle)
	}
	if os.Getenv("TMUX") != "" {
		return fmt.Errorf("%w: run: tmux switch-client -t '=%s'", errors.ErrInsideTmux, handle)
	}

	if instance, _, ok := naming.ParseHandle(handle); ok {
		o.touchRecord(instance)
	}

	o.log.Info("attaching", "handle", handle)
	return o.mux.Attach(handle)
}

// touchRecord bumps lastActive on the instance record when one exists.
// Attaching to an untracked session is fine, so absence is not an error.
func (o *Orchestrator) touchRecord(instance string) {
	rec, err := o.store.Get(instance)
	if err != nil || rec == nil {
		return
	}
	if err := o.store.Save(rec); err != nil {
		o.log.Warn("failed to update lastActive", "instance", instance, "error", err)
	}
}

// Stop marks an instance record stopped in the store. The live sessions
// are left untouched; Delete is the operation that kills processes.
func (o *Orchestrator) Stop(id string) error {
	if err := o.store.UpdateStatus(id, session.StatusStopped); err != nil {
		return err
	}
	o.log.Info("instance stopped", "instance", id)
	return nil
}

// Delete kills a live session. The instance record and the checkout stay;
// cleanup owns those.
func (o *Orchestrator) Delete(ctx context.Context, handle string) error {
	if !o.mux.Exists(ctx, handle) {
		return errors.NewNotFoundError("session", handle)
	}
	if err := o.mux.Kill(ctx, handle); err != nil {
		return err
	}
	o.log.Info("session deleted", "handle", handle)
	return nil
}
