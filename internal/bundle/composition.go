package bundle

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
	"github.com/roach88/casebundle/internal/reorder"
)

// Options configures a Composition.
type Options struct {
	// CaseType defaults to record.CaseBundle.
	CaseType record.CaseType

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator

	// Clock and UndoWindow are passed to the reorder orchestrator.
	Clock      reorder.Clock
	UndoWindow time.Duration

	// Notifier receives every notice. Defaults to a reorder.LogNotifier.
	Notifier reorder.Notifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Composition is the authoritative ordered list of one case.
//
// Thread-safety: all methods are safe for concurrent use. List mutations are
// serialised; persistence calls run outside the list lock. Inserts, deletes
// and edits hold the orchestrator lock for their whole duration, so they
// never interleave with a reorder or an undo.
type Composition struct {
	caseID   string
	caseType record.CaseType
	adapter  Adapter
	ids      IDGenerator
	notifier reorder.Notifier
	logger   *slog.Logger
	orch     *reorder.Orchestrator

	mu        sync.Mutex
	entries   []compose.Entry
	persisted map[string]bool
	subs      map[int]func([]compose.Entry)
	nextSub   int
	pending   []reorder.Notice
}

// New creates an empty composition for caseID.
func New(caseID string, adapter Adapter, opts Options) *Composition {
	c := &Composition{
		caseID:    caseID,
		caseType:  opts.CaseType,
		adapter:   adapter,
		ids:       opts.IDs,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		persisted: make(map[string]bool),
		subs:      make(map[int]func([]compose.Entry)),
	}
	if c.caseType == "" {
		c.caseType = record.CaseBundle
	}
	if c.ids == nil {
		c.ids = UUIDv7Generator{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("case", caseID)
	if c.notifier == nil {
		c.notifier = reorder.LogNotifier{Logger: c.logger}
	}
	c.orch = reorder.New(caseID, listView{c}, adapter, reorder.Options{
		UndoWindow: opts.UndoWindow,
		Clock:      opts.Clock,
		Notifier:   c.notifier,
		Logger:     c.logger,
	})
	return c
}

// Load builds a composition from the persisted rows of caseID. Every loaded
// entry counts as persisted.
func Load(ctx context.Context, caseID string, src Loader, adapter Adapter, opts Options) (*Composition, error) {
	rows, err := src.ListEntries(ctx, caseID)
	if err != nil {
		return nil, err
	}
	files, err := src.ListFiles(ctx, caseID)
	if err != nil {
		return nil, err
	}
	c := New(caseID, adapter, opts)
	if err := c.Restore(rows, files); err != nil {
		return nil, err
	}
	return c, nil
}

// Restore replaces the list with entries rebuilt from persisted rows.
func (c *Composition) Restore(rows []record.ArtifactEntry, files []record.File) error {
	entries, err := FromRecords(rows, files)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = entries
	c.persisted = make(map[string]bool, len(entries))
	for _, e := range entries {
		c.persisted[e.EntryID()] = true
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.broadcast(subs, entries)
	return nil
}

// CaseID returns the container id.
func (c *Composition) CaseID() string { return c.caseID }

// CaseType returns the container kind.
func (c *Composition) CaseType() record.CaseType { return c.caseType }

// Entries returns a snapshot of the published list.
func (c *Composition) Entries() []compose.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// Entry returns the published entry with the given id.
func (c *Composition) Entry(id string) (compose.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := compose.IndexOf(c.entries, id)
	if i < 0 {
		return nil, false
	}
	return c.entries[i], true
}

// Persisted reports whether the entry with the given id is known to the
// adapter.
func (c *Composition) Persisted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persisted[id]
}

// Subscribe registers fn to receive every published list. The returned
// function removes the subscription.
//
// fn runs synchronously on the publishing goroutine and must not call back
// into the composition.
func (c *Composition) Subscribe(fn func([]compose.Entry)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// ReorderState returns the phase of the reorder saga.
func (c *Composition) ReorderState() reorder.State {
	return c.orch.State()
}

// UndoDeadline returns when the undo offer of the last reorder expires.
func (c *Composition) UndoDeadline() (time.Time, bool) {
	return c.orch.UndoDeadline()
}

// Reorder moves the entry at from to index to. The new list is published
// before this returns; the channel reports how persistence settled.
func (c *Composition) Reorder(ctx context.Context, from, to int) (<-chan reorder.Result, error) {
	return c.orch.Reorder(ctx, from, to)
}

// ReorderIntent is Reorder for UI gestures that carry a token; a token seen
// on the previous intent is rejected with DUPLICATE_INTENT.
func (c *Composition) ReorderIntent(ctx context.Context, in reorder.Intent) (<-chan reorder.Result, error) {
	return c.orch.Submit(ctx, in)
}

// UndoLastReorder reverts the last committed reorder within its window.
func (c *Composition) UndoLastReorder(ctx context.Context) (<-chan reorder.Result, error) {
	return c.orch.Undo(ctx)
}

// update applies fn to the current list, checks the result and publishes
// it. On an invariant violation the previous list stays published.
func (c *Composition) update(fn func(current []compose.Entry) ([]compose.Entry, error)) (previous, next []compose.Entry, err error) {
	c.mu.Lock()
	previous = c.entries
	next, err = fn(previous)
	if err != nil {
		c.mu.Unlock()
		return nil, nil, err
	}
	if err := compose.MustContiguous(next); err != nil {
		c.mu.Unlock()
		c.logger.Error("invariant violation, keeping previous list", "entries", len(previous), "error", err)
		return nil, nil, err
	}
	c.entries = next
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.broadcast(subs, next)
	return previous, next, nil
}

func (c *Composition) publish(entries []compose.Entry) {
	c.mu.Lock()
	c.entries = entries
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.broadcast(subs, entries)
}

func (c *Composition) subscribersLocked() []func([]compose.Entry) {
	subs := make([]func([]compose.Entry), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (c *Composition) broadcast(subs []func([]compose.Entry), entries []compose.Entry) {
	for _, fn := range subs {
		fn(slices.Clone(entries))
	}
}

// persistedIDs filters entries down to those the adapter knows about.
func (c *Composition) persistedIDs(entries []compose.Entry) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if c.persisted[e.EntryID()] {
			ids = append(ids, e.EntryID())
		}
	}
	return ids
}

func (c *Composition) setPersisted(id string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.persisted[id] = true
	} else {
		delete(c.persisted, id)
	}
}

// exclusive runs a local mutation and its persistence calls under the
// orchestrator lock. Notices raised by fn are delivered once the lock is
// released.
func (c *Composition) exclusive(fn func() (changed bool, err error)) error {
	err := c.orch.Exclusive(fn)

	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, n := range pending {
		c.notifier.Notify(n)
	}
	return err
}

// rejected logs a failed create/update/delete and queues a warning for
// delivery after the mutation completes. The local list is kept.
func (c *Composition) rejected(op, entryID string, cause error) error {
	err := compose.NewPersistenceRejected(op, entryID, cause)
	c.logger.Warn("persistence rejected", "op", op, "entry", entryID, "error", err)
	c.mu.Lock()
	c.pending = append(c.pending, reorder.Notice{
		Kind:        reorder.NoticeWarning,
		Message:     op + " was not saved; the change is kept locally",
		ContainerID: c.caseID,
		Err:         err,
	})
	c.mu.Unlock()
	return err
}

// listView exposes the composition to the orchestrator.
type listView struct{ c *Composition }

func (v listView) Snapshot() []compose.Entry { return v.c.Entries() }

func (v listView) Update(fn func([]compose.Entry) ([]compose.Entry, error)) ([]compose.Entry, []compose.Entry, error) {
	return v.c.update(fn)
}

func (v listView) Publish(entries []compose.Entry) { v.c.publish(entries) }

func (v listView) PersistedIDs(entries []compose.Entry) []string { return v.c.persistedIDs(entries) }
