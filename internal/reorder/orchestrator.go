package reorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
)

// DefaultUndoWindow is how long a committed reorder can be undone.
const DefaultUndoWindow = 5 * time.Second

// Persister writes a new order to the persistent store. An error and an
// empty result both mean that nothing changed remotely.
type Persister interface {
	Reorder(ctx context.Context, containerID string, orderedIDs []string) ([]record.ArtifactEntry, error)
}

// List is the published composition the orchestrator operates on.
type List interface {
	// Snapshot returns the currently published list.
	Snapshot() []compose.Entry

	// Update atomically replaces the published list with fn(current) and
	// returns the lists before and after. Nothing is published when fn or
	// the invariant check fails.
	Update(fn func(current []compose.Entry) ([]compose.Entry, error)) (previous, next []compose.Entry, err error)

	// Publish replaces the published list.
	Publish(entries []compose.Entry)

	// PersistedIDs returns, in list order, the ids of the entries that the
	// persister tracks.
	PersistedIDs(entries []compose.Entry) []string
}

// Options configures an Orchestrator.
type Options struct {
	// UndoWindow defaults to DefaultUndoWindow.
	UndoWindow time.Duration

	// Clock defaults to SystemClock.
	Clock Clock

	// Notifier defaults to a LogNotifier on Logger.
	Notifier Notifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Intent is a request to move the entry at From to To. Token identifies the
// gesture that produced it; a repeated non-empty token is rejected, which
// lets a UI component drop duplicate drop events without shared state.
type Intent struct {
	Token string
	From  int
	To    int
}

// Orchestrator runs the reorder saga for one container.
//
// Thread-safety: all methods are safe for concurrent use. Lock order is
// orchestrator before list; the list never calls back into the orchestrator.
type Orchestrator struct {
	containerID string
	list        List
	persister   Persister
	window      time.Duration
	clock       Clock
	notifier    Notifier
	logger      *slog.Logger

	mu         sync.Mutex
	state      State
	undo       *undoWindow
	lastIntent string
}

// New creates an orchestrator in the Idle state.
func New(containerID string, list List, persister Persister, opts Options) *Orchestrator {
	o := &Orchestrator{
		containerID: containerID,
		list:        list,
		persister:   persister,
		window:      opts.UndoWindow,
		clock:       opts.Clock,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
	}
	if o.window <= 0 {
		o.window = DefaultUndoWindow
	}
	if o.clock == nil {
		o.clock = SystemClock{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	return o
}

// State returns the current phase. A Committed state whose undo window has
// closed is reported, and recorded, as Idle.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expireLocked()
	return o.state
}

// UndoDeadline returns when the current undo window closes.
func (o *Orchestrator) UndoDeadline() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expireLocked()
	if o.undo == nil {
		return time.Time{}, false
	}
	return o.undo.expiresAt, true
}

func (o *Orchestrator) expireLocked() {
	if o.state == Committed && o.undo != nil && !o.clock.Now().Before(o.undo.expiresAt) {
		o.undo = nil
		o.state = Idle
	}
}

// Reorder moves the entry at from to to. See Submit.
func (o *Orchestrator) Reorder(ctx context.Context, from, to int) (<-chan Result, error) {
	return o.Submit(ctx, Intent{From: from, To: to})
}

// Submit applies the move, publishes the recalculated list and issues the
// persistence call in the background. The returned channel receives exactly
// one Result when the call settles.
//
// Errors returned directly are synchronous rejections; nothing was
// published: CONCURRENT_REORDER_REJECTED, DUPLICATE_INTENT,
// INDEX_OUT_OF_RANGE or INVARIANT_VIOLATION.
func (o *Orchestrator) Submit(ctx context.Context, in Intent) (<-chan Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Reordering {
		return nil, &compose.Error{
			Code:    compose.ErrCodeConcurrentReorder,
			Message: "a reorder is already in flight",
		}
	}
	if in.Token != "" && in.Token == o.lastIntent {
		return nil, &compose.Error{
			Code:    compose.ErrCodeDuplicateIntent,
			Message: "intent " + in.Token + " was already applied",
		}
	}

	previous, next, err := o.list.Update(func(current []compose.Entry) ([]compose.Entry, error) {
		moved, err := compose.Move(current, in.From, in.To)
		if err != nil {
			return nil, err
		}
		return compose.Recalculate(moved), nil
	})
	if err != nil {
		return nil, err
	}

	if in.Token != "" {
		o.lastIntent = in.Token
	}
	o.undo = nil
	o.state = Reordering

	ids := o.list.PersistedIDs(next)
	o.logger.Debug("reorder published",
		"container", o.containerID, "from", in.From, "to", in.To, "persisted", len(ids))

	done := make(chan Result, 1)
	go o.persist(ctx, previous, next, ids, done)
	return done, nil
}

func (o *Orchestrator) persist(ctx context.Context, previous, next []compose.Entry, ids []string, done chan<- Result) {
	err := o.callPersister(ctx, ids)

	o.mu.Lock()
	var (
		res    Result
		notice Notice
	)
	if err != nil {
		o.list.Publish(previous)
		o.state = Idle
		res = Result{State: RolledBack, Entries: previous, Err: err}
		notice = Notice{
			Kind:        NoticeFailure,
			Message:     "reorder failed; previous order restored",
			ContainerID: o.containerID,
			Err:         err,
		}
		o.logger.Warn("reorder rolled back", "container", o.containerID, "entries", len(previous), "error", err)
	} else {
		until := o.clock.Now().Add(o.window)
		o.undo = &undoWindow{previous: previous, expiresAt: until}
		o.state = Committed
		res = Result{State: Committed, Entries: next}
		notice = Notice{
			Kind:        NoticeSuccess,
			Message:     "order saved",
			ContainerID: o.containerID,
			UndoUntil:   until,
		}
		o.logger.Info("reorder committed", "container", o.containerID, "entries", len(next))
	}
	o.mu.Unlock()

	o.notifier.Notify(notice)
	done <- res
}

// Exclusive runs fn, a mutation of the list other than a move, while no
// reorder or undo is in flight. It returns CONCURRENT_REORDER_REJECTED
// without calling fn otherwise.
//
// When fn reports that it changed the list, the undo window closes: the
// snapshot it holds no longer contains that change. fn runs under the
// orchestrator lock and must not call back into the orchestrator or deliver
// notices.
func (o *Orchestrator) Exclusive(fn func() (changed bool, err error)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Reordering {
		return &compose.Error{
			Code:    compose.ErrCodeConcurrentReorder,
			Message: "a reorder is in flight; retry once it settles",
		}
	}
	changed, err := fn()
	if changed && o.undo != nil {
		o.undo = nil
		o.state = Idle
		o.logger.Debug("undo window closed by edit", "container", o.containerID)
	}
	return err
}

// Undo reverts the last committed reorder while its window is open. The
// previous order is persisted first and published once the call succeeds.
//
// A failed undo leaves the current list in place; there is no further
// fallback.
func (o *Orchestrator) Undo(ctx context.Context) (<-chan Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Reordering {
		return nil, &compose.Error{
			Code:    compose.ErrCodeConcurrentReorder,
			Message: "cannot undo while a reorder is in flight",
		}
	}
	if o.undo == nil {
		return nil, &compose.Error{Code: compose.ErrCodeNoUndo, Message: "no reorder to undo"}
	}
	if !o.clock.Now().Before(o.undo.expiresAt) {
		o.undo = nil
		o.state = Idle
		return nil, &compose.Error{
			Code:    compose.ErrCodeUndoExpired,
			Message: "undo window closed; move the entry back instead",
		}
	}

	previous := o.undo.previous
	o.undo = nil
	o.state = Reordering
	ids := o.list.PersistedIDs(previous)

	done := make(chan Result, 1)
	go o.persistUndo(ctx, previous, ids, done)
	return done, nil
}

func (o *Orchestrator) persistUndo(ctx context.Context, previous []compose.Entry, ids []string, done chan<- Result) {
	err := o.callPersister(ctx, ids)

	o.mu.Lock()
	var (
		res    Result
		notice Notice
	)
	if err != nil {
		current := o.list.Snapshot()
		res = Result{State: RolledBack, Undo: true, Entries: current, Err: err}
		notice = Notice{
			Kind:        NoticeFailure,
			Message:     "undo failed; current order kept",
			ContainerID: o.containerID,
			Err:         err,
		}
		o.logger.Warn("undo failed", "container", o.containerID, "error", err)
	} else {
		o.list.Publish(previous)
		res = Result{State: Committed, Undo: true, Entries: previous}
		notice = Notice{
			Kind:        NoticeSuccess,
			Message:     "reorder undone",
			ContainerID: o.containerID,
		}
		o.logger.Info("reorder undone", "container", o.containerID, "entries", len(previous))
	}
	o.state = Idle
	o.mu.Unlock()

	o.notifier.Notify(notice)
	done <- res
}

// callPersister maps both failure signals of the persister onto a single
// PERSISTENCE_REJECTED error. A list with no persisted entries has nothing
// to write and succeeds without a call.
func (o *Orchestrator) callPersister(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := o.persister.Reorder(ctx, o.containerID, ids)
	if err != nil {
		return compose.NewPersistenceRejected("reorder", "", err)
	}
	if len(rows) == 0 {
		return compose.NewPersistenceRejected("reorder", "", nil)
	}
	return nil
}
