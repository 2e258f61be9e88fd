package testutil

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/record"
)

// ErrInjected is returned by a FaultyAdapter call scripted to fail.
var ErrInjected = errors.New("injected adapter failure")

// Adapter operation names used by FaultyAdapter.
const (
	OpReorder = "reorder"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// Fault selects how a scripted call fails.
type Fault int

const (
	// FaultError returns ErrInjected.
	FaultError Fault = iota + 1
	// FaultEmpty returns an empty result and no error.
	FaultEmpty
)

// Call records one adapter invocation.
type Call struct {
	Op  string
	IDs []string
}

// FaultyAdapter wraps an adapter with scripted failures and a gate that can
// hold calls in flight.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FaultyAdapter struct {
	Inner bundle.Adapter

	mu     sync.Mutex
	faults map[string][]Fault
	gate   chan struct{}
	held   chan struct{}
	calls  []Call
}

// NewFaultyAdapter wraps inner.
func NewFaultyAdapter(inner bundle.Adapter) *FaultyAdapter {
	return &FaultyAdapter{Inner: inner, faults: make(map[string][]Fault)}
}

// FailNext makes the next call of op fail with f. Repeated calls queue.
func (a *FaultyAdapter) FailNext(op string, f Fault) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.faults[op] = append(a.faults[op], f)
}

// Hold blocks every following call until the returned release function is
// called. Entered is closed once the first held call arrives.
func (a *FaultyAdapter) Hold() (release func(), entered <-chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	gate := make(chan struct{})
	held := make(chan struct{})
	a.gate, a.held = gate, held
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			if a.gate == gate {
				a.gate, a.held = nil, nil
			}
			a.mu.Unlock()
			close(gate)
		})
	}, held
}

// Calls returns the recorded invocations.
func (a *FaultyAdapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.calls)
}

// CallsOf returns the recorded invocations of op.
func (a *FaultyAdapter) CallsOf(op string) []Call {
	var out []Call
	for _, c := range a.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// enter records the call, waits on the gate and pops a scripted fault.
func (a *FaultyAdapter) enter(ctx context.Context, op string, ids []string) (Fault, error) {
	a.mu.Lock()
	a.calls = append(a.calls, Call{Op: op, IDs: slices.Clone(ids)})
	gate, held := a.gate, a.held
	if held != nil {
		select {
		case <-held:
		default:
			close(held)
		}
	}
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	q := a.faults[op]
	if len(q) == 0 {
		return 0, nil
	}
	a.faults[op] = q[1:]
	return q[0], nil
}

// Reorder implements bundle.Adapter.
func (a *FaultyAdapter) Reorder(ctx context.Context, caseID string, orderedIDs []string) ([]record.ArtifactEntry, error) {
	f, err := a.enter(ctx, OpReorder, orderedIDs)
	switch {
	case err != nil:
		return nil, err
	case f == FaultError:
		return nil, ErrInjected
	case f == FaultEmpty:
		return nil, nil
	}
	return a.Inner.Reorder(ctx, caseID, orderedIDs)
}

// CreateEntry implements bundle.Adapter.
func (a *FaultyAdapter) CreateEntry(ctx context.Context, n record.NewEntry) (*record.ArtifactEntry, error) {
	f, err := a.enter(ctx, OpCreate, []string{n.ID})
	switch {
	case err != nil:
		return nil, err
	case f == FaultError:
		return nil, ErrInjected
	case f == FaultEmpty:
		return nil, nil
	}
	return a.Inner.CreateEntry(ctx, n)
}

// UpdateEntry implements bundle.Adapter.
func (a *FaultyAdapter) UpdateEntry(ctx context.Context, id, configJSON string) (*record.ArtifactEntry, error) {
	f, err := a.enter(ctx, OpUpdate, []string{id})
	switch {
	case err != nil:
		return nil, err
	case f == FaultError:
		return nil, ErrInjected
	case f == FaultEmpty:
		return nil, nil
	}
	return a.Inner.UpdateEntry(ctx, id, configJSON)
}

// DeleteEntry implements bundle.Adapter.
func (a *FaultyAdapter) DeleteEntry(ctx context.Context, id string) (bool, error) {
	f, err := a.enter(ctx, OpDelete, []string{id})
	switch {
	case err != nil:
		return false, err
	case f == FaultError:
		return false, ErrInjected
	case f == FaultEmpty:
		return false, nil
	}
	return a.Inner.DeleteEntry(ctx, id)
}

// MemoryAdapter is an in-memory bundle.Adapter for unit tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryAdapter struct {
	mu   sync.Mutex
	rows map[string]record.ArtifactEntry
	seq  int
}

// NewMemoryAdapter creates an empty adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{rows: make(map[string]record.ArtifactEntry)}
}

// Seed stores component rows for ids under caseID, in order.
func (m *MemoryAdapter) Seed(caseID string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		m.rows[id] = record.ArtifactEntry{
			ID:            id,
			CaseID:        caseID,
			SequenceOrder: i,
			RowType:       record.RowComponent,
			ConfigJSON:    `{"kind":"section_break","section_label":"TAB"}`,
		}
	}
}

// Order returns the ids of caseID's rows in sequence_order.
func (m *MemoryAdapter) Order(caseID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.listLocked(caseID)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// Row returns a stored row.
func (m *MemoryAdapter) Row(id string) (record.ArtifactEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

func (m *MemoryAdapter) listLocked(caseID string) []record.ArtifactEntry {
	var out []record.ArtifactEntry
	for _, r := range m.rows {
		if r.CaseID == caseID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b record.ArtifactEntry) int {
		return cmp.Or(cmp.Compare(a.SequenceOrder, b.SequenceOrder), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Reorder implements bundle.Adapter.
func (m *MemoryAdapter) Reorder(_ context.Context, caseID string, orderedIDs []string) ([]record.ArtifactEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range orderedIDs {
		if r, ok := m.rows[id]; !ok || r.CaseID != caseID {
			return nil, fmt.Errorf("entry %s not found in case %s", id, caseID)
		}
	}
	for i, id := range orderedIDs {
		r := m.rows[id]
		r.SequenceOrder = i
		m.rows[id] = r
	}
	return m.listLocked(caseID), nil
}

// CreateEntry implements bundle.Adapter. Like the store, it moves later
// rows down one place.
func (m *MemoryAdapter) CreateEntry(_ context.Context, n record.NewEntry) (*record.ArtifactEntry, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := n.ID
	if id == "" {
		m.seq++
		id = fmt.Sprintf("mem-%d", m.seq)
	}
	if _, ok := m.rows[id]; ok {
		return nil, fmt.Errorf("entry %s already exists", id)
	}
	for k, r := range m.rows {
		if r.CaseID == n.CaseID && r.SequenceOrder >= n.SequenceOrder {
			r.SequenceOrder++
			m.rows[k] = r
		}
	}
	r := record.ArtifactEntry{
		ID:            id,
		CaseID:        n.CaseID,
		SequenceOrder: n.SequenceOrder,
		RowType:       n.RowType,
		FileID:        n.FileID,
		ConfigJSON:    n.ConfigJSON,
	}
	m.rows[id] = r
	return &r, nil
}

// UpdateEntry implements bundle.Adapter.
func (m *MemoryAdapter) UpdateEntry(_ context.Context, id, configJSON string) (*record.ArtifactEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	r.ConfigJSON = configJSON
	m.rows[id] = r
	return &r, nil
}

// DeleteEntry implements bundle.Adapter.
func (m *MemoryAdapter) DeleteEntry(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}
