package bundle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
	"github.com/roach88/casebundle/internal/reorder"
	"github.com/roach88/casebundle/internal/testutil"
)

const caseID = "case-1"

type fixture struct {
	comp    *bundle.Composition
	mem     *testutil.MemoryAdapter
	adapter *testutil.FaultyAdapter
	clock   *testutil.ManualClock
	notices *testutil.RecordingNotifier
	ids     *bundle.FixedGenerator
}

func newFixture(t *testing.T, caseType record.CaseType) *fixture {
	t.Helper()
	f := &fixture{
		mem:     testutil.NewMemoryAdapter(),
		clock:   testutil.NewManualClock(time.Time{}),
		notices: &testutil.RecordingNotifier{},
		ids:     bundle.NewFixedGenerator("e1", "e2", "e3", "e4", "e5", "e6"),
	}
	f.adapter = testutil.NewFaultyAdapter(f.mem)
	f.comp = bundle.New(caseID, f.adapter, bundle.Options{
		CaseType: caseType,
		IDs:      f.ids,
		Clock:    f.clock,
		Notifier: f.notices,
	})
	return f
}

func file(id string, pages int) record.File {
	return record.File{ID: id, CaseID: caseID, Path: "/docs/" + id + ".pdf", OriginalName: id + ".pdf", PageCount: pages}
}

func ranges(entries []compose.Entry) []compose.PageRange {
	out := make([]compose.PageRange, len(entries))
	for i, e := range entries {
		out[i] = e.Pages()
	}
	return out
}

func wait(t *testing.T, ch <-chan reorder.Result) reorder.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reorder result")
		return reorder.Result{}
	}
}

func TestInsertDocument_Appends(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	a, err := f.comp.InsertDocument(ctx, -1, file("f1", 5), bundle.DocumentFields{})
	require.NoError(t, err)
	_, err = f.comp.InsertDocument(ctx, -1, file("f2", 3), bundle.DocumentFields{Description: "Invoice"})
	require.NoError(t, err)

	assert.Equal(t, "e1", a.EntryID())
	assert.Equal(t, 5, a.(compose.Document).PageCount)
	assert.Equal(t, "f1.pdf", a.(compose.Document).Description)

	got := f.comp.Entries()
	assert.Equal(t, []string{"e1", "e2"}, compose.IDs(got))
	assert.Equal(t, []compose.PageRange{{Start: 1, End: 5}, {Start: 6, End: 8}}, ranges(got))
	assert.True(t, f.comp.Persisted("e1"))

	row, ok := f.mem.Row("e2")
	require.True(t, ok)
	assert.Equal(t, record.RowFile, row.RowType)
	assert.Equal(t, "f2", row.FileID)
	assert.Equal(t, 1, row.SequenceOrder)
	assert.Equal(t, `{"description":"Invoice","kind":"document"}`, row.ConfigJSON)
}

func TestInsertSectionBreak_BeforeDocuments(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertDocument(ctx, -1, file("f1", 5), bundle.DocumentFields{})
	require.NoError(t, err)
	_, err = f.comp.InsertDocument(ctx, -1, file("f2", 5), bundle.DocumentFields{})
	require.NoError(t, err)

	s, err := f.comp.InsertSectionBreak(ctx, 0, "")
	require.NoError(t, err)
	assert.Equal(t, "TAB A", s.(compose.SectionBreak).SectionLabel)

	got := f.comp.Entries()
	assert.Equal(t, []compose.PageRange{{Start: 1, End: 1}, {Start: 2, End: 6}, {Start: 7, End: 11}}, ranges(got))
	assert.Equal(t, []string{"A.", "1.", "2."}, compose.DisplayNumbers(got))

	// A middle insert renormalises sequence_order.
	assert.Equal(t, []string{"e3", "e1", "e2"}, f.mem.Order(caseID))
	calls := f.adapter.CallsOf(testutil.OpReorder)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"e3", "e1", "e2"}, calls[0].IDs)
}

func TestInsertSectionBreak_DefaultLabelFollowsPosition(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertSectionBreak(ctx, -1, "")
	require.NoError(t, err)
	_, err = f.comp.InsertSectionBreak(ctx, -1, "")
	require.NoError(t, err)
	c, err := f.comp.InsertSectionBreak(ctx, -1, "Pleadings")
	require.NoError(t, err)

	got := f.comp.Entries()
	assert.Equal(t, "TAB A", got[0].(compose.SectionBreak).SectionLabel)
	assert.Equal(t, "TAB B", got[1].(compose.SectionBreak).SectionLabel)
	assert.Equal(t, "Pleadings", c.(compose.SectionBreak).SectionLabel)
	assert.Equal(t, 3, compose.TotalPages(got))
}

func TestInsertCoverAndDivider(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertCoverPage(ctx, -1, "Index", 2)
	require.NoError(t, err)
	_, err = f.comp.InsertDivider(ctx, -1, "Part 2", 1)
	require.NoError(t, err)

	got := f.comp.Entries()
	assert.Equal(t, []compose.PageRange{{Start: 1, End: 2}, {Start: 3, End: 3}}, ranges(got))
	assert.Equal(t, []string{"1.", "2."}, compose.DisplayNumbers(got))

	row, ok := f.mem.Row("e1")
	require.True(t, ok)
	assert.Equal(t, record.RowArtifact, row.RowType)
	assert.Equal(t, `{"description":"Index","kind":"cover_page","page_count":2}`, row.ConfigJSON)

	_, err = f.comp.InsertDivider(ctx, -1, "empty", 0)
	assert.Equal(t, compose.ErrCodeInvalidValue, compose.CodeOf(err))
}

func TestInsert_Validation(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertDocument(ctx, -1, file("f1", 0), bundle.DocumentFields{})
	assert.Equal(t, compose.ErrCodeInvalidValue, compose.CodeOf(err))

	_, err = f.comp.InsertDocument(ctx, -1, file("f1", 2), bundle.DocumentFields{Date: "15/01/2024"})
	assert.Equal(t, compose.ErrCodeInvalidValue, compose.CodeOf(err))

	_, err = f.comp.InsertDocument(ctx, -1, file("f1", 2), bundle.DocumentFields{ExhibitLabel: "JS-1"})
	assert.Equal(t, compose.ErrCodeInvalidValue, compose.CodeOf(err))

	assert.Empty(t, f.comp.Entries())
	assert.Empty(t, f.adapter.Calls())
}

func TestInsert_PersistenceFailureKeepsLocalCopy(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()
	f.adapter.FailNext(testutil.OpCreate, testutil.FaultEmpty)

	e, err := f.comp.InsertDocument(ctx, -1, file("f1", 4), bundle.DocumentFields{})
	require.Error(t, err)
	assert.True(t, compose.IsPersistenceRejected(err))
	require.NotNil(t, e)

	assert.Equal(t, []string{"e1"}, compose.IDs(f.comp.Entries()))
	assert.False(t, f.comp.Persisted("e1"))

	n, ok := f.notices.Last()
	require.True(t, ok)
	assert.Equal(t, reorder.NoticeWarning, n.Kind)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	for _, fl := range []record.File{file("f1", 5), file("f2", 3), file("f3", 2)} {
		_, err := f.comp.InsertDocument(ctx, -1, fl, bundle.DocumentFields{})
		require.NoError(t, err)
	}

	require.NoError(t, f.comp.Delete(ctx, "e1"))
	got := f.comp.Entries()
	assert.Equal(t, []string{"e2", "e3"}, compose.IDs(got))
	assert.Equal(t, []compose.PageRange{{Start: 1, End: 3}, {Start: 4, End: 5}}, ranges(got))
	_, ok := f.mem.Row("e1")
	assert.False(t, ok)

	err := f.comp.Delete(ctx, "missing")
	assert.Equal(t, compose.ErrCodeEntryNotFound, compose.CodeOf(err))
}

func TestDelete_PersistenceFailureKeepsLocalCopy(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertCoverPage(ctx, -1, "Index", 1)
	require.NoError(t, err)
	f.adapter.FailNext(testutil.OpDelete, testutil.FaultError)

	err = f.comp.Delete(ctx, "e1")
	assert.True(t, compose.IsPersistenceRejected(err))
	assert.Empty(t, f.comp.Entries())
	assert.False(t, f.comp.Persisted("e1"))
}

func TestDelete_UnpersistedEntrySkipsAdapter(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()
	f.adapter.FailNext(testutil.OpCreate, testutil.FaultError)

	_, err := f.comp.InsertCoverPage(ctx, -1, "Index", 1)
	require.Error(t, err)

	require.NoError(t, f.comp.Delete(ctx, "e1"))
	assert.Empty(t, f.adapter.CallsOf(testutil.OpDelete))
}

func TestEditField(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertDocument(ctx, -1, file("f1", 5), bundle.DocumentFields{})
	require.NoError(t, err)
	_, err = f.comp.InsertCoverPage(ctx, -1, "Index", 1)
	require.NoError(t, err)
	_, err = f.comp.InsertDocument(ctx, -1, file("f2", 3), bundle.DocumentFields{})
	require.NoError(t, err)

	e, err := f.comp.EditField(ctx, "e1", bundle.FieldDescription, "Contract")
	require.NoError(t, err)
	assert.Equal(t, "Contract", e.(compose.Document).Description)

	_, err = f.comp.EditField(ctx, "e1", bundle.FieldDisputed, "true")
	require.NoError(t, err)
	row, _ := f.mem.Row("e1")
	assert.Equal(t, `{"description":"Contract","disputed":true,"kind":"document"}`, row.ConfigJSON)

	// Page count edits repaginate everything after the entry.
	_, err = f.comp.EditField(ctx, "e2", bundle.FieldPageCount, "3")
	require.NoError(t, err)
	got := f.comp.Entries()
	assert.Equal(t, []compose.PageRange{{Start: 1, End: 5}, {Start: 6, End: 8}, {Start: 9, End: 11}}, ranges(got))
	assert.Equal(t, 3, got[1].(compose.CoverPage).GeneratedPageCount)
}

func TestEditField_Errors(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertDocument(ctx, -1, file("f1", 5), bundle.DocumentFields{})
	require.NoError(t, err)
	_, err = f.comp.InsertSectionBreak(ctx, -1, "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		id    string
		field bundle.Field
		value string
		code  compose.ErrorCode
	}{
		{"unknown field", "e1", "colour", "red", compose.ErrCodeUnknownField},
		{"page count on document", "e1", bundle.FieldPageCount, "3", compose.ErrCodeUnknownField},
		{"section label on document", "e1", bundle.FieldSectionLabel, "TAB Z", compose.ErrCodeUnknownField},
		{"description on section", "e2", bundle.FieldDescription, "x", compose.ErrCodeUnknownField},
		{"bad bool", "e1", bundle.FieldDisputed, "maybe", compose.ErrCodeInvalidValue},
		{"bad date", "e1", bundle.FieldDate, "yesterday", compose.ErrCodeInvalidValue},
		{"empty section label", "e2", bundle.FieldSectionLabel, " ", compose.ErrCodeInvalidValue},
		{"exhibit in bundle", "e1", bundle.FieldExhibitLabel, "JS-1", compose.ErrCodeInvalidValue},
		{"missing entry", "nope", bundle.FieldDescription, "x", compose.ErrCodeEntryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.comp.EditField(ctx, tt.id, tt.field, tt.value)
			require.Error(t, err)
			assert.Equal(t, tt.code, compose.CodeOf(err))
		})
	}
}

func TestEditField_ExhibitLabelInAffidavit(t *testing.T) {
	f := newFixture(t, record.CaseAffidavit)
	ctx := context.Background()

	_, err := f.comp.InsertDocument(ctx, -1, file("f1", 5), bundle.DocumentFields{ExhibitLabel: "JS-1"})
	require.NoError(t, err)

	e, err := f.comp.EditField(ctx, "e1", bundle.FieldExhibitLabel, "JS-2")
	require.NoError(t, err)
	assert.Equal(t, "JS-2", e.(compose.Document).ExhibitLabel)
}

func TestEditField_PersistenceFailureKeepsEdit(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertDivider(ctx, -1, "Part 1", 1)
	require.NoError(t, err)
	f.adapter.FailNext(testutil.OpUpdate, testutil.FaultEmpty)

	e, err := f.comp.EditField(ctx, "e1", bundle.FieldDescription, "Part One")
	assert.True(t, compose.IsPersistenceRejected(err))
	assert.Equal(t, "Part One", e.(compose.Divider).Description)
	got, ok := f.comp.Entry("e1")
	require.True(t, ok)
	assert.Equal(t, "Part One", got.(compose.Divider).Description)
}

func TestReorder_ThroughComposition(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	for _, fl := range []record.File{file("A", 5), file("B", 3), file("C", 20)} {
		_, err := f.comp.InsertDocument(ctx, -1, fl, bundle.DocumentFields{})
		require.NoError(t, err)
	}
	before := f.comp.Entries()

	ch, err := f.comp.Reorder(ctx, 1, 0)
	require.NoError(t, err)
	res := wait(t, ch)
	require.Equal(t, reorder.Committed, res.State)

	got := f.comp.Entries()
	assert.Equal(t, []string{"e2", "e1", "e3"}, compose.IDs(got))
	assert.Equal(t, []compose.PageRange{{Start: 1, End: 3}, {Start: 4, End: 8}, {Start: 9, End: 28}}, ranges(got))
	assert.Equal(t, reorder.Committed, f.comp.ReorderState())

	ch, err = f.comp.UndoLastReorder(ctx)
	require.NoError(t, err)
	wait(t, ch)
	assert.Equal(t, before, f.comp.Entries())
	assert.Equal(t, []string{"e1", "e2", "e3"}, f.mem.Order(caseID))
}

func TestReorder_RollbackRestoresSnapshot(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	for _, fl := range []record.File{file("A", 5), file("B", 3)} {
		_, err := f.comp.InsertDocument(ctx, -1, fl, bundle.DocumentFields{})
		require.NoError(t, err)
	}
	before := f.comp.Entries()
	f.adapter.FailNext(testutil.OpReorder, testutil.FaultEmpty)

	ch, err := f.comp.Reorder(ctx, 0, 1)
	require.NoError(t, err)
	res := wait(t, ch)

	assert.Equal(t, reorder.RolledBack, res.State)
	assert.Equal(t, before, f.comp.Entries())

	n, ok := f.notices.Last()
	require.True(t, ok)
	assert.Equal(t, reorder.NoticeFailure, n.Kind)
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen [][]string
	)
	cancel := f.comp.Subscribe(func(entries []compose.Entry) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, compose.IDs(entries))
	})

	_, err := f.comp.InsertCoverPage(ctx, -1, "Index", 1)
	require.NoError(t, err)
	_, err = f.comp.InsertDivider(ctx, 0, "Front", 1)
	require.NoError(t, err)

	cancel()
	require.NoError(t, f.comp.Delete(ctx, "e1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"e1"}, {"e2", "e1"}}, seen)
}

func TestEntriesIsSnapshot(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	_, err := f.comp.InsertCoverPage(ctx, -1, "Index", 1)
	require.NoError(t, err)

	snap := f.comp.Entries()
	snap[0] = compose.Divider{Row: compose.Row{ID: "x", Range: compose.Span(9)}}

	assert.Equal(t, []string{"e1"}, compose.IDs(f.comp.Entries()))
}

func TestInsert_ClosesUndoWindow(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	for _, fl := range []record.File{file("A", 5), file("B", 3), file("C", 20)} {
		_, err := f.comp.InsertDocument(ctx, -1, fl, bundle.DocumentFields{})
		require.NoError(t, err)
	}
	ch, err := f.comp.Reorder(ctx, 1, 0)
	require.NoError(t, err)
	require.Equal(t, reorder.Committed, wait(t, ch).State)

	_, err = f.comp.InsertCoverPage(ctx, -1, "Index", 1)
	require.NoError(t, err)
	assert.Equal(t, reorder.Idle, f.comp.ReorderState())

	_, err = f.comp.UndoLastReorder(ctx)
	assert.Equal(t, compose.ErrCodeNoUndo, compose.CodeOf(err))

	// The insert survives and the committed order stands.
	assert.Equal(t, []string{"e2", "e1", "e3", "e4"}, compose.IDs(f.comp.Entries()))
	assert.Equal(t, []string{"e2", "e1", "e3", "e4"}, f.mem.Order(caseID))
}

func TestMutations_RejectedWhileReorderInFlight(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	for _, fl := range []record.File{file("A", 5), file("B", 3)} {
		_, err := f.comp.InsertDocument(ctx, -1, fl, bundle.DocumentFields{})
		require.NoError(t, err)
	}
	f.adapter.FailNext(testutil.OpReorder, testutil.FaultEmpty)
	release, entered := f.adapter.Hold()

	ch, err := f.comp.Reorder(ctx, 0, 1)
	require.NoError(t, err)
	<-entered

	e, err := f.comp.InsertCoverPage(ctx, 1, "Index", 1)
	assert.True(t, compose.IsConcurrentReorder(err))
	assert.Nil(t, e)
	err = f.comp.Delete(ctx, "e1")
	assert.True(t, compose.IsConcurrentReorder(err))
	e, err = f.comp.EditField(ctx, "e2", bundle.FieldDescription, "Invoice")
	assert.True(t, compose.IsConcurrentReorder(err))
	assert.Nil(t, e)

	release()
	require.Equal(t, reorder.RolledBack, wait(t, ch).State)

	// Nothing was applied, so the rollback has nothing to lose.
	got := f.comp.Entries()
	assert.Equal(t, []string{"e1", "e2"}, compose.IDs(got))
	assert.Equal(t, "B.pdf", got[1].(compose.Document).Description)
	assert.Empty(t, f.adapter.CallsOf(testutil.OpDelete))
	assert.Empty(t, f.adapter.CallsOf(testutil.OpUpdate))

	// Once the reorder settles the same edits go through.
	_, err = f.comp.EditField(ctx, "e2", bundle.FieldDescription, "Invoice")
	require.NoError(t, err)
	require.NoError(t, f.comp.Delete(ctx, "e1"))
	assert.Equal(t, []string{"e2"}, f.mem.Order(caseID))
}

// stateNotifier reads the reorder state from inside Notify, which blocks
// if notices are delivered under the orchestrator lock.
type stateNotifier struct {
	comp   *bundle.Composition
	states []reorder.State
}

func (n *stateNotifier) Notify(reorder.Notice) {
	n.states = append(n.states, n.comp.ReorderState())
}

func TestInsert_PersistenceWarningDeliveredAfterUnlock(t *testing.T) {
	mem := testutil.NewMemoryAdapter()
	adapter := testutil.NewFaultyAdapter(mem)
	notifier := &stateNotifier{}
	notifier.comp = bundle.New(caseID, adapter, bundle.Options{
		IDs:      bundle.NewFixedGenerator("e1"),
		Clock:    testutil.NewManualClock(time.Time{}),
		Notifier: notifier,
	})
	adapter.FailNext(testutil.OpCreate, testutil.FaultError)

	done := make(chan error, 1)
	go func() {
		_, err := notifier.comp.InsertCoverPage(context.Background(), -1, "Index", 1)
		done <- err
	}()
	select {
	case err := <-done:
		assert.True(t, compose.IsPersistenceRejected(err))
	case <-time.After(2 * time.Second):
		t.Fatal("warning notice delivered while the orchestrator lock was held")
	}
	assert.Equal(t, []reorder.State{reorder.Idle}, notifier.states)
}

func TestInsertSectionBreak_BlankLabelDefaults(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	s, err := f.comp.InsertSectionBreak(ctx, -1, "   ")
	require.NoError(t, err)
	assert.Equal(t, "TAB A", s.(compose.SectionBreak).SectionLabel)
}

func TestInsert_MiddleReorderFailureKeepsRowsOrdered(t *testing.T) {
	f := newFixture(t, record.CaseBundle)
	ctx := context.Background()

	for _, fl := range []record.File{file("A", 5), file("B", 3)} {
		_, err := f.comp.InsertDocument(ctx, -1, fl, bundle.DocumentFields{})
		require.NoError(t, err)
	}
	f.adapter.FailNext(testutil.OpReorder, testutil.FaultError)

	s, err := f.comp.InsertSectionBreak(ctx, 1, "Exhibits")
	assert.True(t, compose.IsPersistenceRejected(err))
	require.NotNil(t, s)

	assert.Equal(t, []string{"e1", "e3", "e2"}, compose.IDs(f.comp.Entries()))
	assert.Equal(t, []string{"e1", "e3", "e2"}, f.mem.Order(caseID))
}
