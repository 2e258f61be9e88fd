package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
	"github.com/roach88/casebundle/internal/reorder"
	"github.com/roach88/casebundle/internal/store"
	"github.com/roach88/casebundle/internal/testutil"
)

// settleTimeout bounds how long a step waits for a persistence result.
const settleTimeout = 5 * time.Second

// Harness holds the collaborators of one scenario run.
type Harness struct {
	store   *store.Store
	adapter *testutil.FaultyAdapter
	comp    *bundle.Composition
	clock   *testutil.ManualClock
	notices *testutil.RecordingNotifier
	files   map[string]record.File
	logger  *slog.Logger

	release func()
	pending []pendingCall
}

// pendingCall is a reorder or undo issued while the adapter was held.
type pendingCall struct {
	step   int
	op     string
	expect string
	done   <-chan reorder.Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// returned error is reserved for failures of the harness itself; unmet
// expectations and assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunContext is Run with an explicit context and logger.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	clock := testutil.NewManualClock(testutil.Epoch)
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	caseType := record.CaseBundle
	if scenario.CaseType != "" {
		if caseType, err = record.ParseCaseType(scenario.CaseType); err != nil {
			return nil, err
		}
	}
	var window time.Duration
	if scenario.UndoWindow != "" {
		if window, err = time.ParseDuration(scenario.UndoWindow); err != nil {
			return nil, fmt.Errorf("undo_window: %w", err)
		}
	}

	c, err := st.CreateCase(ctx, scenario.Name, caseType)
	if err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	h := &Harness{
		store:   st,
		adapter: testutil.NewFaultyAdapter(st),
		clock:   clock,
		notices: &testutil.RecordingNotifier{},
		files:   make(map[string]record.File, len(scenario.Files)),
		logger:  logger,
	}
	for _, fs := range scenario.Files {
		f, err := st.CreateFile(ctx, record.NewFile{
			CaseID:       c.ID,
			Path:         "/bundle/" + fs.Name,
			OriginalName: fs.Name,
			PageCount:    fs.Pages,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register file %s: %w", fs.Key, err)
		}
		h.files[fs.Key] = *f
	}

	h.comp = bundle.New(c.ID, h.adapter, bundle.Options{
		CaseType:   caseType,
		IDs:        bundle.NewFixedGenerator(entryIDs(scenario.Steps)...),
		Clock:      clock,
		UndoWindow: window,
		Notifier:   h.notices,
		Logger:     logger,
	})

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	rows, err := st.ListEntries(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted entries: %w", err)
	}
	result.Persisted = make([]string, len(rows))
	for i, r := range rows {
		result.Persisted[i] = r.ID
	}
	result.Entries = h.comp.Entries()
	result.Notices = h.notices.Notices()
	result.State = h.comp.ReorderState().String()

	actx := &AssertionContext{Adapter: h.adapter}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// entryIDs returns one id per insert step: "e1", "e2", ...
func entryIDs(steps []Step) []string {
	var ids []string
	for _, s := range steps {
		switch s.Op {
		case OpAddDocument, OpAddSection, OpAddCover, OpAddDivider:
			ids = append(ids, "e"+strconv.Itoa(len(ids)+1))
		}
	}
	return ids
}

// execute runs one step, records its outcome and checks the expectation.
func (h *Harness) execute(ctx context.Context, n int, step Step, result *Result) error {
	detail, outcome, err := h.apply(ctx, n, step)
	if err != nil {
		return err
	}
	result.AddTrace(n, step.Op, detail, outcome)
	if outcome != OutcomePending {
		h.check(n, step.Op, expected(step), outcome, result)
	}
	h.logger.Info("scenario step", "step", n, "op", step.Op, "detail", detail, "outcome", outcome)
	if step.Op == OpRelease {
		return h.releaseHeld(n, result)
	}
	return nil
}

func (h *Harness) check(n int, op, want, got string, result *Result) {
	if want != got {
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s", n, op, want, got))
	}
}

func expected(step Step) string {
	if step.Expect != "" {
		return step.Expect
	}
	if step.Op == OpReorder || step.Op == OpUndo {
		return OutcomeCommitted
	}
	return OutcomeOK
}

func (h *Harness) apply(ctx context.Context, n int, step Step) (detail, outcome string, err error) {
	at := -1
	if step.At != nil {
		at = *step.At
	}

	switch step.Op {
	case OpAddDocument:
		_, err := h.comp.InsertDocument(ctx, at, h.files[step.File], bundle.DocumentFields{
			Description:  step.Description,
			Date:         step.Date,
			ExhibitLabel: step.Exhibit,
			Disputed:     step.Disputed,
		})
		return step.File, errOutcome(err), nil

	case OpAddSection:
		_, err := h.comp.InsertSectionBreak(ctx, at, step.Label)
		return step.Label, errOutcome(err), nil

	case OpAddCover:
		_, err := h.comp.InsertCoverPage(ctx, at, step.Description, step.Pages)
		return strconv.Itoa(step.Pages), errOutcome(err), nil

	case OpAddDivider:
		_, err := h.comp.InsertDivider(ctx, at, step.Description, step.Pages)
		return strconv.Itoa(step.Pages), errOutcome(err), nil

	case OpReorder:
		detail := fmt.Sprintf("%d->%d", step.From, step.To)
		done, err := h.comp.ReorderIntent(ctx, reorder.Intent{Token: step.Token, From: step.From, To: step.To})
		if err != nil {
			return detail, errOutcome(err), nil
		}
		outcome, err := h.settle(n, step, done)
		return detail, outcome, err

	case OpUndo:
		done, err := h.comp.UndoLastReorder(ctx)
		if err != nil {
			return "", errOutcome(err), nil
		}
		outcome, err := h.settle(n, step, done)
		return "", outcome, err

	case OpDelete:
		return step.ID, errOutcome(h.comp.Delete(ctx, step.ID)), nil

	case OpEdit:
		detail := step.ID + " " + step.Field + "=" + step.Value
		field, err := bundle.ParseField(step.Field)
		if err != nil {
			return detail, errOutcome(err), nil
		}
		_, err = h.comp.EditField(ctx, step.ID, field, step.Value)
		return detail, errOutcome(err), nil

	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return "", "", err
		}
		h.clock.Advance(d)
		return step.Duration, OutcomeOK, nil

	case OpFailNext:
		f := testutil.FaultError
		if step.Fault == "empty" {
			f = testutil.FaultEmpty
		}
		h.adapter.FailNext(step.Target, f)
		return step.Target + " " + step.Fault, OutcomeOK, nil

	case OpHold:
		h.release, _ = h.adapter.Hold()
		return "", OutcomeOK, nil

	case OpRelease:
		return "", OutcomeOK, nil

	default:
		return "", "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// settle waits for a persistence result, or parks it while the adapter is
// held.
func (h *Harness) settle(n int, step Step, done <-chan reorder.Result) (string, error) {
	if h.release != nil {
		h.pending = append(h.pending, pendingCall{step: n, op: step.Op, expect: expected(step), done: done})
		return OutcomePending, nil
	}
	res, err := wait(done)
	if err != nil {
		return "", err
	}
	return res.State.String(), nil
}

// releaseHeld opens the adapter gate and settles every parked call in the
// order it was issued.
func (h *Harness) releaseHeld(n int, result *Result) error {
	h.release()
	h.release = nil
	for _, p := range h.pending {
		res, err := wait(p.done)
		if err != nil {
			return fmt.Errorf("settling step %d: %w", p.step, err)
		}
		outcome := res.State.String()
		result.AddTrace(n, "settle", "step "+strconv.Itoa(p.step), outcome)
		h.check(p.step, p.op, p.expect, outcome, result)
	}
	h.pending = nil
	return nil
}

func wait(done <-chan reorder.Result) (reorder.Result, error) {
	select {
	case res := <-done:
		return res, nil
	case <-time.After(settleTimeout):
		return reorder.Result{}, fmt.Errorf("no persistence result after %s", settleTimeout)
	}
}

// errOutcome maps a step error to its outcome string.
func errOutcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := compose.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
