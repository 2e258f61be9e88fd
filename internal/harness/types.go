package harness

import (
	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/reorder"
)

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step    int    `json:"step"` // 1-based
	Op      string `json:"op"`
	Detail  string `json:"detail,omitempty"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace has one event per step, plus one "settle" event for every
	// held call that resolved on release.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Entries is the published list after the last step.
	Entries []compose.Entry `json:"-"`

	// Persisted is the entry order read back from the store.
	Persisted []string `json:"persisted"`

	// Notices are the notices raised during the run, in order.
	Notices []reorder.Notice `json:"-"`

	// State is the reorder state after the last step.
	State string `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(step int, op, detail, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{Step: step, Op: op, Detail: detail, Outcome: outcome})
}
