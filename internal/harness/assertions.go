package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Step, traceLine(event))
	}
	return buf.String()
}

// AssertionContext provides what assertions need beyond the Result.
type AssertionContext struct {
	// Adapter is consulted by adapter_calls.
	Adapter *testutil.FaultyAdapter
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOrder:
		return compareList(result, a.Type, a.IDs, compose.IDs(result.Entries))
	case AssertPersistedOrder:
		return compareList(result, a.Type, a.IDs, result.Persisted)
	case AssertRanges:
		ranges := make([]string, len(result.Entries))
		for i, e := range result.Entries {
			ranges[i] = e.Pages().String()
		}
		return compareList(result, a.Type, a.Values, ranges)
	case AssertLabels:
		return compareList(result, a.Type, a.Values, compose.DisplayNumbers(result.Entries))
	case AssertDescriptions:
		descs := make([]string, len(result.Entries))
		for i, e := range result.Entries {
			descs[i] = compose.Describe(e)
		}
		return compareList(result, a.Type, a.Values, descs)
	case AssertNotices:
		kinds := make([]string, len(result.Notices))
		for i, n := range result.Notices {
			kinds[i] = n.Kind.String()
		}
		return compareList(result, a.Type, a.Values, kinds)
	case AssertTotalPages:
		return compareInt(result, a.Type, *a.Count, compose.TotalPages(result.Entries))
	case AssertAdapterCalls:
		got := 0
		if actx != nil && actx.Adapter != nil {
			got = len(actx.Adapter.CallsOf(a.Target))
		}
		return compareInt(result, a.Type+" "+a.Target, *a.Count, got)
	case AssertState:
		if a.State != result.State {
			return &AssertionError{Type: a.Type, Expected: a.State, Actual: result.State, Trace: result.Trace}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func compareList(result *Result, typ string, want, got []string) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

func compareInt(result *Result, typ string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(got),
		Trace:    result.Trace,
	}
}
