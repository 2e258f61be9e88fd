package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/casebundle/internal/compose"
)

// Projection renders a run as stable text: the step trace, the published
// entries with their labels and ranges, and the notices raised.
//
// Entry lines are "<label> <kind> <range> <id> <description>"; notice lines
// are "<kind> <message>".
func Projection(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)

	buf.WriteString("steps:\n")
	for _, ev := range result.Trace {
		fmt.Fprintf(&buf, "  %d %s\n", ev.Step, traceLine(ev))
	}

	buf.WriteString("entries:\n")
	labels := compose.DisplayNumbers(result.Entries)
	for i, e := range result.Entries {
		line := joinFields(labels[i], e.Kind().String(), e.Pages().String(), e.EntryID(), compose.Describe(e))
		fmt.Fprintf(&buf, "  %s\n", line)
	}
	fmt.Fprintf(&buf, "total_pages: %d\n", compose.TotalPages(result.Entries))
	buf.WriteString("persisted:")
	for _, id := range result.Persisted {
		buf.WriteString(" " + id)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "state: %s\n", result.State)

	buf.WriteString("notices:\n")
	for _, n := range result.Notices {
		fmt.Fprintf(&buf, "  %s %s\n", n.Kind, n.Message)
	}
	return []byte(buf.String())
}

func traceLine(ev TraceEvent) string {
	return joinFields(ev.Op, ev.Detail, ev.Outcome)
}

func joinFields(fields ...string) string {
	out := fields[:0:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// RunWithGolden executes a scenario and compares its projection against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Projection(scenarioName, result))
}
