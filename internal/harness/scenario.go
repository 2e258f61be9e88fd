package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
	"github.com/roach88/casebundle/internal/testutil"
)

// Scenario is a scripted run against one composition.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CaseType is "bundle" (default) or "affidavit".
	CaseType string `yaml:"case_type,omitempty"`

	// UndoWindow overrides the default undo window, e.g. "10s".
	UndoWindow string `yaml:"undo_window,omitempty"`

	// Files are registered with the case before the first step.
	Files []FileSpec `yaml:"files,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// FileSpec describes a PDF registered for the scenario. Key is how steps
// refer to it.
type FileSpec struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Pages int    `yaml:"pages"`
}

// Step is one operation. Op selects which of the other fields apply.
type Step struct {
	Op string `yaml:"op"`

	// At is the insert position; omitted or negative appends.
	At *int `yaml:"at,omitempty"`

	// add_document
	File     string `yaml:"file,omitempty"`
	Date     string `yaml:"date,omitempty"`
	Exhibit  string `yaml:"exhibit,omitempty"`
	Disputed bool   `yaml:"disputed,omitempty"`

	// add_section, add_cover, add_divider, add_document
	Label       string `yaml:"label,omitempty"`
	Description string `yaml:"description,omitempty"`
	Pages       int    `yaml:"pages,omitempty"`

	// reorder
	From  int    `yaml:"from,omitempty"`
	To    int    `yaml:"to,omitempty"`
	Token string `yaml:"token,omitempty"`

	// delete, edit
	ID    string `yaml:"id,omitempty"`
	Field string `yaml:"field,omitempty"`
	Value string `yaml:"value,omitempty"`

	// advance
	Duration string `yaml:"duration,omitempty"`

	// fail_next: Target is the adapter operation, Fault is "error" or "empty".
	Target string `yaml:"target,omitempty"`
	Fault  string `yaml:"fault,omitempty"`

	// Expect is the outcome the step must produce: "ok", "committed",
	// "rolled_back" or an error code. Reorder and undo default to
	// "committed", everything else to "ok".
	Expect string `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpAddDocument = "add_document"
	OpAddSection  = "add_section"
	OpAddCover    = "add_cover"
	OpAddDivider  = "add_divider"
	OpReorder     = "reorder"
	OpUndo        = "undo"
	OpDelete      = "delete"
	OpEdit        = "edit"
	OpAdvance     = "advance"
	OpFailNext    = "fail_next"
	OpHold        = "hold"
	OpRelease     = "release"
)

// Step outcomes that are not error codes.
const (
	OutcomeOK         = "ok"
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomePending    = "pending"
)

// Assertion validates the state after the last step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs is the expected entry order (order, persisted_order).
	IDs []string `yaml:"ids,omitempty"`

	// Values holds the expected ranges, labels, descriptions or notice kinds.
	Values []string `yaml:"values,omitempty"`

	// Count is the expected total (total_pages, adapter_calls).
	Count *int `yaml:"count,omitempty"`

	// Target is the adapter operation counted by adapter_calls.
	Target string `yaml:"target,omitempty"`

	// State is the expected reorder state (state).
	State string `yaml:"state,omitempty"`
}

// Assertion types.
const (
	AssertOrder          = "order"
	AssertPersistedOrder = "persisted_order"
	AssertRanges         = "ranges"
	AssertLabels         = "labels"
	AssertDescriptions   = "descriptions"
	AssertTotalPages     = "total_pages"
	AssertNotices        = "notices"
	AssertState          = "state"
	AssertAdapterCalls   = "adapter_calls"
)

var (
	adapterOps  = []string{testutil.OpReorder, testutil.OpCreate, testutil.OpUpdate, testutil.OpDelete}
	faultNames  = []string{"error", "empty"}
	reportCodes = []compose.ErrorCode{
		compose.ErrCodePersistenceRejected,
		compose.ErrCodeInvariantViolation,
		compose.ErrCodeConcurrentReorder,
		compose.ErrCodeDuplicateIntent,
		compose.ErrCodeNoUndo,
		compose.ErrCodeUndoExpired,
		compose.ErrCodeEntryNotFound,
		compose.ErrCodeIndexOutOfRange,
		compose.ErrCodeUnknownField,
		compose.ErrCodeInvalidValue,
	}
	stateNames = []string{"idle", "reordering", "committed"}
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that a typo cannot silently disable a step or assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that the
// steps can run without blocking.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.CaseType != "" {
		if _, err := record.ParseCaseType(s.CaseType); err != nil {
			return err
		}
	}
	if s.UndoWindow != "" {
		if d, err := time.ParseDuration(s.UndoWindow); err != nil || d <= 0 {
			return fmt.Errorf("undo_window must be a positive duration, got %q", s.UndoWindow)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	files := make(map[string]bool, len(s.Files))
	for i, f := range s.Files {
		if f.Key == "" || f.Name == "" {
			return fmt.Errorf("files[%d]: key and name are required", i)
		}
		if f.Pages < 1 {
			return fmt.Errorf("files[%d]: pages must be at least 1", i)
		}
		if files[f.Key] {
			return fmt.Errorf("files[%d]: duplicate key %q", i, f.Key)
		}
		files[f.Key] = true
	}

	held, inflight := false, false
	for i, step := range s.Steps {
		if err := validateStep(step, files); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		switch step.Op {
		case OpHold:
			if held {
				return fmt.Errorf("steps[%d]: adapter is already held", i)
			}
			held = true
		case OpRelease:
			if !held {
				return fmt.Errorf("steps[%d]: release without hold", i)
			}
			held, inflight = false, false
		case OpReorder, OpUndo:
			if want := expected(step); held && (want == OutcomeCommitted || want == OutcomeRolledBack) {
				inflight = true
			}
		case OpAdvance:
		default:
			// Every other step calls the adapter synchronously and would
			// block on the gate, unless a held reorder makes it fail fast.
			if held && !(inflight && step.Expect == string(compose.ErrCodeConcurrentReorder)) {
				return fmt.Errorf("steps[%d]: %s cannot run while the adapter is held", i, step.Op)
			}
		}
	}
	if held {
		return fmt.Errorf("hold is never released")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, files map[string]bool) error {
	switch step.Op {
	case OpAddDocument:
		if !files[step.File] {
			return fmt.Errorf("add_document: unknown file %q", step.File)
		}
	case OpAddCover, OpAddDivider:
		if step.Pages < 1 {
			return fmt.Errorf("%s: pages must be at least 1", step.Op)
		}
	case OpDelete:
		if step.ID == "" {
			return fmt.Errorf("delete: id is required")
		}
	case OpEdit:
		if step.ID == "" || step.Field == "" {
			return fmt.Errorf("edit: id and field are required")
		}
	case OpAdvance:
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	case OpFailNext:
		if !slices.Contains(adapterOps, step.Target) {
			return fmt.Errorf("fail_next: target must be one of %v", adapterOps)
		}
		if !slices.Contains(faultNames, step.Fault) {
			return fmt.Errorf("fail_next: fault must be one of %v", faultNames)
		}
	case OpAddSection, OpReorder, OpUndo, OpHold, OpRelease:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Expect != "" && !validOutcome(step.Expect) {
		return fmt.Errorf("unknown expect %q", step.Expect)
	}
	return nil
}

func validOutcome(s string) bool {
	switch s {
	case OutcomeOK, OutcomeCommitted, OutcomeRolledBack:
		return true
	}
	return slices.Contains(reportCodes, compose.ErrorCode(s))
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOrder, AssertPersistedOrder:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for %s (use [] for an empty list)", index, a.Type)
		}
	case AssertRanges, AssertLabels, AssertDescriptions, AssertNotices:
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for %s (use [] for an empty list)", index, a.Type)
		}
	case AssertTotalPages:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for total_pages", index)
		}
	case AssertAdapterCalls:
		if !slices.Contains(adapterOps, a.Target) {
			return fmt.Errorf("assertions[%d]: target must be one of %v", index, adapterOps)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for adapter_calls", index)
		}
	case AssertState:
		if !slices.Contains(stateNames, a.State) {
			return fmt.Errorf("assertions[%d]: state must be one of %v", index, stateNames)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
