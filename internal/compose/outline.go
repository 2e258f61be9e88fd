package compose

import (
	"fmt"
	"strings"
)

// EntriesPerTOCPage is the number of outline rows that fit on one table of
// contents page in the standard layout.
const EntriesPerTOCPage = 25

// DefaultPageWarningThreshold flags rows long enough that they should
// probably be split for easier navigation.
const DefaultPageWarningThreshold = 100

// OutlineRow is one line of a table of contents preview.
type OutlineRow struct {
	Label       string    `json:"label"`
	Kind        string    `json:"kind"`
	EntryID     string    `json:"entry_id"`
	Description string    `json:"description"`
	Pages       PageRange `json:"pages"`
	PageCount   int       `json:"page_count"`
}

// EstimateTOCPages returns how many pages a table of contents listing n rows
// needs. It is never less than one.
func EstimateTOCPages(n int) int {
	pages := (n + EntriesPerTOCPage - 1) / EntriesPerTOCPage
	if pages < 1 {
		return 1
	}
	return pages
}

// Outline builds a table of contents preview for a recalculated list. Page
// ranges are shifted by tocPages so that the first entry starts after the
// table of contents itself.
func Outline(entries []Entry, tocPages int) []OutlineRow {
	labels := DisplayNumbers(entries)
	rows := make([]OutlineRow, len(entries))
	for i, e := range entries {
		r := e.Pages()
		rows[i] = OutlineRow{
			Label:       labels[i],
			Kind:        e.Kind().String(),
			EntryID:     e.EntryID(),
			Description: Describe(e),
			Pages:       PageRange{Start: r.Start + tocPages, End: r.End + tocPages},
			PageCount:   AuthoredPageCount(e),
		}
	}
	return rows
}

// OutlineWithSubnumbers is Outline for a late insert into a bundle whose
// numbering is already in use. The insertCount entries after index
// insertAfter are labelled with the label of the entry at insertAfter and a
// letter suffix ("3A.", "3B.", ...); every other entry keeps the label it
// would have without them. Page ranges are unchanged. A negative insertAfter
// or a non-positive insertCount gives the plain outline.
func OutlineWithSubnumbers(entries []Entry, tocPages, insertAfter, insertCount int) ([]OutlineRow, error) {
	rows := Outline(entries, tocPages)
	if insertAfter < 0 || insertCount <= 0 {
		return rows, nil
	}
	if insertAfter >= len(entries) {
		return nil, NewIndexError("insert_after", insertAfter, len(entries))
	}
	last := insertAfter + insertCount
	if last >= len(entries) {
		return nil, &Error{
			Code:    ErrCodeIndexOutOfRange,
			Message: fmt.Sprintf("%d late inserts after index %d run past the end of %d entries", insertCount, insertAfter, len(entries)),
		}
	}

	kept := make([]Entry, 0, len(entries)-insertCount)
	kept = append(kept, entries[:insertAfter+1]...)
	kept = append(kept, entries[last+1:]...)
	labels := DisplayNumbers(kept)

	base := strings.TrimSuffix(labels[insertAfter], ".")
	for i := range rows {
		switch {
		case i <= insertAfter:
			rows[i].Label = labels[i]
		case i <= last:
			rows[i].Label = base + SubnumberSuffix(i-insertAfter-1) + "."
		default:
			rows[i].Label = labels[i-insertCount]
		}
	}
	return rows, nil
}

// SubnumberSuffix returns the letter for the n-th late insert: "A" for 0.
// Suffixes stop at "Z".
func SubnumberSuffix(n int) string {
	return string(rune('A' + min(max(n, 0), 25)))
}

// AuthoredPageCount is the page count an entry declares independently of
// its range: the file's count for a document, the generated count for a
// cover page or divider, and one for a section break. An unset count falls
// back to the size of the range.
func AuthoredPageCount(e Entry) int {
	n := 0
	switch v := e.(type) {
	case Document:
		n = v.PageCount
	case SectionBreak:
		return 1
	case CoverPage:
		n = v.GeneratedPageCount
	case Divider:
		n = v.GeneratedPageCount
	}
	if n < 1 {
		return e.Pages().Count()
	}
	return n
}

// Issue is a single pagination problem found by ValidateOutline.
type Issue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Label    string `json:"label,omitempty"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

// Validation is the outcome of ValidateOutline.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []Issue  `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Issue types reported by ValidateOutline.
const (
	IssuePaginationGap     = "pagination_gap"
	IssuePageOverlap       = "page_overlap"
	IssuePageCountMismatch = "page_count_mismatch"
)

// ValidateOutline checks that outline rows are gap-free and that every row's
// range agrees with its page count. Rows longer than threshold pages produce
// a warning; a threshold of zero or less disables the warning.
func ValidateOutline(rows []OutlineRow, threshold int) Validation {
	v := Validation{Errors: []Issue{}, Warnings: []string{}}

	expected := 0
	for i, row := range rows {
		if i == 0 {
			expected = row.Pages.Start
		}
		switch {
		case row.Pages.Start > expected:
			v.Errors = append(v.Errors, Issue{
				Type:     IssuePaginationGap,
				Message:  fmt.Sprintf("pagination gap: expected page %d, found page %d", expected, row.Pages.Start),
				Label:    row.Label,
				Expected: expected,
				Actual:   row.Pages.Start,
			})
		case row.Pages.Start < expected:
			v.Errors = append(v.Errors, Issue{
				Type:     IssuePageOverlap,
				Message:  fmt.Sprintf("%s starts on page %d, inside the previous row", row.Label, row.Pages.Start),
				Label:    row.Label,
				Expected: expected,
				Actual:   row.Pages.Start,
			})
		}

		calculatedEnd := row.Pages.Start + row.PageCount - 1
		if calculatedEnd != row.Pages.End {
			v.Errors = append(v.Errors, Issue{
				Type: IssuePageCountMismatch,
				Message: fmt.Sprintf("%s page count mismatch: %d pages should end at %d, but marked as %d",
					row.Label, row.PageCount, calculatedEnd, row.Pages.End),
				Label:    row.Label,
				Expected: calculatedEnd,
				Actual:   row.Pages.End,
			})
		}

		if threshold > 0 && row.PageCount > threshold {
			v.Warnings = append(v.Warnings, fmt.Sprintf(
				"%s has %d pages - consider splitting for easier navigation", row.Label, row.PageCount))
		}

		expected = row.Pages.End + 1
	}

	v.Valid = len(v.Errors) == 0
	return v
}
