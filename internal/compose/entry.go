package compose

import "fmt"

// Kind identifies an entry variant.
type Kind int

const (
	// KindDocument is an imported file.
	KindDocument Kind = iota + 1
	// KindSectionBreak is a lettered tab that occupies a single page.
	KindSectionBreak
	// KindCoverPage is a generated cover page.
	KindCoverPage
	// KindDivider is a generated divider.
	KindDivider
)

// String returns the snake_case name used in persisted config payloads.
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindSectionBreak:
		return "section_break"
	case KindCoverPage:
		return "cover_page"
	case KindDivider:
		return "divider"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "document":
		return KindDocument, nil
	case "section_break":
		return KindSectionBreak, nil
	case "cover_page":
		return KindCoverPage, nil
	case "divider":
		return KindDivider, nil
	default:
		return 0, fmt.Errorf("unknown entry kind %q", s)
	}
}

// OrdinalBearing reports whether rows of this kind take part in the numeric
// counter. Section breaks are lettered instead.
func (k Kind) OrdinalBearing() bool {
	return k != KindSectionBreak
}

// PageRange is an inclusive, 1-based page span.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Count returns End-Start+1. A placeholder range with End < Start counts
// as zero pages.
func (r PageRange) Count() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Span returns a placeholder range of n pages starting at page 1. New
// entries carry their true size this way until Recalculate positions them.
func Span(n int) PageRange {
	return PageRange{Start: 1, End: n}
}

// Entry is one row of a composition. The set of implementations is closed:
// Document, SectionBreak, CoverPage and Divider.
type Entry interface {
	EntryID() string
	Pages() PageRange
	Kind() Kind

	sealed()
}

// Row holds the fields every variant shares.
type Row struct {
	ID    string    `json:"id"`
	Range PageRange `json:"range"`
}

// EntryID returns the stable identifier of the row.
func (r Row) EntryID() string { return r.ID }

// Pages returns the derived page range.
func (r Row) Pages() PageRange { return r.Range }

func (Row) sealed() {}

// Document references an imported file.
type Document struct {
	Row
	FileID       string `json:"file_id"`
	FilePath     string `json:"file_path"`
	PageCount    int    `json:"page_count"`
	Description  string `json:"description"`
	Date         string `json:"date,omitempty"`
	ExhibitLabel string `json:"exhibit_label,omitempty"`
	Disputed     bool   `json:"disputed,omitempty"`
}

// Kind implements Entry.
func (Document) Kind() Kind { return KindDocument }

// SectionBreak starts a lettered group of documents.
type SectionBreak struct {
	Row
	SectionLabel string `json:"section_label"`
}

// Kind implements Entry.
func (SectionBreak) Kind() Kind { return KindSectionBreak }

// CoverPage is generated content whose page count is measured by the
// renderer.
type CoverPage struct {
	Row
	Description        string `json:"description"`
	GeneratedPageCount int    `json:"generated_page_count"`
}

// Kind implements Entry.
func (CoverPage) Kind() Kind { return KindCoverPage }

// Divider is generated content placed between documents.
type Divider struct {
	Row
	Description        string `json:"description"`
	GeneratedPageCount int    `json:"generated_page_count"`
}

// Kind implements Entry.
func (Divider) Kind() Kind { return KindDivider }

// WithPages returns a copy of e positioned at r.
func WithPages(e Entry, r PageRange) Entry {
	switch v := e.(type) {
	case Document:
		v.Range = r
		return v
	case SectionBreak:
		v.Range = r
		return v
	case CoverPage:
		v.Range = r
		return v
	case Divider:
		v.Range = r
		return v
	default:
		panic(fmt.Sprintf("compose: unknown entry type %T", e))
	}
}

// Describe returns the human-facing text of an entry: the description for
// documents, cover pages and dividers, the label for section breaks.
func Describe(e Entry) string {
	switch v := e.(type) {
	case Document:
		return v.Description
	case SectionBreak:
		return v.SectionLabel
	case CoverPage:
		return v.Description
	case Divider:
		return v.Description
	default:
		panic(fmt.Sprintf("compose: unknown entry type %T", e))
	}
}

// IDs returns the entry identifiers in list order.
func IDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.EntryID()
	}
	return ids
}

// IndexOf returns the position of the entry with the given id, or -1.
func IndexOf(entries []Entry, id string) int {
	for i, e := range entries {
		if e.EntryID() == id {
			return i
		}
	}
	return -1
}
