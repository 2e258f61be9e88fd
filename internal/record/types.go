package record

import "fmt"

// CaseType distinguishes the two kinds of container.
type CaseType string

const (
	CaseBundle    CaseType = "bundle"
	CaseAffidavit CaseType = "affidavit"
)

// ParseCaseType validates a case type string.
func ParseCaseType(s string) (CaseType, error) {
	switch CaseType(s) {
	case CaseBundle, CaseAffidavit:
		return CaseType(s), nil
	default:
		return "", fmt.Errorf("invalid case_type %q: must be 'affidavit' or 'bundle'", s)
	}
}

// Case is the top-level container. A case IS a bundle or an affidavit.
type Case struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CaseType    CaseType `json:"case_type"`
	ContentJSON string   `json:"content_json,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// File is a raw PDF asset attached to a case.
type File struct {
	ID           string `json:"id"`
	CaseID       string `json:"case_id"`
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	PageCount    int    `json:"page_count"` // 0 when unknown
	MetadataJSON string `json:"metadata_json,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// NewFile describes a file to register.
type NewFile struct {
	CaseID       string
	Path         string
	OriginalName string
	PageCount    int
	MetadataJSON string
}

// RowType selects which reference an artifact entry carries.
type RowType string

const (
	// RowFile references a repository file (Document entries).
	RowFile RowType = "file"
	// RowComponent is a structural component (section breaks).
	RowComponent RowType = "component"
	// RowArtifact is generated page content (cover pages, dividers).
	RowArtifact RowType = "artifact"
)

// ParseRowType validates a row type string.
func ParseRowType(s string) (RowType, error) {
	switch RowType(s) {
	case RowFile, RowComponent, RowArtifact:
		return RowType(s), nil
	default:
		return "", fmt.Errorf("invalid row_type %q: must be 'file', 'component' or 'artifact'", s)
	}
}

// ArtifactEntry is the persisted shadow of one composition entry.
// SequenceOrder defines the authoritative order within a case.
type ArtifactEntry struct {
	ID            string  `json:"id"`
	CaseID        string  `json:"case_id"`
	SequenceOrder int     `json:"sequence_order"`
	RowType       RowType `json:"row_type"`
	FileID        string  `json:"file_id,omitempty"`
	ConfigJSON    string  `json:"config_json,omitempty"`
	LabelOverride string  `json:"label_override,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// NewEntry describes an artifact entry to create. ID may be empty, in which
// case the adapter assigns one.
type NewEntry struct {
	ID            string
	CaseID        string
	SequenceOrder int
	RowType       RowType
	FileID        string
	ConfigJSON    string
}

// Validate checks that the reference required by the row type is present.
func (n NewEntry) Validate() error {
	if n.CaseID == "" {
		return fmt.Errorf("case_id is required")
	}
	if _, err := ParseRowType(string(n.RowType)); err != nil {
		return err
	}
	switch n.RowType {
	case RowFile:
		if n.FileID == "" {
			return fmt.Errorf("file_id is required when row_type is 'file'")
		}
	case RowComponent, RowArtifact:
		if n.ConfigJSON == "" {
			return fmt.Errorf("config_json is required when row_type is '%s'", n.RowType)
		}
	}
	return nil
}
