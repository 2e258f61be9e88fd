package bundle

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
)

// rowTypeOf maps an entry variant onto its persisted row type.
func rowTypeOf(e compose.Entry) record.RowType {
	switch e.(type) {
	case compose.Document:
		return record.RowFile
	case compose.SectionBreak:
		return record.RowComponent
	case compose.CoverPage, compose.Divider:
		return record.RowArtifact
	default:
		panic(fmt.Sprintf("bundle: unknown entry type %T", e))
	}
}

// ConfigOf returns the config payload that persists e.
func ConfigOf(e compose.Entry) record.EntryConfig {
	cfg := record.EntryConfig{Kind: e.Kind().String()}
	switch v := e.(type) {
	case compose.Document:
		cfg.Description = v.Description
		cfg.Date = v.Date
		cfg.ExhibitLabel = v.ExhibitLabel
		cfg.Disputed = v.Disputed
	case compose.SectionBreak:
		cfg.SectionLabel = v.SectionLabel
	case compose.CoverPage:
		cfg.Description = v.Description
		cfg.PageCount = v.GeneratedPageCount
	case compose.Divider:
		cfg.Description = v.Description
		cfg.PageCount = v.GeneratedPageCount
	default:
		panic(fmt.Sprintf("bundle: unknown entry type %T", e))
	}
	return cfg
}

// toNewEntry builds the create request for e at position order.
func toNewEntry(caseID string, order int, e compose.Entry) (record.NewEntry, error) {
	cfg, err := record.MarshalConfig(ConfigOf(e))
	if err != nil {
		return record.NewEntry{}, err
	}
	n := record.NewEntry{
		ID:            e.EntryID(),
		CaseID:        caseID,
		SequenceOrder: order,
		RowType:       rowTypeOf(e),
		ConfigJSON:    cfg,
	}
	if d, ok := e.(compose.Document); ok {
		n.FileID = d.FileID
	}
	return n, nil
}

// FromRecord rebuilds an entry from its persisted row. Documents take their
// path and size from files, keyed by file id. The range is a placeholder of
// the right size; callers recalculate the whole list afterwards.
func FromRecord(row record.ArtifactEntry, files map[string]record.File) (compose.Entry, error) {
	cfg, err := record.ParseConfig(row.ConfigJSON)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", row.ID, err)
	}
	r := compose.Row{ID: row.ID}

	switch row.RowType {
	case record.RowFile:
		f, ok := files[row.FileID]
		if !ok {
			return nil, fmt.Errorf("entry %s: file %s not found", row.ID, row.FileID)
		}
		desc := cfg.Description
		if desc == "" {
			desc = f.OriginalName
		}
		if row.LabelOverride != "" && cfg.ExhibitLabel == "" {
			cfg.ExhibitLabel = row.LabelOverride
		}
		r.Range = compose.Span(f.PageCount)
		return compose.Document{
			Row:          r,
			FileID:       f.ID,
			FilePath:     f.Path,
			PageCount:    f.PageCount,
			Description:  desc,
			Date:         cfg.Date,
			ExhibitLabel: cfg.ExhibitLabel,
			Disputed:     cfg.Disputed,
		}, nil

	case record.RowComponent:
		label := cfg.SectionLabel
		if row.LabelOverride != "" {
			label = row.LabelOverride
		}
		r.Range = compose.Span(1)
		return compose.SectionBreak{Row: r, SectionLabel: label}, nil

	case record.RowArtifact:
		kind, err := compose.ParseKind(cfg.Kind)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.ID, err)
		}
		r.Range = compose.Span(cfg.PageCount)
		switch kind {
		case compose.KindCoverPage:
			return compose.CoverPage{Row: r, Description: cfg.Description, GeneratedPageCount: cfg.PageCount}, nil
		case compose.KindDivider:
			return compose.Divider{Row: r, Description: cfg.Description, GeneratedPageCount: cfg.PageCount}, nil
		default:
			return nil, fmt.Errorf("entry %s: artifact row with kind %s", row.ID, kind)
		}

	default:
		return nil, fmt.Errorf("entry %s: unknown row_type %q", row.ID, row.RowType)
	}
}

// FromRecords rebuilds and paginates a list in sequence_order. Ties are
// broken by creation time, then id.
func FromRecords(rows []record.ArtifactEntry, files []record.File) ([]compose.Entry, error) {
	byID := make(map[string]record.File, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b record.ArtifactEntry) int {
		return cmp.Or(
			cmp.Compare(a.SequenceOrder, b.SequenceOrder),
			cmp.Compare(a.CreatedAt, b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})

	entries := make([]compose.Entry, 0, len(sorted))
	for _, row := range sorted {
		e, err := FromRecord(row, byID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	entries = compose.Recalculate(entries)
	if err := compose.CheckContiguous(entries); err != nil {
		return nil, err
	}
	return entries, nil
}
