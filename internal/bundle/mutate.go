package bundle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
)

// DocumentFields are the authored fields of a new document.
type DocumentFields struct {
	Description  string
	Date         string
	ExhibitLabel string
	Disputed     bool
}

// InsertDocument adds a document for file f at index at; a negative index
// appends. The description defaults to the file's original name.
func (c *Composition) InsertDocument(ctx context.Context, at int, f record.File, fields DocumentFields) (compose.Entry, error) {
	if f.PageCount < 1 {
		return nil, invalid("", "file %s has no known page count", f.ID)
	}
	if err := checkDate(fields.Date); err != nil {
		return nil, err
	}
	if fields.ExhibitLabel != "" && c.caseType != record.CaseAffidavit {
		return nil, invalid("", "exhibit labels are only used in affidavits")
	}
	desc := fields.Description
	if desc == "" {
		desc = f.OriginalName
	}
	return c.insert(ctx, at, func([]compose.Entry, int) compose.Entry {
		return compose.Document{
			Row:          compose.Row{ID: c.ids.Generate(), Range: compose.Span(f.PageCount)},
			FileID:       f.ID,
			FilePath:     f.Path,
			PageCount:    f.PageCount,
			Description:  desc,
			Date:         fields.Date,
			ExhibitLabel: fields.ExhibitLabel,
			Disputed:     fields.Disputed,
		}
	})
}

// InsertSectionBreak adds a section break at index at. A blank label
// defaults to "TAB <letter>" for the position it lands in.
func (c *Composition) InsertSectionBreak(ctx context.Context, at int, label string) (compose.Entry, error) {
	return c.insert(ctx, at, func(current []compose.Entry, at int) compose.Entry {
		if strings.TrimSpace(label) == "" {
			label = compose.DefaultSectionTitle(compose.SectionOrdinalAt(current, at))
		}
		return compose.SectionBreak{
			Row:          compose.Row{ID: c.ids.Generate(), Range: compose.Span(1)},
			SectionLabel: label,
		}
	})
}

// InsertCoverPage adds generated cover content spanning pages pages.
func (c *Composition) InsertCoverPage(ctx context.Context, at int, description string, pages int) (compose.Entry, error) {
	if pages < 1 {
		return nil, invalid("", "page count must be at least 1, got %d", pages)
	}
	return c.insert(ctx, at, func([]compose.Entry, int) compose.Entry {
		return compose.CoverPage{
			Row:                compose.Row{ID: c.ids.Generate(), Range: compose.Span(pages)},
			Description:        description,
			GeneratedPageCount: pages,
		}
	})
}

// InsertDivider adds a generated divider spanning pages pages.
func (c *Composition) InsertDivider(ctx context.Context, at int, description string, pages int) (compose.Entry, error) {
	if pages < 1 {
		return nil, invalid("", "page count must be at least 1, got %d", pages)
	}
	return c.insert(ctx, at, func([]compose.Entry, int) compose.Entry {
		return compose.Divider{
			Row:                compose.Row{ID: c.ids.Generate(), Range: compose.Span(pages)},
			Description:        description,
			GeneratedPageCount: pages,
		}
	})
}

// insert publishes the new entry, then creates its row. A row created in the
// middle of the list is followed by a reorder so that sequence_order stays
// dense. The published entry is returned even when persistence fails.
// Inserting is rejected while a reorder is in flight and closes the undo
// window.
func (c *Composition) insert(ctx context.Context, at int, build func(current []compose.Entry, at int) compose.Entry) (compose.Entry, error) {
	var e compose.Entry
	err := c.exclusive(func() (bool, error) {
		var id string
		_, next, err := c.update(func(current []compose.Entry) ([]compose.Entry, error) {
			if at < 0 || at > len(current) {
				at = len(current)
			}
			e := build(current, at)
			id = e.EntryID()
			if compose.IndexOf(current, id) >= 0 {
				return nil, invalid(id, "duplicate entry id")
			}
			return compose.Recalculate(compose.Insert(current, at, e)), nil
		})
		if err != nil {
			return false, err
		}

		index := compose.IndexOf(next, id)
		e = next[index]
		c.logger.Debug("entry inserted", "entry", id, "kind", e.Kind().String(), "at", index)

		n, err := toNewEntry(c.caseID, index, e)
		if err != nil {
			return true, fmt.Errorf("encode entry %s: %w", id, err)
		}
		row, err := c.adapter.CreateEntry(ctx, n)
		if err != nil || row == nil {
			return true, c.rejected("create", id, err)
		}
		c.setPersisted(id, true)

		if index < len(next)-1 {
			ids := c.persistedIDs(c.Entries())
			rows, err := c.adapter.Reorder(ctx, c.caseID, ids)
			if err != nil || len(rows) == 0 {
				return true, c.rejected("reorder", id, err)
			}
		}
		return true, nil
	})
	return e, err
}

// Delete removes the entry with the given id and repaginates the rest.
func (c *Composition) Delete(ctx context.Context, id string) error {
	return c.exclusive(func() (bool, error) {
		_, _, err := c.update(func(current []compose.Entry) ([]compose.Entry, error) {
			i := compose.IndexOf(current, id)
			if i < 0 {
				return nil, compose.NewNotFound(id)
			}
			return compose.Recalculate(compose.Remove(current, i)), nil
		})
		if err != nil {
			return false, err
		}
		c.logger.Debug("entry deleted", "entry", id)

		if !c.Persisted(id) {
			return true, nil
		}
		c.setPersisted(id, false)
		ok, err := c.adapter.DeleteEntry(ctx, id)
		if err != nil || !ok {
			return true, c.rejected("delete", id, err)
		}
		return true, nil
	})
}

// Field names an editable entry field.
type Field string

const (
	FieldDescription  Field = "description"
	FieldDate         Field = "date"
	FieldExhibitLabel Field = "exhibit_label"
	FieldDisputed     Field = "disputed"
	FieldSectionLabel Field = "section_label"
	FieldPageCount    Field = "page_count"
)

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldDescription, FieldDate, FieldExhibitLabel, FieldDisputed, FieldSectionLabel, FieldPageCount:
		return f, nil
	default:
		return "", &compose.Error{Code: compose.ErrCodeUnknownField, Message: fmt.Sprintf("unknown field %q", s)}
	}
}

// EditField sets one field of an entry from its string form. Editing the
// page count of a cover page or divider repaginates the list.
func (c *Composition) EditField(ctx context.Context, id string, field Field, value string) (compose.Entry, error) {
	edit, err := c.parseEdit(id, field, value)
	if err != nil {
		return nil, err
	}

	var edited compose.Entry
	err = c.exclusive(func() (bool, error) {
		_, _, err := c.update(func(current []compose.Entry) ([]compose.Entry, error) {
			i := compose.IndexOf(current, id)
			if i < 0 {
				return nil, compose.NewNotFound(id)
			}
			e, err := edit(current[i])
			if err != nil {
				return nil, err
			}
			next := compose.Replace(current, i, e)
			if field == FieldPageCount {
				next = compose.Recalculate(next)
			}
			edited = next[i]
			return next, nil
		})
		if err != nil {
			edited = nil
			return false, err
		}
		c.logger.Debug("entry edited", "entry", id, "field", string(field))

		if !c.Persisted(id) {
			return true, nil
		}
		cfg, err := record.MarshalConfig(ConfigOf(edited))
		if err != nil {
			return true, fmt.Errorf("encode entry %s: %w", id, err)
		}
		row, err := c.adapter.UpdateEntry(ctx, id, cfg)
		if err != nil || row == nil {
			return true, c.rejected("update", id, err)
		}
		return true, nil
	})
	return edited, err
}

// parseEdit turns a field assignment into a function over the entry.
func (c *Composition) parseEdit(id string, field Field, value string) (func(compose.Entry) (compose.Entry, error), error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}
	notFor := func(e compose.Entry) error {
		return &compose.Error{
			Code:    compose.ErrCodeUnknownField,
			Message: fmt.Sprintf("%s has no field %s", e.Kind(), field),
			EntryID: id,
		}
	}

	switch field {
	case FieldDescription:
		return func(e compose.Entry) (compose.Entry, error) {
			switch v := e.(type) {
			case compose.Document:
				v.Description = value
				return v, nil
			case compose.CoverPage:
				v.Description = value
				return v, nil
			case compose.Divider:
				v.Description = value
				return v, nil
			default:
				return nil, notFor(e)
			}
		}, nil

	case FieldDate:
		if err := checkDate(value); err != nil {
			return nil, err
		}
		return documentEdit(notFor, func(d *compose.Document) { d.Date = value }), nil

	case FieldExhibitLabel:
		if c.caseType != record.CaseAffidavit {
			return nil, invalid(id, "exhibit labels are only used in affidavits")
		}
		return documentEdit(notFor, func(d *compose.Document) { d.ExhibitLabel = value }), nil

	case FieldDisputed:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, invalid(id, "disputed must be true or false, got %q", value)
		}
		return documentEdit(notFor, func(d *compose.Document) { d.Disputed = b }), nil

	case FieldSectionLabel:
		if strings.TrimSpace(value) == "" {
			return nil, invalid(id, "section label must not be empty")
		}
		return func(e compose.Entry) (compose.Entry, error) {
			v, ok := e.(compose.SectionBreak)
			if !ok {
				return nil, notFor(e)
			}
			v.SectionLabel = value
			return v, nil
		}, nil

	case FieldPageCount:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, invalid(id, "page count must be a positive integer, got %q", value)
		}
		return func(e compose.Entry) (compose.Entry, error) {
			switch v := e.(type) {
			case compose.CoverPage:
				v.GeneratedPageCount = n
				v.Range = compose.PageRange{Start: v.Range.Start, End: v.Range.Start + n - 1}
				return v, nil
			case compose.Divider:
				v.GeneratedPageCount = n
				v.Range = compose.PageRange{Start: v.Range.Start, End: v.Range.Start + n - 1}
				return v, nil
			default:
				return nil, notFor(e)
			}
		}, nil
	}
	return nil, &compose.Error{Code: compose.ErrCodeUnknownField, Message: string(field), EntryID: id}
}

func documentEdit(notFor func(compose.Entry) error, set func(*compose.Document)) func(compose.Entry) (compose.Entry, error) {
	return func(e compose.Entry) (compose.Entry, error) {
		d, ok := e.(compose.Document)
		if !ok {
			return nil, notFor(e)
		}
		set(&d)
		return d, nil
	}
}

// checkDate accepts "" or an ISO calendar date.
func checkDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return invalid("", "date must be YYYY-MM-DD, got %q", s)
	}
	return nil
}

func invalid(id, format string, args ...any) *compose.Error {
	return &compose.Error{
		Code:    compose.ErrCodeInvalidValue,
		Message: fmt.Sprintf(format, args...),
		EntryID: id,
	}
}
