package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/casebundle/internal/bundle"
	"github.com/roach88/casebundle/internal/record"
)

var (
	_ bundle.Adapter = (*Store)(nil)
	_ bundle.Loader  = (*Store)(nil)
)

const entryColumns = `id, case_id, sequence_order, row_type, file_id, config_json, label_override, created_at`

// ListEntries returns the entries of a case in sequence order.
//
// Returns an empty slice (not nil) if the case has no entries.
func (s *Store) ListEntries(ctx context.Context, caseID string) ([]record.ArtifactEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM artifact_entries
		WHERE case_id = ?
		ORDER BY sequence_order ASC, created_at ASC, id COLLATE BINARY ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []record.ArtifactEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// GetEntry returns one entry, or ErrNotFound.
func (s *Store) GetEntry(ctx context.Context, id string) (*record.ArtifactEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM artifact_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntry inserts an artifact entry. A file row needs a file id; a
// component or artifact row needs a config payload, which must match the
// config schema. A caller-supplied id is kept. Rows of the case at or after
// the new sequence_order move down one place in the same transaction.
func (s *Store) CreateEntry(ctx context.Context, n record.NewEntry) (*record.ArtifactEntry, error) {
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	if n.ConfigJSON != "" {
		if err := record.ValidateConfig([]byte(n.ConfigJSON)); err != nil {
			return nil, fmt.Errorf("create entry: %w", err)
		}
	}

	id := n.ID
	if id == "" {
		id = s.newID()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE artifact_entries SET sequence_order = sequence_order + 1
			WHERE case_id = ? AND sequence_order >= ?
		`, n.CaseID, n.SequenceOrder); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifact_entries
			(id, case_id, sequence_order, row_type, file_id, config_json, label_override, created_at)
			VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
		`,
			id,
			n.CaseID,
			n.SequenceOrder,
			string(n.RowType),
			nullString(n.FileID),
			nullString(n.ConfigJSON),
			s.timestamp(),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return s.GetEntry(ctx, id)
}

// UpdateEntry replaces the config payload of an entry. A missing entry
// yields a nil row and no error.
func (s *Store) UpdateEntry(ctx context.Context, id, configJSON string) (*record.ArtifactEntry, error) {
	if configJSON != "" {
		if err := record.ValidateConfig([]byte(configJSON)); err != nil {
			return nil, fmt.Errorf("update entry: %w", err)
		}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE artifact_entries SET config_json = ? WHERE id = ?`, nullString(configJSON), id)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return s.GetEntry(ctx, id)
}

// DeleteEntry removes an entry. Reports whether an entry was deleted.
func (s *Store) DeleteEntry(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifact_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return n > 0, nil
}

// Reorder sets sequence_order of each listed entry to its index and returns
// the case's entries in the new order. The update is atomic: an id that does
// not belong to the case rolls the whole reorder back.
func (s *Store) Reorder(ctx context.Context, caseID string, orderedIDs []string) ([]record.ArtifactEntry, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE artifact_entries SET sequence_order = ?
			WHERE id = ? AND case_id = ?
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, id := range orderedIDs {
			res, err := stmt.ExecContext(ctx, i, id, caseID)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("entry %s: %w in case %s", id, ErrNotFound, caseID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reorder entries: %w", err)
	}
	return s.ListEntries(ctx, caseID)
}

func scanEntry(sc scanner) (record.ArtifactEntry, error) {
	var (
		e       record.ArtifactEntry
		rowType string
		fileID  sql.NullString
		config  sql.NullString
		label   sql.NullString
	)
	err := sc.Scan(&e.ID, &e.CaseID, &e.SequenceOrder, &rowType, &fileID, &config, &label, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan entry: %w", err)
	}
	e.RowType = record.RowType(rowType)
	e.FileID = fileID.String
	e.ConfigJSON = config.String
	e.LabelOverride = label.String
	return e, nil
}
