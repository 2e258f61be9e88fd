package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/casebundle/internal/record"
)

// ErrNotFound is returned by Get* lookups of a missing row.
var ErrNotFound = errors.New("not found")

// CreateCase inserts a new case.
func (s *Store) CreateCase(ctx context.Context, name string, caseType record.CaseType) (*record.Case, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("create case: name is required")
	}
	if _, err := record.ParseCaseType(string(caseType)); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}

	c := record.Case{
		ID:        s.newID(),
		Name:      name,
		CaseType:  caseType,
		CreatedAt: s.timestamp(),
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, name, case_type, content_json, created_at, updated_at)
		VALUES (?, ?, ?, NULL, ?, ?)
	`, c.ID, c.Name, string(c.CaseType), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	return &c, nil
}

// ListCases returns every case, oldest first.
//
// Returns an empty slice (not nil) if there are no cases.
func (s *Store) ListCases(ctx context.Context) ([]record.Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, case_type, content_json, created_at, updated_at
		FROM cases
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	cases := []record.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

// GetCase returns one case, or ErrNotFound.
func (s *Store) GetCase(ctx context.Context, id string) (*record.Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, case_type, content_json, created_at, updated_at
		FROM cases WHERE id = ?
	`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCase removes a case together with its files and entries. Reports
// whether a case was deleted.
func (s *Store) DeleteCase(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete case: %w", err)
	}
	return n > 0, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCase(sc scanner) (record.Case, error) {
	var (
		c       record.Case
		ct      string
		content sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.Name, &ct, &content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan case: %w", err)
	}
	c.CaseType = record.CaseType(ct)
	c.ContentJSON = content.String
	return c, nil
}
