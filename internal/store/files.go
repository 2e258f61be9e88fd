package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/roach88/casebundle/internal/record"
)

// FileUpdate carries the mutable fields of a file. Nil fields are left
// unchanged.
type FileUpdate struct {
	PageCount    *int
	MetadataJSON *string
}

// CreateFile registers a file with a case. OriginalName defaults to the
// base name of Path.
func (s *Store) CreateFile(ctx context.Context, nf record.NewFile) (*record.File, error) {
	if nf.CaseID == "" || nf.Path == "" {
		return nil, fmt.Errorf("create file: case_id and path are required")
	}
	if nf.PageCount < 0 {
		return nil, fmt.Errorf("create file: negative page count %d", nf.PageCount)
	}
	f := record.File{
		ID:           s.newID(),
		CaseID:       nf.CaseID,
		Path:         nf.Path,
		OriginalName: nf.OriginalName,
		PageCount:    nf.PageCount,
		MetadataJSON: nf.MetadataJSON,
		CreatedAt:    s.timestamp(),
	}
	if f.OriginalName == "" {
		f.OriginalName = filepath.Base(f.Path)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, case_id, path, original_name, page_count, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		f.ID,
		f.CaseID,
		f.Path,
		f.OriginalName,
		sql.NullInt64{Int64: int64(f.PageCount), Valid: f.PageCount > 0},
		nullString(f.MetadataJSON),
		f.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return &f, nil
}

// ListFiles returns the files of a case in registration order.
//
// Returns an empty slice (not nil) if the case has no files.
func (s *Store) ListFiles(ctx context.Context, caseID string) ([]record.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, path, original_name, page_count, metadata_json, created_at
		FROM files
		WHERE case_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := []record.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// GetFile returns one file, or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id string) (*record.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, path, original_name, page_count, metadata_json, created_at
		FROM files WHERE id = ?
	`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFile changes the page count or metadata of a file.
func (s *Store) UpdateFile(ctx context.Context, id string, u FileUpdate) (*record.File, error) {
	if u.PageCount != nil && *u.PageCount < 0 {
		return nil, fmt.Errorf("update file: negative page count %d", *u.PageCount)
	}
	var (
		pages sql.NullInt64
		meta  sql.NullString
	)
	if u.PageCount != nil {
		pages = sql.NullInt64{Int64: int64(*u.PageCount), Valid: true}
	}
	if u.MetadataJSON != nil {
		meta = sql.NullString{String: *u.MetadataJSON, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET
			page_count = COALESCE(?, page_count),
			metadata_json = COALESCE(?, metadata_json)
		WHERE id = ?
	`, pages, meta, id)
	if err != nil {
		return nil, fmt.Errorf("update file: %w", err)
	}
	return s.GetFile(ctx, id)
}

// DeleteFile removes a file and every entry that references it.
func (s *Store) DeleteFile(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete file: %w", err)
	}
	return n > 0, nil
}

func scanFile(sc scanner) (record.File, error) {
	var (
		f     record.File
		pages sql.NullInt64
		meta  sql.NullString
	)
	if err := sc.Scan(&f.ID, &f.CaseID, &f.Path, &f.OriginalName, &pages, &meta, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, err
		}
		return f, fmt.Errorf("scan file: %w", err)
	}
	f.PageCount = int(pages.Int64)
	f.MetadataJSON = meta.String
	return f, nil
}
