// Package pdfmeta reads the page count and file facts of PDF documents.
package pdfmeta

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/casebundle/internal/record"
)

// DefaultLimit bounds concurrent inspections in InspectAll.
const DefaultLimit = 4

// Metadata describes one PDF on disk.
type Metadata struct {
	Path      string
	Name      string
	PageCount int
	Size      int64
	Modified  time.Time
}

// JSON encodes the file facts stored in files.metadata_json.
func (m Metadata) JSON() (string, error) {
	b, err := record.MarshalCanonical(map[string]any{
		"file_size": m.Size,
		"modified":  m.Modified.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NewFile returns the registration request for m under caseID.
func (m Metadata) NewFile(caseID string) (record.NewFile, error) {
	meta, err := m.JSON()
	if err != nil {
		return record.NewFile{}, err
	}
	return record.NewFile{
		CaseID:       caseID,
		Path:         m.Path,
		OriginalName: m.Name,
		PageCount:    m.PageCount,
		MetadataJSON: meta,
	}, nil
}

// Provider reads PDF metadata with pdfcpu.
type Provider struct {
	// Limit defaults to DefaultLimit.
	Limit int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (p Provider) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// PageCount returns the number of pages of the PDF at path.
func (p Provider) PageCount(ctx context.Context, path string) (int, error) {
	m, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	return m.PageCount, nil
}

// Inspect reads the metadata of one PDF.
func (p Provider) Inspect(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Metadata{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Metadata{}, fmt.Errorf("%s is a directory", path)
	}

	n, err := api.PageCountFile(abs)
	if err != nil {
		return Metadata{}, fmt.Errorf("count pages of %s: %w", path, err)
	}
	p.logger().Debug("pdf inspected", "path", abs, "pages", n, "bytes", info.Size())

	return Metadata{
		Path:      abs,
		Name:      filepath.Base(abs),
		PageCount: n,
		Size:      info.Size(),
		Modified:  info.ModTime(),
	}, nil
}

// InspectAll inspects paths concurrently and returns their metadata in
// input order. The first failure cancels the remaining inspections.
func (p Provider) InspectAll(ctx context.Context, paths []string) ([]Metadata, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]Metadata, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			m, err := p.Inspect(gctx, path)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
