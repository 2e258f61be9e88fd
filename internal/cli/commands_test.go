package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/casebundle/internal/compose"
	"github.com/roach88/casebundle/internal/record"
	"github.com/roach88/casebundle/internal/testutil"
)

// cliRunner runs the command line against a database in a temp dir.
type cliRunner struct {
	t  *testing.T
	db string
}

func newRunner(t *testing.T) *cliRunner {
	t.Helper()
	return &cliRunner{t: t, db: filepath.Join(t.TempDir(), "bundle.db")}
}

func (r *cliRunner) run(args ...string) (code int, stdout, stderr string) {
	r.t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--db", r.db}, args...)
	code = Execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// json runs args with --format json and decodes the data payload into v.
func (r *cliRunner) json(v any, args ...string) {
	r.t.Helper()
	code, out, stderr := r.run(append([]string{"--format", "json"}, args...)...)
	require.Equal(r.t, ExitSuccess, code, "stdout=%s stderr=%s", out, stderr)

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(r.t, json.Unmarshal([]byte(out), &resp))
	require.Equal(r.t, "ok", resp.Status)
	if v != nil {
		require.NoError(r.t, json.Unmarshal(resp.Data, v))
	}
}

func (r *cliRunner) createCase(name string, caseType record.CaseType) string {
	r.t.Helper()
	var c record.Case
	r.json(&c, "case", "create", name, "--type", string(caseType))
	require.NotEmpty(r.t, c.ID)
	return c.ID
}

func TestCaseCommands(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Smith v Jones", record.CaseBundle)

	var cases []record.Case
	r.json(&cases, "case", "list")
	require.Len(t, cases, 1)
	assert.Equal(t, "Smith v Jones", cases[0].Name)
	assert.Equal(t, record.CaseBundle, cases[0].CaseType)

	code, out, _ := r.run("case", "list")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, id)

	code, _, _ = r.run("case", "delete", id)
	assert.Equal(t, ExitSuccess, code)

	code, _, stderr := r.run("case", "delete", id)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "case not found")
}

func TestCaseCreate_InvalidType(t *testing.T) {
	r := newRunner(t)
	code, _, stderr := r.run("case", "create", "x", "--type", "memo")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid --type")
}

func TestEntryCommands_BuildAndMove(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)

	var entries []EntryView
	r.json(&entries, "entry", "add-cover", id, "--pages", "2", "--description", "Index")
	r.json(&entries, "entry", "add-section", id)
	r.json(&entries, "entry", "add-divider", id, "--pages", "3")
	require.Len(t, entries, 3)
	assert.Equal(t, "TAB A", entries[1].Description)
	assert.Equal(t, compose.PageRange{Start: 1, End: 2}, entries[0].Pages)
	assert.Equal(t, compose.PageRange{Start: 3, End: 3}, entries[1].Pages)
	assert.Equal(t, compose.PageRange{Start: 4, End: 6}, entries[2].Pages)

	ids := []string{entries[0].ID, entries[1].ID, entries[2].ID}

	r.json(&entries, "entry", "mv", id, "2", "0")
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, viewIDs(entries))
	assert.Equal(t, compose.PageRange{Start: 1, End: 3}, entries[0].Pages)

	// The new order survives a reload.
	r.json(&entries, "entry", "list", id)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, viewIDs(entries))
	assert.Equal(t, compose.PageRange{Start: 6, End: 6}, entries[2].Pages)

	r.json(&entries, "entry", "edit", id, ids[0], "page_count", "4")
	assert.Equal(t, compose.PageRange{Start: 4, End: 7}, entries[1].Pages)

	r.json(&entries, "entry", "rm", id, ids[1])
	assert.Equal(t, []string{ids[2], ids[0]}, viewIDs(entries))
	assert.Equal(t, compose.PageRange{Start: 4, End: 7}, entries[1].Pages)
}

func TestEntryMove_OutOfRange(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)
	r.json(nil, "entry", "add-section", id)

	code, out, _ := r.run("--format", "json", "entry", "mv", id, "0", "5")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, string(compose.ErrCodeIndexOutOfRange))
}

func TestEntryEdit_UnknownField(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)

	code, _, stderr := r.run("entry", "edit", id, "e1", "colour", "red")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid field")
}

func TestEntryList_UnknownCase(t *testing.T) {
	r := newRunner(t)
	code, _, stderr := r.run("entry", "list", "nope")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "case not found: nope")
}

func TestEntryList_Text(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)
	r.json(nil, "entry", "add-section", id, "--label", "PLEADINGS")

	code, out, _ := r.run("entry", "list", id)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "PLEADINGS")
	assert.Contains(t, out, "1 pages")
}

func TestFileAddAndOutline(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)
	dir := t.TempDir()
	lease := testutil.WritePDF(t, dir, "lease.pdf", 4)
	invoice := testutil.WritePDF(t, dir, "invoice.pdf", 2)

	var files []record.File
	r.json(&files, "file", "add", id, lease, invoice)
	require.Len(t, files, 2)
	assert.Equal(t, "lease.pdf", files[0].OriginalName)
	assert.Equal(t, 4, files[0].PageCount)
	assert.Equal(t, 2, files[1].PageCount)

	for _, f := range files {
		r.json(nil, "entry", "add-doc", id, f.ID)
	}

	var view OutlineView
	r.json(&view, "outline", id, "--toc-pages", "1")
	require.Len(t, view.Rows, 2)
	assert.Equal(t, compose.PageRange{Start: 2, End: 5}, view.Rows[0].Pages)
	assert.Equal(t, 4, view.Rows[0].PageCount)
	assert.Equal(t, compose.PageRange{Start: 6, End: 7}, view.Rows[1].Pages)
	assert.True(t, view.Validation.Valid)
}

func TestOutlineCommand(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)
	r.json(nil, "entry", "add-section", id)
	r.json(nil, "entry", "add-cover", id, "--pages", "2")

	var view OutlineView
	r.json(&view, "outline", id, "--toc-pages", "2")
	assert.Equal(t, 2, view.TOCPages)
	assert.Equal(t, 5, view.TotalPages)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, compose.PageRange{Start: 3, End: 3}, view.Rows[0].Pages)
	assert.Equal(t, compose.PageRange{Start: 4, End: 5}, view.Rows[1].Pages)
	assert.True(t, view.Validation.Valid)

	code, out, _ := r.run("outline", id)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Contents (1 pages)")
}

func TestOutlineCommand_LateInserts(t *testing.T) {
	r := newRunner(t)
	id := r.createCase("Trial bundle", record.CaseBundle)
	for _, d := range []string{"Index", "Chronology", "Late", "Schedule"} {
		r.json(nil, "entry", "add-cover", id, "--description", d)
	}

	var view OutlineView
	r.json(&view, "outline", id, "--toc-pages", "1", "--insert-after", "1", "--insert-count", "1")
	require.Len(t, view.Rows, 4)
	assert.Equal(t, "2A.", view.Rows[2].Label)
	assert.Equal(t, "3.", view.Rows[3].Label)
	assert.True(t, view.Validation.Valid)

	code, _, _ := r.run("outline", id, "--insert-after", "3", "--insert-count", "1")
	assert.Equal(t, ExitFailure, code)
}

func TestScenarioCommand(t *testing.T) {
	r := newRunner(t)
	code, out, stderr := r.run("scenario", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.Equal(t, ExitSuccess, code, "stdout=%s stderr=%s", out, stderr)
	assert.Contains(t, out, "✓ reorder_commit_and_undo")
	assert.Contains(t, out, "All scenarios passed")
}

func TestScenarioCommand_FilterAndJSON(t *testing.T) {
	r := newRunner(t)
	var result TestResult
	r.json(&result, "scenario", filepath.Join("..", "harness", "testdata", "scenarios"), "--filter", "reorder_*")
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
}

func TestScenarioCommand_UpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "one.yaml"), []byte(`name: one
description: a section and a cover
steps:
  - op: add_section
  - op: add_cover
    pages: 2
assertions:
  - type: total_pages
    count: 3
`), 0o644))

	r := newRunner(t)
	code, _, _ := r.run("scenario", scenarios, "--update")
	require.Equal(t, ExitSuccess, code)

	golden := filepath.Join(dir, "golden", "one.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "scenario: one\n"))

	code, _, _ = r.run("scenario", scenarios)
	assert.Equal(t, ExitSuccess, code)

	require.NoError(t, os.WriteFile(golden, []byte("scenario: stale\n"), 0o644))
	code, out, _ := r.run("scenario", scenarios)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "does not match golden file")
}

func TestScenarioCommand_MissingDir(t *testing.T) {
	r := newRunner(t)
	code, _, stderr := r.run("scenario", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}

func viewIDs(views []EntryView) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}
