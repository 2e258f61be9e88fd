package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roach88/casebundle/internal/record"
)

var testEpoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// sequentialIDs returns "<prefix>-1", "<prefix>-2", ...
func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// tickingClock advances one second per reading.
func tickingClock() func() time.Time {
	var (
		mu sync.Mutex
		t  = testEpoch
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// createTestStore creates a new temp-dir store with deterministic ids and
// timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDs(sequentialIDs("id")), WithClock(tickingClock()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCase creates a bundle case.
func createTestCase(t *testing.T, s *Store) *record.Case {
	t.Helper()
	c, err := s.CreateCase(context.Background(), "Smith v Jones", record.CaseBundle)
	if err != nil {
		t.Fatalf("CreateCase() failed: %v", err)
	}
	return c
}

// createTestSection creates a section break entry.
func createTestSection(t *testing.T, s *Store, caseID, id string, order int) *record.ArtifactEntry {
	t.Helper()
	e, err := s.CreateEntry(context.Background(), record.NewEntry{
		ID:            id,
		CaseID:        caseID,
		SequenceOrder: order,
		RowType:       record.RowComponent,
		ConfigJSON:    `{"kind":"section_break","section_label":"TAB A"}`,
	})
	if err != nil {
		t.Fatalf("CreateEntry(%s) failed: %v", id, err)
	}
	return e
}

func entryIDs(entries []record.ArtifactEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
