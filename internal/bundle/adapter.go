package bundle

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/casebundle/internal/record"
)

// Adapter persists artifact entries. Every method signals failure either by
// an error or by an empty result (nil slice, nil row, false); the
// composition treats both the same way.
type Adapter interface {
	// Reorder rewrites sequence_order of the given entries to their index in
	// orderedIDs and returns the case's entries in the new order.
	Reorder(ctx context.Context, caseID string, orderedIDs []string) ([]record.ArtifactEntry, error)

	// CreateEntry inserts a new artifact entry.
	CreateEntry(ctx context.Context, n record.NewEntry) (*record.ArtifactEntry, error)

	// UpdateEntry replaces the config payload of an entry.
	UpdateEntry(ctx context.Context, id, configJSON string) (*record.ArtifactEntry, error)

	// DeleteEntry removes an entry.
	DeleteEntry(ctx context.Context, id string) (bool, error)
}

// Loader reads the persisted state of a case.
type Loader interface {
	ListEntries(ctx context.Context, caseID string) ([]record.ArtifactEntry, error)
	ListFiles(ctx context.Context, caseID string) ([]record.File, error)
}

// IDGenerator produces entry identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 entry ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator("e1", "e2")
//	gen.Generate() // "e1"
//	gen.Generate() // "e2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Push appends ids to the queue.
func (g *FixedGenerator) Push(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ids = append(g.ids, ids...)
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, so that a test creating more
// entries than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
