// Package store provides SQLite-backed persistence for cases, files and
// artifact entries.
//
// Store implements the persistence adapter of a composition: Reorder,
// CreateEntry, UpdateEntry and DeleteEntry. Lookups of a missing row return
// a nil result rather than an error, which the composition treats as a
// rejected call.
//
// # Ordering
//
// Entry lists are always read ORDER BY sequence_order ASC, created_at ASC,
// id ASC COLLATE BINARY, so that ties left by a failed renormalisation still
// read back deterministically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a case cascades to its files and entries
package store
