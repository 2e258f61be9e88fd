// Package bundle owns the authoritative entry list of one case.
//
// A Composition applies every mutation locally first: it runs the pure
// calculators of package compose, publishes the new list to subscribers and
// only then calls the persistence Adapter. The two failure policies differ
// by operation:
//
//   - Reorder and undo go through a reorder.Orchestrator, which restores the
//     previous list when the adapter rejects the call.
//   - Insert, delete and field edits keep the local result and report the
//     rejection as a warning notice plus a PERSISTENCE_REJECTED error.
//
// Inserts, deletes and edits are refused while a reorder is in flight and
// close the undo window of a committed one, so neither a rollback nor an
// undo can discard them.
//
// Callers only ever receive copies of the list. Entries are value types, so a
// copy can be kept as a snapshot without further cloning.
package bundle
