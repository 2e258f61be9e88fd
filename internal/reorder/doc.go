// Package reorder implements the optimistic reorder saga of a composition.
//
// STATE MACHINE:
//
//	Idle ──Reorder──▶ Reordering ──adapter ok──▶ Committed ──window closes──▶ Idle
//	                      │                         │
//	                      └──adapter empty/err──▶ RolledBack ─▶ Idle
//	                                                │
//	                         Committed ──Undo──▶ Reordering ──▶ Idle
//
// Reorder snapshots the current list, applies the move, recalculates page
// ranges and publishes the result before the persistence call is issued.
// When the call resolves empty or fails, the snapshot is published again
// unchanged. When it succeeds, the snapshot is kept for an undo window.
//
// At most one reorder is in flight per composition. A second intent that
// arrives while Reordering is rejected synchronously with
// CONCURRENT_REORDER_REJECTED; the orchestrator never queues.
//
// Inserts, deletes and field edits go through Exclusive: they are rejected
// while a reorder is in flight, and a change closes the undo window, so
// neither a rollback nor an undo can publish a snapshot that predates them.
//
// The undo window is a soft affordance. After it closes, the same effect is
// still available by issuing the inverse move through Reorder.
//
// A failed undo is not compensated: the failure is surfaced and the
// optimistic list stays as it is.
package reorder
