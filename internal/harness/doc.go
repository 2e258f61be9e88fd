// Package harness runs composition scenarios written in YAML.
//
// A scenario registers files, then drives a bundle.Composition through a
// list of steps: inserts, moves, undo, edits and deletes. The composition is
// backed by a fresh in-memory store wrapped in a testutil.FaultyAdapter, so a
// step can script a persistence failure or hold a call in flight. Entry ids
// come from a fixed generator ("e1", "e2", ...) and time from a manual
// clock, which makes every run reproducible.
//
// After the last step the assertions are evaluated against the published
// list, the persisted order in the store and the notices that were raised.
// Golden files under testdata/golden hold the text projection of a run.
//
// Example:
//
//	name: undo_restores_order
//	description: a committed move can be undone inside the window
//	files:
//	  - {key: lease, name: lease.pdf, pages: 5}
//	  - {key: invoice, name: invoice.pdf, pages: 3}
//	steps:
//	  - {op: add_document, file: lease}
//	  - {op: add_document, file: invoice}
//	  - {op: reorder, from: 1, to: 0}
//	  - {op: advance, duration: 4s}
//	  - {op: undo}
//	assertions:
//	  - {type: order, ids: [e1, e2]}
package harness
