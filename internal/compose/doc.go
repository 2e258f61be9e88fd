// Package compose implements the ordered-entry model of a bundle or affidavit
// and the pure calculators that derive its pagination and numbering.
//
// A composition is an ordered []Entry. Every entry is one of four closed
// variants: Document, SectionBreak, CoverPage or Divider. Page ranges are
// derived, never authored; they are recomputed by Recalculate after any
// change that affects position.
//
// INVARIANTS (hold after every recalculation):
//
//   - The first entry starts on page 1.
//   - entries[i+1].Pages().Start == entries[i].Pages().End + 1.
//   - A SectionBreak spans exactly one page; every other entry keeps its own
//     page count. Recalculation moves ranges, it never resizes them.
//   - IDs are unique and never reassigned by a calculator.
//   - TotalPages(entries) == entries[len-1].Pages().End, 0 when empty.
//
// Numbering uses two independent counters: section breaks are lettered
// (A., B., ... Z., AA.) and every other row is numbered (1., 2., ...).
// Inserting a section break never changes document numbers and vice versa.
//
// All functions in this package return new slices and never mutate their
// input, so a caller may hold an earlier slice as an undo snapshot.
package compose
