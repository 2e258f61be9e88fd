package compose

import (
	"fmt"
	"slices"
)

// size returns the number of pages an entry contributes.
// Section breaks always occupy exactly one page.
func size(e Entry) int {
	if e.Kind() == KindSectionBreak {
		return 1
	}
	return e.Pages().Count()
}

// Recalculate folds entries left to right and assigns contiguous page ranges
// starting at page 1. Order is preserved, no entry is added or removed, and
// each entry keeps its current page count; only its position changes.
//
// The input slice is never modified.
func Recalculate(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	cursor := 0
	for i, e := range entries {
		start := 1
		if cursor != 0 {
			start = cursor + 1
		}
		end := start + size(e) - 1
		out[i] = WithPages(e, PageRange{Start: start, End: end})
		cursor = end
	}
	return out
}

// Move returns a copy of entries with the element at from removed and
// reinserted at to. Both indices refer to positions in the input.
func Move(entries []Entry, from, to int) ([]Entry, error) {
	n := len(entries)
	if from < 0 || from >= n {
		return nil, NewIndexError("from", from, n)
	}
	if to < 0 || to >= n {
		return nil, NewIndexError("to", to, n)
	}

	out := slices.Clone(entries)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	return out, nil
}

// Insert returns a copy of entries with e placed at index at. An index
// below zero or past the end appends.
func Insert(entries []Entry, at int, e Entry) []Entry {
	if at < 0 || at > len(entries) {
		at = len(entries)
	}
	return slices.Insert(slices.Clone(entries), at, e)
}

// Remove returns a copy of entries without the element at index i.
func Remove(entries []Entry, i int) []Entry {
	return slices.Delete(slices.Clone(entries), i, i+1)
}

// Replace returns a copy of entries with the element at index i swapped for e.
func Replace(entries []Entry, i int, e Entry) []Entry {
	out := slices.Clone(entries)
	out[i] = e
	return out
}

// TotalPages returns the last page of the composition, 0 when empty.
func TotalPages(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].Pages().End
}

// CheckContiguous verifies the pagination invariants of a recalculated list.
// It returns an INVARIANT_VIOLATION error describing the first problem found.
func CheckContiguous(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		r := e.Pages()
		if seen[e.EntryID()] {
			return violation(e, "duplicate id at index %d", i)
		}
		seen[e.EntryID()] = true

		if r.End < r.Start-1 {
			return violation(e, "negative size range %s at index %d", r, i)
		}
		if e.Kind() == KindSectionBreak && r.Count() != 1 {
			return violation(e, "section break spans %d pages at index %d", r.Count(), i)
		}
		if i == 0 {
			if r.Start != 1 {
				return violation(e, "first entry starts on page %d", r.Start)
			}
			continue
		}
		prev := entries[i-1].Pages()
		if r.Start != prev.End+1 {
			return violation(e, "entry at index %d starts on page %d, want %d", i, r.Start, prev.End+1)
		}
	}
	return nil
}

// MustContiguous runs CheckContiguous and panics on failure when the
// package is built with the debug tag. Without the tag it returns the error
// so that callers can log it and keep their previous list.
func MustContiguous(entries []Entry) error {
	err := CheckContiguous(entries)
	if err != nil && assertInvariants {
		panic(err)
	}
	return err
}

func violation(e Entry, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvariantViolation,
		Message: fmt.Sprintf(format, args...),
		EntryID: e.EntryID(),
	}
}
