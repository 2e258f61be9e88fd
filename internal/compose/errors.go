package compose

import (
	"errors"
	"fmt"
)

// Error is returned by composition operations.
//
// Codes:
//   - PERSISTENCE_REJECTED: the persistence adapter failed or returned nothing.
//     Recoverable; a reorder is rolled back, other mutations keep their local copy.
//   - INVARIANT_VIOLATION: a calculator produced a non-contiguous or negative
//     range. This is a programming error.
//   - CONCURRENT_REORDER_REJECTED: a reorder was requested while another was
//     in flight.
//
// The remaining codes describe bad input from the caller.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntryID identifies the affected entry, when there is one.
	EntryID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes composition errors.
type ErrorCode string

const (
	ErrCodePersistenceRejected ErrorCode = "PERSISTENCE_REJECTED"
	ErrCodeInvariantViolation  ErrorCode = "INVARIANT_VIOLATION"
	ErrCodeConcurrentReorder   ErrorCode = "CONCURRENT_REORDER_REJECTED"
	ErrCodeDuplicateIntent     ErrorCode = "DUPLICATE_INTENT"
	ErrCodeNoUndo              ErrorCode = "NO_UNDO_AVAILABLE"
	ErrCodeUndoExpired         ErrorCode = "UNDO_WINDOW_EXPIRED"
	ErrCodeEntryNotFound       ErrorCode = "ENTRY_NOT_FOUND"
	ErrCodeIndexOutOfRange     ErrorCode = "INDEX_OUT_OF_RANGE"
	ErrCodeUnknownField        ErrorCode = "UNKNOWN_FIELD"
	ErrCodeInvalidValue        ErrorCode = "INVALID_VALUE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntryID != "" {
		msg = fmt.Sprintf("%s (entry=%s)", msg, e.EntryID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsPersistenceRejected reports whether err is a persistence rejection.
func IsPersistenceRejected(err error) bool {
	return CodeOf(err) == ErrCodePersistenceRejected
}

// IsConcurrentReorder reports whether err rejected an overlapping reorder.
func IsConcurrentReorder(err error) bool {
	return CodeOf(err) == ErrCodeConcurrentReorder
}

// IsInvariantViolation reports whether err is an invariant violation.
func IsInvariantViolation(err error) bool {
	return CodeOf(err) == ErrCodeInvariantViolation
}

// NewPersistenceRejected wraps an adapter failure. cause may be nil when the
// adapter signalled failure with an empty result.
func NewPersistenceRejected(op, entryID string, cause error) *Error {
	msg := fmt.Sprintf("%s was not persisted", op)
	if cause == nil {
		msg = fmt.Sprintf("%s returned no result", op)
	}
	return &Error{
		Code:    ErrCodePersistenceRejected,
		Message: msg,
		EntryID: entryID,
		Err:     cause,
	}
}

// NewIndexError reports an index outside [0, n).
func NewIndexError(name string, index, n int) *Error {
	return &Error{
		Code:    ErrCodeIndexOutOfRange,
		Message: fmt.Sprintf("%s index %d out of range [0,%d)", name, index, n),
	}
}

// NewNotFound reports an unknown entry id.
func NewNotFound(id string) *Error {
	return &Error{
		Code:    ErrCodeEntryNotFound,
		Message: "no entry with this id",
		EntryID: id,
	}
}
