package reorder

import (
	"fmt"
	"time"

	"github.com/roach88/casebundle/internal/compose"
)

// State is a phase of the reorder saga.
type State int

const (
	// Idle means no reorder is in flight and no undo is offered.
	Idle State = iota
	// Reordering means a persistence call is outstanding.
	Reordering
	// Committed means the last reorder persisted and can still be undone.
	Committed
	// RolledBack is the terminal state of a failed reorder. It is reported in
	// a Result; the orchestrator itself moves straight on to Idle.
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reordering:
		return "reordering"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is delivered once per Reorder or Undo call when the persistence
// call settles.
type Result struct {
	// State is Committed or RolledBack.
	State State

	// Undo is true when the result belongs to an Undo call.
	Undo bool

	// Entries is the list that was published when the call settled.
	Entries []compose.Entry

	// Err is the persistence failure, nil on success.
	Err error
}

// undoWindow holds the snapshot a committed reorder may be reverted to.
type undoWindow struct {
	previous  []compose.Entry
	expiresAt time.Time
}

// Clock supplies the current time for the undo window.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
