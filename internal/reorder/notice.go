package reorder

import (
	"log/slog"
	"time"
)

// NoticeKind classifies a user-facing notification.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota + 1
	NoticeFailure
	NoticeWarning
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeFailure:
		return "failure"
	case NoticeWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Notice is surfaced to the UI after a persistence call settles.
type Notice struct {
	Kind        NoticeKind
	Message     string
	ContainerID string

	// UndoUntil is set on the success notice of a reorder; an Undo action
	// may be offered until then.
	UndoUntil time.Time

	Err error
}

// CanUndo reports whether the notice carries an Undo action.
func (n Notice) CanUndo() bool {
	return !n.UndoUntil.IsZero()
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"container", n.ContainerID, "kind", n.Kind.String()}
	if n.CanUndo() {
		attrs = append(attrs, "undo_until", n.UndoUntil.Format(time.RFC3339))
	}
	switch n.Kind {
	case NoticeFailure:
		logger.Error(n.Message, append(attrs, "error", n.Err)...)
	case NoticeWarning:
		logger.Warn(n.Message, append(attrs, "error", n.Err)...)
	default:
		logger.Info(n.Message, attrs...)
	}
}
