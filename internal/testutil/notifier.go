package testutil

import (
	"slices"
	"sync"

	"github.com/roach88/casebundle/internal/reorder"
)

// RecordingNotifier keeps every notice it receives.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []reorder.Notice
}

// Notify implements reorder.Notifier.
func (r *RecordingNotifier) Notify(n reorder.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the received notices in arrival order.
func (r *RecordingNotifier) Notices() []reorder.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notices)
}

// Last returns the most recent notice.
func (r *RecordingNotifier) Last() (reorder.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return reorder.Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Kinds returns the kind of every notice, as strings.
func (r *RecordingNotifier) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Kind.String()
	}
	return out
}

// Reset drops the recorded notices.
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
