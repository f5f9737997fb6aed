package pending

import "sync"

// State of a pending-balance window.
type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "PENDING"
	}
	return "IDLE"
}

// Window tracks the block height of the latest send whose change is not yet
// confirmed. It clears on the first observed height strictly above it.
type Window struct {
	mu    sync.Mutex
	state State
	since int64
}

// Begin enters Pending at height. While already pending the recorded height
// only moves forward.
func (w *Window) Begin(height int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Pending && height <= w.since {
		return
	}
	w.state = Pending
	w.since = height
}

// Observe feeds a block height and reports whether it cleared the window.
// Skipped heights still clear, and a window clears only once.
func (w *Window) Observe(height int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Pending || height <= w.since {
		return false
	}
	w.state = Idle
	return true
}

// State returns the current state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Since returns the height recorded by the last Begin.
func (w *Window) Since() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.since
}
