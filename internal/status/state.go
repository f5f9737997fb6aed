// Package status holds the daemon's session state machine.
package status

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/vchat/internal/bus"
)

// State is a daemon session state.
type State string

const (
	Booting    State = "BOOTING"
	LoggedOut  State = "LOGGED_OUT"
	Connecting State = "CONNECTING"
	Ready      State = "READY"
	Degraded   State = "DEGRADED"
	Error      State = "ERROR"
)

// ErrInvalidTransition is wrapped by Transition for moves the graph forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

var edges = map[State][]State{
	Booting:    {LoggedOut, Error},
	LoggedOut:  {Connecting, Error},
	Connecting: {Ready, LoggedOut, Error},
	Ready:      {Degraded, LoggedOut, Error},
	Degraded:   {Ready, LoggedOut, Error},
	Error:      {Booting},
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to State) bool {
	return slices.Contains(edges[from], to)
}

// LoggedIn reports whether s belongs to an active session.
func (s State) LoggedIn() bool {
	return s == Connecting || s == Ready || s == Degraded
}

// StatusChange is the payload of bus.SessionStatusChanged.
type StatusChange struct {
	From State
	To   State
}

// Machine holds the current state and publishes every change on the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine returns a machine in BOOTING. b may be nil.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Booting, since: time.Now(), bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition moves to the given state or returns ErrInvalidTransition.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.current, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, to)
	}
	m.set(to)
	return nil
}

// TransitionIf moves from -> to only while the machine is in from, and
// reports whether it did.
func (m *Machine) TransitionIf(from, to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != from || !CanTransition(from, to) {
		return false
	}
	m.set(to)
	return true
}

// set must be called with mu held.
func (m *Machine) set(to State) {
	change := StatusChange{From: m.current, To: to}
	m.current = to
	m.since = time.Now()
	m.bus.Emit(bus.SessionStatusChanged, change)
}
