package status

import (
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/vchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, LoggedOut},
		{Booting, Error},
		{LoggedOut, Connecting},
		{Connecting, Ready},
		{Connecting, LoggedOut},
		{Ready, Degraded},
		{Ready, LoggedOut},
		{Degraded, Ready},
		{Degraded, LoggedOut},
		{Error, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Transition(BOOTING -> READY) error = %v, want ErrInvalidTransition", err)
	}
}

// TestLoggedOutCannotSkipConnecting verifies a login always passes through
// CONNECTING, where the daemon credentials are checked.
func TestLoggedOutCannotSkipConnecting(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, LoggedOut)

	if err := m.Transition(Ready); err == nil {
		t.Fatal("Transition(LOGGED_OUT -> READY) should fail")
	}
	if m.Current() != LoggedOut {
		t.Errorf("state = %s, want LOGGED_OUT (should not have changed)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(LoggedOut); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.SessionStatusChanged {
		t.Errorf("event kind = %q, want session.status_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != LoggedOut {
		t.Errorf("change = %v -> %v, want BOOTING -> LOGGED_OUT", change.From, change.To)
	}
}

func TestTransitionIf(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	if m.TransitionIf(Degraded, Ready) {
		t.Error("TransitionIf(DEGRADED -> READY) applied while READY")
	}
	if !m.TransitionIf(Ready, Degraded) {
		t.Fatal("TransitionIf(READY -> DEGRADED) not applied")
	}
	if m.Current() != Degraded {
		t.Errorf("state = %s, want DEGRADED", m.Current())
	}

	// A logout that raced the loop wins.
	_ = m.Transition(LoggedOut)
	if m.TransitionIf(Degraded, Ready) {
		t.Error("late recovery overrode LOGGED_OUT")
	}
}

// TestLoginDegradeRecoverLogout walks a full session:
// BOOTING → LOGGED_OUT → CONNECTING → READY → DEGRADED → READY → LOGGED_OUT
func TestLoginDegradeRecoverLogout(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{LoggedOut, Connecting, Ready, Degraded, Ready, LoggedOut}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != LoggedOut {
		t.Errorf("final state = %s, want LOGGED_OUT", m.Current())
	}
}

func TestSinceAdvancesOnTransition(t *testing.T) {
	m := NewMachine(nil)
	booted := m.Since()
	time.Sleep(2 * time.Millisecond)

	if err := m.Transition(LoggedOut); err != nil {
		t.Fatal(err)
	}
	if !m.Since().After(booted) {
		t.Errorf("Since() = %v, want after %v", m.Since(), booted)
	}

	entered := m.Since()
	_ = m.Transition(Ready)
	if !m.Since().Equal(entered) {
		t.Error("rejected transition moved Since()")
	}
}

func TestLoggedIn(t *testing.T) {
	for s, want := range map[State]bool{
		Booting: false, LoggedOut: false, Error: false,
		Connecting: true, Ready: true, Degraded: true,
	} {
		if got := s.LoggedIn(); got != want {
			t.Errorf("%s.LoggedIn() = %v, want %v", s, got, want)
		}
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:    {},
		LoggedOut:  {LoggedOut},
		Connecting: {LoggedOut, Connecting},
		Ready:      {LoggedOut, Connecting, Ready},
		Degraded:   {LoggedOut, Connecting, Ready, Degraded},
		Error:      {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
