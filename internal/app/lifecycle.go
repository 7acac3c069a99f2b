package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

// State represents the lifecycle state of a transport.
type State int

const (
	// StateOpen accepts pushes.
	StateOpen State = iota
	// StateDraining rejects pushes while the final flush is in flight.
	StateDraining
	// StateClosed means the final flush completed and the socket is released.
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateDraining:
		return "Draining"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StateObserver is called when the lifecycle state changes. It is never
// called while the transport holds its lock, so it may call back into it.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle is the Open -> Draining -> Closed state machine of a transport.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	logger   ports.Logger
	observer StateObserver
}

// NewLifecycle creates a lifecycle in StateOpen.
func NewLifecycle(logger ports.Logger, observer StateObserver) *Lifecycle {
	return &Lifecycle{
		state:    StateOpen,
		logger:   logger,
		observer: observer,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState and notifies the observer before returning.
// Only Open -> Draining and Draining -> Closed are allowed; anything else
// returns domain.ErrInvalidTransition and leaves the state unchanged.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	notify, err := l.Transition(newState, reason)
	if err != nil {
		return err
	}
	notify()
	return nil
}

// Transition moves to newState like TransitionTo but leaves the observer
// call and the log line to the returned notify func. Callers holding their
// own locks call notify once they have released them.
func (l *Lifecycle) Transition(newState State, reason string) (notify func(), err error) {
	l.mu.Lock()
	oldState := l.state

	valid := (oldState == StateOpen && newState == StateDraining) ||
		(oldState == StateDraining && newState == StateClosed)
	if !valid {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, oldState, newState)
	}

	l.state = newState
	l.mu.Unlock()

	return func() {
		if l.observer != nil {
			l.observer.OnStateChange(oldState, newState, reason)
		}
		l.logger.Debug("state transition",
			ports.Stringer("from", oldState),
			ports.Stringer("to", newState),
			ports.String("reason", reason),
		)
	}, nil
}

// Accepting reports whether pushes are still allowed.
func (l *Lifecycle) Accepting() bool {
	return l.State() == StateOpen
}
