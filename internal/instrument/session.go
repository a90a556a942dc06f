package instrument

import (
	"fmt"
	"sync"
)

// ConnState represents the connection state of one device session.
type ConnState string

// Connection states.
const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateFaulted      ConnState = "faulted"
)

// defaultMaxFaults is the number of consecutive failed commands that
// move a session from connected to faulted.
const defaultMaxFaults = 3

// Session tracks the exclusively-owned connection to one physical
// instrument. Exactly one live Session exists per device; it is owned
// by the capability (or its adapter) and never shared.
//
// State machine:
//
//	disconnected → connecting → connected → disconnected  (explicit close)
//	connected → faulted → disconnected                    (repeated I/O faults)
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Session struct {
	mu        sync.Mutex
	state     ConnState
	faults    int
	maxFaults int
}

// NewSession creates a Session in the disconnected state.
func NewSession() *Session {
	return &Session{
		state:     StateDisconnected,
		maxFaults: defaultMaxFaults,
	}
}

// State returns the current connection state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginConnect moves the session to connecting. Only a disconnected
// session may start connecting.
func (s *Session) BeginConnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return fmt.Errorf("%w: session is %s", ErrDeviceNotReady, s.state)
	}
	s.state = StateConnecting
	return nil
}

// Connected marks the session as connected and clears the fault count.
func (s *Session) Connected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateConnected
	s.faults = 0
}

// Disconnect moves the session to disconnected from any state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	s.faults = 0
}

// CheckReady fails with ErrDeviceNotReady unless the session is
// connected. Capabilities call this before issuing any command so a
// "device not ready" condition is distinct from argument validation.
func (s *Session) CheckReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return fmt.Errorf("%w: session is %s", ErrDeviceNotReady, s.state)
	}
	return nil
}

// CommandOK records a successful command, clearing the fault count.
func (s *Session) CommandOK() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = 0
}

// CommandFailed records a failed command. After maxFaults consecutive
// failures a connected session becomes faulted. Returns the resulting
// state.
func (s *Session) CommandFailed() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.faults++
	if s.state == StateConnected && s.faults >= s.maxFaults {
		s.state = StateFaulted
	}
	return s.state
}

// Fault forces the session into the faulted state, requiring a
// reconnect. Used when an abort leaves the instrument undefined.
func (s *Session) Fault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFaulted
}
