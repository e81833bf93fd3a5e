// Package session holds the per-run session context: the admission flag
// for admin operations and the operator's chosen role. It is created at
// startup and cleared on logout; there is no ambient global state.
//
// The passphrase gate is a coarse client-side admission check only, not a
// security boundary. Real deployments need server-side auth.
package session

import "sync"

type Session struct {
	expected string

	mu       sync.Mutex
	admitted bool
	role     string
	message  string
}

func New(expectedPassphrase string) *Session {
	return &Session{expected: expectedPassphrase}
}

// Unlock compares the entered passphrase against the configured one. A
// mismatch leaves the gate closed and records a user-facing message;
// there is no lockout or retry tracking.
func (s *Session) Unlock(passphrase string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expected == "" || passphrase != s.expected {
		s.admitted = false
		s.message = "Incorrect passphrase."
		return false
	}
	s.admitted = true
	s.message = ""
	return true
}

// Admitted reports whether the gate is open
func (s *Session) Admitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admitted
}

// Message returns the last gate failure message, if any
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// SetRole remembers the operator's chosen role for this session
func (s *Session) SetRole(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Logout closes the gate and forgets the role
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admitted = false
	s.role = ""
	s.message = ""
}
