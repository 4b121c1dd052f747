package server

import (
	"sync"

	"github.com/google/uuid"
)

// SessionState tracks where a connection is in its lifecycle. The only
// transitions are Unauthorized to Authorized on a successful login and
// either state to Closed on logout, disconnect or a fatal decode error.
// Closed is absorbing.
type SessionState int

const (
	StateUnauthorized SessionState = iota
	StateAuthorized
	StateClosed
)

// Session is the server-side record of one live connection. Its identity is
// opaque: the id routes output and labels log lines, it is never compared
// across sessions for protocol decisions. The registry owns every state
// transition.
type Session struct {
	id        uuid.UUID
	transport Transport
	remote    string
	send      chan []byte

	mu         sync.Mutex
	state      SessionState
	nickname   string
	sendClosed bool
}

func newSession(t Transport, buffer int) *Session {
	return &Session{
		id:        uuid.New(),
		transport: t,
		remote:    t.RemoteAddr(),
		send:      make(chan []byte, buffer),
	}
}

// ID returns the session's opaque identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Remote returns the endpoint label used in logs and error messages.
func (s *Session) Remote() string { return s.remote }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Nickname returns the nickname granted at authorization, or "" before it.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// label is the identity used in log lines: the nickname once authorized,
// the remote address before that.
func (s *Session) label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nickname != "" {
		return s.nickname
	}
	return s.remote
}

func (s *Session) setAuthorized(nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthorized
	s.nickname = nickname
}

// close marks the session Closed and closes its send channel exactly once.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
	if !s.sendClosed {
		s.sendClosed = true
		close(s.send)
	}
}

// enqueue queues one encoded frame for delivery without blocking. It reports
// false when the session is closed or its buffer is full; the caller treats
// that as a delivery failure for this recipient only.
func (s *Session) enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendClosed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}
