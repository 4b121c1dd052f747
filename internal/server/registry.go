package server

import (
	"errors"
	"sync"
)

// ErrNicknameTaken is returned by Authorize when another authorized session
// already holds the requested nickname.
var ErrNicknameTaken = errors.New("that username is taken")

// Registry tracks every live session and enforces nickname uniqueness among
// authorized ones. Its two collections are disjoint and insertion ordered;
// together they cover exactly the set of live connections. A session belongs
// to exactly one collection at a time.
type Registry struct {
	mu           sync.Mutex
	unauthorized []*Session
	authorized   []*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register admits a new connection as an unauthorized session.
func (r *Registry) Register(t Transport, buffer int) *Session {
	s := newSession(t, buffer)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unauthorized = append(r.unauthorized, s)
	return s
}

// Authorize atomically claims nickname for s: it fails with ErrNicknameTaken
// when any authorized session holds that exact nickname, otherwise it moves
// s to the authorized collection and grants the nickname. It never partially
// applies.
func (r *Registry) Authorize(s *Session, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.authorized {
		if a.Nickname() == nickname {
			return ErrNicknameTaken
		}
	}

	r.unauthorized = removeSession(r.unauthorized, s)
	r.authorized = append(r.authorized, s)
	s.setAuthorized(nickname)
	return nil
}

// Remove deletes s from whichever collection holds it and closes its send
// channel. Calling it again is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unauthorized = removeSession(r.unauthorized, s)
	r.authorized = removeSession(r.authorized, s)
	s.close()
}

// Contains reports whether s is still a live session.
func (r *Registry) Contains(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return indexOf(r.unauthorized, s) >= 0 || indexOf(r.authorized, s) >= 0
}

// IsAuthorized reports whether s is in the authorized collection.
func (r *Registry) IsAuthorized(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return indexOf(r.authorized, s) >= 0
}

// AuthorizedNicknames returns every authorized nickname in authorization
// order.
func (r *Registry) AuthorizedNicknames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.authorized))
	for _, s := range r.authorized {
		names = append(names, s.Nickname())
	}
	return names
}

// AuthorizedExcept returns every authorized session other than s, in
// authorization order.
func (r *Registry) AuthorizedExcept(s *Session) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := make([]*Session, 0, len(r.authorized))
	for _, a := range r.authorized {
		if a != s {
			peers = append(peers, a)
		}
	}
	return peers
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.unauthorized) + len(r.authorized)
}

func indexOf(sessions []*Session, s *Session) int {
	for i, candidate := range sessions {
		if candidate == s {
			return i
		}
	}
	return -1
}

func removeSession(sessions []*Session, s *Session) []*Session {
	i := indexOf(sessions, s)
	if i < 0 {
		return sessions
	}
	return append(sessions[:i], sessions[i+1:]...)
}
