// Package auth holds the explicit session state of an authenticated user and
// the client for the backend auth API. Session data is passed as an explicit
// object instead of ambient globals.
package auth

import (
	"context"
	"sync"
	"time"
)

// User identifies an authenticated backend account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session is one authenticated session: the user, the backend bearer token
// and its expiry.
type Session struct {
	User   User
	Token  string
	Expiry time.Time
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired() bool {
	return !s.Expiry.IsZero() && time.Now().After(s.Expiry)
}

type sessionCtxKey struct{}

// ContextWithSession stores the session in the context.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext extracts the session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(Session)
	return s, ok
}

// SessionStore keeps live sessions keyed by token. The in-memory
// implementation is sufficient for a single daemon instance; sessions are
// re-established through the backend on restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
}

// NewSessionStore creates a session store with the given session lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
	}
}

// Put registers a session under its token, stamping the expiry.
func (s *SessionStore) Put(sess Session) Session {
	sess.Expiry = time.Now().Add(s.ttl)
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the live session for a token. Expired sessions are evicted.
func (s *SessionStore) Get(token string) (Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if sess.Expired() {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return Session{}, false
	}
	return sess, true
}

// Delete removes a session (logout).
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
