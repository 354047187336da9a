// services/session_registry.go
package services

import (
	"sync"
	"time"
)

// SessionRegistry keeps the live sessions of HTTP clients, keyed by session id.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (r *SessionRegistry) Create() *Session {
	sess := NewSession()
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess
}

// Get returns the session and marks it as recently used.
func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		sess.Touch()
	}
	return sess, ok
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Each calls fn for every live session. fn must not call back into the registry.
func (r *SessionRegistry) Each(fn func(sess *Session)) {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		list = append(list, sess)
	}
	r.mu.RUnlock()
	for _, sess := range list {
		fn(sess)
	}
}

// Reap drops sessions idle for longer than the ttl and returns how many went.
func (r *SessionRegistry) Reap(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.LastSeen()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
