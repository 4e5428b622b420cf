// pkg/cache/session_cache.go
package cache

import (
	"sync"

	"github.com/joeydtaylor/neonguard/pkg/session"
)

// SessionCache wraps TokenCache with sign-out invalidation and token
// refresh detection. One instance per process.
type SessionCache struct {
	mu          sync.Mutex
	cache       *TokenCache[session.Data]
	last        session.Data
	hasLast     bool
	invalidated bool
}

func NewSessionCache() *SessionCache {
	return &SessionCache{cache: NewTokenCache[session.Data]()}
}

// GetCachedSession returns nothing once the cache has been invalidated.
func (s *SessionCache) GetCachedSession() (session.Data, bool) {
	s.mu.Lock()
	inv := s.invalidated
	s.mu.Unlock()
	if inv {
		return session.Data{}, false
	}
	return s.cache.Get()
}

// SetCachedSession stores data with a TTL derived from its session token.
// Writes are dropped after invalidation: a get-session issued just before
// sign-out must not repopulate the cache after sign-out flagged it.
func (s *SessionCache) SetCachedSession(data session.Data) {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.cache.Get(); ok {
		s.last = prev
		s.hasLast = true
	}
	s.mu.Unlock()
	s.cache.Set(data, data.Token())
}

// InvalidateSessionCache is the soft revoke: blocks reads and writes but
// keeps the slot for diagnostics until ClearSessionCache.
func (s *SessionCache) InvalidateSessionCache() {
	s.mu.Lock()
	s.invalidated = true
	s.mu.Unlock()
}

// ClearSessionCache fully resets state; the "done" side of sign-out.
func (s *SessionCache) ClearSessionCache() {
	s.mu.Lock()
	s.last = session.Data{}
	s.hasLast = false
	s.invalidated = false
	s.mu.Unlock()
	s.cache.Clear()
}

// WasTokenRefreshed reports whether data carries a different session token
// than the previous cache snapshot. False on the first write.
func (s *SessionCache) WasTokenRefreshed(data session.Data) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLast {
		return false
	}
	prev := s.last.Token()
	next := data.Token()
	return prev != "" && next != "" && prev != next
}
