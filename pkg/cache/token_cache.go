// pkg/cache/token_cache.go
package cache

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL is used when the token carries no decodable expiration.
	DefaultTTL = 60 * time.Second

	// clock skew buffer subtracted from token-derived lifetimes
	skewBuffer = 5 * time.Second

	minTTL = time.Second
)

// TokenCache is a single-slot cache whose TTL derives from a token's
// expiration claim, falling back to DefaultTTL. Eviction is lazy, on read.
type TokenCache[T any] struct {
	mu        sync.Mutex
	value     T
	set       bool
	expiresAt time.Time

	now func() time.Time // test hook
}

func NewTokenCache[T any]() *TokenCache[T] {
	return &TokenCache[T]{now: time.Now}
}

// Get returns the stored value while unexpired; an expired slot is evicted.
func (c *TokenCache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if !c.set {
		return zero, false
	}
	if c.now().After(c.expiresAt) {
		c.value = zero
		c.set = false
		return zero, false
	}
	return c.value, true
}

// Set stores value. When tokenForTTL has a decodable expiration claim the
// slot expires at that time minus a skew buffer (floored at one second);
// otherwise DefaultTTL applies.
func (c *TokenCache[T]) Set(value T, tokenForTTL string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	ttl := DefaultTTL
	if exp, ok := tokenExpiry(tokenForTTL); ok {
		ttl = exp.Sub(now) - skewBuffer
		if ttl < minTTL {
			ttl = minTTL
		}
	}
	c.value = value
	c.set = true
	c.expiresAt = now.Add(ttl)
}

func (c *TokenCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.set = false
	c.expiresAt = time.Time{}
}

func (c *TokenCache[T]) Has() bool {
	_, ok := c.Get()
	return ok
}

// tokenExpiry pulls the exp claim out of a JWT-shaped token without
// verifying the signature. Opaque tokens simply report no expiry.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
