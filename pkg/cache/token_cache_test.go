package cache

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-signing-key-for-ttl-extraction"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestTokenCacheDefaultTTL(t *testing.T) {
	c := NewTokenCache[string]()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("v", "") // opaque token, no exp claim
	if got, ok := c.Get(); !ok || got != "v" {
		t.Fatalf("expected cached value, got %q ok=%v", got, ok)
	}

	now = now.Add(DefaultTTL + time.Second)
	if _, ok := c.Get(); ok {
		t.Fatal("expected eviction after default TTL")
	}
}

func TestTokenCacheTokenDerivedTTL(t *testing.T) {
	c := NewTokenCache[int]()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(42, signedToken(t, now.Add(30*time.Second)))

	// Inside exp minus skew buffer: still cached.
	now = now.Add(20 * time.Second)
	if _, ok := c.Get(); !ok {
		t.Fatal("expected value before token expiry")
	}

	// Past exp minus skew buffer: evicted.
	now = now.Add(6 * time.Second)
	if _, ok := c.Get(); ok {
		t.Fatal("expected eviction near token expiry")
	}
}

func TestTokenCacheExpiredTokenFloorsAtOneSecond(t *testing.T) {
	c := NewTokenCache[int]()
	now := time.Now()
	c.now = func() time.Time { return now }

	// Token already expired: floor keeps the slot alive one second.
	c.Set(1, signedToken(t, now.Add(-time.Minute)))
	if _, ok := c.Get(); !ok {
		t.Fatal("expected value within the 1s floor")
	}
	now = now.Add(1100 * time.Millisecond)
	if _, ok := c.Get(); ok {
		t.Fatal("expected eviction after the 1s floor")
	}
}

func TestTokenCacheClearAndHas(t *testing.T) {
	c := NewTokenCache[string]()
	c.Set("v", "")
	if !c.Has() {
		t.Fatal("expected Has after Set")
	}
	c.Clear()
	if c.Has() {
		t.Fatal("expected empty after Clear")
	}
}
