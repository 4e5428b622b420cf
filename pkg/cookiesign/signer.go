// pkg/cookiesign/signer.go
package cookiesign

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joeydtaylor/neonguard/pkg/session"
)

const (
	// MinSecretLen is the floor for the cookie-signing secret. A shorter
	// secret breaks the security contract of the cache and is rejected at
	// the point of use, never silently accepted.
	MinSecretLen = 32

	// CacheTTLCap bounds the blast radius of a stolen cache cookie.
	CacheTTLCap = 5 * time.Minute

	// AnonymousSubject is the sub claim for payloads without a user.
	AnonymousSubject = "anonymous"
)

var ErrWeakSecret = fmt.Errorf("cookie secret must be at least %d characters", MinSecretLen)

type cookieClaims struct {
	jwt.RegisteredClaims
	Data session.Data `json:"data"`
}

// Sign serializes data into an HS256-signed compact token expiring at
// expiresAt. The subject is the user id, or AnonymousSubject.
func Sign(data session.Data, expiresAt time.Time, secret string) (string, error) {
	if len(secret) < MinSecretLen {
		return "", ErrWeakSecret
	}
	sub := AnonymousSubject
	if data.User != nil && data.User.ID != "" {
		sub = data.User.ID
	}
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Data: data,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Result is the outcome of validating a signed session cookie. Err is set
// whenever Valid is false; it is for logging, never surfaced to callers as
// a distinct failure mode.
type Result struct {
	Valid   bool
	Payload session.Data
	Err     error
}

// Validate checks signature, expiry, and structure. All failures, including
// panics inside the JWT library, come back as {Valid: false}.
func Validate(token, secret string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("cookie validate panic: %v", r)}
		}
	}()

	if len(secret) < MinSecretLen {
		return Result{Err: ErrWeakSecret}
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &cookieClaims{}
	tok, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return Result{Err: err}
	}
	return Result{Valid: true, Payload: claims.Data}
}

// IsExpiry reports whether a validation error is ordinary expiry (expected
// in steady state, logged at debug).
func IsExpiry(err error) bool { return errors.Is(err, jwt.ErrTokenExpired) }

// IsTamper reports whether a validation error suggests a forged or
// foreign-keyed cookie (logged at warn).
func IsTamper(err error) bool {
	return errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenUnverifiable)
}

// CacheExpiry computes the signed cookie's expiry: never later than the
// real session's expiry, and capped at CacheTTLCap from now.
func CacheExpiry(sess *session.Session, now time.Time) time.Time {
	return CacheExpiryWithTTL(sess, now, CacheTTLCap)
}

// CacheExpiryWithTTL is CacheExpiry with a configured TTL, which itself
// can never exceed CacheTTLCap.
func CacheExpiryWithTTL(sess *session.Session, now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 || ttl > CacheTTLCap {
		ttl = CacheTTLCap
	}
	capped := now.Add(ttl)
	if sess != nil && !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(capped) {
		return sess.ExpiresAt
	}
	return capped
}
