// pkg/session/types.go
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/joeydtaylor/neonguard/pkg/codec"
)

// Cookie and query-parameter names shared with the upstream auth server.
// These are interop contracts; they must match the server byte-for-byte.
const (
	CookiePrefix = "neon-auth."
	SecurePrefix = "__Secure-"

	SessionTokenCookie = "neon-auth.session_token"
	SessionDataCookie  = "neon-auth.session_data"

	// "challange" is how the upstream server spells it. Do not fix.
	SessionChallengeCookie = "neon-auth.session_challange"

	VerifierParam           = "neon_auth_verifier"
	DisableCookieCacheParam = "disableCookieCache"
)

// Session is minted and owned by the upstream auth service. Token is the
// sole proof of authentication; everything cached locally derives from it.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Name          string     `json:"name,omitempty"`
	Image         string     `json:"image,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Role          string     `json:"role,omitempty"`
	Banned        bool       `json:"banned,omitempty"`
	BanReason     string     `json:"banReason,omitempty"`
	BanExpires    *time.Time `json:"banExpires,omitempty"`
}

// Data is the payload exchanged between upstream, cache, and consumers.
// Invariant: Session and User are both nil or both non-nil.
type Data struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
}

// Empty reports whether this is the unauthenticated payload.
func (d Data) Empty() bool { return d.Session == nil || d.User == nil }

// Token returns the session token, or "" when unauthenticated.
func (d Data) Token() string {
	if d.Session == nil {
		return ""
	}
	return d.Session.Token
}

// Parse decodes an upstream {session,user} body. Any decode failure,
// including unparseable dates, degrades the whole payload to {nil,nil}:
// a partially trusted session is worse than no session.
func Parse(body []byte) Data {
	var d Data
	if err := codec.JSONLenient.Unmarshal(body, &d); err != nil {
		return Data{}
	}
	if d.Session == nil || d.User == nil {
		return Data{}
	}
	if d.Session.Token == "" || d.Session.ExpiresAt.IsZero() {
		return Data{}
	}
	return d
}

// TokenFromRequest extracts the upstream session-token cookie, accepting
// both the plain and __Secure- prefixed names.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if c, err := r.Cookie(SecurePrefix + SessionTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// DataCookieFromRequest extracts the signed session-data cache cookie,
// accepting both the plain and __Secure- prefixed names.
func DataCookieFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionDataCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if c, err := r.Cookie(SecurePrefix + SessionDataCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// HasChallengeCookie reports whether the short-lived OAuth challenge cookie
// is present on the request.
func HasChallengeCookie(r *http.Request) bool {
	if c, err := r.Cookie(SessionChallengeCookie); err == nil && c.Value != "" {
		return true
	}
	c, err := r.Cookie(SecurePrefix + SessionChallengeCookie)
	return err == nil && c.Value != ""
}

// IsAuthCookie reports whether a cookie name belongs to the upstream auth
// server's namespace (and so should be forwarded by the proxy).
func IsAuthCookie(name string) bool {
	return strings.HasPrefix(name, CookiePrefix) ||
		strings.HasPrefix(name, SecurePrefix+CookiePrefix)
}
