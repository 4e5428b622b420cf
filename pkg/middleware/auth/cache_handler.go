package auth

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/cookiesign"
	"github.com/joeydtaylor/neonguard/pkg/middleware/metrics"
	"github.com/joeydtaylor/neonguard/pkg/session"
)

// cacheOutcome is the three-way result of the layered session lookup:
// L1 signed cookie, L2 upstream fetch + remint, hard miss.
type cacheOutcome int

const (
	cacheHit cacheOutcome = iota
	cacheMinted
	cacheMiss
)

func (o cacheOutcome) String() string {
	switch o {
	case cacheHit:
		return "hit"
	case cacheMinted:
		return "minted"
	}
	return "miss"
}

type cacheResult struct {
	outcome cacheOutcome
	data    session.Data
	minted  *http.Cookie
}

// resolveSession satisfies "what is the current session" for one inbound
// request. The external contract is binary, fast (cookie) or slow
// (upstream), and cache failures of any kind degrade to the slow path,
// never to an error.
func (m *Middleware) resolveSession(ctx context.Context, r *http.Request) cacheResult {
	token := session.TokenFromRequest(r)

	// No session token at all: nothing upstream could add.
	if token == "" {
		return m.finish(cacheResult{outcome: cacheMiss})
	}

	// Explicit bypass forces the upstream fetch.
	if r.URL.Query().Get(session.DisableCookieCacheParam) == "true" {
		return m.finish(m.reactiveMint(ctx, token))
	}

	cc := session.DataCookieFromRequest(r)
	if cc == "" {
		return m.finish(m.reactiveMint(ctx, token))
	}

	res := cookiesign.Validate(cc, m.secret)
	if !res.Valid {
		m.logCacheFailure(res.Err)
		return m.finish(m.reactiveMint(ctx, token))
	}
	if res.Payload.Empty() || res.Payload.Token() != token {
		// Structurally valid but stale against the live token; remint.
		return m.finish(m.reactiveMint(ctx, token))
	}
	return m.finish(cacheResult{outcome: cacheHit, data: res.Payload})
}

// reactiveMint fetches the real session using the session token and signs
// a fresh cache cookie, so the next request is a true cache hit.
func (m *Middleware) reactiveMint(ctx context.Context, token string) cacheResult {
	data, err := m.client.FetchSession(ctx, token)
	if err != nil {
		m.log.Debug("upstream session fetch failed", zap.Error(err))
		return cacheResult{outcome: cacheMiss}
	}
	if data.Empty() {
		return cacheResult{outcome: cacheMiss}
	}
	exp := cookiesign.CacheExpiryWithTTL(data.Session, time.Now(), m.cacheTTL)
	signed, err := cookiesign.Sign(data, exp, m.secret)
	if err != nil {
		// Signing only fails on misconfiguration; still serve the session.
		m.log.Error("cache cookie sign failed", zap.Error(err))
		return cacheResult{outcome: cacheMinted, data: data}
	}
	return cacheResult{
		outcome: cacheMinted,
		data:    data,
		minted:  m.cacheCookie(signed, exp),
	}
}

func (m *Middleware) finish(res cacheResult) cacheResult {
	metrics.RecordCacheOutcome(res.outcome.String())
	return res
}

// cacheCookie builds the Set-Cookie for a signed session-data payload. An
// empty value with negative max-age is the deletion form.
func (m *Middleware) cacheCookie(value string, expiresAt time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     session.SessionDataCookie,
		Value:    value,
		Path:     "/",
		Domain:   m.cookieDomain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
		return c
	}
	c.Expires = expiresAt
	if ttl := time.Until(expiresAt); ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
	}
	return c
}

// logCacheFailure distinguishes likely causes for operators without ever
// changing the caller-visible outcome.
func (m *Middleware) logCacheFailure(err error) {
	switch {
	case cookiesign.IsExpiry(err):
		m.log.Debug("session cache cookie expired", zap.Error(err))
	case cookiesign.IsTamper(err):
		m.log.Warn("session cache cookie rejected", zap.Error(err))
	default:
		m.log.Error("session cache cookie validation failed", zap.Error(err))
	}
}
