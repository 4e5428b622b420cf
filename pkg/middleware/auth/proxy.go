package auth

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/middleware/metrics"
	"github.com/joeydtaylor/neonguard/pkg/session"
)

// Headers forwarded upstream and back. Everything off-list is dropped;
// hop-by-hop and identity-bearing headers never pass implicitly.
var (
	proxyRequestHeaders = []string{
		"User-Agent",
		"Authorization",
		"Referer",
		"Content-Type",
	}
	proxyResponseHeaders = []string{
		"Content-Type",
		"Content-Length",
		"Content-Encoding",
		"Transfer-Encoding",
		"Connection",
		"Date",
		"Set-Auth-Jwt",
		"Set-Auth-Token",
		"X-Request-Id",
	}
)

// HandleAuthRequest forwards an inbound request to the upstream auth
// server at path, preserving the query string, the header allowlist, a
// resolved Origin, and every auth-namespace cookie. The proxy boundary
// always yields a response: network failure becomes a synthetic 502.
func (m *Middleware) HandleAuthRequest(ctx context.Context, r *http.Request, path string) *http.Response {
	target := strings.TrimRight(m.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			m.log.Warn("auth proxy request body read failed",
				zap.String("path", path),
				zap.Error(err),
			)
		} else if len(b) > 0 {
			body = bytes.NewReader(b)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return syntheticError(http.StatusInternalServerError, "proxy request build failed")
	}

	for _, h := range proxyRequestHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	req.Header.Set("Origin", resolveOrigin(r))
	req.Header.Set(ProxyMarkerHeader, "1")

	for _, c := range r.Cookies() {
		if session.IsAuthCookie(c.Name) {
			req.AddCookie(c)
		}
	}

	res, err := m.hc.Do(req)
	if err != nil {
		m.log.Warn("auth proxy upstream failure",
			zap.String("path", path),
			zap.Error(err),
		)
		metrics.RecordUpstream("502", path)
		return syntheticError(http.StatusBadGateway, "upstream auth service unavailable")
	}

	// Buffer the body now: the timeout context dies with this function, and
	// a later streaming read would be cut off mid-body.
	b, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		m.log.Warn("auth proxy upstream body read failed",
			zap.String("path", path),
			zap.Error(err),
		)
		metrics.RecordUpstream("502", path)
		return syntheticError(http.StatusBadGateway, "upstream auth service unavailable")
	}
	res.Body = io.NopCloser(bytes.NewReader(b))

	metrics.RecordUpstream(strconv.Itoa(res.StatusCode), path)
	return res
}

// WriteAuthResponse relays an upstream response downstream: allowlisted
// headers, every Set-Cookie instance, then body and status unchanged.
// This is the single place that keeps the signed cache cookie consistent
// with the real session lifecycle: any upstream change to the
// session-token cookie mints or deletes the cache cookie to match.
func (m *Middleware) WriteAuthResponse(ctx context.Context, w http.ResponseWriter, res *http.Response) {
	defer res.Body.Close()

	for _, h := range proxyResponseHeaders {
		if v := res.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	for _, sc := range res.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", m.withCookieDomain(sc))
	}

	if mint := m.mintFromSetCookies(ctx, res.Header.Values("Set-Cookie")); mint != nil {
		http.SetCookie(w, mint)
	}

	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		m.log.Warn("auth response relay interrupted", zap.Error(err))
	}
}

// mintFromSetCookies inspects upstream Set-Cookie headers for a change to
// the primary session-token cookie. A new token mints a fresh cache
// cookie; a deletion (empty value / max-age 0) mirrors it.
func (m *Middleware) mintFromSetCookies(ctx context.Context, setCookies []string) *http.Cookie {
	for _, raw := range setCookies {
		sc, err := http.ParseSetCookie(raw)
		if err != nil {
			continue
		}
		name := strings.TrimPrefix(sc.Name, session.SecurePrefix)
		if name != session.SessionTokenCookie {
			continue
		}
		if sc.Value == "" || sc.MaxAge < 0 {
			// Sign-out: delete the cache cookie alongside the token.
			return m.cacheCookie("", time.Time{})
		}
		res := m.reactiveMint(ctx, sc.Value)
		if res.minted != nil {
			return res.minted
		}
		return nil
	}
	return nil
}

// withCookieDomain applies the configured cookie domain uniformly to
// cookies set by this layer.
func (m *Middleware) withCookieDomain(raw string) string {
	if m.cookieDomain == "" {
		return raw
	}
	sc, err := http.ParseSetCookie(raw)
	if err != nil {
		return raw
	}
	sc.Domain = m.cookieDomain
	return sc.String()
}

// resolveOrigin picks the Origin header, falling back to Referer, then the
// request's own URL.
func resolveOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	if ref := r.Header.Get("Referer"); ref != "" {
		return ref
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func syntheticError(status int, msg string) *http.Response {
	body := `{"error":"` + msg + `"}`
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
