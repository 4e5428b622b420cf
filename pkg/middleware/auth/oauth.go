package auth

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/session"
)

// ExchangeResult is a successful verifier-for-session exchange: where to
// send the browser next and the upstream cookies that establish the
// session.
type ExchangeResult struct {
	RedirectURL string
	SetCookies  []string
}

// NeedsSessionVerification reports whether this request is an OAuth
// callback still awaiting exchange: verifier parameter present, challenge
// cookie present, and no session token yet (an established session must
// not be re-exchanged).
func (m *Middleware) NeedsSessionVerification(r *http.Request) bool {
	if r.URL.Query().Get(session.VerifierParam) == "" {
		return false
	}
	if !session.HasChallengeCookie(r) {
		return false
	}
	return session.TokenFromRequest(r) == ""
}

// ExchangeOAuthToken replays get-session upstream with the inbound cookies;
// the challenge cookie carries the proof binding the verifier to a session.
// On 2xx it returns the upstream Set-Cookie set and the redirect target
// with the verifier stripped (one-time use). Every failure returns nil:
// a failed exchange is "not authenticated yet", never fatal, so the caller
// falls through to ordinary route protection instead of loop-redirecting.
func (m *Middleware) ExchangeOAuthToken(ctx context.Context, r *http.Request) *ExchangeResult {
	if r.URL.Query().Get(session.VerifierParam) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/get-session", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(ProxyMarkerHeader, "1")
	for _, c := range r.Cookies() {
		if session.IsAuthCookie(c.Name) {
			req.AddCookie(c)
		}
	}

	res, err := m.hc.Do(req)
	if err != nil {
		m.log.Debug("oauth exchange upstream failure", zap.Error(err))
		return nil
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		m.log.Debug("oauth exchange rejected", zap.Int("status", res.StatusCode))
		return nil
	}

	redirect := *r.URL
	q := redirect.Query()
	q.Del(session.VerifierParam)
	redirect.RawQuery = q.Encode()

	return &ExchangeResult{
		RedirectURL: redirect.String(),
		SetCookies:  res.Header.Values("Set-Cookie"),
	}
}
