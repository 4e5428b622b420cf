package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/middleware/metrics"
)

// Process runs the decision pipeline for one request. States are evaluated
// in a fixed order; the first terminal state wins:
//
//  1. login-URL bypass (prevents redirect loops)
//  2. OAuth exchange
//  3. skip-route bypass
//  4. session resolution (cookie fast path, upstream fallback)
//  5. route protection check
func (m *Middleware) Process(r *http.Request) Decision {
	path := r.URL.Path

	if strings.HasPrefix(path, m.loginURL) {
		return m.decided(Decision{Kind: DecisionAllow})
	}

	if m.NeedsSessionVerification(r) {
		if ex := m.ExchangeOAuthToken(r.Context(), r); ex != nil {
			return m.decided(Decision{
				Kind:        DecisionRedirectOAuth,
				RedirectURL: ex.RedirectURL,
				SetCookies:  ex.SetCookies,
			})
		}
		// Exchange not applicable or failed: continue as unauthenticated.
	}

	if m.isSkipPath(path) {
		return m.decided(Decision{Kind: DecisionAllow})
	}

	res := m.resolveSession(r.Context(), r)
	if res.data.Empty() {
		return m.decided(Decision{
			Kind:        DecisionRedirectLogin,
			RedirectURL: m.loginURL,
		})
	}
	return m.decided(Decision{
		Kind:         DecisionAllow,
		Session:      res.data,
		MintedCookie: res.minted,
	})
}

func (m *Middleware) decided(d Decision) Decision {
	metrics.RecordDecision(d.Kind.String())
	return d
}

func (m *Middleware) isSkipPath(path string) bool {
	for _, p := range m.skipPaths {
		if p == path || strings.HasPrefix(path, strings.TrimRight(p, "/")+"/") {
			return true
		}
	}
	return false
}

// Middleware applies Process to every request. Allowed requests continue
// with the resolved session on their context and the middleware marker
// header set; redirects terminate here. A reactively minted cache cookie
// rides the response either way, so the next request hits the fast path.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := m.Process(r)

			if d.MintedCookie != nil {
				http.SetCookie(w, d.MintedCookie)
			}
			for _, sc := range d.SetCookies {
				w.Header().Add("Set-Cookie", m.withCookieDomain(sc))
			}

			switch d.Kind {
			case DecisionRedirectOAuth:
				m.log.Info("oauth exchange complete",
					zap.String("redirect", d.RedirectURL),
				)
				http.Redirect(w, r, d.RedirectURL, http.StatusFound)
			case DecisionRedirectLogin:
				http.Redirect(w, r, d.RedirectURL, http.StatusFound)
			default:
				r.Header.Set(MiddlewareMarkerHeader, "1")
				ctx := context.WithValue(r.Context(), sessionCtxKey, d.Session)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
