package auth

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/session"
	"github.com/joeydtaylor/neonguard/pkg/upstream"
)

type contextKey struct{ name string }

var sessionCtxKey = &contextKey{"sessionData"}

// Request headers this layer synthesizes. The proxy marker tells upstream
// the call came through us; the middleware marker tags requests the
// decision pipeline allowed.
const (
	ProxyMarkerHeader      = "X-Neon-Auth-Proxy"
	MiddlewareMarkerHeader = "X-Neon-Auth-Middleware"
)

// Middleware is the authentication gate: OAuth exchange, signed-cookie
// fast path, upstream fallback, and route protection, evaluated in a fixed
// order per request.
type Middleware struct {
	client *upstream.Client
	hc     HTTPDoer
	log    *zap.Logger

	baseURL      string
	secret       string
	cookieDomain string
	cacheTTL     time.Duration
	loginURL     string
	skipPaths    []string
}

// DecisionKind is the terminal state of one request's evaluation. No state
// is revisited within a request lifecycle.
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRedirectLogin
	DecisionRedirectOAuth
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectOAuth:
		return "redirect_oauth"
	}
	return "unknown"
}

// Decision carries everything the HTTP layer needs to act on a terminal
// state: where to send the client, cookies to set, and the resolved
// session for allowed requests.
type Decision struct {
	Kind        DecisionKind
	RedirectURL string
	Session     session.Data

	// SetCookies are raw Set-Cookie values relayed from upstream
	// (OAuth exchange); MintedCookie is a locally signed cache cookie.
	SetCookies   []string
	MintedCookie *http.Cookie
}
