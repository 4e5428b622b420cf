// pkg/upstream/client.go
package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/broadcast"
	"github.com/joeydtaylor/neonguard/pkg/cache"
	"github.com/joeydtaylor/neonguard/pkg/codec"
	"github.com/joeydtaylor/neonguard/pkg/dedupe"
	"github.com/joeydtaylor/neonguard/pkg/session"
)

// Client is a typed façade over the upstream auth HTTP API. Endpoint paths
// live in api.go; every call funnels through do(), which applies the fixed
// timeout and collapses concurrent identical requests.
//
// The in-memory session cache assumes one credential per Client (the
// browser-tab model). Server callers resolving many users' sessions should
// use FetchSession, which bypasses the memory cache entirely.
type Client struct {
	baseURL string
	hc      HTTPDoer
	timeout time.Duration

	cache    *cache.SessionCache
	inflight *dedupe.Manager
	bus      *broadcast.Bus
	log      *zap.Logger
	origin   string

	mu           sync.Mutex
	sessionToken string
}

type Option func(*Client)

func WithHTTPClient(hc HTTPDoer) Option      { return func(c *Client) { c.hc = hc } }
func WithTimeout(d time.Duration) Option     { return func(c *Client) { c.timeout = d } }
func WithBus(b *broadcast.Bus) Option        { return func(c *Client) { c.bus = b } }
func WithLogger(l *zap.Logger) Option        { return func(c *Client) { c.log = l } }
func WithSessionToken(token string) Option   { return func(c *Client) { c.sessionToken = token } }

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		timeout:  3 * time.Second,
		cache:    cache.NewSessionCache(),
		inflight: dedupe.NewManager(),
		log:      zap.NewNop(),
		origin:   broadcast.NewOrigin(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.bus != nil {
		// Converge with the rest of the fleet: a sign-out or credential
		// change elsewhere invalidates this instance's local caches.
		c.bus.Subscribe(func(ev broadcast.Event) {
			if ev.Origin == c.origin {
				return
			}
			switch ev.Type {
			case broadcast.SignedOut:
				c.cache.ClearSessionCache()
				c.inflight.ClearAll()
				c.SetSessionToken("")
			case broadcast.TokenRefreshed, broadcast.UserUpdated:
				c.cache.ClearSessionCache()
			}
		})
	}
	return c
}

// Cache exposes the session cache for wiring (bus invalidation hooks).
func (c *Client) Cache() *cache.SessionCache { return c.cache }

// SetSessionToken replaces the credential this client presents upstream.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	c.sessionToken = token
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

// do performs one upstream call with the client's credential attached as
// the session-token cookie. Concurrent identical calls share one network
// request; each caller gets its own copy of the response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*dedupe.Result, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	tok := c.token()
	key := dedupe.Key(method, u, body)
	if tok != "" {
		// Scope the key to the credential: FetchSession runs many users'
		// lookups through one shared manager.
		key = tok + "|" + key
	}

	return c.inflight.Deduplicate(key, func() (*dedupe.Result, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, u, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok != "" {
			req.AddCookie(&http.Cookie{Name: session.SessionTokenCookie, Value: tok})
		}

		res, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		b, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		return &dedupe.Result{Status: res.StatusCode, Header: res.Header, Body: b}, nil
	})
}

// adoptSession records a successful {session,user} payload: memory cache,
// current credential, and a refresh event when the token rotated.
func (c *Client) adoptSession(ctx context.Context, data session.Data) {
	if data.Empty() {
		return
	}
	c.cache.SetCachedSession(data)
	refreshed := c.cache.WasTokenRefreshed(data)
	c.SetSessionToken(data.Token())
	if refreshed && c.bus != nil {
		c.bus.Publish(ctx, broadcast.Event{
			Type:      broadcast.TokenRefreshed,
			TokenHash: broadcast.HashToken(data.Token()),
			Origin:    c.origin,
		})
	}
}

func marshalJSON(v any) []byte {
	b, err := codec.JSONStrict.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
