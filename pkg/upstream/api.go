// pkg/upstream/api.go
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/broadcast"
	"github.com/joeydtaylor/neonguard/pkg/codec"
	"github.com/joeydtaylor/neonguard/pkg/session"
)

// Endpoint-to-path mapping; the single source of truth for the upstream
// API surface.
const (
	epGetSession   = "/get-session"
	epSignInEmail  = "/sign-in/email"
	epSignUpEmail  = "/sign-up/email"
	epSignOut      = "/sign-out"
	epUpdateUser   = "/update-user"
	epToken        = "/token"
	epListAccounts = "/list-accounts"
)

// GetSession resolves the current session, serving from the in-memory
// cache when possible. Upstream failures and non-OK statuses degrade to
// the unauthenticated payload; the error is informational only.
func (c *Client) GetSession(ctx context.Context) (session.Data, error) {
	return c.getSession(ctx, false)
}

// GetSessionFresh skips every cache layer; the disableCookieCache query
// parameter tells the companion edge component to do the same.
func (c *Client) GetSessionFresh(ctx context.Context) (session.Data, error) {
	return c.getSession(ctx, true)
}

func (c *Client) getSession(ctx context.Context, fresh bool) (session.Data, error) {
	if !fresh {
		if data, ok := c.cache.GetCachedSession(); ok {
			return data, nil
		}
	}
	var q url.Values
	if fresh {
		q = url.Values{session.DisableCookieCacheParam: {"true"}}
	}
	res, err := c.do(ctx, http.MethodGet, epGetSession, q, nil)
	if err != nil {
		return session.Data{}, err
	}
	if res.Status != http.StatusOK {
		return session.Data{}, fmt.Errorf("get-session status %d", res.Status)
	}
	data := session.Parse(res.Body)
	c.adoptSession(ctx, data)
	return data, nil
}

// FetchSession resolves the session bound to an arbitrary token without
// touching this client's memory cache or credential. This is the path the
// middleware's reactive mint uses.
func (c *Client) FetchSession(ctx context.Context, token string) (session.Data, error) {
	if token == "" {
		return session.Data{}, nil
	}
	peer := &Client{
		baseURL:      c.baseURL,
		hc:           c.hc,
		timeout:      c.timeout,
		inflight:     c.inflight,
		log:          c.log,
		sessionToken: token,
	}
	res, err := peer.do(ctx, http.MethodGet, epGetSession, nil, nil)
	if err != nil {
		return session.Data{}, err
	}
	if res.Status != http.StatusOK {
		return session.Data{}, fmt.Errorf("get-session status %d", res.Status)
	}
	return session.Parse(res.Body), nil
}

type emailCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// SignInEmail exchanges email credentials for a session.
func (c *Client) SignInEmail(ctx context.Context, email, password string) (session.Data, error) {
	return c.credentialCall(ctx, epSignInEmail, emailCredentials{Email: email, Password: password})
}

// SignUpEmail registers a new account and signs it in.
func (c *Client) SignUpEmail(ctx context.Context, email, password, name string) (session.Data, error) {
	return c.credentialCall(ctx, epSignUpEmail, emailCredentials{Email: email, Password: password, Name: name})
}

func (c *Client) credentialCall(ctx context.Context, path string, creds emailCredentials) (session.Data, error) {
	res, err := c.do(ctx, http.MethodPost, path, nil, marshalJSON(creds))
	if err != nil {
		return session.Data{}, err
	}
	if res.Status < 200 || res.Status > 299 {
		return session.Data{}, fmt.Errorf("%s status %d", path, res.Status)
	}
	data := session.Parse(res.Body)
	c.adoptSession(ctx, data)
	if !data.Empty() && c.bus != nil {
		c.bus.Publish(ctx, broadcast.Event{
			Type:      broadcast.SignedIn,
			TokenHash: broadcast.HashToken(data.Token()),
			Origin:    c.origin,
		})
	}
	return data, nil
}

// SignOut revokes the session upstream. The memory cache is invalidated
// and the in-flight map cleared before the network call starts, so a
// concurrent get-session cannot repopulate state after logout. Full clear
// happens only once upstream confirms.
func (c *Client) SignOut(ctx context.Context) error {
	c.cache.InvalidateSessionCache()
	c.inflight.ClearAll()

	res, err := c.do(ctx, http.MethodPost, epSignOut, nil, []byte(`{}`))
	if err != nil {
		return err
	}
	if res.Status < 200 || res.Status > 299 {
		return fmt.Errorf("sign-out status %d", res.Status)
	}

	c.cache.ClearSessionCache()
	c.SetSessionToken("")
	if c.bus != nil {
		c.bus.Publish(ctx, broadcast.Event{Type: broadcast.SignedOut, Origin: c.origin})
	}
	return nil
}

// UpdateUser relays a profile update; upstream owns the user record.
func (c *Client) UpdateUser(ctx context.Context, updates map[string]any) (session.Data, error) {
	res, err := c.do(ctx, http.MethodPost, epUpdateUser, nil, marshalJSON(updates))
	if err != nil {
		return session.Data{}, err
	}
	if res.Status < 200 || res.Status > 299 {
		return session.Data{}, fmt.Errorf("update-user status %d", res.Status)
	}
	data, err := c.GetSessionFresh(ctx)
	if err != nil {
		c.log.Warn("update-user session refetch failed", zap.Error(err))
	}
	if c.bus != nil {
		c.bus.Publish(ctx, broadcast.Event{Type: broadcast.UserUpdated, Origin: c.origin})
	}
	return data, nil
}

// TokenResponse carries the short-lived JWT upstream mints for service
// calls.
type TokenResponse struct {
	Token string `json:"token"`
}

// Token fetches a fresh bearer token for the current session.
func (c *Client) Token(ctx context.Context) (TokenResponse, error) {
	res, err := c.do(ctx, http.MethodGet, epToken, nil, nil)
	if err != nil {
		return TokenResponse{}, err
	}
	if res.Status != http.StatusOK {
		return TokenResponse{}, fmt.Errorf("token status %d", res.Status)
	}
	var tr TokenResponse
	if err := codec.JSONLenient.Unmarshal(res.Body, &tr); err != nil {
		return TokenResponse{}, err
	}
	return tr, nil
}

// Account is a linked credential record, as reported by upstream.
type Account struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"providerId"`
	AccountID  string    `json:"accountId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ListAccounts returns the credential records linked to the current user.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	res, err := c.do(ctx, http.MethodGet, epListAccounts, nil, nil)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusOK {
		return nil, fmt.Errorf("list-accounts status %d", res.Status)
	}
	var accounts []Account
	if err := codec.JSONLenient.Unmarshal(res.Body, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
