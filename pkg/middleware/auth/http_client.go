package auth

import "net/http"

// HTTPDoer is satisfied by *http.Client and allows easy mocking in tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// SetHTTPClient overrides the client used for proxying and OAuth exchange.
func (m *Middleware) SetHTTPClient(hc HTTPDoer) {
	if hc != nil {
		m.hc = hc
	}
}
