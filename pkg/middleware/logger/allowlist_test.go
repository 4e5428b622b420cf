package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonPost(path, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestShouldLogBodyDeniesByDefault(t *testing.T) {
	r := jsonPost("/api/auth/sign-in/email", `{"email":"e","password":"p"}`)
	if shouldLogBody(r, []byte(`{"email":"e","password":"p"}`)) {
		t.Fatal("credential-bearing body logged without an allowlist entry")
	}
}

func TestShouldLogBodyAllowlist(t *testing.T) {
	AddBodyLogPaths("/api/feedback")
	t.Cleanup(func() {
		bodyLogMu.Lock()
		delete(bodyLogPaths, "/api/feedback")
		bodyLogMu.Unlock()
	})

	r := jsonPost("/api/feedback", `{"msg":"hi"}`)
	if !shouldLogBody(r, []byte(`{"msg":"hi"}`)) {
		t.Fatal("allowlisted JSON body not logged")
	}

	// GET never logs a body, allowlisted or not.
	get := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
	get.Header.Set("Content-Type", "application/json")
	if shouldLogBody(get, []byte(`{}`)) {
		t.Fatal("GET body logged")
	}

	// Non-JSON content type never logs.
	form := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader("a=1"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if shouldLogBody(form, []byte("a=1")) {
		t.Fatal("form body logged")
	}
}
