package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neonguard.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
listen_addr = ":9000"

[upstream]
base_url = "https://auth.example.com/api/auth"
timeout_ms = 1500

[cookie]
secret = "0123456789abcdef0123456789abcdef"
domain = ".example.com"
cache_ttl_seconds = 120

[protect]
login_url = "/login"
skip_paths = ["/api/auth", "/health"]

[relay]
topic = "auth-events"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("listen addr %q", cfg.ListenAddr)
	}
	if got := cfg.Upstream.Timeout(); got != 1500*time.Millisecond {
		t.Fatalf("timeout %v", got)
	}
	if got := cfg.Cookie.CacheTTL(); got != 2*time.Minute {
		t.Fatalf("cache ttl %v", got)
	}
	if cfg.Relay.Topic != "auth-events" {
		t.Fatalf("relay topic %q", cfg.Relay.Topic)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("NEONGUARD_UPSTREAM_URL", "https://auth.example.com")
	t.Setenv("NEONGUARD_COOKIE_SECRET", strongSecret)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("listen addr %q", cfg.ListenAddr)
	}
	if cfg.Protect.LoginURL != DefaultLoginURL {
		t.Fatalf("login url %q", cfg.Protect.LoginURL)
	}
	if cfg.Upstream.Timeout() != DefaultUpstreamTimeout {
		t.Fatalf("timeout %v", cfg.Upstream.Timeout())
	}
	want := []string{"/api/auth", "/metrics"}
	if len(cfg.Protect.SkipPaths) != len(want) {
		t.Fatalf("skip paths %v", cfg.Protect.SkipPaths)
	}
	for i := range want {
		if cfg.Protect.SkipPaths[i] != want[i] {
			t.Fatalf("skip paths %v", cfg.Protect.SkipPaths)
		}
	}
}

func TestEnvOverridesManifest(t *testing.T) {
	path := writeManifest(t, `
[upstream]
base_url = "https://from-file.example.com"

[cookie]
secret = "0123456789abcdef0123456789abcdef"
`)
	t.Setenv("NEONGUARD_UPSTREAM_URL", "https://from-env.example.com")
	t.Setenv("NEONGUARD_SKIP_PATHS", "/api/auth, /public ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.BaseURL != "https://from-env.example.com" {
		t.Fatalf("base url %q", cfg.Upstream.BaseURL)
	}
	want := []string{"/api/auth", "/public"}
	if len(cfg.Protect.SkipPaths) != len(want) {
		t.Fatalf("skip paths %v", cfg.Protect.SkipPaths)
	}
	for i := range want {
		if cfg.Protect.SkipPaths[i] != want[i] {
			t.Fatalf("skip paths %v", cfg.Protect.SkipPaths)
		}
	}
}

func TestValidateRejectsMissingBaseURL(t *testing.T) {
	cfg := Config{Cookie: Cookie{Secret: strongSecret}}
	cfg.applyDefaults()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("got %v, want ErrMissingBaseURL", err)
	}
}

func TestValidateRejectsWeakSecret(t *testing.T) {
	cfg := Config{
		Upstream: Upstream{BaseURL: "https://auth.example.com"},
		Cookie:   Cookie{Secret: "too-short"},
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("got %v, want ErrWeakSecret", err)
	}
}

func TestValidateRejectsRelativeURLs(t *testing.T) {
	cfg := Config{
		Upstream: Upstream{BaseURL: "auth.example.com/api"},
		Cookie:   Cookie{Secret: strongSecret},
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("relative base_url accepted")
	}

	cfg.Upstream.BaseURL = "https://auth.example.com"
	cfg.Protect.LoginURL = "login"
	if err := cfg.Validate(); err == nil {
		t.Fatal("relative login_url accepted")
	}
}
