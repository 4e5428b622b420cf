// pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Defaults. The upstream timeout is deliberately short: an auth check that
// cannot answer in 3s degrades to "not authenticated" instead of hanging
// the surrounding request.
const (
	DefaultListenAddr      = ":4000"
	DefaultLoginURL        = "/auth/sign-in"
	DefaultCacheTTLSeconds = 300
	DefaultUpstreamTimeout = 3 * time.Second
)

type Config struct {
	ListenAddr string   `toml:"listen_addr"`
	Upstream   Upstream `toml:"upstream"`
	Cookie     Cookie   `toml:"cookie"`
	Protect    Protect  `toml:"protect"`
	Relay      Relay    `toml:"relay"`
}

type Upstream struct {
	BaseURL   string `toml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms"`
}

type Cookie struct {
	Secret          string `toml:"secret"`
	Domain          string `toml:"domain"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

type Protect struct {
	LoginURL  string   `toml:"login_url"`
	SkipPaths []string `toml:"skip_paths"`
}

// Relay configures optional fan-out of auth lifecycle events. The transport
// target itself comes from ELECTRICIAN_TARGET, as in our other services.
type Relay struct {
	Topic string `toml:"topic"`
}

func (u Upstream) Timeout() time.Duration {
	if u.TimeoutMS > 0 {
		return time.Duration(u.TimeoutMS) * time.Millisecond
	}
	return DefaultUpstreamTimeout
}

func (c Cookie) CacheTTL() time.Duration {
	if c.CacheTTLSeconds > 0 {
		return time.Duration(c.CacheTTLSeconds) * time.Second
	}
	return DefaultCacheTTLSeconds * time.Second
}

// Load reads the TOML manifest at path (optional), overlays environment
// variables, applies defaults, and validates. A config that fails
// validation is unusable; callers should treat the error as fatal.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("NEONGUARD_LISTEN_ADDRESS")); v != "" {
		c.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("NEONGUARD_UPSTREAM_URL")); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("NEONGUARD_COOKIE_SECRET"); v != "" {
		c.Cookie.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("NEONGUARD_COOKIE_DOMAIN")); v != "" {
		c.Cookie.Domain = v
	}
	if v := strings.TrimSpace(os.Getenv("NEONGUARD_LOGIN_URL")); v != "" {
		c.Protect.LoginURL = v
	}
	if v := strings.TrimSpace(os.Getenv("NEONGUARD_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cookie.CacheTTLSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("NEONGUARD_SKIP_PATHS")); v != "" {
		c.Protect.SkipPaths = splitCSV(v)
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Protect.LoginURL == "" {
		c.Protect.LoginURL = DefaultLoginURL
	}
	if c.Cookie.CacheTTLSeconds == 0 {
		c.Cookie.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
	if len(c.Protect.SkipPaths) == 0 {
		// The auth API surface must never be gated behind itself, and the
		// scrape endpoint has no session to present.
		c.Protect.SkipPaths = []string{"/api/auth", "/metrics"}
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
