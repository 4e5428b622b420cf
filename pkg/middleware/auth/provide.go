package auth

import (
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/config"
	"github.com/joeydtaylor/neonguard/pkg/upstream"
)

// ProvideAuthentication wires the gate from validated config. config.Load
// has already rejected weak secrets and missing base URLs, so construction
// cannot produce a half-configured gate.
func ProvideAuthentication(cfg config.Config, client *upstream.Client, log *zap.Logger) *Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	hc := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 30 * time.Second,
		},
	}
	return &Middleware{
		client:       client,
		hc:           hc,
		log:          log,
		baseURL:      cfg.Upstream.BaseURL,
		secret:       cfg.Cookie.Secret,
		cookieDomain: cfg.Cookie.Domain,
		cacheTTL:     cfg.Cookie.CacheTTL(),
		loginURL:     cfg.Protect.LoginURL,
		skipPaths:    cfg.Protect.SkipPaths,
	}
}

var Module = fx.Options(
	fx.Provide(ProvideAuthentication),
)
