package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/broadcast"
	"github.com/joeydtaylor/neonguard/pkg/bundlefx"
	"github.com/joeydtaylor/neonguard/pkg/config"
	"github.com/joeydtaylor/neonguard/pkg/middleware/auth"
	"github.com/joeydtaylor/neonguard/pkg/middleware/logger"
	"github.com/joeydtaylor/neonguard/pkg/middleware/metrics"
	"github.com/joeydtaylor/neonguard/pkg/relay"
	"github.com/joeydtaylor/neonguard/pkg/transport/httpx"
	"github.com/joeydtaylor/neonguard/pkg/upstream"
)

// AuthMount is where the proxy surface lives; everything under it is
// forwarded to the upstream auth server.
const AuthMount = "/api/auth"

// ---------- Options ----------

type Options struct {
	Service       string // for logs only
	ConfigEnv     string // e.g., NEONGUARD_CONFIG
	DefaultConfig string // e.g., "neonguard.toml"
	TLSCertEnv    string // SSL_SERVER_CERTIFICATE
	TLSKeyEnv     string // SSL_SERVER_KEY
}

type Option func(*Options)

func WithService(s string) Option          { return func(o *Options) { o.Service = s } }
func WithConfigEnv(k string) Option        { return func(o *Options) { o.ConfigEnv = k } }
func WithDefaultConfig(path string) Option { return func(o *Options) { o.DefaultConfig = path } }
func WithTLSCertKeyEnv(cert, key string) Option {
	return func(o *Options) { o.TLSCertEnv, o.TLSKeyEnv = cert, key }
}

func defaultOptions() Options {
	return Options{
		Service:       "neonguard",
		ConfigEnv:     "NEONGUARD_CONFIG",
		DefaultConfig: "neonguard.toml",
		TLSCertEnv:    "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:     "SSL_SERVER_KEY",
	}
}

// Module returns a complete Fx option set; add app-specific fx.Invoke(...)
// alongside.
func Module(opts ...Option) fx.Option {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return fx.Options(
		fx.Provide(func() Options { return o }),

		// Gate, access logging, metrics handler
		bundlefx.Module,

		// Router impl
		fx.Provide(httpx.NewChi),

		// Config, eventing, upstream client
		fx.Provide(provideConfig),
		fx.Provide(relay.NewFromEnv),
		fx.Provide(provideBus),
		fx.Provide(provideClient),

		// Router (named "app")
		fx.Provide(fx.Annotate(
			provideRouter,
			fx.ParamTags(``, ``, ``, `name:"metrics"`, ``, ``),
			fx.ResultTags(`name:"app"`),
		)),

		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

// ---------- Providers ----------

func provideConfig(o Options, log *zap.Logger) config.Config {
	path := envOr(o.ConfigEnv, o.DefaultConfig)
	if !fileExists(path) {
		// env-only configuration is fine; Load still validates
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("config load failed", zap.Error(err), zap.String("path", path))
	}
	return cfg
}

func provideBus(cfg config.Config, pub relay.Publisher, log *zap.Logger) *broadcast.Bus {
	b := broadcast.NewBus(log)
	if cfg.Relay.Topic != "" {
		b = b.WithRelay(pub, cfg.Relay.Topic)
	}
	return b
}

func provideClient(cfg config.Config, bus *broadcast.Bus, log *zap.Logger) *upstream.Client {
	return upstream.NewClient(
		cfg.Upstream.BaseURL,
		upstream.WithTimeout(cfg.Upstream.Timeout()),
		upstream.WithBus(bus),
		upstream.WithLogger(log),
	)
}

// ---------- Router ----------

func provideRouter(
	cfg config.Config,
	a *auth.Middleware,
	lm *logger.Middleware,
	/* name:"metrics" */ m http.Handler,
	r httpx.Router,
	zl *zap.Logger,
) http.Handler {
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	r.Use(a.Middleware())
	r.Use(lm.Middleware(a))
	r.Use(metrics.Collect())

	r.Handle(http.MethodGet, "/metrics", m)

	// Proxy surface: everything under the mount forwards upstream, with
	// the cache cookie kept consistent on the way back.
	r.Any(AuthMount+"/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := strings.TrimPrefix(req.URL.Path, AuthMount)
		res := a.HandleAuthRequest(req.Context(), req, path)
		a.WriteAuthResponse(req.Context(), w, res)
	}))

	zl.Info("gateway router built",
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("loginUrl", cfg.Protect.LoginURL),
		zap.Strings("skipPaths", cfg.Protect.SkipPaths),
	)
	return r.Mux()
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In
	Logger *zap.Logger
	Cfg    config.Config
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, o Options, d serverDeps) {
	addr := d.Cfg.ListenAddr
	cert := os.Getenv(o.TLSCertEnv)
	key := os.Getenv(o.TLSKeyEnv)

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", o.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", o.Service),
					zap.String("addr", addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", o.Service))
			return srv.Shutdown(ctx)
		},
	})
}

// ---------- tiny helpers ----------

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
