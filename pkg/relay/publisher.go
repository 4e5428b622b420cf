// pkg/relay/publisher.go
package relay

// Publish-only event sink implemented with Electrician builder primitives.
// neonguard uses it to fan auth lifecycle events out to other processes;
// when ELECTRICIAN_TARGET is unset the noop sink applies and eventing
// stays in-process.

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joeydtaylor/electrician/pkg/builder"
)

// Publisher is the minimal sink contract the broadcast bus needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte, headers map[string]string) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte, map[string]string) error { return nil }

type builderPublisher struct {
	start  error
	submit func(context.Context, []byte) error // captures wire.Submit
}

// NewFromEnv returns a publish-capable sink powered by Electrician's
// ForwardRelay[[]byte]. It expects:
//
//	ELECTRICIAN_TARGET          = "host:port[,host2:port2]"   (required)
//
// Optional features (all off by default):
//
//	ELECTRICIAN_TLS_ENABLE      = "true" | "false"
//	ELECTRICIAN_TLS_CLIENT_CRT  = path (default: keys/tls/client.crt)
//	ELECTRICIAN_TLS_CLIENT_KEY  = path (default: keys/tls/client.key)
//	ELECTRICIAN_TLS_CA          = path (default: keys/tls/ca.crt)
//	ELECTRICIAN_COMPRESS        = "snappy" | ""
//	ELECTRICIAN_ENCRYPT         = "aesgcm" | ""
//	ELECTRICIAN_AES256_KEY_HEX  = 64 hex chars (32 bytes)
//	ELECTRICIAN_STATIC_HEADERS  = "k=v,k2=v2"
//
// If ELECTRICIAN_TARGET is absent, it returns a noop Publisher.
func NewFromEnv() (Publisher, error) {
	raw := strings.TrimSpace(os.Getenv("ELECTRICIAN_TARGET"))
	if raw == "" {
		return noopPublisher{}, nil
	}
	targets := strings.Split(raw, ",")

	useTLS := strings.EqualFold(os.Getenv("ELECTRICIAN_TLS_ENABLE"), "true")
	tlsCrt := envOr("ELECTRICIAN_TLS_CLIENT_CRT", "keys/tls/client.crt")
	tlsKey := envOr("ELECTRICIAN_TLS_CLIENT_KEY", "keys/tls/client.key")
	tlsCA := envOr("ELECTRICIAN_TLS_CA", "keys/tls/ca.crt")

	useSnappy := strings.EqualFold(os.Getenv("ELECTRICIAN_COMPRESS"), "snappy")
	useAESGCM := strings.EqualFold(os.Getenv("ELECTRICIAN_ENCRYPT"), "aesgcm")
	var aesKey string
	if useAESGCM {
		k := strings.TrimSpace(os.Getenv("ELECTRICIAN_AES256_KEY_HEX"))
		rawKey, err := hex.DecodeString(k)
		if err != nil || len(rawKey) != 32 {
			return nil, fmt.Errorf("ELECTRICIAN_AES256_KEY_HEX must be 64 hex chars (32 bytes): %w", err)
		}
		aesKey = string(rawKey)
	}

	staticHeaders := parseKV(os.Getenv("ELECTRICIAN_STATIC_HEADERS"))

	logger := builder.NewLogger(builder.LoggerWithDevelopment(true))

	// Build internals (not stored on the struct; captured by closures).
	ctx := context.Background()
	wire := builder.NewWire[[]byte](ctx, builder.WireWithLogger[[]byte](logger))

	perf := builder.NewPerformanceOptions(useSnappy, builder.COMPRESS_SNAPPY)
	sec := builder.NewSecurityOptions(useAESGCM, builder.ENCRYPTION_AES_GCM)
	tlsCfg := builder.NewTlsClientConfig(
		useTLS,
		tlsCrt, tlsKey, tlsCA,
		tls.VersionTLS13, tls.VersionTLS13,
	)

	fr := builder.NewForwardRelay[[]byte](
		ctx,
		builder.ForwardRelayWithLogger[[]byte](logger),
		builder.ForwardRelayWithTarget[[]byte](targets...),
		builder.ForwardRelayWithPerformanceOptions[[]byte](perf),
		builder.ForwardRelayWithSecurityOptions[[]byte](sec, aesKey),
		builder.ForwardRelayWithTLSConfig[[]byte](tlsCfg),
		builder.ForwardRelayWithStaticHeaders[[]byte](staticHeaders),
		builder.ForwardRelayWithInput(wire),
	)

	p := &builderPublisher{
		submit: func(ctx context.Context, b []byte) error { return wire.Submit(ctx, b) },
	}
	var once sync.Once
	once.Do(func() {
		if err := wire.Start(ctx); err != nil {
			p.start = fmt.Errorf("relay wire start: %w", err)
			return
		}
		if err := fr.Start(ctx); err != nil {
			p.start = fmt.Errorf("relay start: %w", err)
			return
		}
	})
	if p.start != nil {
		return nil, p.start
	}
	return p, nil
}

// Publish sends bytes into the pipeline. Topic/headers ride the relay path.
func (p *builderPublisher) Publish(ctx context.Context, topic string, body []byte, _ map[string]string) error {
	if topic == "" {
		return fmt.Errorf("relay: missing topic")
	}
	if p.start != nil {
		return p.start
	}
	return p.submit(ctx, body)
}

// --- small helpers ---

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func parseKV(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if i := strings.IndexByte(pair, '='); i > 0 {
			out[pair[:i]] = pair[i+1:]
		}
	}
	return out
}
