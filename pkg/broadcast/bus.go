// pkg/broadcast/bus.go
package broadcast

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/neonguard/pkg/codec"
)

// EventType enumerates auth lifecycle signals. They mirror what a browser
// client would post on its tab-sync channel; a server process fans them out
// in-process (and optionally over the relay).
type EventType string

const (
	SignedIn       EventType = "signed_in"
	SignedOut      EventType = "signed_out"
	TokenRefreshed EventType = "token_refreshed"
	UserUpdated    EventType = "user_updated"
)

// Event never carries the raw session token; TokenHash is enough for
// consumers to correlate refreshes. Origin identifies the publishing
// instance so subscribers can skip their own events, the way a browser
// tab ignores its own channel posts.
type Event struct {
	Type      EventType `json:"type"`
	TokenHash string    `json:"tokenHash,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	At        time.Time `json:"at"`
}

// NewOrigin returns a random instance identifier for Event.Origin.
func NewOrigin() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// HashToken derives the correlation hash used in events.
func HashToken(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// RelaySink is the optional out-of-process fan-out target.
type RelaySink interface {
	Publish(ctx context.Context, topic string, body []byte, headers map[string]string) error
}

// Bus is a process-local publish/subscribe channel for auth events.
// Delivery is synchronous and in subscription order; handlers must not
// block. Ordering across processes is best-effort only.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)

	relay RelaySink
	topic string
	log   *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[int]func(Event)), log: log}
}

// WithRelay attaches an out-of-process sink; events publish to topic.
func (b *Bus) WithRelay(sink RelaySink, topic string) *Bus {
	b.mu.Lock()
	b.relay = sink
	b.topic = topic
	b.mu.Unlock()
	return b
}

// Subscribe registers fn and returns an unsubscribe func.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish fans ev out to local subscribers, then to the relay when one is
// attached. Relay failures are logged and dropped; eventing is best-effort
// and must never fail the auth operation that triggered it.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	relay, topic := b.relay, b.topic
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}

	if relay == nil || topic == "" {
		return
	}
	body, err := codec.JSONStrict.Marshal(ev)
	if err != nil {
		b.log.Error("broadcast encode failed", zap.Error(err))
		return
	}
	if err := relay.Publish(ctx, topic, body, map[string]string{"X-Event-Type": string(ev.Type)}); err != nil {
		b.log.Warn("broadcast relay publish failed",
			zap.String("topic", topic),
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}
