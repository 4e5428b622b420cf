// pkg/dedupe/inflight.go
package dedupe

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Result is the shareable part of an HTTP exchange. Callers each receive
// their own copy since response bodies are single-read.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{Status: r.Status, Header: r.Header.Clone()}
	out.Body = append([]byte(nil), r.Body...)
	return out
}

// Manager collapses concurrent identical outbound requests into a single
// network call. Once a call settles its key is released, so a later call
// with the same key always performs a fresh request.
type Manager struct {
	group singleflight.Group

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewManager() *Manager {
	return &Manager{pending: make(map[string]struct{})}
}

// Key builds the canonical dedup key for a request.
func Key(method, url string, body []byte) string {
	return fmt.Sprintf("%s:%s:%s", method, url, body)
}

// Deduplicate runs fn once per key among concurrent callers, handing every
// caller an independent copy of the result.
func (m *Manager) Deduplicate(key string, fn func() (*Result, error)) (*Result, error) {
	m.mu.Lock()
	m.pending[key] = struct{}{}
	m.mu.Unlock()

	v, err, _ := m.group.Do(key, func() (any, error) {
		return fn()
	})

	m.mu.Lock()
	delete(m.pending, key)
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	res, _ := v.(*Result)
	return res.clone(), nil
}

// ClearAll stops deduplicating against every pending key. In-flight network
// calls are left running; callers already waiting on them resolve normally.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	keys := make([]string, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	m.pending = make(map[string]struct{})
	m.mu.Unlock()

	for _, k := range keys {
		m.group.Forget(k)
	}
}
