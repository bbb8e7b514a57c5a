// Package availability holds the Availability Cache: a per-date record of
// taken slots over a pluggable key/value Store, the per-date Locker that
// serializes conflict-check-and-commit, and the daily Janitor.
package availability

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is a key/value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// MemoryStore is an in-process Store with lazy expiry.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{data: make(map[string]entry), now: now}
}

func (m *MemoryStore) live(e entry) bool {
	return e.expires.IsZero() || m.now().Before(e.expires)
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || !m.live(e) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set implements Store. A ttl <= 0 stores without expiry.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Keys implements Lister. Expired keys are skipped.
func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k, e := range m.data {
		if strings.HasPrefix(k, prefix) && m.live(e) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.data {
		if !m.live(e) {
			delete(m.data, k)
			n++
		}
	}
	return n
}
