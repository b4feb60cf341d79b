// Package cache stores rendered artifacts keyed by content version.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a byte cache with per-entry TTL. A zero TTL means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Cache bounded by entry count. When full, the entry
// closest to expiry is evicted.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// NewMemory creates a cache holding at most maxEntries (default 256).
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Memory{entries: make(map[string]entry), maxEntries: maxEntries, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictLocked()
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) evictLocked() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for k, e := range m.entries {
		if !e.expires.IsZero() && m.now().After(e.expires) {
			delete(m.entries, k)
			return
		}
		if !found || (!e.expires.IsZero() && (oldest.IsZero() || e.expires.Before(oldest))) {
			victim, oldest, found = k, e.expires, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}
