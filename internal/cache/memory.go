package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when Redis is not reachable.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
	gens    map[string]uint64
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	for _, tag := range tags {
		set, ok := m.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			m.tags[tag] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

func (m *MemoryCache) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		delete(m.entries, key)
	}
	delete(m.tags, tag)
	m.gens[tag]++
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) Generation(_ context.Context, tag string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[tag], nil
}

// prune drops expired entries and removes them from their tag sets. Callers
// hold m.mu.
func (m *MemoryCache) prune() {
	now := m.now()
	for key, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
	for tag, set := range m.tags {
		for key := range set {
			if _, ok := m.entries[key]; !ok {
				delete(set, key)
			}
		}
		if len(set) == 0 {
			delete(m.tags, tag)
		}
	}
}
