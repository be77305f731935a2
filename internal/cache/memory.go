package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMemorySize bounds the number of keys the in-process cache holds.
	DefaultMemorySize = 10_000
	// DefaultMemoryMaxTTL caps how long any key lives, including ones set
	// without a TTL.
	DefaultMemoryMaxTTL = 30 * 24 * time.Hour
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means the cache-wide max TTL applies
}

// Memory is an in-process Cache used when Redis is not configured. It is a
// size-bounded LRU; each key also carries its own expiry.
type Memory struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithLimits(DefaultMemorySize, DefaultMemoryMaxTTL)
}

func NewMemoryWithLimits(size int, maxTTL time.Duration) *Memory {
	return &Memory{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.lru.Remove(key)
		return nil, ErrMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.lru.Add(key, entry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	m.lru.Remove(key)
	m.mu.Unlock()
	return nil
}

// Len reports how many keys are held, expired ones included until they
// are read or pushed out.
func (m *Memory) Len() int {
	return m.lru.Len()
}
