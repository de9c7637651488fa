// Package cache provides the volatile memo tier used to absorb repeated
// dashboard reads. The durable tier is the Postgres snapshot store; this
// layer only shortcuts it.
package cache

import (
	"sync"
	"time"
)

// Service is the injected cache contract. Everything that memoizes goes
// through this interface so tests can supply a fake clock and assert
// eviction without timing flakiness.
type Service interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Invalidate(key string)
	InvalidatePrefix(prefix string)
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Memory is the in-process implementation of Service. Reads and writes are
// guarded by a mutex; there is no cross-process coordination (last writer
// wins on the durable tier via merge semantics).
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates a volatile cache using the wall clock.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// WithClock swaps the clock source. Test hook.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.Invalidate(key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value interface{}, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// InvalidatePrefix drops every key under a prefix. Used when a fresh
// extraction lands for an issuer and all its memoized reads must go.
func (m *Memory) InvalidatePrefix(prefix string) {
	m.mu.Lock()
	for k := range m.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}

// Len reports live (possibly expired) entry count. Diagnostic only.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
