// Package ratelimit provides the upload rate limiter as an injected
// capability: handlers receive a Limiter, never a package-level singleton, so
// the backend can be swapped at process startup.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter answers whether one more request is allowed for a key right now.
type Limiter interface {
	Allow(key string) bool
}

// Memory is the in-process fallback backend: a per-key sliding window.
type Memory struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string][]time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

func (m *Memory) Allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-m.window)
	kept := m.entries[key][:0]
	for _, t := range m.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= m.limit {
		m.entries[key] = kept
		return false
	}
	m.entries[key] = append(kept, now)
	return true
}

// Unlimited disables limiting (tests, internal tooling).
type Unlimited struct{}

func (Unlimited) Allow(string) bool { return true }
