package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
)

// Memory is the in-process score cache used when no Redis address is
// configured. Entries expire lazily on read and a background sweep removes
// abandoned ones.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	bundle    *scoring.Bundle
	expiresAt time.Time
}

func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Close stops the sweep goroutine. Safe to call more than once; reads and
// writes still work afterwards, entries just expire lazily.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Memory) Get(ctx context.Context, tenant string, id entities.ClientID) (*scoring.Bundle, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[cacheKey(tenant, id)]
	m.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.bundle, true, nil
}

func (m *Memory) Set(ctx context.Context, tenant string, id entities.ClientID, b *scoring.Bundle, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[cacheKey(tenant, id)] = memoryEntry{bundle: b, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

func cacheKey(tenant string, id entities.ClientID) string {
	return "scores:" + tenant + ":" + string(id)
}

var _ scoring.Cache = (*Memory)(nil)
