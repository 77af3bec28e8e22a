// Package dedupe remembers webhook delivery ids for a bounded time so
// provider retries of an already-processed delivery are acknowledged without
// being processed again.
package dedupe

import (
	"context"
	"sync"
	"time"
)

type InMemory struct {
	mu      sync.Mutex
	claims  map[string]time.Time
	nowFunc func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{claims: make(map[string]time.Time), nowFunc: time.Now}
}

// Claim returns true when deliveryID was not claimed within the last ttl.
func (m *InMemory) Claim(_ context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	if exp, ok := m.claims[deliveryID]; ok && now.Before(exp) {
		return false, nil
	}
	m.sweep(now)
	m.claims[deliveryID] = now.Add(ttl)
	return true, nil
}

func (m *InMemory) Release(_ context.Context, deliveryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, deliveryID)
	return nil
}

func (m *InMemory) sweep(now time.Time) {
	for k, exp := range m.claims {
		if !now.Before(exp) {
			delete(m.claims, k)
		}
	}
}
