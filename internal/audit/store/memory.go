// Package store persists audit entries in memory or PostgreSQL.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"firmgate/internal/audit/models"
	"firmgate/pkg/platform/tx"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := &models.Entry{}
	*cp = *entry
	s.entries = append(s.entries, cp)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = slices.DeleteFunc(s.entries, func(e *models.Entry) bool { return e == cp })
	})
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityID string) ([]*models.Entry, error) {
	return s.filter(func(e *models.Entry) bool { return e.EntityID == entityID }, 0), nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor string) ([]*models.Entry, error) {
	return s.filter(func(e *models.Entry) bool { return e.Actor == actor }, 0), nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]*models.Entry, error) {
	return s.filter(func(*models.Entry) bool { return true }, limit), nil
}

// All returns every entry oldest first.
func (s *InMemoryStore) All() []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, len(s.entries))
	for i, e := range s.entries {
		cp := *e
		out[i] = &cp
	}
	return out
}

func (s *InMemoryStore) filter(keep func(*models.Entry) bool, limit int) []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	slices.SortStableFunc(out, newestFirst)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// newestFirst orders by timestamp, then by ULID for entries sharing a
// request time.
func newestFirst(a, b *models.Entry) int {
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}
