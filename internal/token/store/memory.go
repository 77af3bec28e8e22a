// Package store persists onboarding tokens in memory or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"firmgate/internal/sentinel"
	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	"firmgate/pkg/platform/tx"
)

type InMemory struct {
	mu      sync.RWMutex
	tokens  map[id.TokenID]*models.Token
	byValue map[string]id.TokenID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tokens:  make(map[id.TokenID]*models.Token),
		byValue: make(map[string]id.TokenID),
	}
}

func (s *InMemory) Insert(ctx context.Context, t *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byValue[t.Value]; taken {
		return fmt.Errorf("token value %w", sentinel.ErrDuplicate)
	}
	s.tokens[t.ID] = clone(t)
	s.byValue[t.Value] = t.ID
	tokenID, value := t.ID, t.Value
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byValue, value)
		delete(s.tokens, tokenID)
	})
	return nil
}

func (s *InMemory) Exists(_ context.Context, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byValue[value]
	return ok, nil
}

func (s *InMemory) FindByValue(_ context.Context, value string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokenID, ok := s.byValue[value]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.tokens[tokenID]), nil
}

// MarkUsed flips is_used only when it is still false.
func (s *InMemory) MarkUsed(ctx context.Context, tokenID id.TokenID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.IsUsed {
		return sentinel.ErrAlreadyUsed
	}
	t.IsUsed = true
	t.UsedAt = &at
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.IsUsed = false
		t.UsedAt = nil
	})
	return nil
}

func (s *InMemory) ListUnusedByFirm(_ context.Context, firmID id.FirmID) ([]*models.Token, error) {
	return s.list(func(t *models.Token) bool { return t.FirmID == firmID && !t.IsUsed }), nil
}

func (s *InMemory) ListByFirm(_ context.Context, firmID id.FirmID) ([]*models.Token, error) {
	return s.list(func(t *models.Token) bool { return t.FirmID == firmID }), nil
}

func (s *InMemory) ListUnused(_ context.Context) ([]*models.Token, error) {
	return s.list(func(t *models.Token) bool { return !t.IsUsed }), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Token, error) {
	return s.list(func(*models.Token) bool { return true }), nil
}

// list returns matching tokens newest first.
func (s *InMemory) list(keep func(*models.Token) bool) []*models.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Token
	for _, t := range s.tokens {
		if keep(t) {
			out = append(out, clone(t))
		}
	}
	slices.SortFunc(out, func(a, b *models.Token) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareValue(b.Value, a.Value)
	})
	return out
}

func compareValue(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func clone(t *models.Token) *models.Token {
	cp := *t
	if t.UsedAt != nil {
		at := *t.UsedAt
		cp.UsedAt = &at
	}
	return &cp
}
