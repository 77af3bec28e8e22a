// Package store persists admin users in memory or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"sync"

	"firmgate/internal/admin/types"
	"firmgate/internal/sentinel"
	"firmgate/pkg/platform/tx"
)

type InMemory struct {
	mu      sync.RWMutex
	byEmail map[string]*types.AdminUser
}

func NewInMemory() *InMemory {
	return &InMemory{byEmail: make(map[string]*types.AdminUser)}
}

func (s *InMemory) Create(ctx context.Context, u *types.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return fmt.Errorf("admin email %w", sentinel.ErrDuplicate)
	}
	cp := *u
	s.byEmail[u.Email] = &cp
	tx.OnRollback(ctx, func() { s.restore(u.Email, nil) })
	return nil
}

func (s *InMemory) Update(ctx context.Context, u *types.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byEmail[u.Email]
	if !ok || current.ID != u.ID {
		return sentinel.ErrNotFound
	}
	cp := *u
	s.byEmail[u.Email] = &cp
	tx.OnRollback(ctx, func() { s.restore(u.Email, current) })
	return nil
}

// restore puts prev back under email, or removes the entry when prev is nil.
func (s *InMemory) restore(email string, prev *types.AdminUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev == nil {
		delete(s.byEmail, email)
		return
	}
	s.byEmail[email] = prev
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*types.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
