// Package store persists firms in memory or PostgreSQL. Stores return
// sentinel errors; the service translates them.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"firmgate/internal/firm/models"
	"firmgate/internal/sentinel"
	id "firmgate/pkg/domain"
	"firmgate/pkg/platform/tx"
)

type InMemory struct {
	mu       sync.RWMutex
	firms    map[id.FirmID]*models.Firm
	emailIdx map[string]id.FirmID
}

func NewInMemory() *InMemory {
	return &InMemory{
		firms:    make(map[id.FirmID]*models.Firm),
		emailIdx: make(map[string]id.FirmID),
	}
}

func (s *InMemory) Create(ctx context.Context, f *models.Firm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emailIdx[f.Email]; taken {
		return fmt.Errorf("firm email %w", sentinel.ErrDuplicate)
	}
	s.put(f)
	firmID, email := f.ID, f.Email
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.emailIdx, email)
		delete(s.firms, firmID)
	})
	return nil
}

func (s *InMemory) Update(ctx context.Context, f *models.Firm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.firms[f.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner, taken := s.emailIdx[f.Email]; taken && owner != f.ID {
		return fmt.Errorf("firm email %w", sentinel.ErrDuplicate)
	}
	delete(s.emailIdx, current.Email)
	s.put(f)
	email := f.Email
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.emailIdx, email)
		s.put(current)
	})
	return nil
}

// put stores a copy of f and indexes its email. Callers hold mu.
func (s *InMemory) put(f *models.Firm) {
	cp := *f
	s.firms[f.ID] = &cp
	s.emailIdx[f.Email] = f.ID
}

func (s *InMemory) FindByID(_ context.Context, firmID id.FirmID) (*models.Firm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.firms[firmID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Firm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	firmID, ok := s.emailIdx[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.firms[firmID]
	return &cp, nil
}

// FindByIDForUpdate is FindByID; callers serialize through the in-memory tx.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, firmID id.FirmID) (*models.Firm, error) {
	return s.FindByID(ctx, firmID)
}

func (s *InMemory) FindByEmailForUpdate(ctx context.Context, email string) (*models.Firm, error) {
	return s.FindByEmail(ctx, email)
}

// List returns every firm, newest first.
func (s *InMemory) List(_ context.Context) ([]*models.Firm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Firm, 0, len(s.firms))
	for _, f := range s.firms {
		cp := *f
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Firm) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})
	return out, nil
}
