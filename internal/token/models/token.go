// Package models holds onboarding tokens and the tagged validation result.
package models

import (
	"time"

	firmmodels "firmgate/internal/firm/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
)

const (
	// Length is the number of characters in a token string.
	Length = 32
	// DefaultTTL is how long a freshly issued token stays valid.
	DefaultTTL = 24 * time.Hour
)

// Token is a single-use capability to claim one firm. Tokens are never
// deleted; IsUsed only moves from false to true.
type Token struct {
	ID        id.TokenID
	Value     string
	FirmID    id.FirmID
	IsUsed    bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
}

func NewToken(tokenID id.TokenID, firmID id.FirmID, value string, now time.Time, ttl time.Duration) (*Token, error) {
	if len(value) != Length {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token must be 32 characters")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token ttl must be positive")
	}
	return &Token{
		ID:        tokenID,
		Value:     value,
		FirmID:    firmID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

func (t *Token) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// IsValid reports whether t can still be consumed at now.
func (t *Token) IsValid(now time.Time) bool {
	return !t.IsUsed && !t.IsExpired(now)
}

func (t *Token) MarkUsed(now time.Time) error {
	if t.IsUsed {
		return dErrors.New(dErrors.CodeConflict, MessageUsed)
	}
	t.IsUsed = true
	t.UsedAt = &now
	return nil
}

// IssuedToken is returned to the admin after generation.
type IssuedToken struct {
	TokenID   id.TokenID
	Token     string
	ExpiresAt time.Time
	// Invalidated counts tokens retired by this issuance.
	Invalidated int
}

// TokenWithFirm enriches a token for the admin views. Firm is nil when the
// owning record is missing.
type TokenWithFirm struct {
	Token *Token
	Firm  *firmmodels.Summary
}
