package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	firmmodels "firmgate/internal/firm/models"
	tokenmodels "firmgate/internal/token/models"
	id "firmgate/pkg/domain"
)

// TestIDs provides pre-generated IDs for deterministic test data.
var TestIDs = struct {
	FirmID1  id.FirmID
	FirmID2  id.FirmID
	TokenID1 id.TokenID
	TokenID2 id.TokenID
}{
	FirmID1:  id.FirmID(uuid.MustParse("f1f10000-0000-0000-0000-000000000001")),
	FirmID2:  id.FirmID(uuid.MustParse("f1f10000-0000-0000-0000-000000000002")),
	TokenID1: id.TokenID(uuid.MustParse("70c00000-0000-0000-0000-000000000001")),
	TokenID2: id.TokenID(uuid.MustParse("70c00000-0000-0000-0000-000000000002")),
}

// FirmBuilder builds firms for tests with sensible defaults.
type FirmBuilder struct {
	firm *firmmodels.Firm
}

func NewFirmBuilder() *FirmBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &FirmBuilder{
		firm: &firmmodels.Firm{
			ID:        id.NewFirmID(),
			Name:      "Acme Legal",
			Email:     "contact@acme.test",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *FirmBuilder) WithID(firmID id.FirmID) *FirmBuilder {
	b.firm.ID = firmID
	return b
}

func (b *FirmBuilder) WithName(name string) *FirmBuilder {
	b.firm.Name = name
	return b
}

func (b *FirmBuilder) WithEmail(email string) *FirmBuilder {
	b.firm.Email = email
	return b
}

// Onboarded marks the firm as completed with identityRef.
func (b *FirmBuilder) Onboarded(identityRef string) *FirmBuilder {
	b.firm.HasCompletedOnboarding = true
	b.firm.IdentityRef = identityRef
	return b
}

func (b *FirmBuilder) Build() *firmmodels.Firm {
	f := *b.firm
	return &f
}

// TokenBuilder builds onboarding tokens for tests.
type TokenBuilder struct {
	token *tokenmodels.Token
}

func NewTokenBuilder(firmID id.FirmID) *TokenBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &TokenBuilder{
		token: &tokenmodels.Token{
			ID:        id.NewTokenID(),
			Value:     TokenValue(0),
			FirmID:    firmID,
			ExpiresAt: now.Add(tokenmodels.DefaultTTL),
			CreatedAt: now,
		},
	}
}

func (b *TokenBuilder) WithValue(value string) *TokenBuilder {
	b.token.Value = value
	return b
}

func (b *TokenBuilder) ExpiresAt(t time.Time) *TokenBuilder {
	b.token.ExpiresAt = t
	return b
}

func (b *TokenBuilder) Used(at time.Time) *TokenBuilder {
	b.token.IsUsed = true
	b.token.UsedAt = &at
	return b
}

func (b *TokenBuilder) Build() *tokenmodels.Token {
	t := *b.token
	return &t
}

// TokenValue returns a well-formed token string distinct per n.
func TokenValue(n int) string {
	return fmt.Sprintf("%032d", n)
}
