package handler

import (
	"time"

	"firmgate/internal/token/models"
)

type IssuedTokenResponse struct {
	TokenID     string    `json:"token_id"`
	Token       string    `json:"token"`
	Link        string    `json:"link"`
	ExpiresAt   time.Time `json:"expires_at"`
	Invalidated int       `json:"invalidated_tokens"`
}

type FirmSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TokenResponse struct {
	ID        string               `json:"id"`
	FirmID    string               `json:"firm_id"`
	Status    string               `json:"status"`
	Token     string               `json:"token,omitempty"`
	Link      string               `json:"link,omitempty"`
	ExpiresAt time.Time            `json:"expires_at"`
	CreatedAt time.Time            `json:"created_at"`
	UsedAt    *time.Time           `json:"used_at,omitempty"`
	Firm      *FirmSummaryResponse `json:"firm,omitempty"`
}

type TokenListResponse struct {
	Tokens []*TokenResponse `json:"tokens"`
}

const (
	statusValid   = "valid"
	statusUsed    = "used"
	statusExpired = "expired"
)

// toTokenResponse only exposes the secret while the token is unused.
func toTokenResponse(t *models.Token, now time.Time, link func(string) string) *TokenResponse {
	resp := &TokenResponse{
		ID:        t.ID.String(),
		FirmID:    t.FirmID.String(),
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
		UsedAt:    t.UsedAt,
	}
	switch {
	case t.IsUsed:
		resp.Status = statusUsed
	case t.IsExpired(now):
		resp.Status = statusExpired
	default:
		resp.Status = statusValid
	}
	if !t.IsUsed {
		resp.Token = t.Value
		resp.Link = link(t.Value)
	}
	return resp
}
