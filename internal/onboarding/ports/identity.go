// Package ports defines the external identity provider the onboarding flow
// signs firms up with.
package ports

import "context"

type AccountStatus string

const (
	// AccountComplete means the provider issued a stable identity reference.
	AccountComplete AccountStatus = "complete"
	// AccountNeedsVerification means an emailed code must be verified first.
	AccountNeedsVerification AccountStatus = "needs_verification"
)

type AccountResult struct {
	Status      AccountStatus
	IdentityRef string
}

// IsComplete reports whether the account can be linked to a firm.
func (r *AccountResult) IsComplete() bool {
	return r != nil && r.Status == AccountComplete && r.IdentityRef != ""
}

// IdentityService owns credentials and verified account identity. Errors
// that are not domain errors are treated as the provider being unavailable.
type IdentityService interface {
	CreateAccount(ctx context.Context, email, password string) (*AccountResult, error)
	VerifyCode(ctx context.Context, email, code string) (*AccountResult, error)
	ResendVerification(ctx context.Context, email string) error
}
