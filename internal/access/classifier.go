// Package access decides, on every request, whether the authenticated email
// belongs to the administrator, an onboarded firm, or nobody we know.
package access

import (
	"context"
	"log/slog"
	"strings"

	firmmodels "firmgate/internal/firm/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleFirm         Role = "firm"
	RoleUnrecognized Role = "unrecognized"
)

type Classification struct {
	Role   Role
	Email  string
	FirmID id.FirmID
}

type FirmLookup interface {
	GetByEmail(ctx context.Context, email string) (*firmmodels.Firm, error)
}

// Classifier compares against a single configured admin email. A second
// administrator needs a code change.
type Classifier struct {
	adminEmail string
	firms      FirmLookup
	logger     *slog.Logger
	metrics    *Metrics
}

func NewClassifier(adminEmail string, firms FirmLookup, logger *slog.Logger, metrics *Metrics) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{
		adminEmail: strings.TrimSpace(adminEmail),
		firms:      firms,
		logger:     logger,
		metrics:    metrics,
	}
}

// Classify is evaluated fresh each call. Firms that have not finished
// onboarding are Unrecognized.
func (c *Classifier) Classify(ctx context.Context, email string) (Classification, error) {
	email = strings.TrimSpace(email)
	out := Classification{Role: RoleUnrecognized, Email: email}
	if email == "" {
		c.record(out.Role)
		return out, nil
	}
	if c.adminEmail != "" && email == c.adminEmail {
		out.Role = RoleAdmin
		c.record(out.Role)
		return out, nil
	}

	firm, err := c.firms.GetByEmail(ctx, email)
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
	case err != nil:
		return Classification{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to classify principal")
	case firm.HasCompletedOnboarding:
		out.Role = RoleFirm
		out.FirmID = firm.ID
	}
	c.record(out.Role)
	return out, nil
}

func (c *Classifier) IsAdmin(email string) bool {
	return c.adminEmail != "" && strings.TrimSpace(email) == c.adminEmail
}

func (c *Classifier) record(role Role) {
	if c.metrics != nil {
		c.metrics.IncrementDecision(role)
	}
}
