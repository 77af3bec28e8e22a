package models

import (
	"errors"
	"time"

	auditmodels "firmgate/internal/audit/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
)

// ErrOnboardingCompleted is wrapped by the Conflict returned when a firm is
// completed twice, so callers can tell it apart from other conflicts.
var ErrOnboardingCompleted = errors.New("firm has already completed onboarding")

const (
	MaxNameLength  = 200
	MaxEmailLength = 320
)

// Firm is a tenant. It is never deleted; onboarding completes exactly once.
type Firm struct {
	ID                     id.FirmID
	Name                   string
	Email                  string
	IdentityRef            string
	HasCompletedOnboarding bool
	ContactPerson          string
	Phone                  string
	Address                string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func NewFirm(firmID id.FirmID, cmd CreateFirmCommand, now time.Time) (*Firm, error) {
	f := &Firm{
		ID:            firmID,
		Name:          cmd.Name,
		Email:         cmd.Email,
		ContactPerson: cmd.ContactPerson,
		Phone:         cmd.Phone,
		Address:       cmd.Address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}

// CompleteOnboarding links the identity account and flips the flag.
func (f *Firm) CompleteOnboarding(identityRef string, now time.Time) error {
	if f.HasCompletedOnboarding {
		return dErrors.Wrap(ErrOnboardingCompleted, dErrors.CodeConflict, ErrOnboardingCompleted.Error())
	}
	if identityRef == "" {
		return dErrors.New(dErrors.CodeBadRequest, "identity reference is required")
	}
	f.IdentityRef = identityRef
	f.HasCompletedOnboarding = true
	f.UpdatedAt = now
	return nil
}

// Apply sets every non-nil field of cmd. Onboarding state is not editable.
func (f *Firm) Apply(cmd UpdateFirmCommand, now time.Time) error {
	if cmd.Name != nil {
		f.Name = *cmd.Name
	}
	if cmd.Email != nil {
		f.Email = *cmd.Email
	}
	if cmd.ContactPerson != nil {
		f.ContactPerson = *cmd.ContactPerson
	}
	if cmd.Phone != nil {
		f.Phone = *cmd.Phone
	}
	if cmd.Address != nil {
		f.Address = *cmd.Address
	}
	if err := f.check(); err != nil {
		return err
	}
	f.UpdatedAt = now
	return nil
}

func (f *Firm) check() error {
	switch {
	case f.Name == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "firm name cannot be empty")
	case len(f.Name) > MaxNameLength:
		return dErrors.New(dErrors.CodeInvariantViolation, "firm name is too long")
	case f.Email == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "firm email cannot be empty")
	case len(f.Email) > MaxEmailLength:
		return dErrors.New(dErrors.CodeInvariantViolation, "firm email is too long")
	}
	return nil
}

// Values is the audit snapshot of f.
func (f *Firm) Values() auditmodels.FirmValues {
	return auditmodels.FirmValues{
		Name:                   f.Name,
		Email:                  f.Email,
		ContactPerson:          f.ContactPerson,
		Phone:                  f.Phone,
		Address:                f.Address,
		HasCompletedOnboarding: f.HasCompletedOnboarding,
	}
}

// Summary is the slice of a firm exposed on the public signup page.
type Summary struct {
	ID    id.FirmID
	Name  string
	Email string
}

func (f *Firm) Summary() Summary {
	return Summary{ID: f.ID, Name: f.Name, Email: f.Email}
}
