package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
)

var now = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func newFirm(t *testing.T) *Firm {
	t.Helper()
	f, err := NewFirm(id.NewFirmID(), CreateFirmCommand{Name: "Acme Legal", Email: "ops@acme.test"}, now)
	require.NoError(t, err)
	return f
}

func TestNewFirmRequiresNameAndEmail(t *testing.T) {
	_, err := NewFirm(id.NewFirmID(), CreateFirmCommand{Email: "ops@acme.test"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewFirm(id.NewFirmID(), CreateFirmCommand{Name: "Acme"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	f := newFirm(t)
	assert.False(t, f.HasCompletedOnboarding)
	assert.Equal(t, now, f.CreatedAt)
}

func TestCompleteOnboardingOnce(t *testing.T) {
	f := newFirm(t)

	err := f.CompleteOnboarding("", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	assert.False(t, f.HasCompletedOnboarding)

	later := now.Add(time.Hour)
	require.NoError(t, f.CompleteOnboarding("user_123", later))
	assert.True(t, f.HasCompletedOnboarding)
	assert.Equal(t, "user_123", f.IdentityRef)
	assert.Equal(t, later, f.UpdatedAt)

	err = f.CompleteOnboarding("user_456", later)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.True(t, errors.Is(err, ErrOnboardingCompleted))
	assert.Equal(t, "user_123", f.IdentityRef)
}

func TestApplyPartialUpdate(t *testing.T) {
	f := newFirm(t)
	phone := "+1 555 0100"
	require.NoError(t, f.Apply(UpdateFirmCommand{Phone: &phone}, now.Add(time.Minute)))
	assert.Equal(t, "Acme Legal", f.Name)
	assert.Equal(t, phone, f.Phone)

	empty := ""
	err := f.Apply(UpdateFirmCommand{Name: &empty}, now)
	assert.Error(t, err)
}

func TestValuesSnapshot(t *testing.T) {
	f := newFirm(t)
	v := f.Values()
	assert.Equal(t, "Acme Legal", v.Name)
	assert.Equal(t, "ops@acme.test", v.Email)
	assert.False(t, v.HasCompletedOnboarding)
}
