package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/requestcontext"
)

func newService() *Service {
	return New("test-signing-key", "firmgate-test", "firmgate-api", time.Hour)
}

func TestIssueAndValidate(t *testing.T) {
	svc := newService()
	token, expiresAt, err := svc.Issue(context.Background(), "user_123", " ops@acme.test ")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.test", claims.Email)
	assert.Equal(t, "user_123", claims.Subject)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := newService()
	ctx := requestcontext.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
	token, _, err := svc.Issue(ctx, "user_123", "ops@acme.test")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "session expired", err.Error())
}

func TestValidateRejectsForeignSigner(t *testing.T) {
	other := New("another-key", "firmgate-test", "firmgate-api", time.Hour)
	token, _, err := other.Issue(context.Background(), "u", "ops@acme.test")
	require.NoError(t, err)

	_, err = newService().Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	other := New("test-signing-key", "firmgate-test", "someone-else", time.Hour)
	token, _, err := other.Issue(context.Background(), "u", "ops@acme.test")
	require.NoError(t, err)

	_, err = newService().Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "ops@acme.test"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService().Validate(signed)
	assert.Error(t, err)
}

func TestIssueRequiresEmail(t *testing.T) {
	_, _, err := newService().Issue(context.Background(), "u", "  ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
