//go:build integration

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"firmgate/internal/audit"
	auditstore "firmgate/internal/audit/store"
	firmmodels "firmgate/internal/firm/models"
	firmservice "firmgate/internal/firm/service"
	firmstore "firmgate/internal/firm/store"
	"firmgate/internal/identity/devidp"
	"firmgate/internal/onboarding/models"
	"firmgate/internal/onboarding/service"
	tokenservice "firmgate/internal/token/service"
	tokenstore "firmgate/internal/token/store"
	"firmgate/pkg/platform/tx"
	"firmgate/pkg/requestcontext"
	"firmgate/pkg/testutil"
	"firmgate/pkg/testutil/containers"
)

const adminEmail = "admin@firmgate.test"

type PostgresOnboardingSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	firms      *firmservice.Service
	tokens     *tokenservice.Service
	onboarding *service.Service
	ctx        context.Context
}

func TestPostgresOnboardingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOnboardingSuite))
}

func (s *PostgresOnboardingSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
}

func (s *PostgresOnboardingSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC())
	s.Require().NoError(s.postgres.TruncateAll(s.ctx))

	db := s.postgres.DB
	runner := tx.NewPostgres(db)
	writer := audit.NewWriter(auditstore.NewPostgres(db))
	firmStore := firmstore.NewPostgres(db)

	s.firms = firmservice.New(firmStore, writer, firmservice.WithTx(runner))
	s.tokens = tokenservice.New(tokenstore.NewPostgres(db), firmStore, writer, tokenservice.WithTx(runner))
	idp := devidp.New(devidp.WithVerification(false), devidp.WithBcryptCost(bcrypt.MinCost))
	s.onboarding = service.New(s.tokens, s.firms, idp)
}

func (s *PostgresOnboardingSuite) issue(email string) (*firmmodels.Firm, string) {
	f, err := s.firms.Create(s.ctx, firmmodels.CreateFirmCommand{Name: "Acme Legal", Email: email}, adminEmail)
	s.Require().NoError(err)
	issued, err := s.tokens.Generate(s.ctx, f.ID, adminEmail)
	s.Require().NoError(err)
	return f, issued.Token
}

func (s *PostgresOnboardingSuite) countAudit(action string, entityID string) int {
	var n int
	s.Require().NoError(s.postgres.DB.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE action = $1 AND entity_id = $2`, action, entityID).Scan(&n))
	return n
}

func (s *PostgresOnboardingSuite) TestSubmitCredentialCompletesOnboarding() {
	f, token := s.issue("acme@firm.test")

	out, err := s.onboarding.SubmitCredential(s.ctx, token, "Passw0rdX")
	s.Require().NoError(err)
	s.Equal(models.OutcomeCompleted, out.Status)

	got, err := s.firms.Get(s.ctx, f.ID)
	s.Require().NoError(err)
	s.True(got.HasCompletedOnboarding)
	s.NotEmpty(got.IdentityRef)

	res := s.tokens.Validate(s.ctx, token)
	s.False(res.Valid)
	s.Equal(1, s.countAudit("firm_onboarding_completed", f.ID.String()))
}

// Concurrent submissions of one token must complete the firm exactly once.
// The identity provider hands every submission the same account, so callers
// that lose the completion race see either success or a used token.
func (s *PostgresOnboardingSuite) TestConcurrentSubmitCompletesOnce() {
	f, token := s.issue("race@firm.test")

	result := testutil.RunConcurrent(8, func(int) error {
		_, err := s.onboarding.SubmitCredential(s.ctx, token, "Passw0rdX")
		return err
	})

	s.GreaterOrEqual(result.Successes, int32(1))
	s.Equal(int32(8), result.Successes+result.Conflicts)
	s.Zero(result.Errors)
	s.Equal(1, s.countAudit("firm_onboarding_completed", f.ID.String()))
	s.False(s.tokens.Validate(s.ctx, token).Valid)
}

func (s *PostgresOnboardingSuite) TestReconcileConsumesOutstandingTokens() {
	f, token := s.issue("hook@firm.test")

	res, err := s.onboarding.HandleAccountFinalized(s.ctx, "hook@firm.test", "user_hook")
	s.Require().NoError(err)
	s.Equal(models.ReconcileCompleted, res.Status)

	got, err := s.firms.Get(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal("user_hook", got.IdentityRef)
	s.False(s.tokens.Validate(s.ctx, token).Valid)

	res, err = s.onboarding.HandleAccountFinalized(s.ctx, "hook@firm.test", "user_hook")
	s.Require().NoError(err)
	s.Equal(models.ReconcileAlreadyCompleted, res.Status)
}
