package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"firmgate/internal/audit"
	auditmodels "firmgate/internal/audit/models"
	auditstore "firmgate/internal/audit/store"
	firmmodels "firmgate/internal/firm/models"
	firmstore "firmgate/internal/firm/store"
	"firmgate/internal/token/models"
	tokenstore "firmgate/internal/token/store"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/requestcontext"
)

const (
	adminEmail = "admin@example.com"
	firmEmail  = "ops@acme.test"
)

// scriptedGenerator replays values, then falls back to distinct fillers.
type scriptedGenerator struct {
	mu     sync.Mutex
	values []string
	calls  int
}

func (g *scriptedGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.values) > 0 {
		v := g.values[0]
		g.values = g.values[1:]
		return v, nil
	}
	return "", errors.New("generator exhausted")
}

func repeat(ch string) string { return strings.Repeat(ch, models.Length) }

type ServiceSuite struct {
	suite.Suite
	firms   *firmstore.InMemory
	tokens  *tokenstore.InMemory
	entries *auditstore.InMemoryStore
	service *Service
	now     time.Time
	firm    *firmmodels.Firm
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.firms = firmstore.NewInMemory()
	s.tokens = tokenstore.NewInMemory()
	s.entries = auditstore.NewInMemoryStore()
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.service = New(s.tokens, s.firms, audit.NewWriter(s.entries), WithBaseURL("https://app.firmgate.test/"))

	f, err := firmmodels.NewFirm(id.NewFirmID(), firmmodels.CreateFirmCommand{Name: "Acme Legal", Email: firmEmail}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.firms.Create(context.Background(), f))
	s.firm = f
}

func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) entriesFor(action auditmodels.Action) []*auditmodels.Entry {
	var out []*auditmodels.Entry
	for _, e := range s.entries.All() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// seedStale inserts an unused token that expired before s.now.
func (s *ServiceSuite) seedStale(ch string, age time.Duration) *models.Token {
	tok, err := models.NewToken(id.NewTokenID(), s.firm.ID, repeat(ch), s.now.Add(-age), models.DefaultTTL)
	s.Require().NoError(err)
	s.Require().NoError(s.tokens.Insert(context.Background(), tok))
	return tok
}

func (s *ServiceSuite) TestGenerateIssuesValidToken() {
	issued, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)
	s.Len(issued.Token, models.Length)
	s.Equal(s.now.Add(24*time.Hour), issued.ExpiresAt)
	s.Zero(issued.Invalidated)

	res := s.service.Validate(s.at(s.now), issued.Token)
	s.Require().True(res.Valid)
	s.Equal(s.firm.ID, res.Firm.ID)
	s.Equal("Acme Legal", res.Firm.Name)
	s.Equal(firmEmail, res.Firm.Email)

	generated := s.entriesFor(auditmodels.ActionTokenGenerated)
	s.Require().Len(generated, 1)
	s.Equal(issued.TokenID.String(), generated[0].EntityID)
	s.Equal(auditmodels.ActorAdmin, generated[0].ActorType)
	details := generated[0].Details.(auditmodels.TokenGeneratedDetails)
	s.Equal(s.firm.ID.String(), details.FirmID)
	s.Equal(firmEmail, details.FirmEmail)
	s.False(details.ForceGenerated)
}

func (s *ServiceSuite) TestGenerateTwiceConflicts() {
	_, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)

	_, err = s.service.Generate(s.at(s.now.Add(time.Hour)), s.firm.ID, adminEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.EqualError(err, "this firm already has an active onboarding token")
	s.Len(s.entriesFor(auditmodels.ActionTokenGenerated), 1)
}

func (s *ServiceSuite) TestGenerateAfterExpiryRetiresOldToken() {
	first, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)

	later := s.now.Add(25 * time.Hour)
	second, err := s.service.Generate(s.at(later), s.firm.ID, adminEmail)
	s.Require().NoError(err)
	s.NotEqual(first.Token, second.Token)
	s.Equal(1, second.Invalidated)

	old, err := s.tokens.FindByValue(context.Background(), first.Token)
	s.Require().NoError(err)
	s.True(old.IsUsed)
	s.Equal(later, *old.UsedAt)
	s.True(s.service.Validate(s.at(later), second.Token).Valid)

	invalidated := s.entriesFor(auditmodels.ActionTokenInvalidated)
	s.Require().Len(invalidated, 1)
	s.Equal(first.TokenID.String(), invalidated[0].EntityID)
	s.Equal(auditmodels.ReasonExpiredCleanup, invalidated[0].Details.(auditmodels.TokenInvalidatedDetails).Reason)
}

func (s *ServiceSuite) TestGenerateUnknownFirm() {
	_, err := s.service.Generate(s.at(s.now), id.NewFirmID(), adminEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.EqualError(err, "firm not found")

	_, err = s.service.ForceGenerate(s.at(s.now), id.NewFirmID(), adminEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestForceGenerateInvalidatesStaleTokens() {
	a := s.seedStale("a", 48*time.Hour)
	b := s.seedStale("b", 30*time.Hour)

	issued, err := s.service.ForceGenerate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)
	s.Equal(2, issued.Invalidated)

	for _, tok := range []*models.Token{a, b} {
		got, err := s.tokens.FindByValue(context.Background(), tok.Value)
		s.Require().NoError(err)
		s.True(got.IsUsed)
	}
	s.True(s.service.Validate(s.at(s.now), issued.Token).Valid)

	generated := s.entriesFor(auditmodels.ActionTokenGenerated)
	s.Require().Len(generated, 1)
	details := generated[0].Details.(auditmodels.TokenGeneratedDetails)
	s.True(details.ForceGenerated)
	s.Equal(2, details.InvalidatedTokens)
	s.Len(s.entriesFor(auditmodels.ActionTokenInvalidated), 2)
}

func (s *ServiceSuite) TestForceGenerateReplacesValidToken() {
	first, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)

	second, err := s.service.ForceGenerate(s.at(s.now.Add(time.Minute)), s.firm.ID, adminEmail)
	s.Require().NoError(err)

	res := s.service.Validate(s.at(s.now.Add(time.Minute)), first.Token)
	s.False(res.Valid)
	s.Equal(models.ReasonUsed, res.Reason)

	valid, err := s.service.ListValidForFirm(s.at(s.now.Add(time.Minute)), s.firm.ID)
	s.Require().NoError(err)
	s.Require().Len(valid, 1)
	s.Equal(second.TokenID, valid[0].ID)
}

func (s *ServiceSuite) TestDrawRetriesOnCollision() {
	s.seedStale("a", time.Hour)
	gen := &scriptedGenerator{values: []string{repeat("a"), repeat("a"), repeat("c")}}
	svc := New(s.tokens, s.firms, audit.NewWriter(s.entries), WithGenerator(gen))

	issued, err := svc.ForceGenerate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)
	s.Equal(repeat("c"), issued.Token)
	s.Equal(3, gen.calls)
}

func (s *ServiceSuite) TestDrawGivesUpAfterBound() {
	s.seedStale("a", time.Hour)
	values := make([]string, maxDrawAttempts)
	for i := range values {
		values[i] = repeat("a")
	}
	gen := &scriptedGenerator{values: values}
	svc := New(s.tokens, s.firms, audit.NewWriter(s.entries), WithGenerator(gen))

	_, err := svc.ForceGenerate(s.at(s.now), s.firm.ID, adminEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(maxDrawAttempts, gen.calls)
}

func (s *ServiceSuite) TestValidateOrderedReasons() {
	issued, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)

	res := s.service.Validate(s.at(s.now), "nonexistent")
	s.False(res.Valid)
	s.Equal("Token not found", res.Message)

	res = s.service.Validate(s.at(s.now), repeat("z"))
	s.Equal(models.ReasonNotFound, res.Reason)

	res = s.service.Validate(s.at(issued.ExpiresAt), issued.Token)
	s.Equal(models.ReasonExpired, res.Reason)
	s.Equal("Token has expired", res.Message)

	s.Require().NoError(s.service.Consume(s.at(s.now), issued.Token, firmEmail))
	res = s.service.Validate(s.at(issued.ExpiresAt.Add(time.Hour)), issued.Token)
	s.Equal(models.ReasonUsed, res.Reason, "used is reported before expired")
	s.Equal("Token has already been used", res.Message)
}

func (s *ServiceSuite) TestValidateOrphanedFirm() {
	orphan, err := models.NewToken(id.NewTokenID(), id.NewFirmID(), repeat("q"), s.now, models.DefaultTTL)
	s.Require().NoError(err)
	s.Require().NoError(s.tokens.Insert(context.Background(), orphan))

	res := s.service.Validate(s.at(s.now), orphan.Value)
	s.Equal(models.ReasonOrphanedFirm, res.Reason)
	s.Equal("Associated firm not found", res.Message)

	err = s.service.Consume(s.at(s.now), orphan.Value, firmEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.EqualError(err, "Associated firm not found")
}

func (s *ServiceSuite) TestConsumeOnce() {
	issued, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Consume(s.at(s.now.Add(time.Minute)), issued.Token, firmEmail))
	got, err := s.tokens.FindByValue(context.Background(), issued.Token)
	s.Require().NoError(err)
	s.True(got.IsUsed)
	s.Equal(s.now.Add(time.Minute), *got.UsedAt)

	err = s.service.Consume(s.at(s.now.Add(2*time.Minute)), issued.Token, firmEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.EqualError(err, "Token has already been used")

	used := s.entriesFor(auditmodels.ActionTokenUsed)
	s.Require().Len(used, 1)
	s.Equal(firmEmail, used[0].Actor)
	s.Equal(auditmodels.ActorFirm, used[0].ActorType)
	s.Equal(s.now, used[0].Details.(auditmodels.TokenUsedDetails).OriginallyCreatedAt)
}

func (s *ServiceSuite) TestConsumeErrors() {
	err := s.service.Consume(s.at(s.now), repeat("x"), firmEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	issued, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail)
	s.Require().NoError(err)
	err = s.service.Consume(s.at(s.now.Add(24*time.Hour)), issued.Token, firmEmail)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	s.EqualError(err, "Token has expired")
}

func (s *ServiceSuite) TestConsumeAllForFirmEmail() {
	s.seedStale("a", 48*time.Hour)
	s.seedStale("b", 30*time.Hour)

	count, err := s.service.ConsumeAllForFirmEmail(s.at(s.now), firmEmail)
	s.Require().NoError(err)
	s.Equal(2, count)

	used := s.entriesFor(auditmodels.ActionTokenUsed)
	s.Require().Len(used, 2)
	for _, e := range used {
		s.True(e.Details.(auditmodels.TokenUsedDetails).VerificationCompleted)
	}

	count, err = s.service.ConsumeAllForFirmEmail(s.at(s.now), firmEmail)
	s.Require().NoError(err)
	s.Zero(count)

	_, err = s.service.ConsumeAllForFirmEmail(s.at(s.now), "nobody@firm.test")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestTokenStringsAreUnique() {
	seen := make(map[string]struct{})
	for i := range 50 {
		issued, err := s.service.ForceGenerate(s.at(s.now.Add(time.Duration(i)*time.Second)), s.firm.ID, adminEmail)
		s.Require().NoError(err)
		_, dup := seen[issued.Token]
		s.False(dup)
		seen[issued.Token] = struct{}{}
	}
	valid, err := s.service.ListValidForFirm(s.at(s.now.Add(time.Minute)), s.firm.ID)
	s.Require().NoError(err)
	s.Len(valid, 1, "at most one valid token per firm")
}

func (s *ServiceSuite) TestConcurrentGenerateKeepsSingleActiveToken() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.service.Generate(s.at(s.now), s.firm.ID, adminEmail); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, succeeded)
}

func (s *ServiceSuite) TestListings() {
	other, err := firmmodels.NewFirm(id.NewFirmID(), firmmodels.CreateFirmCommand{Name: "Beta", Email: "beta@firm.test"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.firms.Create(context.Background(), other))

	s.seedStale("a", 48*time.Hour)
	_, err = s.service.Generate(s.at(s.now.Add(time.Minute)), other.ID, adminEmail)
	s.Require().NoError(err)

	active, err := s.service.ListActive(s.at(s.now))
	s.Require().NoError(err)
	s.Require().Len(active, 2, "expired but unused tokens are listed")
	s.Equal(other.ID, active[0].Firm.ID)

	all, err := s.service.ListAll(s.at(s.now))
	s.Require().NoError(err)
	s.Len(all, 2)

	history, err := s.service.ListForFirm(s.at(s.now), s.firm.ID)
	s.Require().NoError(err)
	s.Len(history, 1)

	_, err = s.service.ListForFirm(s.at(s.now), id.NewFirmID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestOnboardingLink() {
	s.Equal("https://app.firmgate.test/firm-signup?token="+repeat("a"), s.service.OnboardingLink(repeat("a")))
}
