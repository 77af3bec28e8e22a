// Package service issues, validates and consumes onboarding tokens. Every
// mutation locks the owning firm and records its audit entries in the same
// transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"firmgate/internal/audit"
	auditmodels "firmgate/internal/audit/models"
	firmmodels "firmgate/internal/firm/models"
	"firmgate/internal/sentinel"
	"firmgate/internal/token/generator"
	tokenmetrics "firmgate/internal/token/metrics"
	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/tracer"
	"firmgate/pkg/platform/tx"
	"firmgate/pkg/requestcontext"
	"firmgate/pkg/validation"
)

// maxDrawAttempts bounds the uniqueness retry. With 62^32 strings a second
// draw is already improbable; exhausting this means the generator is broken.
const maxDrawAttempts = 64

const activeTokenMessage = "this firm already has an active onboarding token"

type Store interface {
	Insert(ctx context.Context, t *models.Token) error
	Exists(ctx context.Context, value string) (bool, error)
	FindByValue(ctx context.Context, value string) (*models.Token, error)
	MarkUsed(ctx context.Context, tokenID id.TokenID, at time.Time) error
	ListUnusedByFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error)
	ListByFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error)
	ListUnused(ctx context.Context) ([]*models.Token, error)
	ListAll(ctx context.Context) ([]*models.Token, error)
}

// FirmStore is the slice of the firm registry the engine reads. The
// ForUpdate variants lock the row for the surrounding transaction.
type FirmStore interface {
	FindByID(ctx context.Context, firmID id.FirmID) (*firmmodels.Firm, error)
	FindByIDForUpdate(ctx context.Context, firmID id.FirmID) (*firmmodels.Firm, error)
	FindByEmailForUpdate(ctx context.Context, email string) (*firmmodels.Firm, error)
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditRecorder interface {
	Record(ctx context.Context, r audit.Record) error
}

type Generator interface {
	Generate() (string, error)
}

type Service struct {
	tokens    Store
	firms     FirmStore
	audit     AuditRecorder
	tx        StoreTx
	generator Generator
	ttl       time.Duration
	baseURL   string
	logger    *slog.Logger
	metrics   *tokenmetrics.Metrics
	tracer    tracer.Tracer
}

func New(tokens Store, firms FirmStore, recorder AuditRecorder, opts ...Option) *Service {
	cfg := &serviceConfig{ttl: models.DefaultTTL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = tx.NewInMemory()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.tracer == nil {
		cfg.tracer = tracer.NewNoop()
	}
	if cfg.generator == nil {
		cfg.generator = generator.New(models.Length)
	}
	return &Service{
		tokens:    tokens,
		firms:     firms,
		audit:     recorder,
		tx:        cfg.tx,
		generator: cfg.generator,
		ttl:       cfg.ttl,
		baseURL:   strings.TrimRight(cfg.baseURL, "/"),
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
	}
}

// Generate issues a token for a firm that holds no valid one. Unused tokens
// that already expired are retired first.
func (s *Service) Generate(ctx context.Context, firmID id.FirmID, actorEmail string) (*models.IssuedToken, error) {
	return s.issue(ctx, firmID, actorEmail, false)
}

// ForceGenerate retires every unused token of the firm, valid or not, and
// issues a fresh one.
func (s *Service) ForceGenerate(ctx context.Context, firmID id.FirmID, actorEmail string) (*models.IssuedToken, error) {
	return s.issue(ctx, firmID, actorEmail, true)
}

func (s *Service) issue(ctx context.Context, firmID id.FirmID, actorEmail string, force bool) (issued *models.IssuedToken, err error) {
	spanName, reason := tracer.SpanTokenGenerate, auditmodels.ReasonExpiredCleanup
	if force {
		spanName, reason = tracer.SpanTokenForceGenerate, auditmodels.ReasonForceGenerate
	}
	ctx, span := s.tracer.Start(ctx, spanName, tracer.String(tracer.AttrFirmID, firmID.String()))
	defer func() { span.End(err) }()

	if firmID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "firm ID required")
	}

	var attempts int
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		firm, err := s.firms.FindByIDForUpdate(txCtx, firmID)
		if err != nil {
			return wrapFirmErr(err)
		}

		unused, err := s.tokens.ListUnusedByFirm(txCtx, firm.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load firm tokens")
		}
		if !force {
			for _, t := range unused {
				if t.IsValid(now) {
					return dErrors.New(dErrors.CodeConflict, activeTokenMessage)
				}
			}
		}
		for _, t := range unused {
			if err := s.tokens.MarkUsed(txCtx, t.ID, now); err != nil {
				return wrapTokenErr(err, "failed to invalidate token")
			}
		}

		var tok *models.Token
		tok, attempts, err = s.draw(txCtx, firm.ID, now)
		if err != nil {
			return err
		}

		if err := s.audit.Record(txCtx, audit.Record{
			Action:     auditmodels.ActionTokenGenerated,
			EntityType: auditmodels.EntityToken,
			EntityID:   tok.ID.String(),
			Actor:      actorEmail,
			ActorType:  auditmodels.ActorAdmin,
			Details: auditmodels.TokenGeneratedDetails{
				FirmID:            firm.ID.String(),
				FirmName:          firm.Name,
				FirmEmail:         firm.Email,
				ExpiresAt:         tok.ExpiresAt,
				ForceGenerated:    force,
				InvalidatedTokens: len(unused),
			},
		}); err != nil {
			return err
		}
		for _, t := range unused {
			if err := s.audit.Record(txCtx, audit.Record{
				Action:     auditmodels.ActionTokenInvalidated,
				EntityType: auditmodels.EntityToken,
				EntityID:   t.ID.String(),
				Actor:      actorEmail,
				ActorType:  auditmodels.ActorAdmin,
				Details:    auditmodels.TokenInvalidatedDetails{FirmID: firm.ID.String(), Reason: reason},
			}); err != nil {
				return err
			}
		}

		issued = &models.IssuedToken{
			TokenID:     tok.ID,
			Token:       tok.Value,
			ExpiresAt:   tok.ExpiresAt,
			Invalidated: len(unused),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		tracer.Int64(tracer.AttrAttempts, int64(attempts)),
		tracer.Int64(tracer.AttrInvalidated, int64(issued.Invalidated)),
	)
	s.logger.InfoContext(ctx, "onboarding token issued",
		"firm_id", firmID.String(),
		"token_id", issued.TokenID.String(),
		"force", force,
		"invalidated", issued.Invalidated,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementIssued(force)
		s.metrics.ObserveDrawAttempts(attempts)
		if issued.Invalidated > 0 {
			s.metrics.AddInvalidated(reason, issued.Invalidated)
		}
	}
	return issued, nil
}

// draw keeps generating until a string is free, checking existence and
// inserting inside the caller's transaction. The unique index on tokens.token
// catches any race the existence check misses.
func (s *Service) draw(ctx context.Context, firmID id.FirmID, now time.Time) (*models.Token, int, error) {
	for attempt := 1; attempt <= maxDrawAttempts; attempt++ {
		value, err := s.generator.Generate()
		if err != nil {
			return nil, attempt, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
		}
		exists, err := s.tokens.Exists(ctx, value)
		if err != nil {
			return nil, attempt, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token uniqueness")
		}
		if exists {
			continue
		}
		t, err := models.NewToken(id.NewTokenID(), firmID, value, now, s.ttl)
		if err != nil {
			return nil, attempt, err
		}
		if err := s.tokens.Insert(ctx, t); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				continue
			}
			return nil, attempt, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store token")
		}
		return t, attempt, nil
	}
	return nil, maxDrawAttempts, dErrors.New(dErrors.CodeInternal, "failed to draw a unique token")
}

// Validate never fails: every problem, store outages included, comes back
// as an invalid result with its own reason.
func (s *Service) Validate(ctx context.Context, value string) models.ValidationResult {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTokenValidate)
	res, err := s.inspect(ctx, value, requestcontext.Now(ctx))
	if err != nil {
		s.logger.ErrorContext(ctx, "token validation unavailable", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	outcome := "valid"
	if !res.Valid {
		outcome = string(res.Reason)
	}
	span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
	span.End(err)
	if s.metrics != nil {
		s.metrics.IncrementValidation(outcome)
	}
	return res
}

// inspect runs the ordered checks. A non-nil error always comes with a
// ReasonUnavailable result.
func (s *Service) inspect(ctx context.Context, value string, now time.Time) (models.ValidationResult, error) {
	if !validation.IsOnboardingToken(value) {
		return models.Invalid(models.ReasonNotFound), nil
	}
	t, err := s.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Invalid(models.ReasonNotFound), nil
		}
		return models.Invalid(models.ReasonUnavailable), err
	}
	if t.IsUsed {
		return models.Invalid(models.ReasonUsed), nil
	}
	if t.IsExpired(now) {
		return models.Invalid(models.ReasonExpired), nil
	}
	firm, err := s.firms.FindByID(ctx, t.FirmID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Invalid(models.ReasonOrphanedFirm), nil
		}
		return models.Invalid(models.ReasonUnavailable), err
	}
	return models.Valid(t, firm.Summary()), nil
}

// Consume marks a valid token used. The checks match Validate but fail as
// errors: NotFound, Conflict when used, Expired, NotFound for a missing firm.
func (s *Service) Consume(ctx context.Context, value, actorEmail string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTokenConsume, tracer.String(tracer.AttrEmailHash, tracer.HashEmail(actorEmail)))
	defer func() { span.End(err) }()

	var consumed *models.Token
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		res, err := s.inspect(txCtx, value, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
		}
		if !res.Valid {
			return res.Err()
		}
		t := res.Token
		if err := s.tokens.MarkUsed(txCtx, t.ID, now); err != nil {
			return wrapTokenErr(err, "failed to consume token")
		}
		if err := s.audit.Record(txCtx, audit.Record{
			Action:     auditmodels.ActionTokenUsed,
			EntityType: auditmodels.EntityToken,
			EntityID:   t.ID.String(),
			Actor:      actorEmail,
			ActorType:  auditmodels.ActorFirm,
			Details: auditmodels.TokenUsedDetails{
				FirmID:              t.FirmID.String(),
				OriginallyCreatedAt: t.CreatedAt,
			},
		}); err != nil {
			return err
		}
		consumed = t
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "onboarding token consumed",
		"firm_id", consumed.FirmID.String(),
		"token_id", consumed.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.AddConsumed(1)
	}
	return nil
}

// ConsumeAllForFirmEmail marks every unused token of the firm used. Having
// none left is not an error.
func (s *Service) ConsumeAllForFirmEmail(ctx context.Context, firmEmail string) (count int, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTokenConsumeAll, tracer.String(tracer.AttrEmailHash, tracer.HashEmail(firmEmail)))
	defer func() { span.End(err) }()

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		firm, err := s.firms.FindByEmailForUpdate(txCtx, firmEmail)
		if err != nil {
			return wrapFirmErr(err)
		}
		unused, err := s.tokens.ListUnusedByFirm(txCtx, firm.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load firm tokens")
		}
		for _, t := range unused {
			if err := s.tokens.MarkUsed(txCtx, t.ID, now); err != nil {
				return wrapTokenErr(err, "failed to consume token")
			}
		}
		for _, t := range unused {
			if err := s.audit.Record(txCtx, audit.Record{
				Action:     auditmodels.ActionTokenUsed,
				EntityType: auditmodels.EntityToken,
				EntityID:   t.ID.String(),
				Actor:      firm.Email,
				ActorType:  auditmodels.ActorFirm,
				Details: auditmodels.TokenUsedDetails{
					FirmID:                firm.ID.String(),
					OriginallyCreatedAt:   t.CreatedAt,
					VerificationCompleted: true,
				},
			}); err != nil {
				return err
			}
		}
		count = len(unused)
		return nil
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(tracer.Int64(tracer.AttrConsumed, int64(count)))
	if s.metrics != nil && count > 0 {
		s.metrics.AddConsumed(count)
	}
	return count, nil
}

// OnboardingLink renders the signup URL carrying value.
func (s *Service) OnboardingLink(value string) string {
	return s.baseURL + "/firm-signup?token=" + url.QueryEscape(value)
}

func wrapFirmErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "firm not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load firm")
}

func wrapTokenErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, models.MessageUsed)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, models.MessageNotFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
