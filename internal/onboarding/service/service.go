// Package service sequences firm onboarding: token check, identity account
// creation, registry completion, then token consumption. A second entry
// point reconciles accounts the identity provider finalized on its own.
package service

import (
	"context"
	"errors"
	"log/slog"

	firmmodels "firmgate/internal/firm/models"
	onboardingmetrics "firmgate/internal/onboarding/metrics"
	"firmgate/internal/onboarding/models"
	"firmgate/internal/onboarding/ports"
	tokenmodels "firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/circuit"
	"firmgate/pkg/platform/privacy"
	"firmgate/pkg/platform/tracer"
	"firmgate/pkg/requestcontext"
)

type TokenEngine interface {
	Validate(ctx context.Context, value string) tokenmodels.ValidationResult
	Consume(ctx context.Context, value, actorEmail string) error
	ConsumeAllForFirmEmail(ctx context.Context, firmEmail string) (int, error)
}

type FirmRegistry interface {
	CompleteOnboarding(ctx context.Context, email, identityRef string) (id.FirmID, error)
	GetByEmail(ctx context.Context, email string) (*firmmodels.Firm, error)
}

const (
	triggerInteractive = "interactive"
	triggerReconcile   = "reconcile"
)

type Service struct {
	tokens   TokenEngine
	firms    FirmRegistry
	identity ports.IdentityService
	logger   *slog.Logger
	metrics  *onboardingmetrics.Metrics
	tracer   tracer.Tracer
	breaker  *circuit.Breaker
}

func New(tokens TokenEngine, firms FirmRegistry, identity ports.IdentityService, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.tracer == nil {
		cfg.tracer = tracer.NewNoop()
	}
	return &Service{
		tokens:   tokens,
		firms:    firms,
		identity: identity,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		tracer:   cfg.tracer,
		breaker:  cfg.breaker,
	}
}

// Begin returns the token check so the signup page can show the target firm.
func (s *Service) Begin(ctx context.Context, token string) tokenmodels.ValidationResult {
	return s.tokens.Validate(ctx, token)
}

// SubmitCredential creates the identity account for the firm behind token.
// Identity failures leave the token untouched so the firm can retry.
func (s *Service) SubmitCredential(ctx context.Context, token, password string) (out *models.Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanOnboardingSubmit)
	defer func() { span.End(err) }()

	firm, err := s.requireValid(ctx, token)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrFirmID, firm.ID.String()))

	res, err := s.callIdentity(ctx, "create_account", func(ctx context.Context) (*ports.AccountResult, error) {
		return s.identity.CreateAccount(ctx, firm.Email, password)
	})
	if err != nil {
		return nil, err
	}
	if res.IsComplete() {
		return s.finalize(ctx, token, firm, res.IdentityRef)
	}
	if res != nil && res.Status == ports.AccountNeedsVerification {
		return &models.Outcome{Status: models.OutcomeVerificationRequired, Email: firm.Email, FirmID: firm.ID}, nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "identity service returned an incomplete account")
}

// VerifyCode submits the emailed code. Anything short of a complete account
// is Unverified.
func (s *Service) VerifyCode(ctx context.Context, token, code string) (out *models.Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanOnboardingVerify)
	defer func() { span.End(err) }()

	firm, err := s.requireValid(ctx, token)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrFirmID, firm.ID.String()))

	res, err := s.callIdentity(ctx, "verify_code", func(ctx context.Context) (*ports.AccountResult, error) {
		return s.identity.VerifyCode(ctx, firm.Email, code)
	})
	if err != nil {
		return nil, err
	}
	if !res.IsComplete() {
		return nil, dErrors.New(dErrors.CodeUnverified, "email verification is not complete yet")
	}
	return s.finalize(ctx, token, firm, res.IdentityRef)
}

// ResendCode asks the identity provider for a fresh verification code.
func (s *Service) ResendCode(ctx context.Context, token string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanOnboardingResend)
	defer func() { span.End(err) }()

	firm, err := s.requireValid(ctx, token)
	if err != nil {
		return err
	}
	_, err = s.callIdentity(ctx, "resend_verification", func(ctx context.Context) (*ports.AccountResult, error) {
		return nil, s.identity.ResendVerification(ctx, firm.Email)
	})
	return err
}

// finalize completes the registry before consuming the token. A consumed
// token with an incomplete firm cannot be recovered; the reverse can, by
// replaying consumption by email.
func (s *Service) finalize(ctx context.Context, token string, firm *firmmodels.Summary, identityRef string) (out *models.Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanOnboardingFinalize, tracer.String(tracer.AttrFirmID, firm.ID.String()))
	defer func() { span.End(err) }()

	firmID, reconciled, err := s.complete(ctx, firm.Email, identityRef)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Consume(ctx, token, firm.Email); err != nil {
		s.logger.WarnContext(ctx, "token consumption failed after onboarding completion, replaying by email",
			"error", err,
			"firm_id", firmID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementConsumeReplay()
		}
		if _, replayErr := s.tokens.ConsumeAllForFirmEmail(ctx, firm.Email); replayErr != nil {
			// The account-finalized event replays this again.
			s.logger.ErrorContext(ctx, "token consumption replay failed",
				"error", replayErr,
				"firm_id", firmID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	s.logger.InfoContext(ctx, "firm onboarding finalized",
		"firm_id", firmID.String(),
		"email", privacy.MaskEmail(firm.Email),
		"reconciled_first", reconciled,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil && !reconciled {
		s.metrics.IncrementCompletion(triggerInteractive)
	}
	return &models.Outcome{Status: models.OutcomeCompleted, Email: firm.Email, FirmID: firmID}, nil
}

// complete runs the registry completion for an interactive submission. When
// the account-finalized event for this same identity account got there
// first, the firm is already linked to identityRef and the completion counts
// as done. A firm linked to a different account keeps the Conflict.
func (s *Service) complete(ctx context.Context, email, identityRef string) (firmID id.FirmID, reconciled bool, err error) {
	firmID, err = s.firms.CompleteOnboarding(ctx, email, identityRef)
	if err == nil || !errors.Is(err, firmmodels.ErrOnboardingCompleted) {
		return firmID, false, err
	}
	current, getErr := s.firms.GetByEmail(ctx, email)
	if getErr != nil {
		s.logger.WarnContext(ctx, "failed to re-read completed firm",
			"error", getErr,
			"request_id", requestcontext.RequestID(ctx),
		)
		return id.FirmID{}, false, err
	}
	if current.IdentityRef != identityRef {
		return id.FirmID{}, false, err
	}
	return current.ID, true, nil
}

// HandleAccountFinalized is the reconciliation path. Already-completed firms
// count as success and unknown emails are skipped; remaining tokens are
// consumed either way.
func (s *Service) HandleAccountFinalized(ctx context.Context, email, identityRef string) (res *models.ReconcileResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanOnboardingWebhook, tracer.String(tracer.AttrEmailHash, tracer.HashEmail(email)))
	defer func() { span.End(err) }()

	res = &models.ReconcileResult{Status: models.ReconcileCompleted}
	firmID, err := s.firms.CompleteOnboarding(ctx, email, identityRef)
	switch {
	case err == nil:
		res.FirmID = firmID
	case errors.Is(err, firmmodels.ErrOnboardingCompleted):
		res.Status = models.ReconcileAlreadyCompleted
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		s.logger.InfoContext(ctx, "account finalized for an email with no firm, skipping",
			"email", privacy.MaskEmail(email),
		)
		s.recordReconcile(models.ReconcileSkipped)
		return &models.ReconcileResult{Status: models.ReconcileSkipped}, nil
	default:
		return nil, err
	}
	span.SetAttributes(tracer.Bool(tracer.AttrAlreadyDone, res.Status == models.ReconcileAlreadyCompleted))

	consumed, err := s.tokens.ConsumeAllForFirmEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	res.TokensConsumed = consumed
	span.SetAttributes(tracer.Int64(tracer.AttrConsumed, int64(consumed)))

	s.logger.InfoContext(ctx, "account finalized reconciled",
		"status", string(res.Status),
		"tokens_consumed", consumed,
		"email", privacy.MaskEmail(email),
	)
	s.recordReconcile(res.Status)
	if res.Status == models.ReconcileCompleted && s.metrics != nil {
		s.metrics.IncrementCompletion(triggerReconcile)
	}
	return res, nil
}

func (s *Service) recordReconcile(status models.ReconcileStatus) {
	if s.metrics != nil {
		s.metrics.IncrementReconciliation(string(status))
	}
}

// requireValid turns an invalid token into its distinct domain error.
func (s *Service) requireValid(ctx context.Context, token string) (*firmmodels.Summary, error) {
	res := s.tokens.Validate(ctx, token)
	if !res.Valid {
		return nil, res.Err()
	}
	return res.Firm, nil
}

func (s *Service) callIdentity(ctx context.Context, op string, call func(ctx context.Context) (*ports.AccountResult, error)) (*ports.AccountResult, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		if s.metrics != nil {
			s.metrics.IncrementIdentityFailure(op)
		}
		return nil, dErrors.New(dErrors.CodeInternal, "identity service unavailable")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanIdentityCall, tracer.String(tracer.AttrIdentityOp, op))
	res, err := call(ctx)
	span.End(err)

	var domainErr *dErrors.Error
	infraFailure := err != nil && !errors.As(err, &domainErr)
	s.recordBreaker(ctx, infraFailure)
	if err == nil {
		return res, nil
	}

	s.logger.WarnContext(ctx, "identity service call failed",
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementIdentityFailure(op)
	}
	if !infraFailure {
		return nil, err
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity service unavailable")
}

func (s *Service) recordBreaker(ctx context.Context, failed bool) {
	if s.breaker == nil {
		return
	}
	var change circuit.StateChange
	if failed {
		_, change = s.breaker.RecordFailure()
	} else {
		_, change = s.breaker.RecordSuccess()
	}
	switch {
	case change.Opened:
		s.logger.ErrorContext(ctx, "identity circuit opened", "breaker", s.breaker.Name())
	case change.Closed:
		s.logger.InfoContext(ctx, "identity circuit closed", "breaker", s.breaker.Name())
	}
}
