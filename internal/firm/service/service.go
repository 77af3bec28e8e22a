// Package service owns firm records: creation, admin edits and the one-way
// onboarding completion.
package service

import (
	"context"
	"errors"
	"log/slog"

	"firmgate/internal/audit"
	auditmodels "firmgate/internal/audit/models"
	firmmetrics "firmgate/internal/firm/metrics"
	"firmgate/internal/firm/models"
	"firmgate/internal/sentinel"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/tx"
	"firmgate/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, f *models.Firm) error
	Update(ctx context.Context, f *models.Firm) error
	FindByID(ctx context.Context, firmID id.FirmID) (*models.Firm, error)
	FindByEmail(ctx context.Context, email string) (*models.Firm, error)
	FindByIDForUpdate(ctx context.Context, firmID id.FirmID) (*models.Firm, error)
	FindByEmailForUpdate(ctx context.Context, email string) (*models.Firm, error)
	List(ctx context.Context) ([]*models.Firm, error)
}

// StoreTx provides the transactional boundary for firm mutations.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditRecorder interface {
	Record(ctx context.Context, r audit.Record) error
}

type Service struct {
	firms   Store
	audit   AuditRecorder
	tx      StoreTx
	logger  *slog.Logger
	metrics *firmmetrics.Metrics
}

func New(firms Store, recorder AuditRecorder, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = tx.NewInMemory()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		firms:   firms,
		audit:   recorder,
		tx:      cfg.tx,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}

func (s *Service) Create(ctx context.Context, cmd models.CreateFirmCommand, actorEmail string) (*models.Firm, error) {
	var created *models.Firm
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := models.NewFirm(id.NewFirmID(), cmd, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.firms.Create(txCtx, f); err != nil {
			return wrapFirmErr(err, "failed to create firm")
		}
		if err := s.audit.Record(txCtx, audit.Record{
			Action:     auditmodels.ActionFirmCreated,
			EntityType: auditmodels.EntityFirm,
			EntityID:   f.ID.String(),
			Actor:      actorEmail,
			ActorType:  auditmodels.ActorAdmin,
			Details:    auditmodels.FirmSnapshotDetails{New: f.Values()},
		}); err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "firm created", "firm_id", created.ID.String(), "request_id", requestcontext.RequestID(ctx))
	if s.metrics != nil {
		s.metrics.IncrementFirmsCreated()
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, firmID id.FirmID, cmd models.UpdateFirmCommand, actorEmail string) (*models.Firm, error) {
	if err := requireFirmID(firmID); err != nil {
		return nil, err
	}
	var updated *models.Firm
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// The row lock keeps a concurrent completion from being overwritten
		// by this full-row update.
		f, err := s.firms.FindByIDForUpdate(txCtx, firmID)
		if err != nil {
			return wrapFirmErr(err, "failed to load firm")
		}
		before := f.Values()
		if err := f.Apply(cmd, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.firms.Update(txCtx, f); err != nil {
			return wrapFirmErr(err, "failed to update firm")
		}
		if err := s.audit.Record(txCtx, audit.Record{
			Action:     auditmodels.ActionFirmUpdated,
			EntityType: auditmodels.EntityFirm,
			EntityID:   f.ID.String(),
			Actor:      actorEmail,
			ActorType:  auditmodels.ActorAdmin,
			Details:    auditmodels.FirmSnapshotDetails{New: f.Values(), Old: &before},
		}); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CompleteOnboarding links identityRef to the firm registered under email.
// A second completion is a Conflict wrapping models.ErrOnboardingCompleted.
func (s *Service) CompleteOnboarding(ctx context.Context, email, identityRef string) (id.FirmID, error) {
	if identityRef == "" {
		return id.FirmID{}, dErrors.New(dErrors.CodeBadRequest, "identity reference is required")
	}
	var firmID id.FirmID
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.firms.FindByEmailForUpdate(txCtx, email)
		if err != nil {
			return wrapFirmErr(err, "failed to load firm")
		}
		if err := f.CompleteOnboarding(identityRef, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.firms.Update(txCtx, f); err != nil {
			return wrapFirmErr(err, "failed to complete onboarding")
		}
		if err := s.audit.Record(txCtx, audit.Record{
			Action:     auditmodels.ActionFirmOnboardingCompleted,
			EntityType: auditmodels.EntityFirm,
			EntityID:   f.ID.String(),
			Actor:      f.Email,
			ActorType:  auditmodels.ActorFirm,
			Details: auditmodels.OnboardingCompletedDetails{
				FirmID:      f.ID.String(),
				FirmName:    f.Name,
				IdentityRef: identityRef,
			},
		}); err != nil {
			return err
		}
		firmID = f.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrOnboardingCompleted) && s.metrics != nil {
			s.metrics.IncrementOnboardingConflicts()
		}
		return id.FirmID{}, err
	}

	s.logger.InfoContext(ctx, "firm onboarding completed", "firm_id", firmID.String(), "request_id", requestcontext.RequestID(ctx))
	if s.metrics != nil {
		s.metrics.IncrementOnboardingsCompleted()
	}
	return firmID, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Firm, error) {
	firms, err := s.firms.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list firms")
	}
	return firms, nil
}

func (s *Service) Get(ctx context.Context, firmID id.FirmID) (*models.Firm, error) {
	if err := requireFirmID(firmID); err != nil {
		return nil, err
	}
	f, err := s.firms.FindByID(ctx, firmID)
	if err != nil {
		return nil, wrapFirmErr(err, "failed to load firm")
	}
	return f, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.Firm, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "firm email is required")
	}
	f, err := s.firms.FindByEmail(ctx, email)
	if err != nil {
		return nil, wrapFirmErr(err, "failed to load firm")
	}
	return f, nil
}

func requireFirmID(firmID id.FirmID) error {
	if firmID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "firm ID required")
	}
	return nil
}

func wrapFirmErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "firm not found")
	case errors.Is(err, sentinel.ErrDuplicate):
		return dErrors.New(dErrors.CodeConflict, "a firm with this email already exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
