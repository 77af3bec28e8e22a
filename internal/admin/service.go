// Package admin keeps the admin_users directory in step with the configured
// admin email and exposes the audit trail to the administrator.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"firmgate/internal/admin/types"
	"firmgate/internal/audit"
	auditmodels "firmgate/internal/audit/models"
	"firmgate/internal/sentinel"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/privacy"
	"firmgate/pkg/platform/tx"
	"firmgate/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, u *types.AdminUser) error
	Update(ctx context.Context, u *types.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*types.AdminUser, error)
}

type AdminChecker interface {
	IsAdmin(email string) bool
}

type AuditRecorder interface {
	Record(ctx context.Context, r audit.Record) error
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	users  UserStore
	admins AdminChecker
	audit  AuditRecorder
	tx     StoreTx
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(t StoreTx) Option {
	return func(s *Service) { s.tx = t }
}

func NewService(users UserStore, admins AdminChecker, recorder AuditRecorder, opts ...Option) *Service {
	s := &Service{
		users:  users,
		admins: admins,
		audit:  recorder,
		tx:     tx.NewInMemory(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureAdminUser creates the admin_users row on first sign-in, recording
// that sign-in, and refreshes the identity ref on later ones. created reports
// whether this call inserted the row.
func (s *Service) EnsureAdminUser(ctx context.Context, email, identityRef string) (user *types.AdminUser, created bool, err error) {
	email = strings.TrimSpace(email)
	if err := s.requireAdmin(email, identityRef); err != nil {
		return nil, false, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		existing, err := s.users.FindByEmail(txCtx, email)
		if err == nil {
			if existing.IdentityRef != identityRef {
				existing.IdentityRef = identityRef
				existing.UpdatedAt = now
				if err := s.users.Update(txCtx, existing); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update admin user")
				}
			}
			user = existing
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin user")
		}

		user = &types.AdminUser{
			ID:          id.NewAdminUserID(),
			Email:       email,
			IdentityRef: identityRef,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.users.Create(txCtx, user); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				return dErrors.New(dErrors.CodeConflict, "admin user already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin user")
		}
		created = true
		return s.recordLogin(txCtx, user, true)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.InfoContext(ctx, "admin user created",
			"admin_user_id", user.ID.String(),
			"email", privacy.MaskEmail(email),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return user, created, nil
}

// RecordLogin appends an admin_login entry carrying the request's network
// context.
func (s *Service) RecordLogin(ctx context.Context, email, identityRef string) error {
	email = strings.TrimSpace(email)
	if err := s.requireAdmin(email, identityRef); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.FindByEmail(txCtx, email)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "admin user not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin user")
		}
		return s.recordLogin(txCtx, user, false)
	})
}

func (s *Service) recordLogin(ctx context.Context, user *types.AdminUser, first bool) error {
	return s.audit.Record(ctx, audit.Record{
		Action:     auditmodels.ActionAdminLogin,
		EntityType: auditmodels.EntityAdminUser,
		EntityID:   user.ID.String(),
		Actor:      user.Email,
		ActorType:  auditmodels.ActorAdmin,
		Details: auditmodels.AdminLoginDetails{
			IdentityRef: user.IdentityRef,
			FirstLogin:  first,
		},
	})
}

func (s *Service) requireAdmin(email, identityRef string) error {
	if !s.admins.IsAdmin(email) {
		return dErrors.New(dErrors.CodeForbidden, "not the configured admin")
	}
	if strings.TrimSpace(identityRef) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "identity reference is required")
	}
	return nil
}
