package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"firmgate/internal/admin/types"
	"firmgate/internal/sentinel"
	id "firmgate/pkg/domain"
	"firmgate/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *types.AdminUser) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO admin_users (id, email, identity_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(u.ID), u.Email, u.IdentityRef, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("admin email %w", sentinel.ErrDuplicate)
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *types.AdminUser) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE admin_users SET identity_ref = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(u.ID), u.IdentityRef, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update admin user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin user rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*types.AdminUser, error) {
	var (
		u   types.AdminUser
		raw uuid.UUID
	)
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, email, identity_ref, created_at, updated_at
		FROM admin_users WHERE email = $1`, email,
	).Scan(&raw, &u.Email, &u.IdentityRef, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find admin user: %w", err)
	}
	u.ID = id.AdminUserID(raw)
	return &u, nil
}
