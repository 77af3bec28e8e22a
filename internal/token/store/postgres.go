package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"firmgate/internal/sentinel"
	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	"firmgate/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tokenColumns = `id, token, firm_id, is_used, expires_at, created_at, used_at`

// Insert skips on a token collision instead of raising 23505, so the
// surrounding transaction stays usable for the next draw.
func (s *PostgresStore) Insert(ctx context.Context, t *models.Token) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token) DO NOTHING`,
		uuid.UUID(t.ID), t.Value, uuid.UUID(t.FirmID), t.IsUsed, t.ExpiresAt, t.CreatedAt, t.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert token rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("token value %w", sentinel.ErrDuplicate)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tokens WHERE token = $1)`, value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByValue(ctx context.Context, value string) (*models.Token, error) {
	t, err := scanToken(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE token = $1`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return t, nil
}

// MarkUsed is a compare-and-set on is_used.
func (s *PostgresStore) MarkUsed(ctx context.Context, tokenID id.TokenID, at time.Time) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE tokens SET is_used = TRUE, used_at = $2
		WHERE id = $1 AND is_used = FALSE`,
		uuid.UUID(tokenID), at,
	)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark token used rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) ListUnusedByFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error) {
	return s.list(ctx, `WHERE firm_id = $1 AND is_used = FALSE`, uuid.UUID(firmID))
}

func (s *PostgresStore) ListByFirm(ctx context.Context, firmID id.FirmID) ([]*models.Token, error) {
	return s.list(ctx, `WHERE firm_id = $1`, uuid.UUID(firmID))
}

func (s *PostgresStore) ListUnused(ctx context.Context) ([]*models.Token, error) {
	return s.list(ctx, `WHERE is_used = FALSE`)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Token, error) {
	return s.list(ctx, ``)
}

func (s *PostgresStore) list(ctx context.Context, where string, args ...any) ([]*models.Token, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens `+where+` ORDER BY created_at DESC, token DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanToken(r row) (*models.Token, error) {
	var (
		t             models.Token
		tokenID, firm uuid.UUID
		usedAt        sql.NullTime
	)
	if err := r.Scan(&tokenID, &t.Value, &firm, &t.IsUsed, &t.ExpiresAt, &t.CreatedAt, &usedAt); err != nil {
		return nil, err
	}
	t.ID = id.TokenID(tokenID)
	t.FirmID = id.FirmID(firm)
	if usedAt.Valid {
		at := usedAt.Time
		t.UsedAt = &at
	}
	return &t, nil
}
