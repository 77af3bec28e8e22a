package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"firmgate/internal/firm/models"
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

const firmColumns = `id, name, email, identity_ref, has_completed_onboarding,
	contact_person, phone, address, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, f *models.Firm) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO firms (`+firmColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(f.ID), f.Name, f.Email, nullable(f.IdentityRef), f.HasCompletedOnboarding,
		nullable(f.ContactPerson), nullable(f.Phone), nullable(f.Address), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("firm email %w", sentinel.ErrDuplicate)
		}
		return fmt.Errorf("insert firm: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, f *models.Firm) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE firms
		SET name = $2, email = $3, identity_ref = $4, has_completed_onboarding = $5,
		    contact_person = $6, phone = $7, address = $8, updated_at = $9
		WHERE id = $1`,
		uuid.UUID(f.ID), f.Name, f.Email, nullable(f.IdentityRef), f.HasCompletedOnboarding,
		nullable(f.ContactPerson), nullable(f.Phone), nullable(f.Address), f.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("firm email %w", sentinel.ErrDuplicate)
		}
		return fmt.Errorf("update firm: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update firm rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, firmID id.FirmID) (*models.Firm, error) {
	return s.findOne(ctx, `SELECT `+firmColumns+` FROM firms WHERE id = $1`, uuid.UUID(firmID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Firm, error) {
	return s.findOne(ctx, `SELECT `+firmColumns+` FROM firms WHERE email = $1`, email)
}

// FindByIDForUpdate locks the firm row for the rest of the transaction bound
// to ctx. Token issuance for one firm serializes on this lock.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, firmID id.FirmID) (*models.Firm, error) {
	return s.findOne(ctx, `SELECT `+firmColumns+` FROM firms WHERE id = $1 FOR UPDATE`, uuid.UUID(firmID))
}

func (s *PostgresStore) FindByEmailForUpdate(ctx context.Context, email string) (*models.Firm, error) {
	return s.findOne(ctx, `SELECT `+firmColumns+` FROM firms WHERE email = $1 FOR UPDATE`, email)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Firm, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+firmColumns+` FROM firms ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list firms: %w", err)
	}
	defer rows.Close()

	var firms []*models.Firm
	for rows.Next() {
		f, err := scanFirm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan firm: %w", err)
		}
		firms = append(firms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firms: %w", err)
	}
	return firms, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Firm, error) {
	f, err := scanFirm(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find firm: %w", err)
	}
	return f, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanFirm(r row) (*models.Firm, error) {
	var (
		f                            models.Firm
		firmID                       uuid.UUID
		ref, contact, phone, address sql.NullString
	)
	if err := r.Scan(&firmID, &f.Name, &f.Email, &ref, &f.HasCompletedOnboarding,
		&contact, &phone, &address, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = id.FirmID(firmID)
	f.IdentityRef = ref.String
	f.ContactPerson = contact.String
	f.Phone = phone.String
	f.Address = address.String
	return &f, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
