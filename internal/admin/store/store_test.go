package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmgate/internal/admin/types"
	"firmgate/internal/sentinel"
	id "firmgate/pkg/domain"
)

func adminUser() *types.AdminUser {
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	return &types.AdminUser{
		ID:          id.NewAdminUserID(),
		Email:       "admin@firmgate.test",
		IdentityRef: "user_admin",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	u := adminUser()

	_, err := s.FindByEmail(ctx, u.Email)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Create(ctx, u))
	require.ErrorIs(t, s.Create(ctx, u), sentinel.ErrDuplicate)

	u.IdentityRef = "user_rotated"
	require.NoError(t, s.Update(ctx, u))
	got, err := s.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, "user_rotated", got.IdentityRef)

	got.IdentityRef = "mutated"
	again, _ := s.FindByEmail(ctx, u.Email)
	assert.Equal(t, "user_rotated", again.IdentityRef)
}

func TestPostgresFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	u := adminUser()
	mock.ExpectQuery("SELECT id, email, identity_ref").
		WithArgs(u.Email).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "identity_ref", "created_at", "updated_at"}).
			AddRow(uuid.UUID(u.ID).String(), u.Email, u.IdentityRef, u.CreatedAt, u.UpdatedAt))

	got, err := NewPostgres(db).FindByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.IdentityRef, got.IdentityRef)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmailMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, email, identity_ref").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "identity_ref", "created_at", "updated_at"}))

	_, err = NewPostgres(db).FindByEmail(context.Background(), "nobody@firmgate.test")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresUpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE admin_users").WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgres(db).Update(context.Background(), adminUser())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
