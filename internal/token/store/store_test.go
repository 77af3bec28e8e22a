package store

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmgate/internal/sentinel"
	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	"firmgate/pkg/platform/tx"
)

var at = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func token(t *testing.T, firmID id.FirmID, ch string, created time.Time) *models.Token {
	t.Helper()
	tok, err := models.NewToken(id.NewTokenID(), firmID, strings.Repeat(ch, models.Length), created, models.DefaultTTL)
	require.NoError(t, err)
	return tok
}

func TestInMemoryInsertRejectsDuplicateValue(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	firmID := id.NewFirmID()

	require.NoError(t, s.Insert(ctx, token(t, firmID, "a", at)))
	assert.ErrorIs(t, s.Insert(ctx, token(t, firmID, "a", at)), sentinel.ErrDuplicate)

	exists, err := s.Exists(ctx, strings.Repeat("a", models.Length))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.Exists(ctx, strings.Repeat("b", models.Length))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInMemoryMarkUsedIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	tok := token(t, id.NewFirmID(), "a", at)
	require.NoError(t, s.Insert(ctx, tok))

	require.NoError(t, s.MarkUsed(ctx, tok.ID, at.Add(time.Minute)))
	assert.ErrorIs(t, s.MarkUsed(ctx, tok.ID, at.Add(2*time.Minute)), sentinel.ErrAlreadyUsed)
	assert.ErrorIs(t, s.MarkUsed(ctx, id.NewTokenID(), at), sentinel.ErrNotFound)

	got, err := s.FindByValue(ctx, tok.Value)
	require.NoError(t, err)
	assert.True(t, got.IsUsed)
	assert.Equal(t, at.Add(time.Minute), *got.UsedAt)
}

func TestInMemoryFailedTxRestoresTokens(t *testing.T) {
	s := NewInMemory()
	kept := token(t, id.NewFirmID(), "a", at)
	require.NoError(t, s.Insert(context.Background(), kept))

	fresh := token(t, kept.FirmID, "b", at)
	err := tx.NewInMemory().RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.MarkUsed(ctx, kept.ID, at))
		require.NoError(t, s.Insert(ctx, fresh))
		return sentinel.ErrConflict
	})
	require.ErrorIs(t, err, sentinel.ErrConflict)

	got, err := s.FindByValue(context.Background(), kept.Value)
	require.NoError(t, err)
	assert.False(t, got.IsUsed)
	assert.Nil(t, got.UsedAt)
	_, err = s.FindByValue(context.Background(), fresh.Value)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryListings(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	firmA, firmB := id.NewFirmID(), id.NewFirmID()
	old := token(t, firmA, "a", at)
	newer := token(t, firmA, "b", at.Add(time.Hour))
	other := token(t, firmB, "c", at.Add(2*time.Hour))
	for _, tok := range []*models.Token{old, newer, other} {
		require.NoError(t, s.Insert(ctx, tok))
	}
	require.NoError(t, s.MarkUsed(ctx, old.ID, at))

	unused, err := s.ListUnusedByFirm(ctx, firmA)
	require.NoError(t, err)
	require.Len(t, unused, 1)
	assert.Equal(t, newer.ID, unused[0].ID)

	byFirm, err := s.ListByFirm(ctx, firmA)
	require.NoError(t, err)
	require.Len(t, byFirm, 2)
	assert.Equal(t, newer.ID, byFirm[0].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.ID, all[0].ID)

	allUnused, err := s.ListUnused(ctx)
	require.NoError(t, err)
	assert.Len(t, allUnused, 2)

	_, err = s.FindByValue(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresInsertCollisionIsDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (token) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgres(db).Insert(context.Background(), token(t, id.NewFirmID(), "a", at))
	assert.ErrorIs(t, err, sentinel.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkUsedCompareAndSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tokenID := id.NewTokenID()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND is_used = FALSE")).
		WithArgs(tokenID.String(), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND is_used = FALSE")).
		WithArgs(tokenID.String(), at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgres(db)
	require.NoError(t, s.MarkUsed(context.Background(), tokenID, at))
	assert.ErrorIs(t, s.MarkUsed(context.Background(), tokenID, at), sentinel.ErrAlreadyUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	value := strings.Repeat("Z", models.Length)
	tokenID, firmID := uuid.New(), uuid.New()
	rows := sqlmock.NewRows([]string{"id", "token", "firm_id", "is_used", "expires_at", "created_at", "used_at"}).
		AddRow(tokenID.String(), value, firmID.String(), true, at.Add(24*time.Hour), at, at.Add(time.Hour))
	mock.ExpectQuery(`FROM tokens WHERE token = \$1`).WithArgs(value).WillReturnRows(rows)
	mock.ExpectQuery(`FROM tokens WHERE token = \$1`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s := NewPostgres(db)
	got, err := s.FindByValue(context.Background(), value)
	require.NoError(t, err)
	assert.Equal(t, id.FirmID(firmID), got.FirmID)
	assert.True(t, got.IsUsed)
	require.NotNil(t, got.UsedAt)

	_, err = s.FindByValue(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
