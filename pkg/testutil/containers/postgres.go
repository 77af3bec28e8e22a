//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"firmgate/internal/platform/database"
	id "firmgate/pkg/domain"
)

// PostgresContainer wraps a Postgres instance with the schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and runs the embedded migrations
// through golang-migrate, the same path cmd/migrate takes.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("firmgate_test"),
		postgres.WithUsername("firmgate"),
		postgres.WithPassword("firmgate_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	if err := database.Migrate(dsn, database.Up); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables clears tables without restarting the container.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll clears every firmgate table.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"audit_outbox",
		"audit_logs",
		"admin_users",
		"tokens",
		"firms",
	)
}

// CreateTestFirm inserts a not-yet-onboarded firm and returns its ID.
func (p *PostgresContainer) CreateTestFirm(ctx context.Context, t testing.TB, email string) id.FirmID {
	t.Helper()
	firmID := id.NewFirmID()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO firms (id, name, email, has_completed_onboarding, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
	`, uuid.UUID(firmID), "Test Firm "+uuid.NewString()[:8], email)
	if err != nil {
		t.Fatalf("CreateTestFirm: %v", err)
	}
	return firmID
}
