//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"phonebook/internal/platform/database"
	"phonebook/migrations"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the embedded
// migrations through the same bootstrap the server uses.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("phonebook_test"),
		postgres.WithUsername("phonebook"),
		postgres.WithPassword("phonebook"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	pc, err := bootstrapPostgres(ctx, container)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("bootstrap postgres: %v", err)
	}
	// Shared by the Manager; Ryuk reaps the container when the process exits.
	return pc
}

func bootstrapPostgres(ctx context.Context, container *postgres.PostgresContainer) (*PostgresContainer, error) {
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("connection string: %w", err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	applied, err := database.Migrate(ctx, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: no migrations found")
	}
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}, nil
}

// TruncateContacts clears the contacts table and restarts its id sequence.
func (p *PostgresContainer) TruncateContacts(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE contacts RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate contacts: %w", err)
	}
	return nil
}

// CountContacts reads the row count straight from the table, bypassing the
// store under test.
func (p *PostgresContainer) CountContacts(ctx context.Context) (int, error) {
	var n int
	if err := p.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}
