package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// Pool is the pgx-backed connection pool behind the contact store.
type Pool struct {
	*sql.DB
}

// Option tunes the pool after it is opened.
type Option func(*sql.DB)

// WithConnLimits bounds open and idle connections.
func WithConnLimits(maxOpen, maxIdle int) Option {
	return func(db *sql.DB) {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
	}
}

// WithConnLifetime recycles connections older than d.
func WithConnLifetime(d time.Duration) Option {
	return func(db *sql.DB) {
		db.SetConnMaxLifetime(d)
	}
}

var defaultOptions = []Option{
	WithConnLimits(20, 4),
	WithConnLifetime(30 * time.Minute),
}

// Open connects to url and pings it. An empty url yields a nil pool and no
// error; the caller keeps contacts in memory instead.
func Open(ctx context.Context, url string, opts ...Option) (*Pool, error) {
	if url == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, opt := range append(defaultOptions, opts...) {
		opt(db)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{DB: db}, nil
}

// Health is the readiness check. A nil pool is reported as unconfigured.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.DB == nil {
		return fmt.Errorf("database not configured")
	}
	return p.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	return p.DB.Close()
}

// Migrate runs every *.up.sql file in fsys, in name order, inside one
// transaction, and returns the file names. The schema files are idempotent
// so this runs on every start.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin migrations: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, name := range files {
		stmt, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(stmt)); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit migrations: %w", err)
	}
	return files, nil
}
