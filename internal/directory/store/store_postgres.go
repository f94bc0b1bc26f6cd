package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"phonebook/internal/directory/keypad"
	"phonebook/internal/directory/models"
)

// PostgresStore persists contacts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contact store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if contact == nil {
		return nil, fmt.Errorf("contact is required")
	}
	query := `
		INSERT INTO contacts (last_name, first_name, phone_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	stored := *contact
	err := s.db.QueryRowContext(ctx, query, contact.LastName, contact.FirstName, contact.PhoneNumber).
		Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return &stored, nil
}

// FindByPrefixPatterns runs the page fetch and the total count as one
// statement (COUNT(*) OVER ()) inside a read-only repeatable-read
// transaction. The patterns travel as a single text[] parameter.
func (s *PostgresStore) FindByPrefixPatterns(ctx context.Context, patterns []keypad.Pattern, page models.PageQuery) (*models.ContactMatches, error) {
	result := &models.ContactMatches{Rows: []*models.Contact{}}
	if len(patterns) == 0 {
		return result, nil
	}

	likes := make([]string, len(patterns))
	for i, p := range patterns {
		likes[i] = escapeLike(p.Prefix()) + keypad.Wildcard
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin search tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // read-only; rollback after commit is a no-op
	}()

	query := `
		SELECT id, last_name, first_name, phone_number, created_at, COUNT(*) OVER () AS total
		FROM contacts
		WHERE first_name ILIKE ANY($1::text[]) OR last_name ILIKE ANY($1::text[])
		ORDER BY id
		LIMIT $2 OFFSET $3
	`
	rows, err := tx.QueryContext(ctx, query, likes, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.LastName, &c.FirstName, &c.PhoneNumber, &c.CreatedAt, &result.Total); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		result.Rows = append(result.Rows, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	rows.Close()

	// An empty window carries no window-function total; count in the same
	// snapshot instead.
	if len(result.Rows) == 0 {
		countQuery := `
			SELECT COUNT(*)
			FROM contacts
			WHERE first_name ILIKE ANY($1::text[]) OR last_name ILIKE ANY($1::text[])
		`
		if err := tx.QueryRowContext(ctx, countQuery, likes).Scan(&result.Total); err != nil {
			return nil, fmt.Errorf("count contacts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit search tx: %w", err)
	}
	return result, nil
}

// Count returns the number of stored contacts.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE metacharacters so a prefix matches literally.
func escapeLike(prefix string) string {
	return likeEscaper.Replace(prefix)
}
