package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// PostgresStore keeps cached lookups in the source_cache table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	query := `
		SELECT value, not_found
		FROM source_cache
		WHERE cache_key = $1 AND expires_at > NOW()
	`

	var (
		value    []byte
		notFound bool
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &notFound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source cache: %w", err)
	}
	return &Entry{Value: value, NotFound: notFound}, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, keys []string) (map[string]*Entry, error) {
	out := make(map[string]*Entry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	query := `
		SELECT cache_key, value, not_found
		FROM source_cache
		WHERE cache_key = ANY($1) AND expires_at > NOW()
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to query source cache: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			key      string
			value    []byte
			notFound bool
		)
		if err := rows.Scan(&key, &value, &notFound); err != nil {
			return nil, fmt.Errorf("failed to scan source cache row: %w", err)
		}
		out[key] = &Entry{Value: value, NotFound: notFound}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source cache rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, subject string, entry *Entry, ttl time.Duration) error {
	expiresAt := time.Now().UTC().Add(ttl)

	query := `
		INSERT INTO source_cache (cache_key, subject, value, not_found, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key)
		DO UPDATE SET
			subject = EXCLUDED.subject,
			value = EXCLUDED.value,
			not_found = EXCLUDED.not_found,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`

	var value any
	if !entry.NotFound {
		value = []byte(entry.Value)
	}

	if _, err := s.db.ExecContext(ctx, query, key, subject, value, entry.NotFound, expiresAt); err != nil {
		return fmt.Errorf("failed to write source cache: %w", err)
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, subject string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM source_cache WHERE subject = $1`, subject)
	if err != nil {
		return fmt.Errorf("failed to purge source cache: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected > 0 {
		log.Printf("[source-cache] Purged %d entries for: %s", rowsAffected, subject)
	}
	return nil
}

// DeleteExpired removes expired rows and returns how many were deleted
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM source_cache WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache rows: %w", err)
	}
	return result.RowsAffected()
}
