package postgres

import (
	"context"
	"fmt"

	"solana-whale-watch/internal/storage"
)

// CursorStore implements storage.CursorStore using PostgreSQL. The cursor
// lives in a single row; Set upserts it.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get returns the saved cursor, or "" when none has been saved yet.
func (s *CursorStore) Get(ctx context.Context) (string, error) {
	query := `SELECT value FROM ingest_cursor WHERE id = 1`

	var cursor string
	err := s.pool.QueryRow(ctx, query).Scan(&cursor)
	if err != nil {
		if isNotFoundError(err) {
			return "", nil
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return cursor, nil
}

// Set overwrites the saved cursor.
func (s *CursorStore) Set(ctx context.Context, cursor string) error {
	query := `
		INSERT INTO ingest_cursor (id, value, updated_at)
		VALUES (1, $1, (extract(epoch from now()) * 1000)::bigint)
		ON CONFLICT (id) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, cursor); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
