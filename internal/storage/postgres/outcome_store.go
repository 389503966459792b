package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

const outcomeColumns = `
	signal_id, token_symbol, token_mint, direction, size_usd::text,
	confidence, generated_at, venue_used, status, reason,
	executed_price::text, attempts, completed_at
`

// Insert adds a new outcome. Returns ErrDuplicateKey if the signal ID exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.ExecutionOutcome) error {
	if o == nil || o.Signal.ID == "" {
		return storage.ErrInvalidInput
	}

	attempts, err := json.Marshal(o.Attempts)
	if err != nil {
		return fmt.Errorf("marshal venue attempts: %w", err)
	}

	query := `
		INSERT INTO execution_outcomes (
			signal_id, token_symbol, token_mint, direction, size_usd,
			confidence, generated_at, venue_used, status, reason,
			executed_price, attempts, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		o.Signal.ID,
		o.Signal.TokenSymbol,
		o.Signal.TokenMint,
		o.Signal.Direction,
		o.Signal.SizeUSD.String(),
		o.Signal.Confidence,
		o.Signal.GeneratedAt,
		o.VenueUsed,
		o.Status,
		o.Reason,
		o.ExecutedPrice.String(),
		attempts,
		o.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution outcome: %w", err)
	}
	return nil
}

// GetBySignalID retrieves the outcome for a signal. Returns ErrNotFound if
// not exists.
func (s *OutcomeStore) GetBySignalID(ctx context.Context, signalID string) (*domain.ExecutionOutcome, error) {
	query := `SELECT ` + outcomeColumns + ` FROM execution_outcomes WHERE signal_id = $1`

	o, err := scanOutcome(s.pool.QueryRow(ctx, query, signalID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get outcome by signal id: %w", err)
	}
	return o, nil
}

// GetByTimeRange retrieves outcomes within [start, end) by completed_at.
func (s *OutcomeStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ExecutionOutcome, error) {
	query := `
		SELECT ` + outcomeColumns + `
		FROM execution_outcomes
		WHERE completed_at >= $1 AND completed_at < $2
		ORDER BY completed_at ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get outcomes by time range: %w", err)
	}
	defer rows.Close()

	var outcomes []*domain.ExecutionOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	return outcomes, nil
}

// scanOutcome scans a single row in outcomeColumns order.
func scanOutcome(row pgx.Row) (*domain.ExecutionOutcome, error) {
	var (
		o        domain.ExecutionOutcome
		size     string
		price    string
		attempts []byte
	)
	err := row.Scan(
		&o.Signal.ID, &o.Signal.TokenSymbol, &o.Signal.TokenMint, &o.Signal.Direction, &size,
		&o.Signal.Confidence, &o.Signal.GeneratedAt, &o.VenueUsed, &o.Status, &o.Reason,
		&price, &attempts, &o.CompletedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan outcome row: %w", err)
	}

	if o.Signal.SizeUSD, err = decimal.NewFromString(size); err != nil {
		return nil, fmt.Errorf("parse size: %w", err)
	}
	if o.ExecutedPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse executed price: %w", err)
	}
	if err := json.Unmarshal(attempts, &o.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshal venue attempts: %w", err)
	}

	return &o, nil
}
