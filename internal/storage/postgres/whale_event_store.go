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

// WhaleEventStore implements storage.WhaleEventStore using PostgreSQL.
//
// The trigger trade is stored as JSONB: it is written once and read back
// whole, never filtered on, so flattening it into columns buys nothing.
type WhaleEventStore struct {
	pool *Pool
}

// NewWhaleEventStore creates a new WhaleEventStore.
func NewWhaleEventStore(pool *Pool) *WhaleEventStore {
	return &WhaleEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WhaleEventStore = (*WhaleEventStore)(nil)

// Insert adds a new whale event. Returns ErrDuplicateKey if an event with
// the same trigger trade ID exists.
func (s *WhaleEventStore) Insert(ctx context.Context, e *domain.WhaleEvent) error {
	if e == nil || e.Trigger.ID == "" {
		return storage.ErrInvalidInput
	}

	trigger, err := json.Marshal(e.Trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger trade: %w", err)
	}

	query := `
		INSERT INTO whale_events (
			trigger_trade_id, token_symbol, trigger, window_volume, window_count, severity, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		e.Trigger.ID,
		e.TokenSymbol,
		trigger,
		e.WindowVolume.String(),
		e.WindowCount,
		e.Severity,
		e.ObservedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert whale event: %w", err)
	}
	return nil
}

// GetByToken retrieves all events for a token, ordered by observed_at ASC.
func (s *WhaleEventStore) GetByToken(ctx context.Context, tokenSymbol string) ([]*domain.WhaleEvent, error) {
	query := `
		SELECT token_symbol, trigger, window_volume::text, window_count, severity, observed_at
		FROM whale_events
		WHERE token_symbol = $1
		ORDER BY observed_at ASC, trigger_trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenSymbol)
	if err != nil {
		return nil, fmt.Errorf("get whale events by token: %w", err)
	}
	defer rows.Close()

	return scanWhaleEvents(rows)
}

// GetByTimeRange retrieves events within [start, end) by observed_at.
func (s *WhaleEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.WhaleEvent, error) {
	query := `
		SELECT token_symbol, trigger, window_volume::text, window_count, severity, observed_at
		FROM whale_events
		WHERE observed_at >= $1 AND observed_at < $2
		ORDER BY observed_at ASC, trigger_trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get whale events by time range: %w", err)
	}
	defer rows.Close()

	return scanWhaleEvents(rows)
}

// scanWhaleEvents scans multiple rows.
func scanWhaleEvents(rows pgx.Rows) ([]*domain.WhaleEvent, error) {
	var events []*domain.WhaleEvent

	for rows.Next() {
		var (
			e       domain.WhaleEvent
			trigger []byte
			volume  string
		)
		if err := rows.Scan(&e.TokenSymbol, &trigger, &volume, &e.WindowCount, &e.Severity, &e.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan whale event row: %w", err)
		}
		if err := json.Unmarshal(trigger, &e.Trigger); err != nil {
			return nil, fmt.Errorf("unmarshal trigger trade: %w", err)
		}
		vol, err := decimal.NewFromString(volume)
		if err != nil {
			return nil, fmt.Errorf("parse window volume: %w", err)
		}
		e.WindowVolume = vol
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whale event rows: %w", err)
	}

	return events, nil
}
