package storage

import (
	"context"

	"solana-whale-watch/internal/domain"
)

// WhaleEventStore persists detected whale events. Append-only.
type WhaleEventStore interface {
	// Insert adds a new whale event. Returns ErrDuplicateKey if an event
	// with the same trigger trade ID exists.
	Insert(ctx context.Context, e *domain.WhaleEvent) error

	// GetByToken retrieves all events for a token, ordered by observed_at ASC.
	GetByToken(ctx context.Context, tokenSymbol string) ([]*domain.WhaleEvent, error)

	// GetByTimeRange retrieves events within [start, end) by observed_at
	// (inclusive start, exclusive end).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.WhaleEvent, error)
}

// OutcomeStore persists terminal execution outcomes. Append-only.
type OutcomeStore interface {
	// Insert adds a new outcome. Returns ErrDuplicateKey if the signal ID
	// exists; a signal reaches exactly one terminal outcome.
	Insert(ctx context.Context, o *domain.ExecutionOutcome) error

	// GetBySignalID retrieves the outcome for a signal. Returns ErrNotFound
	// if not exists.
	GetBySignalID(ctx context.Context, signalID string) (*domain.ExecutionOutcome, error)

	// GetByTimeRange retrieves outcomes within [start, end) by completed_at.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ExecutionOutcome, error)
}

// CursorStore holds the single ingestion progress cursor. Unlike the other
// stores it is mutable: Set overwrites the previous value.
type CursorStore interface {
	// Get returns the saved cursor, or "" when none has been saved yet.
	Get(ctx context.Context) (string, error)

	// Set overwrites the saved cursor.
	Set(ctx context.Context, cursor string) error
}

// VolumeSnapshotStore archives window aggregates for offline analysis.
type VolumeSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails the entire batch on any
	// duplicate (token_symbol, timestamp).
	InsertBulk(ctx context.Context, snapshots []*domain.VolumeSnapshot) error

	// GetByToken retrieves snapshots for a token within [start, end]
	// (inclusive), ordered by timestamp ASC.
	GetByToken(ctx context.Context, tokenSymbol string, start, end int64) ([]*domain.VolumeSnapshot, error)
}
