package clickhouse

import (
	"context"
	"fmt"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

// VolumeSnapshotStore implements storage.VolumeSnapshotStore using ClickHouse.
type VolumeSnapshotStore struct {
	conn *Conn
}

// NewVolumeSnapshotStore creates a new VolumeSnapshotStore.
func NewVolumeSnapshotStore(conn *Conn) *VolumeSnapshotStore {
	return &VolumeSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VolumeSnapshotStore = (*VolumeSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
// MergeTree does not enforce uniqueness, so duplicates are checked before
// the batch is sent.
func (s *VolumeSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.VolumeSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	type key struct {
		tokenSymbol string
		timestamp   int64
	}
	seen := make(map[key]struct{})
	for _, snap := range snapshots {
		if snap == nil {
			return storage.ErrInvalidInput
		}
		k := key{snap.TokenSymbol, snap.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.TokenSymbol, snap.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO volume_snapshots (
			token_symbol, timestamp_ms, volume_usd, trade_count, severity
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.TokenSymbol, uint64(snap.Timestamp), snap.VolumeUSD,
			uint32(snap.TradeCount), snap.Severity,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves snapshots for a token within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *VolumeSnapshotStore) GetByToken(ctx context.Context, tokenSymbol string, start, end int64) ([]*domain.VolumeSnapshot, error) {
	query := `
		SELECT token_symbol, timestamp_ms, volume_usd, trade_count, severity
		FROM volume_snapshots
		WHERE token_symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenSymbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query snapshots by token: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.VolumeSnapshot
	for rows.Next() {
		var (
			snap        domain.VolumeSnapshot
			timestampMs uint64
			tradeCount  uint32
		)
		err := rows.Scan(&snap.TokenSymbol, &timestampMs, &snap.VolumeUSD, &tradeCount, &snap.Severity)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Timestamp = int64(timestampMs)
		snap.TradeCount = int(tradeCount)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

// exists checks if a snapshot with the given key exists.
func (s *VolumeSnapshotStore) exists(ctx context.Context, tokenSymbol string, timestamp int64) (bool, error) {
	query := `
		SELECT count(*) FROM volume_snapshots
		WHERE token_symbol = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tokenSymbol, uint64(timestamp)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
