package memory

import (
	"context"
	"sort"
	"sync"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

// snapshotKey is the composite key for snapshot deduplication.
type snapshotKey struct {
	TokenSymbol string
	Timestamp   int64
}

// VolumeSnapshotStore is an in-memory implementation of
// storage.VolumeSnapshotStore.
type VolumeSnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.VolumeSnapshot
	keys map[snapshotKey]bool
}

// NewVolumeSnapshotStore creates a new in-memory volume snapshot store.
func NewVolumeSnapshotStore() *VolumeSnapshotStore {
	return &VolumeSnapshotStore{
		data: make([]*domain.VolumeSnapshot, 0),
		keys: make(map[snapshotKey]bool),
	}
}

// Compile-time interface check.
var _ storage.VolumeSnapshotStore = (*VolumeSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
func (s *VolumeSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.VolumeSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates, both existing and intra-batch.
	batchKeys := make(map[snapshotKey]bool)
	for _, snap := range snapshots {
		if snap == nil {
			return storage.ErrInvalidInput
		}
		key := snapshotKey{snap.TokenSymbol, snap.Timestamp}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, snap := range snapshots {
		cp := *snap
		s.data = append(s.data, &cp)
		s.keys[snapshotKey{snap.TokenSymbol, snap.Timestamp}] = true
	}

	return nil
}

// GetByToken retrieves snapshots for a token within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *VolumeSnapshotStore) GetByToken(_ context.Context, tokenSymbol string, start, end int64) ([]*domain.VolumeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VolumeSnapshot
	for _, snap := range s.data {
		if snap.TokenSymbol == tokenSymbol && snap.Timestamp >= start && snap.Timestamp <= end {
			cp := *snap
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}
