package memory

import (
	"context"
	"sort"
	"sync"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExecutionOutcome // by signal ID
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]*domain.ExecutionOutcome),
	}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert adds a new outcome. Returns ErrDuplicateKey if the signal ID exists.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.ExecutionOutcome) error {
	if o == nil || o.Signal.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.Signal.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := copyOutcome(o)
	s.data[o.Signal.ID] = cp

	return nil
}

// GetBySignalID retrieves the outcome for a signal. Returns ErrNotFound if
// not exists.
func (s *OutcomeStore) GetBySignalID(_ context.Context, signalID string) (*domain.ExecutionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyOutcome(o), nil
}

// GetByTimeRange retrieves outcomes within [start, end) by completed_at.
func (s *OutcomeStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.ExecutionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionOutcome
	for _, o := range s.data {
		if o.CompletedAt >= start && o.CompletedAt < end {
			result = append(result, copyOutcome(o))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CompletedAt != result[j].CompletedAt {
			return result[i].CompletedAt < result[j].CompletedAt
		}
		return result[i].Signal.ID < result[j].Signal.ID
	})
	return result, nil
}

// copyOutcome deep-copies an outcome including the attempts slice.
func copyOutcome(o *domain.ExecutionOutcome) *domain.ExecutionOutcome {
	cp := *o
	cp.Attempts = make([]domain.VenueAttempt, len(o.Attempts))
	copy(cp.Attempts, o.Attempts)
	return &cp
}
