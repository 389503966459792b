package memory

import (
	"context"
	"sort"
	"sync"

	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/storage"
)

// WhaleEventStore is an in-memory implementation of storage.WhaleEventStore.
type WhaleEventStore struct {
	mu   sync.RWMutex
	data []*domain.WhaleEvent
	keys map[string]bool // trigger trade IDs
}

// NewWhaleEventStore creates a new in-memory whale event store.
func NewWhaleEventStore() *WhaleEventStore {
	return &WhaleEventStore{
		data: make([]*domain.WhaleEvent, 0),
		keys: make(map[string]bool),
	}
}

// Compile-time interface check.
var _ storage.WhaleEventStore = (*WhaleEventStore)(nil)

// Insert adds a new whale event. Returns ErrDuplicateKey if an event with
// the same trigger trade ID exists.
func (s *WhaleEventStore) Insert(_ context.Context, e *domain.WhaleEvent) error {
	if e == nil || e.Trigger.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[e.Trigger.ID] {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.data = append(s.data, &cp)
	s.keys[e.Trigger.ID] = true

	return nil
}

// GetByToken retrieves all events for a token, ordered by observed_at ASC.
func (s *WhaleEventStore) GetByToken(_ context.Context, tokenSymbol string) ([]*domain.WhaleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleEvent
	for _, e := range s.data {
		if e.TokenSymbol == tokenSymbol {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortWhaleEvents(result)
	return result, nil
}

// GetByTimeRange retrieves events within [start, end) by observed_at.
func (s *WhaleEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.WhaleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleEvent
	for _, e := range s.data {
		if e.ObservedAt >= start && e.ObservedAt < end {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortWhaleEvents(result)
	return result, nil
}

func sortWhaleEvents(events []*domain.WhaleEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].ObservedAt != events[j].ObservedAt {
			return events[i].ObservedAt < events[j].ObservedAt
		}
		return events[i].Trigger.ID < events[j].Trigger.ID
	})
}
