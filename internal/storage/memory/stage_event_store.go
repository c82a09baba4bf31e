package memory

import (
	"context"
	"sort"
	"sync"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/storage"
)

// StageEventStore is an in-memory implementation of storage.StageEventStore.
type StageEventStore struct {
	mu   sync.RWMutex
	data []*domain.StageEvent
	keys map[string]bool // event_id
}

// NewStageEventStore creates a new in-memory stage event store.
func NewStageEventStore() *StageEventStore {
	return &StageEventStore{
		data: make([]*domain.StageEvent, 0),
		keys: make(map[string]bool),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *StageEventStore) InsertBulk(_ context.Context, events []*domain.StageEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates (both existing and intra-batch)
	batchKeys := make(map[string]bool)
	for _, e := range events {
		if err := storage.ValidateStageEvent(e); err != nil {
			return err
		}
		if s.keys[e.EventID] || batchKeys[e.EventID] {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EventID] = true
	}

	for _, e := range events {
		eventCopy := *e
		s.data = append(s.data, &eventCopy)
		s.keys[e.EventID] = true
	}
	return nil
}

// GetByRunID retrieves all events for a run, ordered by occurred_at ASC.
func (s *StageEventStore) GetByRunID(_ context.Context, runID string) ([]*domain.StageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StageEvent
	for _, e := range s.data {
		if e.RunID == runID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	// Stable keeps insertion order for events sharing a timestamp.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.StageEventStore = (*StageEventStore)(nil)
