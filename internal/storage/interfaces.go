package storage

import (
	"context"

	"bin-ranges/internal/domain"
)

// DefaultListLimit caps List results when no limit is given.
const DefaultListLimit = 50

// RunFilter narrows RunStore.List.
type RunFilter struct {
	Outcome domain.RunOutcome // empty matches every outcome
	Limit   int               // 0 means DefaultListLimit
}

// EffectiveLimit returns the limit to apply.
func (f RunFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// RunStore provides access to the runs ledger.
type RunStore interface {
	// Insert adds a finished run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.Run) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)

	// List retrieves runs ordered by started_at DESC.
	List(ctx context.Context, filter RunFilter) ([]*domain.Run, error)
}

// StageEventStore provides access to the stage_events log.
type StageEventStore interface {
	// InsertBulk adds the events of one run atomically. Fails entire batch on any duplicate event_id.
	InsertBulk(ctx context.Context, events []*domain.StageEvent) error

	// GetByRunID retrieves all events for a run, ordered by occurred_at ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.StageEvent, error)
}

// ValidateRun checks the fields every store requires.
func ValidateRun(r *domain.Run) error {
	if r == nil || r.RunID == "" || !r.Outcome.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// ValidateStageEvent checks the fields every store requires.
func ValidateStageEvent(e *domain.StageEvent) error {
	if e == nil || e.EventID == "" || e.RunID == "" || !e.Stage.IsValid() || !e.Outcome.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
