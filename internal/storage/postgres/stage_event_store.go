package postgres

import (
	"context"
	"errors"
	"fmt"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/storage"
)

// StageEventStore implements storage.StageEventStore using PostgreSQL.
type StageEventStore struct {
	pool *Pool
}

// NewStageEventStore creates a new StageEventStore.
func NewStageEventStore(pool *Pool) *StageEventStore {
	return &StageEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StageEventStore = (*StageEventStore)(nil)

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *StageEventStore) InsertBulk(ctx context.Context, events []*domain.StageEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := storage.ValidateStageEvent(e); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO stage_events (
			event_id, run_id, stage, outcome, locator, message, duration_ms, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.EventID,
			e.RunID,
			string(e.Stage),
			string(e.Outcome),
			e.Locator,
			e.Message,
			e.DurationMs,
			e.OccurredAt,
		)
		if err := mapError(err); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return err
			}
			return fmt.Errorf("insert stage event %s: %w", e.EventID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves all events for a run, ordered by occurred_at ASC.
func (s *StageEventStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StageEvent, error) {
	query := `
		SELECT event_id, run_id, stage, outcome, locator, message, duration_ms, occurred_at
		FROM stage_events
		WHERE run_id = $1
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get stage events by run id: %w", err)
	}
	defer rows.Close()

	var result []*domain.StageEvent
	for rows.Next() {
		var (
			e       domain.StageEvent
			stage   string
			outcome string
		)
		if err := rows.Scan(&e.EventID, &e.RunID, &stage, &outcome, &e.Locator, &e.Message, &e.DurationMs, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		e.Stage = domain.Stage(stage)
		e.Outcome = domain.StageOutcome(outcome)
		e.OccurredAt = e.OccurredAt.UTC()
		result = append(result, &e)
	}
	return result, rows.Err()
}
