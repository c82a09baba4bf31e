package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/storage"
)

// StageEventStore implements storage.StageEventStore using ClickHouse.
type StageEventStore struct {
	conn *Conn
}

// NewStageEventStore creates a new StageEventStore.
func NewStageEventStore(conn *Conn) *StageEventStore {
	return &StageEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StageEventStore = (*StageEventStore)(nil)

// InsertBulk adds multiple events in one batch. Fails entire batch on any duplicate.
func (s *StageEventStore) InsertBulk(ctx context.Context, events []*domain.StageEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, e := range events {
		if err := storage.ValidateStageEvent(e); err != nil {
			return err
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check existing rows first.
	for _, e := range events {
		exists, err := s.exists(ctx, e.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO stage_events (
			event_id, run_id, stage, outcome, locator, message, duration_ms, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.EventID, e.RunID, string(e.Stage), string(e.Outcome),
			e.Locator, e.Message, uint64(max(e.DurationMs, 0)), e.OccurredAt.UTC(),
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

// GetByRunID retrieves all events for a run, ordered by occurred_at ASC.
func (s *StageEventStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StageEvent, error) {
	query := `
		SELECT event_id, run_id, stage, outcome, locator, message, duration_ms, occurred_at
		FROM stage_events
		WHERE run_id = ?
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanStageEvents(rows)
}

func (s *StageEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM stage_events WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanStageEvents(rows driver.Rows) ([]*domain.StageEvent, error) {
	var result []*domain.StageEvent
	for rows.Next() {
		var (
			e          domain.StageEvent
			stage      string
			outcome    string
			durationMs uint64
		)
		err := rows.Scan(
			&e.EventID, &e.RunID, &stage, &outcome,
			&e.Locator, &e.Message, &durationMs, &e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Stage = domain.Stage(stage)
		e.Outcome = domain.StageOutcome(outcome)
		e.DurationMs = int64(durationMs)
		e.OccurredAt = e.OccurredAt.UTC()
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}
