package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/storage"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const runColumns = "run_id, started_at, finished_at, locator, outcome, halted_stage, message, checksum"

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a finished run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.Run) error {
	if err := storage.ValidateRun(r); err != nil {
		return err
	}

	query := `
		INSERT INTO runs (
			run_id, started_at, finished_at, locator, outcome, halted_stage, message, checksum
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID,
		r.StartedAt,
		r.FinishedAt,
		r.Locator,
		string(r.Outcome),
		string(r.HaltedStage),
		r.Message,
		r.Checksum,
	)
	if err := mapError(err); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err := mapError(err); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// List retrieves runs ordered by started_at DESC.
func (s *RunStore) List(ctx context.Context, filter storage.RunFilter) ([]*domain.Run, error) {
	b := psql.Select(runColumns).
		From("runs").
		OrderBy("started_at DESC", "run_id DESC").
		Limit(uint64(filter.EffectiveLimit()))
	if filter.Outcome != "" {
		b = b.Where(sq.Eq{"outcome": string(filter.Outcome)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list runs query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		r           domain.Run
		outcome     string
		haltedStage string
	)
	err := row.Scan(
		&r.RunID,
		&r.StartedAt,
		&r.FinishedAt,
		&r.Locator,
		&outcome,
		&haltedStage,
		&r.Message,
		&r.Checksum,
	)
	if err != nil {
		return nil, err
	}
	r.Outcome = domain.RunOutcome(outcome)
	r.HaltedStage = domain.Stage(haltedStage)
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	return &r, nil
}
