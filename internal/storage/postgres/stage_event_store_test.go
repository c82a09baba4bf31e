package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/storage"
	"bin-ranges/internal/storage/postgres"
)

func testEvent(id, runID string, stage domain.Stage, offset time.Duration) *domain.StageEvent {
	return &domain.StageEvent{
		EventID:    id,
		RunID:      runID,
		Stage:      stage,
		Outcome:    domain.StageProceeded,
		Locator:    "2024-02-12/WP_341BIN_V03_20240212_001.CSV",
		DurationMs: 120,
		OccurredAt: startedAt.Add(offset),
	}
}

func TestStageEventStore_InsertBulkAndGetByRunID(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := postgres.NewStageEventStore(pool)

	halted := testEvent("e3", "run-1", domain.StageIntegrity, 2*time.Second)
	halted.Outcome = domain.StageHalted
	halted.Message = "line 11: LOWER_RANGE: lower BIN range must be 18 characters long"

	require.NoError(t, store.InsertBulk(ctx, []*domain.StageEvent{
		testEvent("e1", "run-1", domain.StageAcquisition, 0),
		halted,
		testEvent("e2", "run-1", domain.StageChangeDetection, time.Second),
		testEvent("e4", "run-2", domain.StageAcquisition, 0),
	}))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.StageAcquisition, got[0].Stage)
	assert.Equal(t, domain.StageChangeDetection, got[1].Stage)
	assert.Equal(t, halted, got[2])
}

func TestStageEventStore_DuplicateRollsBackBatch(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := postgres.NewStageEventStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.StageEvent{testEvent("e1", "run-1", domain.StageAcquisition, 0)}))

	err := store.InsertBulk(ctx, []*domain.StageEvent{
		testEvent("e2", "run-1", domain.StageChangeDetection, time.Second),
		testEvent("e1", "run-1", domain.StageIntegrity, 2*time.Second),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
