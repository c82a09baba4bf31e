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

var startedAt = time.Date(2024, 2, 12, 6, 0, 0, 0, time.UTC)

func testRun(id string, offset time.Duration, outcome domain.RunOutcome) *domain.Run {
	return &domain.Run{
		RunID:      id,
		StartedAt:  startedAt.Add(offset),
		FinishedAt: startedAt.Add(offset + 90*time.Second),
		Locator:    "2024-02-12/WP_341BIN_V03_20240212_001.CSV",
		Outcome:    outcome,
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := postgres.NewRunStore(pool)

	r := testRun("run-1", 0, domain.RunHalted)
	r.HaltedStage = domain.StageIntegrity
	r.Message = "Candidate outside of acceptable change percentage [actual: 6.00] [acceptable: 5.00]"

	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := postgres.NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, testRun("run-1", 0, domain.RunPromoted)))
	err := store.Insert(ctx, testRun("run-1", time.Hour, domain.RunPromoted))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_NotFound(t *testing.T) {
	pool := newTestPool(t)

	_, err := postgres.NewRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_List(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := postgres.NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, testRun("run-a", 0, domain.RunPromoted)))
	require.NoError(t, store.Insert(ctx, testRun("run-b", time.Hour, domain.RunHalted)))
	require.NoError(t, store.Insert(ctx, testRun("run-c", 2*time.Hour, domain.RunPromoted)))

	all, err := store.List(ctx, storage.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-c", all[0].RunID)
	assert.Equal(t, "run-a", all[2].RunID)

	promoted, err := store.List(ctx, storage.RunFilter{Outcome: domain.RunPromoted})
	require.NoError(t, err)
	require.Len(t, promoted, 2)
	for _, r := range promoted {
		assert.Equal(t, domain.RunPromoted, r.Outcome)
	}

	limited, err := store.List(ctx, storage.RunFilter{Outcome: domain.RunPromoted, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-c", limited[0].RunID)
}
