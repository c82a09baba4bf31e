package promotion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore"
	"bin-ranges/internal/objectstore/memory"
)

const (
	staged    = "bin-ranges-staged-test"
	promoted  = "bin-ranges-promoted-test"
	latestKey = "latest/worldpay-v3.csv"
	locator   = "2024-02-12/WP_341BIN_V03_20240212_001.CSV"
	content   = "00,20240212\n99,000000\n"
)

var cfg = Config{StagingBucket: staged, PromotedBucket: promoted, LatestKey: latestKey}

// failingCopies fails Copy calls whose destination key matches failKey.
type failingCopies struct {
	objectstore.Store
	failKey string
}

func (f failingCopies) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (objectstore.CopyResult, error) {
	if dstKey == f.failKey {
		return objectstore.CopyResult{}, errors.New("access denied")
	}
	return f.Store.Copy(ctx, srcBucket, srcKey, dstBucket, dstKey)
}

func stagedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Put(context.Background(), staged, locator, strings.NewReader(content), int64(len(content))))
	return store
}

func TestPromote_CopiesArchiveAndLatest(t *testing.T) {
	store := stagedStore(t)
	p := NewCommitter(store, cfg, nil)

	res, err := p.Promote(context.Background(), domain.NewCandidate(locator, time.Now()))
	require.NoError(t, err)
	assert.True(t, res.Promoted)
	assert.NotEmpty(t, res.Checksum)

	assert.Equal(t, content, string(store.Bytes(promoted, locator)))
	assert.Equal(t, content, string(store.Bytes(promoted, latestKey)))
	assert.ElementsMatch(t, []string{locator, latestKey}, store.Keys(promoted))
}

func TestPromote_HaltedCandidateIsIgnored(t *testing.T) {
	store := stagedStore(t)
	p := NewCommitter(store, cfg, nil)

	res, err := p.Promote(context.Background(), domain.NewCandidate(locator, time.Now()).Halt("too big"))
	require.NoError(t, err)
	assert.False(t, res.Promoted)
	assert.Empty(t, store.Keys(promoted))
}

func TestPromote_NoCandidateIsIgnored(t *testing.T) {
	p := NewCommitter(memory.NewStore(), cfg, nil)

	res, err := p.Promote(context.Background(), domain.NoCandidate(time.Now(), "nothing on server"))
	require.NoError(t, err)
	assert.False(t, res.Promoted)
}

func TestPromote_MissingStagedObjectIsTransferError(t *testing.T) {
	p := NewCommitter(memory.NewStore(), cfg, nil)

	_, err := p.Promote(context.Background(), domain.NewCandidate(locator, time.Now()))
	assert.ErrorIs(t, err, domain.ErrTransfer)
}

func TestPromote_LatestCopyFailureLeavesArchive(t *testing.T) {
	store := stagedStore(t)
	p := NewCommitter(failingCopies{Store: store, failKey: latestKey}, cfg, nil)

	_, err := p.Promote(context.Background(), domain.NewCandidate(locator, time.Now()))
	require.ErrorIs(t, err, domain.ErrTransfer)
	assert.Contains(t, err.Error(), "access denied")

	assert.Equal(t, content, string(store.Bytes(promoted, locator)))
	assert.Nil(t, store.Bytes(promoted, latestKey))
}
