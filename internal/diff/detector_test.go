package diff

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore/memory"
)

const (
	staged      = "bin-ranges-staged-test"
	promoted    = "bin-ranges-promoted-test"
	promotedKey = "latest/worldpay-v3.csv"
	locator     = "2024-02-12/WP_341BIN_V03_20240212_001.CSV"
)

const body = "01,999999999999999998,999999999999999999,CN,MASTERCARD CREDIT,APERTURE SCIENCE INC.,GBR,826,UNITED KINGDOM,C,GBP,DCC allowed,AC000,N,N,,16,N,,,,,,,\n99,000001\n"

func setup(t *testing.T, candidate, current string) (*Detector, domain.Candidate) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Put(ctx, staged, locator, strings.NewReader(candidate), int64(len(candidate))))
	require.NoError(t, store.Put(ctx, promoted, promotedKey, strings.NewReader(current), int64(len(current))))

	d := NewDetector(store, Config{StagingBucket: staged, PromotedBucket: promoted, PromotedKey: promotedKey}, nil)
	return d, domain.NewCandidate(locator, time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC))
}

func TestCheck_OnlyHeaderDiffers(t *testing.T) {
	d, c := setup(t, "00,20240212\n"+body, "00,20240205\n"+body)

	got, err := d.Check(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, got.Proceed)
	assert.Equal(t, IdenticalMessage, got.FailureMessage)
	assert.Equal(t, c.Locator, got.Locator)
	assert.Equal(t, c.Timestamp, got.Timestamp)
}

func TestCheck_DataDiffers(t *testing.T) {
	changed := strings.Replace(body, "APERTURE", "APERTURF", 1)
	d, c := setup(t, "00,20240212\n"+changed, "00,20240205\n"+body)

	got, err := d.Check(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, got.Proceed)
	assert.Empty(t, got.FailureMessage)
	assert.Equal(t, locator, got.Locator)
}

func TestCheck_LineBoundaryChangeIsDetected(t *testing.T) {
	// Same characters, different line split.
	d, c := setup(t, "00,h\nab\ncd\n", "00,h\nabc\nd\n")

	got, err := d.Check(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, got.Proceed)
}

func TestCheck_MissingObjectIsIOError(t *testing.T) {
	d, _ := setup(t, "00\n", "00\n")
	c := domain.NewCandidate("2024-02-12/missing.CSV", time.Now())

	_, err := d.Check(context.Background(), c)
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestCheck_HaltedCandidatePassesThrough(t *testing.T) {
	d, c := setup(t, "00\n", "00\n")
	halted := c.Halt("earlier stage")

	got, err := d.Check(context.Background(), halted)
	require.NoError(t, err)
	assert.Equal(t, halted, got)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(strings.NewReader("00,20240212\nrow\n"))
	require.NoError(t, err)
	b, err := Fingerprint(strings.NewReader("00,19990101,EXTRA\nrow\n"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	empty, err := Fingerprint(strings.NewReader("only a header"))
	require.NoError(t, err)
	// sha256 of no bytes
	assert.Equal(t, "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=", empty)
}
