package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bin-ranges/internal/acquisition"
	"bin-ranges/internal/config"
	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore/memory"
	"bin-ranges/internal/remote/stub"
	memstore "bin-ranges/internal/storage/memory"
)

const fileName = "WP_341BIN_V03_20240212_001.CSV"

type stubSession struct{ *stub.StubSource }

func (stubSession) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	vp, err := config.New()
	require.NoError(t, err)
	vp.Set("aws.account_name", "test")
	cfg, err := config.Load(vp)
	require.NoError(t, err)
	return cfg
}

type serverFixture struct {
	cfg     *config.Config
	objects *memory.Store
	runs    *memstore.RunStore
	events  *memstore.StageEventStore
	server  *Server
}

func newServerFixture(t *testing.T, files map[string]string) *serverFixture {
	t.Helper()
	cfg := testConfig(t)
	src := stub.NewStubSource(cfg.Acquisition.Directory)
	for name, content := range files {
		src.Add(name, []byte(content))
	}
	open := func(context.Context) (acquisition.Session, error) { return stubSession{src}, nil }

	f := &serverFixture{
		cfg:     cfg,
		objects: memory.NewStore(),
		runs:    memstore.NewRunStore(),
		events:  memstore.NewStageEventStore(),
	}
	runner := buildRunner(cfg, f.objects, open, nil, slog.Default()).
		WithStores(f.runs, f.events)
	f.server = newServer(runner, f.runs, f.events, nil, slog.Default())
	return f
}

func (f *serverFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_PromotesAndListsRun(t *testing.T) {
	f := newServerFixture(t, map[string]string{fileName: binFile(20)})
	ctx := context.Background()
	promoted := binFile(21)
	require.NoError(t, f.objects.Put(ctx, f.cfg.Buckets.Promoted, f.cfg.LatestKey, strings.NewReader(promoted), int64(len(promoted))))

	f.server.trigger(ctx, "test")

	assert.Equal(t, []byte(binFile(20)), f.objects.Bytes(f.cfg.Buckets.Promoted, f.cfg.LatestKey))

	rec := f.get(t, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunPromoted, runs[0].Outcome)
	assert.Equal(t, "2024-02-12/"+fileName, runs[0].Locator)

	rec = f.get(t, "/runs/"+runs[0].RunID)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Run    domain.Run          `json:"run"`
		Events []domain.StageEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, runs[0].RunID, detail.Run.RunID)
	assert.Len(t, detail.Events, 4)

	rec = f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, 1, health.Runs)
	assert.False(t, health.Running)
	require.NotNil(t, health.LastRun)
	assert.Equal(t, domain.RunPromoted, health.LastRun.Outcome)
}

func TestServer_HaltedRunIsFiltered(t *testing.T) {
	f := newServerFixture(t, nil)
	f.server.trigger(context.Background(), "test")

	rec := f.get(t, "/runs?outcome=promoted")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = f.get(t, "/runs?outcome=halted&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "No BIN ranges data found on server", runs[0].Message)
}

func TestServer_SkipsWhileRunning(t *testing.T) {
	f := newServerFixture(t, nil)
	f.server.running = true

	f.server.trigger(context.Background(), "test")

	assert.Equal(t, 1, f.server.skipCount)
	assert.Equal(t, 0, f.server.runCount)
}

func TestServer_BadRequests(t *testing.T) {
	f := newServerFixture(t, nil)

	tests := []struct {
		path string
		code int
	}{
		{"/runs?outcome=bogus", http.StatusBadRequest},
		{"/runs?limit=0", http.StatusBadRequest},
		{"/runs?limit=abc", http.StatusBadRequest},
		{"/runs/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := f.get(t, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`"error"`)))
		})
	}
}

func TestCreateStores_MemoryFallback(t *testing.T) {
	st, cleanup, err := createStores(context.Background(), config.Storage{}, slog.Default())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &memstore.RunStore{}, st.runs)
	assert.IsType(t, &memstore.StageEventStore{}, st.events)
}
