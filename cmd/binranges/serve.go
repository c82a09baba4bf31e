package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/events"
	"bin-ranges/internal/observability"
	"bin-ranges/internal/pipeline"
	"bin-ranges/internal/storage"
)

const maxListLimit = 500

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on an interval and serve the operator endpoints",
		Long: `Run the pipeline immediately and then every server.interval.

Endpoints:
  /health         liveness
  /metrics        Prometheus metrics
  /runs           run ledger, newest first (?outcome=promoted|halted|failed&limit=N)
  /runs/{id}      one run with its stage events
  /events         WebSocket stream of stage and run events`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().Duration("interval", 0, "pipeline interval (overrides server.interval)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.interval", cmd.Flags().Lookup("interval"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	deps, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	hub := events.NewHub(nil, logger)
	defer hub.Close()
	deps.runner.WithPublisher(hub)

	srv := newServer(deps.runner, deps.stores.runs, deps.stores.events, hub, logger)
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.Interval)
}

// Server runs the scheduled pipeline and the operator HTTP surface.
type Server struct {
	runner *pipeline.Runner
	runs   storage.RunStore
	events storage.StageEventStore
	hub    *events.Hub
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	started   time.Time
	lastRun   *domain.Run
	runCount  int
	skipCount int
}

func newServer(runner *pipeline.Runner, runs storage.RunStore, stageEvents storage.StageEventStore, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		runner:  runner,
		runs:    runs,
		events:  stageEvents,
		hub:     hub,
		logger:  logger,
		started: time.Now().UTC(),
	}
}

// Run serves HTTP and triggers the pipeline until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string, interval time.Duration) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- s.schedule(ctx, interval)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		s.logger.Warn("http shutdown", "error", serr)
	}
	if err == nil {
		<-schedErr
	}

	s.logger.Info("shutdown complete")
	return err
}

// schedule runs the pipeline now and then on every tick.
func (s *Server) schedule(ctx context.Context, interval time.Duration) error {
	s.logger.Info("pipeline scheduler started", "interval", interval)
	s.trigger(ctx, "startup")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.trigger(ctx, "schedule")
		}
	}
}

// trigger runs one pipeline pass unless one is already in progress.
func (s *Server) trigger(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.running {
		s.skipCount++
		s.mu.Unlock()
		s.logger.Warn("pipeline still running, skipping", "trigger", reason)
		return
	}
	s.running = true
	s.mu.Unlock()

	res, err := s.runner.Run(ctx, reason)
	if err != nil {
		s.logger.Error("pipeline run failed", "trigger", reason, "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.runCount++
	if res.Run.RunID != "" {
		run := res.Run
		s.lastRun = &run
	}
	s.mu.Unlock()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	if s.hub != nil {
		mux.Handle("/events", s.hub)
	}
	return mux
}

// healthResponse is the JSON body of /health.
type healthResponse struct {
	Status      string      `json:"status"`
	Uptime      string      `json:"uptime"`
	Running     bool        `json:"running"`
	Runs        int         `json:"runs"`
	Skipped     int         `json:"skipped"`
	LastRun     *domain.Run `json:"lastRun,omitempty"`
	Subscribers int         `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := healthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Running: s.running,
		Runs:    s.runCount,
		Skipped: s.skipCount,
		LastRun: s.lastRun,
	}
	s.mu.Unlock()
	if s.hub != nil {
		resp.Subscribers = s.hub.Subscribers()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	filter := storage.RunFilter{Outcome: domain.RunOutcome(r.URL.Query().Get("outcome"))}
	if filter.Outcome != "" && !filter.Outcome.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown outcome %q", filter.Outcome))
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		filter.Limit = n
	}

	runs, err := s.runs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []*domain.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// runResponse is the JSON body of /runs/{id}.
type runResponse struct {
	Run    *domain.Run          `json:"run"`
	Events []*domain.StageEvent `json:"events"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.runs.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}

	evs, err := s.events.GetByRunID(r.Context(), id)
	if err != nil {
		s.logger.Error("get stage events", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get stage events failed")
		return
	}
	if evs == nil {
		evs = []*domain.StageEvent{}
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Events: evs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
