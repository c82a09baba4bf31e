// Package pipeline runs acquisition, the verdict stages and promotion as one
// run, and records the outcome of every stage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bin-ranges/internal/acquisition"
	"bin-ranges/internal/domain"
	"bin-ranges/internal/idhash"
	"bin-ranges/internal/observability"
	"bin-ranges/internal/promotion"
	"bin-ranges/internal/storage"
)

// Acquirer nominates the run's candidate.
type Acquirer interface {
	Acquire(ctx context.Context) (acquisition.Result, error)
}

// Stage turns a candidate into a verdict. A halted candidate must be returned unchanged.
type Stage interface {
	Name() domain.Stage
	Check(ctx context.Context, c domain.Candidate) (domain.Candidate, error)
}

// Promoter publishes a proceeding candidate.
type Promoter interface {
	Promote(ctx context.Context, c domain.Candidate) (promotion.Result, error)
}

// Publisher receives events as they happen.
type Publisher interface {
	PublishStage(e domain.StageEvent)
	PublishRun(r domain.Run)
}

// Result is the outcome of one run.
type Result struct {
	Run       domain.Run
	Candidate domain.Candidate
	Events    []domain.StageEvent
}

// Promoted reports whether the run published a new file.
func (r Result) Promoted() bool {
	return r.Run.Outcome == domain.RunPromoted
}

// Runner executes pipeline runs. Runs are sequential; the first halted
// verdict or fatal error ends the run.
type Runner struct {
	acquirer Acquirer
	stages   []Stage
	promoter Promoter

	runStore   storage.RunStore        // optional
	eventStore storage.StageEventStore // optional
	publisher  Publisher               // optional
	metrics    *observability.Metrics  // optional

	logger  *slog.Logger
	clock   func() time.Time
	eventID func() string
}

// NewRunner creates a Runner. stages run in order between acquisition and promotion.
func NewRunner(acquirer Acquirer, stages []Stage, promoter Promoter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		acquirer: acquirer,
		stages:   stages,
		promoter: promoter,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
		eventID:  uuid.NewString,
	}
}

// WithStores sets the run ledger and stage event log.
func (r *Runner) WithStores(runs storage.RunStore, events storage.StageEventStore) *Runner {
	r.runStore = runs
	r.eventStore = events
	return r
}

// WithPublisher sets the live event publisher.
func (r *Runner) WithPublisher(p Publisher) *Runner {
	r.publisher = p
	return r
}

// WithMetrics sets the metrics sink.
func (r *Runner) WithMetrics(m *observability.Metrics) *Runner {
	r.metrics = m
	return r
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// WithEventIDs sets the event ID generator.
func (r *Runner) WithEventIDs(next func() string) *Runner {
	r.eventID = next
	return r
}

// run carries the state of one execution.
type run struct {
	*Runner
	record domain.Run
	events []domain.StageEvent
}

// Run executes one pipeline run. trigger names what started it and feeds the run ID.
//
// A halted run returns a nil error. A fatal stage error is returned wrapped
// with the stage name, and the run is still recorded as failed.
func (r *Runner) Run(ctx context.Context, trigger string) (Result, error) {
	startedAt := r.clock()
	x := &run{
		Runner: r,
		record: domain.Run{
			RunID:     idhash.ComputeRunID(startedAt, trigger),
			StartedAt: startedAt,
		},
	}
	logger := r.logger.With("run_id", x.record.RunID)
	logger.Info("pipeline run started", "trigger", trigger)

	cand, err := x.execute(ctx)
	x.finish(ctx, cand, err)

	logger.Info("pipeline run finished",
		"outcome", x.record.Outcome,
		"locator", x.record.Locator,
		"halted_stage", x.record.HaltedStage,
		"message", x.record.Message,
		"duration", x.record.FinishedAt.Sub(startedAt))

	res := Result{Run: x.record, Candidate: cand, Events: x.events}
	if err != nil {
		return res, fmt.Errorf("%s: %w", x.record.HaltedStage, err)
	}
	return res, nil
}

func (x *run) execute(ctx context.Context) (domain.Candidate, error) {
	start := x.clock()
	acquired, err := x.acquirer.Acquire(ctx)
	x.metrics.RecordFilesUploaded(len(acquired.Uploaded))
	if err != nil {
		x.stageDone(domain.StageAcquisition, domain.Candidate{}, start, err)
		return domain.Candidate{}, err
	}
	cand := acquired.Candidate
	x.stageDone(domain.StageAcquisition, cand, start, nil)

	for _, stage := range x.stages {
		if cand.Halted() {
			return cand, nil
		}
		start = x.clock()
		next, err := stage.Check(ctx, cand)
		if err != nil {
			x.stageDone(stage.Name(), cand, start, err)
			return cand, err
		}
		cand = next
		x.stageDone(stage.Name(), cand, start, nil)
	}
	if cand.Halted() {
		return cand, nil
	}

	start = x.clock()
	res, err := x.promoter.Promote(ctx, cand)
	if err != nil {
		x.stageDone(domain.StagePromotion, cand, start, err)
		return cand, err
	}
	x.record.Checksum = res.Checksum
	x.stageDone(domain.StagePromotion, cand, start, nil)
	return cand, nil
}

// stageDone records the verdict of one stage.
func (x *run) stageDone(stage domain.Stage, c domain.Candidate, start time.Time, err error) {
	now := x.clock()
	e := domain.StageEvent{
		EventID:    x.eventID(),
		RunID:      x.record.RunID,
		Stage:      stage,
		Locator:    c.Locator,
		DurationMs: now.Sub(start).Milliseconds(),
		OccurredAt: now,
	}
	switch {
	case err != nil:
		e.Outcome = domain.StageFailed
		e.Message = err.Error()
		x.record.HaltedStage = stage
	case c.Halted():
		e.Outcome = domain.StageHalted
		e.Message = c.FailureMessage
		x.record.HaltedStage = stage
	default:
		e.Outcome = domain.StageProceeded
	}

	x.events = append(x.events, e)
	x.metrics.RecordStage(string(stage), string(e.Outcome), now.Sub(start))
	if x.publisher != nil {
		x.publisher.PublishStage(e)
	}
}

// finish completes the ledger row and persists it with the stage events.
// Store failures are logged and counted; they never change the run outcome.
func (x *run) finish(ctx context.Context, c domain.Candidate, err error) {
	x.record.FinishedAt = x.clock()
	x.record.Locator = c.Locator
	switch {
	case err != nil:
		x.record.Outcome = domain.RunFailed
		x.record.Message = err.Error()
	case c.Halted():
		x.record.Outcome = domain.RunHalted
		x.record.Message = c.FailureMessage
	default:
		x.record.Outcome = domain.RunPromoted
	}

	x.metrics.RecordRun(string(x.record.Outcome), x.record.FinishedAt.Sub(x.record.StartedAt), x.record.FinishedAt)
	if x.publisher != nil {
		x.publisher.PublishRun(x.record)
	}

	// Record the run even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)
	if x.runStore != nil {
		if err := x.runStore.Insert(ctx, &x.record); err != nil {
			x.logger.Error("record run", "run_id", x.record.RunID, "error", err)
			x.metrics.RecordStoreError("runs")
		}
	}
	if x.eventStore != nil && len(x.events) > 0 {
		batch := make([]*domain.StageEvent, len(x.events))
		for i := range x.events {
			batch[i] = &x.events[i]
		}
		if err := x.eventStore.InsertBulk(ctx, batch); err != nil {
			x.logger.Error("record stage events", "run_id", x.record.RunID, "error", err)
			x.metrics.RecordStoreError("stage_events")
		}
	}
}
