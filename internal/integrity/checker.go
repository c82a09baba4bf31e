// Package integrity checks a staged candidate before promotion: its size must
// stay close to the promoted file and every row must satisfy the record schema.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore"
	"bin-ranges/internal/observability"
	"bin-ranges/internal/record"
)

// DefaultAcceptablePercentage is the size change allowed without a halt.
var DefaultAcceptablePercentage = decimal.NewFromFloat(5.0)

// Config configures the integrity stage.
type Config struct {
	StagingBucket        string
	PromotedBucket       string
	PromotedKey          string
	AcceptablePercentage decimal.Decimal
	Workers              int            // row validation goroutines, 0 means runtime.NumCPU
	Schema               *record.Schema // nil means record.Standard()
}

// Report describes a candidate inspection.
type Report struct {
	PromotedSize  int64
	CandidateSize int64
	SizeChange    decimal.Decimal
	Rows          int
	Failure       *record.RowError // first failing row, nil when the file is valid
}

// Checker implements the file integrity stage.
type Checker struct {
	store   objectstore.Store
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewChecker creates a Checker.
func NewChecker(store objectstore.Store, cfg Config, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Schema == nil {
		cfg.Schema = record.Standard()
	}
	return &Checker{
		store:  store,
		cfg:    cfg,
		logger: logger.With("stage", domain.StageIntegrity),
	}
}

// WithMetrics attaches metrics.
func (c *Checker) WithMetrics(m *observability.Metrics) *Checker {
	c.metrics = m
	return c
}

// Name returns the stage name.
func (c *Checker) Name() domain.Stage {
	return domain.StageIntegrity
}

// Check runs the size check and then the row scan.
// The first failing check halts the candidate with its message.
func (c *Checker) Check(ctx context.Context, cand domain.Candidate) (domain.Candidate, error) {
	if cand.Halted() {
		return cand, nil
	}

	promotedSize, candidateSize, err := c.sizes(ctx, cand.Locator)
	if err != nil {
		return domain.Candidate{}, err
	}
	pct, err := PercentageChange(promotedSize, candidateSize)
	if err != nil {
		return domain.Candidate{}, err
	}
	f, _ := pct.Float64()
	c.metrics.RecordSizeChange(f)

	if pct.GreaterThan(c.cfg.AcceptablePercentage) {
		msg := sizeMessage(pct, c.cfg.AcceptablePercentage)
		c.logger.Warn(msg, "locator", cand.Locator, "promoted_size", promotedSize, "candidate_size", candidateSize)
		return cand.Halt(msg), nil
	}
	c.logger.Info("size check passed", "locator", cand.Locator, "change", pct.StringFixed(2))

	rows, rerr, err := c.scan(ctx, cand.Locator)
	if err != nil {
		return domain.Candidate{}, err
	}
	if rerr != nil {
		c.logger.Warn("row validation failed", "locator", cand.Locator, "line", rerr.Line, "field", rerr.Field, "error", rerr.Err)
		return cand.Halt(rerr.Error()), nil
	}
	c.metrics.RecordRowsValidated(detailRows(rows))
	c.logger.Info("row validation passed", "locator", cand.Locator, "rows", rows)
	return cand.Continue(), nil
}

// Inspect reports on a candidate without producing a verdict. Both checks
// always run so the report is complete.
func (c *Checker) Inspect(ctx context.Context, locator string) (Report, error) {
	promotedSize, candidateSize, err := c.sizes(ctx, locator)
	if err != nil {
		return Report{}, err
	}
	pct, err := PercentageChange(promotedSize, candidateSize)
	if err != nil {
		return Report{}, err
	}
	rows, rerr, err := c.scan(ctx, locator)
	if err != nil {
		return Report{}, err
	}
	return Report{
		PromotedSize:  promotedSize,
		CandidateSize: candidateSize,
		SizeChange:    pct,
		Rows:          rows,
		Failure:       rerr,
	}, nil
}

// Exceeds reports whether the size change is above the acceptable percentage.
func (c *Checker) Exceeds(r Report) bool {
	return r.SizeChange.GreaterThan(c.cfg.AcceptablePercentage)
}

func (c *Checker) sizes(ctx context.Context, locator string) (int64, int64, error) {
	var promoted, candidate objectstore.ObjectInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := c.store.Head(gctx, c.cfg.PromotedBucket, c.cfg.PromotedKey)
		promoted = info
		return err
	})
	g.Go(func() error {
		info, err := c.store.Head(gctx, c.cfg.StagingBucket, locator)
		candidate = info
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, fmt.Errorf("%w: file sizes: %v", domain.ErrIO, err)
	}
	return promoted.Size, candidate.Size, nil
}

// scan reads the candidate and validates its rows. It returns the number of
// lines read and the first failing row. Only read failures are errors.
func (c *Checker) scan(ctx context.Context, locator string) (int, *record.RowError, error) {
	rc, err := c.store.Get(ctx, c.cfg.StagingBucket, locator)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s: %v", domain.ErrIO, locator, err)
	}
	defer rc.Close()

	lines, err := ReadLines(rc)
	var rerr *record.RowError
	if errors.As(err, &rerr) {
		return rerr.Line - 1, rerr, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s: %v", domain.ErrIO, locator, err)
	}

	rerr, err = ValidateRows(ctx, lines, c.cfg.Schema, c.cfg.Workers)
	if err != nil {
		return 0, nil, err
	}
	return len(lines), rerr, nil
}

func sizeMessage(actual, acceptable decimal.Decimal) string {
	return fmt.Sprintf("Candidate outside of acceptable change percentage [actual: %s] [acceptable: %s]",
		actual.StringFixed(2), acceptable.StringFixed(2))
}

func detailRows(lines int) int {
	if lines < 2 {
		return 0
	}
	return lines - 2
}
