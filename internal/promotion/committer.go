// Package promotion publishes a verified candidate as the promoted BIN ranges file.
package promotion

import (
	"context"
	"fmt"
	"log/slog"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore"
)

// Config locates the staged candidates and the promoted bucket.
type Config struct {
	StagingBucket  string
	PromotedBucket string
	LatestKey      string
}

// Result is the outcome of Promote.
type Result struct {
	Promoted bool
	Checksum string // SHA-256 of the latest copy, base64, when the store reports one
}

// Committer implements the promotion stage.
//
// Promotion is two server side copies: staging/locator to promoted/locator,
// then promoted/locator to promoted/latest. When the second copy fails the
// archive copy exists but latest still points at the previous file. A rerun
// fixes that, since change detection compares against latest.
type Committer struct {
	store  objectstore.Store
	cfg    Config
	logger *slog.Logger
}

// NewCommitter creates a Committer.
func NewCommitter(store objectstore.Store, cfg Config, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{
		store:  store,
		cfg:    cfg,
		logger: logger.With("stage", domain.StagePromotion),
	}
}

// Name returns the stage name.
func (p *Committer) Name() domain.Stage {
	return domain.StagePromotion
}

// Promote copies a proceeding candidate into the promoted bucket.
// A halted candidate is logged and ignored. Copy failures are ErrTransfer.
func (p *Committer) Promote(ctx context.Context, c domain.Candidate) (Result, error) {
	if c.Halted() {
		p.logger.Info("candidate not promoted", "locator", c.Locator, "reason", c.FailureMessage)
		return Result{}, nil
	}

	archived, err := p.store.Copy(ctx, p.cfg.StagingBucket, c.Locator, p.cfg.PromotedBucket, c.Locator)
	if err != nil {
		return Result{}, fmt.Errorf("%w: copy %s/%s to %s: %v", domain.ErrTransfer, p.cfg.StagingBucket, c.Locator, p.cfg.PromotedBucket, err)
	}
	p.logger.Info("candidate archived", "bucket", p.cfg.PromotedBucket, "key", c.Locator, "checksum", archived.Checksum)

	latest, err := p.store.Copy(ctx, p.cfg.PromotedBucket, c.Locator, p.cfg.PromotedBucket, p.cfg.LatestKey)
	if err != nil {
		return Result{}, fmt.Errorf("%w: copy %s to %s: %v", domain.ErrTransfer, c.Locator, p.cfg.LatestKey, err)
	}
	p.logger.Info("candidate promoted", "bucket", p.cfg.PromotedBucket, "key", p.cfg.LatestKey, "checksum", latest.Checksum)

	return Result{Promoted: true, Checksum: latest.Checksum}, nil
}
