// Package diff halts the pipeline when a candidate carries the same data as
// the promoted file.
package diff

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore"
)

// IdenticalMessage is the halt reason when nothing changed.
const IdenticalMessage = "Candidate is identical to promoted BIN ranges"

// Config locates the staged candidates and the promoted file.
type Config struct {
	StagingBucket  string
	PromotedBucket string
	PromotedKey    string
}

// Detector implements the change detection stage.
type Detector struct {
	store  objectstore.Store
	cfg    Config
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(store objectstore.Store, cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		store:  store,
		cfg:    cfg,
		logger: logger.With("stage", domain.StageChangeDetection),
	}
}

// Name returns the stage name.
func (d *Detector) Name() domain.Stage {
	return domain.StageChangeDetection
}

// Check fingerprints the candidate and the promoted file concurrently.
// Identical fingerprints halt the run; any fetch failure is ErrIO.
func (d *Detector) Check(ctx context.Context, c domain.Candidate) (domain.Candidate, error) {
	if c.Halted() {
		return c, nil
	}

	var candidateFP, promotedFP string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fp, err := d.fingerprintObject(gctx, d.cfg.StagingBucket, c.Locator)
		candidateFP = fp
		return err
	})
	g.Go(func() error {
		fp, err := d.fingerprintObject(gctx, d.cfg.PromotedBucket, d.cfg.PromotedKey)
		promotedFP = fp
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	d.logger.Debug("fingerprints computed", "candidate", candidateFP, "promoted", promotedFP)
	if candidateFP == promotedFP {
		d.logger.Warn(IdenticalMessage, "locator", c.Locator)
		return c.Halt(IdenticalMessage), nil
	}
	return c.Continue(), nil
}

func (d *Detector) fingerprintObject(ctx context.Context, bucket, key string) (string, error) {
	rc, err := d.store.Get(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	fp, err := Fingerprint(rc)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s/%s: %w", bucket, key, err)
	}
	return fp, nil
}

// Fingerprint returns the base64 SHA-256 of everything after the first line.
// The first line carries the publish date and changes on every run.
// The remaining bytes are hashed verbatim, line endings included.
func Fingerprint(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
		return "", err
	}

	h := sha256.New()
	if _, err := io.Copy(h, br); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
