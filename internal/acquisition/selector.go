// Package acquisition lists the operator's published files, stages every
// match and nominates the file of the required version as the run's candidate.
package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore"
	"bin-ranges/internal/remote"
)

// Config holds the acquisition settings.
type Config struct {
	Directory       string
	Prefix          string
	StagingBucket   string
	RequiredVersion domain.Version
}

// Result is the outcome of one acquisition pass.
type Result struct {
	Candidate domain.Candidate
	Uploaded  []FileMeta
}

// Selector implements the acquisition stage.
type Selector struct {
	source remote.Source
	store  objectstore.Store
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time
}

// NewSelector creates a Selector.
func NewSelector(source remote.Source, store objectstore.Store, cfg Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger.With("stage", domain.StageAcquisition),
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for the candidate timestamp.
func (s *Selector) WithClock(clock func() time.Time) *Selector {
	s.clock = clock
	return s
}

// Select runs acquisition and returns only the seed candidate.
func (s *Selector) Select(ctx context.Context) (domain.Candidate, error) {
	res, err := s.Acquire(ctx)
	if err != nil {
		return domain.Candidate{}, err
	}
	return res.Candidate, nil
}

// Acquire lists the remote directory, uploads every prefix match to staging
// and nominates the required version upload.
//
// All file names are parsed before anything is uploaded, so a malformed name
// fails the run without staging a partial set.
func (s *Selector) Acquire(ctx context.Context) (Result, error) {
	now := s.clock()

	entries, err := s.source.List(ctx, s.cfg.Directory)
	if err != nil {
		return Result{}, fmt.Errorf("%w: list %s: %v", domain.ErrIO, s.cfg.Directory, err)
	}

	var matches []FileMeta
	for _, e := range entries {
		if !strings.HasPrefix(e.Name, s.cfg.Prefix) {
			continue
		}
		meta, err := ParseFileName(e.Name)
		if err != nil {
			return Result{}, err
		}
		meta.Path = remote.Join(s.cfg.Directory, e.Name)
		meta.Size = e.Size
		matches = append(matches, meta)
	}

	if len(matches) == 0 {
		s.logger.Warn("no BIN ranges data found on server", "directory", s.cfg.Directory, "prefix", s.cfg.Prefix)
		return Result{Candidate: domain.NoCandidate(now, "No BIN ranges data found on server")}, nil
	}

	var (
		uploaded []FileMeta
		chosen   *FileMeta
	)
	for i := range matches {
		meta := matches[i]
		if err := s.upload(ctx, meta); err != nil {
			if meta.Version == s.cfg.RequiredVersion {
				return Result{}, fmt.Errorf("%w: stage %s: %v", domain.ErrIO, meta.Name, err)
			}
			s.logger.Error("error streaming file to staging", "file", meta.Name, "bucket", s.cfg.StagingBucket, "error", err)
			continue
		}
		s.logger.Info("file streamed and uploaded", "file", meta.Name, "bucket", s.cfg.StagingBucket, "key", meta.StagingKey())
		uploaded = append(uploaded, meta)

		if meta.Version == s.cfg.RequiredVersion && preferred(meta, chosen) {
			chosen = &matches[i]
		}
	}

	if chosen == nil {
		msg := fmt.Sprintf("No %s BIN ranges file found on server", s.cfg.RequiredVersion)
		s.logger.Warn(msg, "uploaded", len(uploaded))
		return Result{Candidate: domain.NoCandidate(now, msg), Uploaded: uploaded}, nil
	}

	s.logger.Debug("candidate key", "key", chosen.StagingKey())
	return Result{
		Candidate: domain.NewCandidate(chosen.StagingKey(), now),
		Uploaded:  uploaded,
	}, nil
}

func (s *Selector) upload(ctx context.Context, meta FileMeta) error {
	rc, err := s.source.Open(ctx, meta.Path)
	if err != nil {
		return err
	}
	defer rc.Close()

	return s.store.Put(ctx, s.cfg.StagingBucket, meta.StagingKey(), rc, meta.Size)
}

// preferred reports whether m should replace the current choice:
// the newest publish date wins, then the greatest file name.
func preferred(m FileMeta, current *FileMeta) bool {
	if current == nil {
		return true
	}
	if m.Date != current.Date {
		return m.Date > current.Date
	}
	return m.Name > current.Name
}
