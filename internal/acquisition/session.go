package acquisition

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/objectstore"
	"bin-ranges/internal/remote"
)

// Session is an open remote source that must be closed after use.
type Session interface {
	remote.Source
	io.Closer
}

// OpenFunc opens a new session on the remote server.
type OpenFunc func(ctx context.Context) (Session, error)

// SessionAcquirer opens a fresh session for every acquisition and closes it
// when the pass completes.
type SessionAcquirer struct {
	open   OpenFunc
	store  objectstore.Store
	cfg    Config
	logger *slog.Logger
}

// NewSessionAcquirer creates a SessionAcquirer.
func NewSessionAcquirer(open OpenFunc, store objectstore.Store, cfg Config, logger *slog.Logger) *SessionAcquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAcquirer{open: open, store: store, cfg: cfg, logger: logger}
}

// Acquire opens a session and runs one acquisition pass over it.
// A connection failure is ErrIO.
func (a *SessionAcquirer) Acquire(ctx context.Context) (Result, error) {
	session, err := a.open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open remote session: %v", domain.ErrIO, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Warn("close remote session", "error", err)
		}
	}()

	return NewSelector(session, a.store, a.cfg, a.logger).Acquire(ctx)
}
