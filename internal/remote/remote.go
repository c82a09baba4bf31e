// Package remote defines the remote file source the acquisition stage lists and reads.
package remote

import (
	"context"
	"io"

	"bin-ranges/internal/domain"
)

// Source lists and reads files published by the remote operator.
type Source interface {
	// List returns the regular files in dir.
	List(ctx context.Context, dir string) ([]domain.RemoteEntry, error)

	// Open opens the file at path for reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Join builds a remote path from a directory and a file name.
func Join(dir, name string) string {
	if dir == "" || dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}
