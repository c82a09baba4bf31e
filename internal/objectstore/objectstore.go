// Package objectstore defines the object storage contract used by the pipeline stages.
package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a bucket or key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo is the metadata returned by Head.
type ObjectInfo struct {
	Size int64
}

// CopyResult is returned by Copy.
type CopyResult struct {
	// Checksum is the base64 SHA-256 of the copied object, when the backend reports one.
	Checksum string
}

// Store reads and writes objects addressed by bucket and key.
type Store interface {
	// Get opens an object for reading. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Head returns object metadata. Returns ErrNotFound if it does not exist.
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// Put writes size bytes from body, replacing any existing object.
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64) error

	// Copy copies an object server side, replacing the destination.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (CopyResult, error)
}
