package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"bin-ranges/internal/objectstore"
)

// Store is an in-memory implementation of objectstore.Store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte // keyed by bucket + "/" + key
}

// NewStore creates a new in-memory object store.
func NewStore() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Verify interface compliance at compile time.
var _ objectstore.Store = (*Store)(nil)

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

// Get returns a reader over a copy of the object.
func (s *Store) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, objectstore.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// Head returns the object size.
func (s *Store) Head(_ context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return objectstore.ObjectInfo{}, fmt.Errorf("head %s/%s: %w", bucket, key, objectstore.ErrNotFound)
	}
	return objectstore.ObjectInfo{Size: int64(len(data))}, nil
}

// Put stores exactly size bytes read from body.
func (s *Store) Put(_ context.Context, bucket, key string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put %s/%s: read body: %w", bucket, key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put %s/%s: declared size %d, read %d bytes", bucket, key, size, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, key)] = data
	return nil
}

// Copy duplicates an object and reports its base64 SHA-256.
func (s *Store) Copy(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) (objectstore.CopyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[objectKey(srcBucket, srcKey)]
	if !ok {
		return objectstore.CopyResult{}, fmt.Errorf("copy %s/%s: %w", srcBucket, srcKey, objectstore.ErrNotFound)
	}
	s.objects[objectKey(dstBucket, dstKey)] = bytes.Clone(data)

	sum := sha256.Sum256(data)
	return objectstore.CopyResult{Checksum: base64.StdEncoding.EncodeToString(sum[:])}, nil
}

// Keys lists the keys stored in a bucket in lexical order.
func (s *Store) Keys(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := bucket + "/"
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys
}

// Bytes returns a copy of an object's content, or nil if absent.
func (s *Store) Bytes(bucket, key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return nil
	}
	return bytes.Clone(data)
}
