package stub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"bin-ranges/internal/domain"
	"bin-ranges/internal/remote"
)

// StubSource serves fixed in-memory files from a single directory.
// Implements remote.Source interface.
type StubSource struct {
	mu    sync.RWMutex
	dir   string
	files map[string][]byte
}

// NewStubSource creates a stub source rooted at dir.
func NewStubSource(dir string) *StubSource {
	return &StubSource{dir: dir, files: make(map[string][]byte)}
}

var _ remote.Source = (*StubSource)(nil)

// Add registers a file in the directory.
func (s *StubSource) Add(name string, content []byte) *StubSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = bytes.Clone(content)
	return s
}

// List returns entries sorted by name. Listing any other directory fails.
func (s *StubSource) List(_ context.Context, dir string) ([]domain.RemoteEntry, error) {
	if dir != s.dir {
		return nil, fmt.Errorf("list %s: %w", dir, os.ErrNotExist)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.RemoteEntry, 0, len(s.files))
	for name, data := range s.files {
		entries = append(entries, domain.RemoteEntry{Name: name, Size: int64(len(data))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Open returns a reader over a copy of the file.
func (s *StubSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, data := range s.files {
		if remote.Join(s.dir, name) == path {
			return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
		}
	}
	return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
}
