// Package memory provides an in-memory blob store for unit testing.
package memory

import (
	"context"
	"errors"
	"sync"

	"go.jetify.com/typeid/v2"

	"github.com/tributo/courier/blob"
)

// compile-time interface check.
var _ blob.Store = (*Store)(nil)

// Store is an in-memory implementation of blob.Store for testing.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailPuts makes Put fail while > 0, decrementing per call. Lets tests
	// exercise the SAVE_CDR retry path.
	FailPuts int
}

// New creates a new in-memory blob store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under a fresh ref.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts > 0 {
		s.FailPuts--
		return "", errors.New("memory: put failed")
	}

	tid, err := typeid.Generate("blob")
	if err != nil {
		return "", err
	}
	ref := tid.String()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[ref] = buf
	return ref, nil
}

// Get returns a copy of the bytes stored under ref.
func (s *Store) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[ref]
	if !ok {
		return nil, blob.ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Delete removes the ref. Missing refs are ignored.
func (s *Store) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
