// Package fsblob provides a local-filesystem blob store. Blobs are plain
// files named by their ref inside a single directory; good for single-node
// deployments and integration tests.
package fsblob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.jetify.com/typeid/v2"

	"github.com/tributo/courier/blob"
)

// compile-time interface check.
var _ blob.Store = (*Store)(nil)

// Store is a filesystem-backed blob.Store rooted at a directory.
type Store struct {
	dir string
}

// New creates a filesystem blob store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("fsblob: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes data to a fresh file and returns its ref.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	tid, err := typeid.Generate("blob")
	if err != nil {
		return "", fmt.Errorf("fsblob: generate ref: %w", err)
	}
	ref := tid.String()

	if err := os.WriteFile(s.path(ref), data, 0o640); err != nil {
		return "", fmt.Errorf("fsblob: write %s: %w", ref, err)
	}
	return ref, nil
}

// Get reads the file named by ref.
func (s *Store) Get(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("fsblob: read %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the file named by ref. Missing refs are ignored.
func (s *Store) Delete(_ context.Context, ref string) error {
	if err := os.Remove(s.path(ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsblob: delete %s: %w", ref, err)
	}
	return nil
}

// path maps a ref to its file path, rejecting separators so a crafted ref
// cannot escape the root directory.
func (s *Store) path(ref string) string {
	ref = strings.ReplaceAll(ref, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, ref)
}
