// Package blob defines the byte-storage contract consumed by the delivery
// pipeline: raw XML payloads go in before scheduling, confirmation receipts
// (CDRs) go in after a successful gateway call. Refs are opaque strings.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a ref does not exist in the store.
var ErrNotFound = errors.New("blob: not found")

// Store is the blob storage contract. Implementations exist for memory,
// local filesystem, S3 and Minio; the pipeline treats them uniformly.
type Store interface {
	// Put stores the bytes and returns a newly assigned ref.
	Put(ctx context.Context, data []byte) (string, error)

	// Get returns the bytes stored under ref, or ErrNotFound.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes the bytes stored under ref. Deleting a missing ref is
	// not an error.
	Delete(ctx context.Context, ref string) error
}
