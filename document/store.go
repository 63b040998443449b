package document

import (
	"context"
	"errors"
	"time"

	"github.com/tributo/courier/id"
)

// Sentinel errors returned by document stores.
var (
	// ErrNotFound is returned when a document cannot be found.
	ErrNotFound = errors.New("document: not found")

	// ErrConcurrencyConflict is returned when a save loses an
	// optimistic-concurrency race.
	ErrConcurrencyConflict = errors.New("document: concurrent modification")
)

// Store defines the persistence contract for documents.
//
// Save performs an optimistic-concurrency write: it succeeds only when the
// stored Version matches the one carried by the document, bumping it on
// success, and fails with ErrConcurrencyConflict otherwise. Phases always
// re-fetch by id before mutating; a conflict aborts the phase so it is
// retried from a fresh load.
type Store interface {
	// Create persists a new document.
	Create(ctx context.Context, d *Document) error

	// FindByID returns a document by id, or ErrNotFound.
	FindByID(ctx context.Context, docID id.ID) (*Document, error)

	// Save writes a modified document with a version check.
	Save(ctx context.Context, d *Document) error

	// ListScheduledBefore returns documents in a rescheduled state whose
	// ScheduledAt is at or before the cutoff. Used to requeue delayed jobs
	// lost to a queue restart.
	ListScheduledBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Document, error)
}
