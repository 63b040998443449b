// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/id"
	courierstore "github.com/tributo/courier/store"
)

// compile-time interface check.
var _ courierstore.Store = (*Store)(nil)

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("memory: store closed")

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	documents map[string]*document.Document // keyed by ID string
	projects  map[string]*company.Project   // keyed by ID string
	companies map[string]*company.Company   // keyed by project/ruc

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		documents: make(map[string]*document.Document),
		projects:  make(map[string]*company.Project),
		companies: make(map[string]*company.Company),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// document.Store
// ──────────────────────────────────────────────────

// copyDocument returns a shallow copy so callers can mutate without a lock.
func copyDocument(d *document.Document) *document.Document {
	cp := *d
	return &cp
}

// Create persists a new document.
func (s *Store) Create(_ context.Context, d *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[d.ID.String()] = copyDocument(d)
	return nil
}

// FindByID returns a copy of the document by ID.
func (s *Store) FindByID(_ context.Context, docID id.ID) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[docID.String()]
	if !ok {
		return nil, document.ErrNotFound
	}
	return copyDocument(d), nil
}

// Save writes a modified document if its version still matches the stored
// one, bumping the version on success.
func (s *Store) Save(_ context.Context, d *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.documents[d.ID.String()]
	if !ok {
		return document.ErrNotFound
	}
	if stored.Version != d.Version {
		return document.ErrConcurrencyConflict
	}

	d.Version++
	d.Touch()
	s.documents[d.ID.String()] = copyDocument(d)
	return nil
}

// ListScheduledBefore returns non-terminal documents whose next scheduled
// time is at or before the cutoff, oldest first.
func (s *Store) ListScheduledBefore(_ context.Context, cutoff time.Time, limit int) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*document.Document
	for _, d := range s.documents {
		if d.State.Terminal() || d.ScheduledAt == nil {
			continue
		}
		if d.ScheduledAt.After(cutoff) {
			continue
		}
		result = append(result, copyDocument(d))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledAt.Before(*result[j].ScheduledAt)
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// company.Store
// ──────────────────────────────────────────────────

func companyKey(projectID id.ID, ruc string) string {
	return projectID.String() + "/" + ruc
}

// CreateProject persists a new project.
func (s *Store) CreateProject(_ context.Context, p *company.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[p.ID.String()] = p
	return nil
}

// GetProject returns a project by ID.
func (s *Store) GetProject(_ context.Context, projectID id.ID) (*company.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID.String()]
	if !ok {
		return nil, company.ErrProjectNotFound
	}
	return p, nil
}

// CreateCompany persists a new company.
func (s *Store) CreateCompany(_ context.Context, c *company.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.companies[companyKey(c.ProjectID, c.RUC)] = c
	return nil
}

// FindCompanyByRUC returns the company registered under a RUC in a project.
func (s *Store) FindCompanyByRUC(_ context.Context, projectID id.ID, ruc string) (*company.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[companyKey(projectID, ruc)]
	if !ok {
		return nil, company.ErrCompanyNotFound
	}
	return c, nil
}
