package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tributo/courier/document"
	"github.com/tributo/courier/id"
)

// Create persists a new document.
func (s *Store) Create(ctx context.Context, d *document.Document) error {
	m := toDocumentModel(d)

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("courier/postgres: create document: %w", err)
	}

	return nil
}

// FindByID returns a document by ID.
func (s *Store) FindByID(ctx context.Context, docID id.ID) (*document.Document, error) {
	var m documentModel

	err := s.db.WithContext(ctx).
		First(&m, "id = ?", docID.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("courier/postgres: find document: %w", err)
	}

	return fromDocumentModel(&m)
}

// Save updates the document if its version still matches the stored one.
// The UPDATE is guarded by the version column, so a concurrent writer that
// loaded the same version loses the race.
func (s *Store) Save(ctx context.Context, d *document.Document) error {
	m := toDocumentModel(d)
	m.Version = d.Version + 1
	m.UpdatedAt = now()

	res := s.db.WithContext(ctx).
		Model(&documentModel{}).
		Where("id = ? AND version = ?", m.ID, d.Version).
		Select("*").Omit("id", "created_at").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("courier/postgres: save document: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		err := s.db.WithContext(ctx).
			Model(&documentModel{}).
			Where("id = ?", m.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("courier/postgres: save document: %w", err)
		}
		if count == 0 {
			return document.ErrNotFound
		}

		return document.ErrConcurrencyConflict
	}

	d.Version++
	d.UpdatedAt = m.UpdatedAt
	return nil
}

// ListScheduledBefore returns non-terminal documents due at or before the
// cutoff, oldest first.
func (s *Store) ListScheduledBefore(ctx context.Context, cutoff time.Time, limit int) ([]*document.Document, error) {
	var models []documentModel

	q := s.db.WithContext(ctx).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", cutoff).
		Where("state NOT IN ?", []string{
			string(document.StateDelivered),
			string(document.StateFailedTerminal),
		}).
		Order("scheduled_at ASC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("courier/postgres: list scheduled: %w", err)
	}

	result := make([]*document.Document, 0, len(models))
	for i := range models {
		d, err := fromDocumentModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}
