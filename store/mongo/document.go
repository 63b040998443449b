package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tributo/courier/document"
	"github.com/tributo/courier/id"
)

// Create persists a new document.
func (s *Store) Create(ctx context.Context, d *document.Document) error {
	m := toDocumentModel(d)

	_, err := s.db.Collection(colDocuments).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("courier/mongo: create document: %w", err)
	}

	return nil
}

// FindByID returns a document by ID.
func (s *Store) FindByID(ctx context.Context, docID id.ID) (*document.Document, error) {
	var m documentModel

	err := s.db.Collection(colDocuments).
		FindOne(ctx, bson.M{"_id": docID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("courier/mongo: find document: %w", err)
	}

	return fromDocumentModel(&m)
}

// Save replaces the document if its version still matches the stored one.
// The replacement carries the bumped version, so a concurrent writer that
// loaded the same version loses the race.
func (s *Store) Save(ctx context.Context, d *document.Document) error {
	m := toDocumentModel(d)
	m.Version = d.Version + 1
	m.UpdatedAt = now()

	res, err := s.db.Collection(colDocuments).ReplaceOne(ctx,
		bson.M{"_id": m.ID, "version": d.Version}, m)
	if err != nil {
		return fmt.Errorf("courier/mongo: save document: %w", err)
	}

	if res.MatchedCount == 0 {
		count, err := s.db.Collection(colDocuments).
			CountDocuments(ctx, bson.M{"_id": m.ID}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("courier/mongo: save document: %w", err)
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
	filter := bson.M{
		"scheduled_at": bson.M{"$lte": cutoff},
		"state": bson.M{"$nin": bson.A{
			string(document.StateDelivered),
			string(document.StateFailedTerminal),
		}},
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cur, err := s.db.Collection(colDocuments).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("courier/mongo: list scheduled: %w", err)
	}
	defer cur.Close(ctx)

	var models []documentModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("courier/mongo: list scheduled: %w", err)
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
