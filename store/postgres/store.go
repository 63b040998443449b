// Package postgres implements store.Store on PostgreSQL via GORM.
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tributo/courier/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using GORM on PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New creates a store on an existing GORM database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL and returns a store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("courier/postgres: open: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM handle for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the courier tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&projectModel{},
		&companyModel{},
		&documentModel{},
	)
	if err != nil {
		return fmt.Errorf("courier/postgres: migrate: %w", err)
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}
