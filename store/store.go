// Package store defines the composite Store interface for all courier
// persistence.
//
// Each subsystem defines its own store interface; the aggregate Store
// composes them so a single backend serves the whole pipeline. Backends
// exist for memory (testing), MongoDB and PostgreSQL.
package store

import (
	"context"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
)

// Store is the aggregate persistence interface.
type Store interface {
	document.Store
	company.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
