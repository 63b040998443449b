// Package entity defines the base entity type for all courier domain objects.
package entity

import "time"

// Entity is the base type embedded by all courier domain objects.
// Version backs the optimistic-concurrency check performed by repositories:
// a save succeeds only when the stored version matches, and bumps it.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// New returns an Entity with both timestamps set to the current UTC time
// and version 1.
func New() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now, Version: 1}
}

// Touch updates the modification timestamp. Repositories bump Version on
// successful save; Touch does not.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
