package courier

import (
	"errors"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
)

// Sentinel errors returned by Courier construction.
var (
	// ErrNoDocumentStore is returned when a Courier is created without a document repository.
	ErrNoDocumentStore = errors.New("courier: document store is required")

	// ErrNoCompanyStore is returned when a Courier is created without a company repository.
	ErrNoCompanyStore = errors.New("courier: company store is required")

	// ErrNoBlobStore is returned when a Courier is created without a blob store.
	ErrNoBlobStore = errors.New("courier: blob store is required")

	// ErrNoGateway is returned when a Courier is created without a delivery gateway.
	ErrNoGateway = errors.New("courier: delivery gateway is required")

	// ErrNoQueue is returned when a Courier is created without a job queue.
	ErrNoQueue = errors.New("courier: job queue is required")
)

// Domain sentinels re-exported from the subsystem packages that own them.
var (
	// ErrDocumentNotFound is returned when a document cannot be found.
	ErrDocumentNotFound = document.ErrNotFound

	// ErrConcurrencyConflict is returned by repositories when a save loses
	// an optimistic-concurrency race.
	ErrConcurrencyConflict = document.ErrConcurrencyConflict

	// ErrCompanyNotFound is returned when a company cannot be found by RUC.
	ErrCompanyNotFound = company.ErrCompanyNotFound

	// ErrProjectNotFound is returned when a project cannot be found.
	ErrProjectNotFound = company.ErrProjectNotFound
)
