package company

import (
	"context"
	"errors"

	"github.com/tributo/courier/id"
)

// Sentinel errors returned by company stores.
var (
	// ErrCompanyNotFound is returned when no company matches a RUC within a project.
	ErrCompanyNotFound = errors.New("company: not found")

	// ErrProjectNotFound is returned when a project cannot be found.
	ErrProjectNotFound = errors.New("company: project not found")
)

// Store defines the persistence contract for companies and projects.
type Store interface {
	// CreateProject persists a new project.
	CreateProject(ctx context.Context, p *Project) error

	// GetProject returns a project by id, or ErrProjectNotFound.
	GetProject(ctx context.Context, projectID id.ID) (*Project, error)

	// CreateCompany persists a new company.
	CreateCompany(ctx context.Context, c *Company) error

	// FindCompanyByRUC returns the company with the given RUC within a
	// project, or ErrCompanyNotFound.
	FindCompanyByRUC(ctx context.Context, projectID id.ID, ruc string) (*Company, error)
}
