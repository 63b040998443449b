package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/id"
)

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, p *company.Project) error {
	m := toProjectModel(p)

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("courier/postgres: create project: %w", err)
	}

	return nil
}

// GetProject returns a project by ID.
func (s *Store) GetProject(ctx context.Context, projectID id.ID) (*company.Project, error) {
	var m projectModel

	err := s.db.WithContext(ctx).
		First(&m, "id = ?", projectID.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, company.ErrProjectNotFound
		}

		return nil, fmt.Errorf("courier/postgres: get project: %w", err)
	}

	return fromProjectModel(&m)
}

// CreateCompany persists a new company.
func (s *Store) CreateCompany(ctx context.Context, c *company.Company) error {
	m := toCompanyModel(c)

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("courier/postgres: create company: %w", err)
	}

	return nil
}

// FindCompanyByRUC returns the company registered under a RUC in a project.
func (s *Store) FindCompanyByRUC(ctx context.Context, projectID id.ID, ruc string) (*company.Company, error) {
	var m companyModel

	err := s.db.WithContext(ctx).
		First(&m, "project_id = ? AND ruc = ?", projectID.String(), ruc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, company.ErrCompanyNotFound
		}

		return nil, fmt.Errorf("courier/postgres: find company: %w", err)
	}

	return fromCompanyModel(&m)
}
