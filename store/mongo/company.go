package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/id"
)

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, p *company.Project) error {
	m := toProjectModel(p)

	_, err := s.db.Collection(colProjects).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("courier/mongo: create project: %w", err)
	}

	return nil
}

// GetProject returns a project by ID.
func (s *Store) GetProject(ctx context.Context, projectID id.ID) (*company.Project, error) {
	var m projectModel

	err := s.db.Collection(colProjects).
		FindOne(ctx, bson.M{"_id": projectID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, company.ErrProjectNotFound
		}

		return nil, fmt.Errorf("courier/mongo: get project: %w", err)
	}

	return fromProjectModel(&m)
}

// CreateCompany persists a new company.
func (s *Store) CreateCompany(ctx context.Context, c *company.Company) error {
	m := toCompanyModel(c)

	_, err := s.db.Collection(colCompanies).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("courier/mongo: create company: %w", err)
	}

	return nil
}

// FindCompanyByRUC returns the company registered under a RUC in a project.
func (s *Store) FindCompanyByRUC(ctx context.Context, projectID id.ID, ruc string) (*company.Company, error) {
	var m companyModel

	err := s.db.Collection(colCompanies).
		FindOne(ctx, bson.M{"project_id": projectID.String(), "ruc": ruc}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, company.ErrCompanyNotFound
		}

		return nil, fmt.Errorf("courier/mongo: find company: %w", err)
	}

	return fromCompanyModel(&m)
}
