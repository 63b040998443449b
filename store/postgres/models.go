package postgres

import (
	"fmt"
	"time"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/id"
	"github.com/tributo/courier/internal/entity"
)

type urlsRecord struct {
	Invoice             string `json:"invoice"`
	PerceptionRetention string `json:"perception_retention"`
	Despatch            string `json:"despatch,omitempty"`
}

type credentialsRecord struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func toURLsRecord(u company.ServiceURLs) urlsRecord {
	return urlsRecord(u)
}

func fromURLsRecord(r urlsRecord) company.ServiceURLs {
	return company.ServiceURLs(r)
}

type documentModel struct {
	ID              string                    `gorm:"primaryKey;size:64"`
	ProjectID       string                    `gorm:"size:64;index:idx_documents_project"`
	CompanyRUC      string                    `gorm:"size:16;index"`
	RawFileRef      string                    `gorm:"size:255"`
	XMLMeta         *document.XMLMeta         `gorm:"serializer:json"`
	FileValid       *bool
	State           string                    `gorm:"size:32;index:idx_documents_due,priority:1"`
	Ticket          string                    `gorm:"size:128"`
	CDRRef          string                    `gorm:"size:255"`
	GatewayResponse *document.GatewayResponse `gorm:"serializer:json"`
	JobError        *document.JobError        `gorm:"serializer:json"`
	RetryCount      int
	ScheduledAt     *time.Time                `gorm:"index:idx_documents_due,priority:2"`
	InProgress      bool
	CompletedAt     *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (documentModel) TableName() string { return "courier_documents" }

type companyModel struct {
	ID          string             `gorm:"primaryKey;size:64"`
	ProjectID   string             `gorm:"size:64;uniqueIndex:idx_companies_project_ruc,priority:1"`
	RUC         string             `gorm:"size:16;uniqueIndex:idx_companies_project_ruc,priority:2"`
	Name        string             `gorm:"size:255"`
	URLs        *urlsRecord        `gorm:"serializer:json"`
	Credentials *credentialsRecord `gorm:"serializer:json"`
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (companyModel) TableName() string { return "courier_companies" }

type projectModel struct {
	ID          string            `gorm:"primaryKey;size:64"`
	Name        string            `gorm:"size:255"`
	URLs        urlsRecord        `gorm:"serializer:json"`
	Credentials credentialsRecord `gorm:"serializer:json"`
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (projectModel) TableName() string { return "courier_projects" }

func toDocumentModel(d *document.Document) *documentModel {
	return &documentModel{
		ID:              d.ID.String(),
		ProjectID:       d.ProjectID.String(),
		CompanyRUC:      d.CompanyRUC,
		RawFileRef:      d.RawFileRef,
		XMLMeta:         d.XMLMeta,
		FileValid:       d.FileValid,
		State:           string(d.State),
		Ticket:          d.Ticket,
		CDRRef:          d.CDRRef,
		GatewayResponse: d.GatewayResponse,
		JobError:        d.JobError,
		RetryCount:      d.RetryCount,
		ScheduledAt:     d.ScheduledAt,
		InProgress:      d.InProgress,
		CompletedAt:     d.CompletedAt,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func fromDocumentModel(m *documentModel) (*document.Document, error) {
	docID, err := id.ParseDocumentID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse document ID %q: %w", m.ID, err)
	}

	projectID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ProjectID, err)
	}

	return &document.Document{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		},
		ID:              docID,
		ProjectID:       projectID,
		CompanyRUC:      m.CompanyRUC,
		RawFileRef:      m.RawFileRef,
		XMLMeta:         m.XMLMeta,
		FileValid:       m.FileValid,
		State:           document.DeliveryState(m.State),
		Ticket:          m.Ticket,
		CDRRef:          m.CDRRef,
		GatewayResponse: m.GatewayResponse,
		JobError:        m.JobError,
		RetryCount:      m.RetryCount,
		ScheduledAt:     m.ScheduledAt,
		InProgress:      m.InProgress,
		CompletedAt:     m.CompletedAt,
	}, nil
}

func toCompanyModel(c *company.Company) *companyModel {
	m := &companyModel{
		ID:        c.ID.String(),
		ProjectID: c.ProjectID.String(),
		RUC:       c.RUC,
		Name:      c.Name,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.URLs != nil {
		u := toURLsRecord(*c.URLs)
		m.URLs = &u
	}
	if c.Credentials != nil {
		m.Credentials = &credentialsRecord{
			Username: c.Credentials.Username,
			Password: c.Credentials.Password,
		}
	}
	return m
}

func fromCompanyModel(m *companyModel) (*company.Company, error) {
	companyID, err := id.ParseCompanyID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse company ID %q: %w", m.ID, err)
	}

	projectID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ProjectID, err)
	}

	c := &company.Company{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		},
		ID:        companyID,
		ProjectID: projectID,
		RUC:       m.RUC,
		Name:      m.Name,
	}
	if m.URLs != nil {
		u := fromURLsRecord(*m.URLs)
		c.URLs = &u
	}
	if m.Credentials != nil {
		c.Credentials = &company.Credentials{
			Username: m.Credentials.Username,
			Password: m.Credentials.Password,
		}
	}
	return c, nil
}

func toProjectModel(p *company.Project) *projectModel {
	return &projectModel{
		ID:   p.ID.String(),
		Name: p.Name,
		URLs: toURLsRecord(p.URLs),
		Credentials: credentialsRecord{
			Username: p.Credentials.Username,
			Password: p.Credentials.Password,
		},
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) (*company.Project, error) {
	projectID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse project ID %q: %w", m.ID, err)
	}

	return &company.Project{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		},
		ID:   projectID,
		Name: m.Name,
		URLs: fromURLsRecord(m.URLs),
		Credentials: company.Credentials{
			Username: m.Credentials.Username,
			Password: m.Credentials.Password,
		},
	}, nil
}
