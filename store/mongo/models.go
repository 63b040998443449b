package mongo

import (
	"fmt"
	"time"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/id"
	"github.com/tributo/courier/internal/entity"
)

// --- Document models ---

type xmlMetaModel struct {
	RUC            string `bson:"ruc"`
	DocumentID     string `bson:"document_id"`
	DocumentType   string `bson:"document_type"`
	VoidedLineCode string `bson:"voided_line_code,omitempty"`
}

type gatewayResponseModel struct {
	Code        int      `bson:"code"`
	Status      string   `bson:"status"`
	Description string   `bson:"description"`
	Notes       []string `bson:"notes,omitempty"`
}

type jobErrorModel struct {
	Phase          string `bson:"phase"`
	Description    string `bson:"description"`
	RecoveryAction string `bson:"recovery_action"`
	AttemptCount   int    `bson:"attempt_count"`
}

type documentModel struct {
	ID              string                `bson:"_id"`
	ProjectID       string                `bson:"project_id"`
	CompanyRUC      string                `bson:"company_ruc,omitempty"`
	RawFileRef      string                `bson:"raw_file_ref"`
	XMLMeta         *xmlMetaModel         `bson:"xml_meta,omitempty"`
	FileValid       *bool                 `bson:"file_valid,omitempty"`
	State           string                `bson:"state"`
	Ticket          string                `bson:"ticket,omitempty"`
	CDRRef          string                `bson:"cdr_ref,omitempty"`
	GatewayResponse *gatewayResponseModel `bson:"gateway_response,omitempty"`
	JobError        *jobErrorModel        `bson:"job_error,omitempty"`
	RetryCount      int                   `bson:"retry_count"`
	ScheduledAt     *time.Time            `bson:"scheduled_at,omitempty"`
	InProgress      bool                  `bson:"in_progress"`
	CompletedAt     *time.Time            `bson:"completed_at,omitempty"`
	Version         int64                 `bson:"version"`
	CreatedAt       time.Time             `bson:"created_at"`
	UpdatedAt       time.Time             `bson:"updated_at"`
}

func toDocumentModel(d *document.Document) *documentModel {
	m := &documentModel{
		ID:          d.ID.String(),
		ProjectID:   d.ProjectID.String(),
		CompanyRUC:  d.CompanyRUC,
		RawFileRef:  d.RawFileRef,
		FileValid:   d.FileValid,
		State:       string(d.State),
		Ticket:      d.Ticket,
		CDRRef:      d.CDRRef,
		RetryCount:  d.RetryCount,
		ScheduledAt: d.ScheduledAt,
		InProgress:  d.InProgress,
		CompletedAt: d.CompletedAt,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}

	if d.XMLMeta != nil {
		m.XMLMeta = &xmlMetaModel{
			RUC:            d.XMLMeta.RUC,
			DocumentID:     d.XMLMeta.DocumentID,
			DocumentType:   string(d.XMLMeta.DocumentType),
			VoidedLineCode: d.XMLMeta.VoidedLineCode,
		}
	}
	if d.GatewayResponse != nil {
		m.GatewayResponse = &gatewayResponseModel{
			Code:        d.GatewayResponse.Code,
			Status:      d.GatewayResponse.Status,
			Description: d.GatewayResponse.Description,
			Notes:       d.GatewayResponse.Notes,
		}
	}
	if d.JobError != nil {
		m.JobError = &jobErrorModel{
			Phase:          string(d.JobError.Phase),
			Description:    d.JobError.Description,
			RecoveryAction: string(d.JobError.RecoveryAction),
			AttemptCount:   d.JobError.AttemptCount,
		}
	}

	return m
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

	d := &document.Document{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			Version:   m.Version,
		},
		ID:          docID,
		ProjectID:   projectID,
		CompanyRUC:  m.CompanyRUC,
		RawFileRef:  m.RawFileRef,
		FileValid:   m.FileValid,
		State:       document.DeliveryState(m.State),
		Ticket:      m.Ticket,
		CDRRef:      m.CDRRef,
		RetryCount:  m.RetryCount,
		ScheduledAt: m.ScheduledAt,
		InProgress:  m.InProgress,
		CompletedAt: m.CompletedAt,
	}

	if m.XMLMeta != nil {
		d.XMLMeta = &document.XMLMeta{
			RUC:            m.XMLMeta.RUC,
			DocumentID:     m.XMLMeta.DocumentID,
			DocumentType:   document.Type(m.XMLMeta.DocumentType),
			VoidedLineCode: m.XMLMeta.VoidedLineCode,
		}
	}
	if m.GatewayResponse != nil {
		d.GatewayResponse = &document.GatewayResponse{
			Code:        m.GatewayResponse.Code,
			Status:      m.GatewayResponse.Status,
			Description: m.GatewayResponse.Description,
			Notes:       m.GatewayResponse.Notes,
		}
	}
	if m.JobError != nil {
		d.JobError = &document.JobError{
			Phase:          document.ErrorPhase(m.JobError.Phase),
			Description:    m.JobError.Description,
			RecoveryAction: document.RecoveryAction(m.JobError.RecoveryAction),
			AttemptCount:   m.JobError.AttemptCount,
		}
	}

	return d, nil
}

// --- Company models ---

type serviceURLsModel struct {
	Invoice             string `bson:"invoice"`
	PerceptionRetention string `bson:"perception_retention"`
	Despatch            string `bson:"despatch,omitempty"`
}

type credentialsModel struct {
	Username string `bson:"username"`
	Password string `bson:"password"`
}

type companyModel struct {
	ID          string            `bson:"_id"`
	ProjectID   string            `bson:"project_id"`
	RUC         string            `bson:"ruc"`
	Name        string            `bson:"name"`
	URLs        *serviceURLsModel `bson:"urls,omitempty"`
	Credentials *credentialsModel `bson:"credentials,omitempty"`
	Version     int64             `bson:"version"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

type projectModel struct {
	ID          string           `bson:"_id"`
	Name        string           `bson:"name"`
	URLs        serviceURLsModel `bson:"urls"`
	Credentials credentialsModel `bson:"credentials"`
	Version     int64            `bson:"version"`
	CreatedAt   time.Time        `bson:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at"`
}

func toURLsModel(u company.ServiceURLs) serviceURLsModel {
	return serviceURLsModel{
		Invoice:             u.Invoice,
		PerceptionRetention: u.PerceptionRetention,
		Despatch:            u.Despatch,
	}
}

func fromURLsModel(m serviceURLsModel) company.ServiceURLs {
	return company.ServiceURLs{
		Invoice:             m.Invoice,
		PerceptionRetention: m.PerceptionRetention,
		Despatch:            m.Despatch,
	}
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
		u := toURLsModel(*c.URLs)
		m.URLs = &u
	}
	if c.Credentials != nil {
		m.Credentials = &credentialsModel{
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
		u := fromURLsModel(*m.URLs)
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
		URLs: toURLsModel(p.URLs),
		Credentials: credentialsModel{
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
		URLs: fromURLsModel(m.URLs),
		Credentials: company.Credentials{
			Username: m.Credentials.Username,
			Password: m.Credentials.Password,
		},
	}, nil
}
