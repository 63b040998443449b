// Package company holds the tenant-side delivery configuration: which SUNAT
// endpoints and credentials apply to a document, resolved by project + RUC.
package company

import (
	"github.com/tributo/courier/id"
	"github.com/tributo/courier/internal/entity"
)

// Credentials are the SUNAT web-service credentials of a company.
type Credentials struct {
	// Username is the SOL username (typically RUC + user).
	Username string `json:"username"`

	// Password is the SOL password. Never serialized.
	Password string `json:"-"`
}

// ServiceURLs are the per-operation SUNAT endpoint URLs. Invoices, notes and
// voided/summary documents go to Invoice; perceptions and retentions go to
// PerceptionRetention.
type ServiceURLs struct {
	Invoice             string `json:"invoice"`
	PerceptionRetention string `json:"perception_retention"`
	Despatch            string `json:"despatch,omitempty"`
}

// Company is a registered issuer within a project.
type Company struct {
	entity.Entity

	// ID is the unique TypeID for this company.
	ID id.ID `json:"id"`

	// ProjectID is the owning project.
	ProjectID id.ID `json:"project_id"`

	// RUC is the taxpayer identification number. Unique within a project.
	RUC string `json:"ruc"`

	// Name is a human-readable company name.
	Name string `json:"name"`

	// URLs are the company-specific SUNAT endpoints, if any.
	URLs *ServiceURLs `json:"urls,omitempty"`

	// Credentials are the company-specific SUNAT credentials, if any.
	Credentials *Credentials `json:"credentials,omitempty"`
}

// Project groups companies and carries the default SUNAT configuration used
// when a company has none of its own.
type Project struct {
	entity.Entity

	// ID is the unique TypeID for this project.
	ID id.ID `json:"id"`

	// Name is a human-readable project name.
	Name string `json:"name"`

	// URLs are the project-default SUNAT endpoints.
	URLs ServiceURLs `json:"urls"`

	// Credentials are the project-default SUNAT credentials.
	Credentials Credentials `json:"credentials"`
}

// Config is the read-only configuration snapshot handed to the gateway for
// one phase invocation: resolved endpoint URLs plus credentials.
type Config struct {
	URLs        ServiceURLs
	Credentials Credentials
}
