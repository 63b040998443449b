package company_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/id"
	"github.com/tributo/courier/internal/entity"
	"github.com/tributo/courier/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedProject(t *testing.T, s *memory.Store) *company.Project {
	t.Helper()

	p := &company.Project{
		Entity: entity.New(),
		ID:     id.NewProjectID(),
		Name:   "acme",
		URLs: company.ServiceURLs{
			Invoice:             "https://project.test/billService",
			PerceptionRetention: "https://project.test/perception",
		},
		Credentials: company.Credentials{
			Username: "20123456789MODDATOS",
			Password: "project-secret",
		},
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestResolveUnknownRUCFallsBackToProject(t *testing.T) {
	s := memory.New()
	p := seedProject(t, s)
	r := company.NewResolver(s, testLogger())

	cfg, err := r.Resolve(context.Background(), p.ID, "20999999999")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.URLs != p.URLs {
		t.Errorf("URLs = %+v, want project defaults", cfg.URLs)
	}
	if cfg.Credentials != p.Credentials {
		t.Errorf("Credentials = %+v, want project defaults", cfg.Credentials)
	}
}

func TestResolveCompanyOverridesWin(t *testing.T) {
	s := memory.New()
	p := seedProject(t, s)
	r := company.NewResolver(s, testLogger())

	co := &company.Company{
		Entity:    entity.New(),
		ID:        id.NewCompanyID(),
		ProjectID: p.ID,
		RUC:       "20123456789",
		Name:      "Acme SAC",
		URLs:      &company.ServiceURLs{Invoice: "https://company.test/billService"},
		Credentials: &company.Credentials{
			Username: "20123456789ACMEUSER",
			Password: "company-secret",
		},
	}
	if err := s.CreateCompany(context.Background(), co); err != nil {
		t.Fatalf("create company: %v", err)
	}

	cfg, err := r.Resolve(context.Background(), p.ID, "20123456789")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.URLs.Invoice != "https://company.test/billService" {
		t.Errorf("Invoice URL = %q, want company override", cfg.URLs.Invoice)
	}
	if cfg.Credentials.Username != "20123456789ACMEUSER" {
		t.Errorf("Username = %q, want company override", cfg.Credentials.Username)
	}
}

func TestResolvePartialOverrideFallsBackPerField(t *testing.T) {
	s := memory.New()
	p := seedProject(t, s)
	r := company.NewResolver(s, testLogger())

	// Company carries its own credentials but no URLs.
	co := &company.Company{
		Entity:    entity.New(),
		ID:        id.NewCompanyID(),
		ProjectID: p.ID,
		RUC:       "20123456789",
		Credentials: &company.Credentials{
			Username: "20123456789ACMEUSER",
			Password: "company-secret",
		},
	}
	if err := s.CreateCompany(context.Background(), co); err != nil {
		t.Fatalf("create company: %v", err)
	}

	cfg, err := r.Resolve(context.Background(), p.ID, "20123456789")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.URLs != p.URLs {
		t.Errorf("URLs = %+v, want project defaults", cfg.URLs)
	}
	if cfg.Credentials.Username != "20123456789ACMEUSER" {
		t.Errorf("Username = %q, want company credentials", cfg.Credentials.Username)
	}
}

func TestResolveMissingProject(t *testing.T) {
	s := memory.New()
	r := company.NewResolver(s, testLogger())

	_, err := r.Resolve(context.Background(), id.NewProjectID(), "20123456789")
	if !errors.Is(err, company.ErrNotResolvable) {
		t.Errorf("err = %v, want ErrNotResolvable", err)
	}
}

func TestResolveIncompleteConfiguration(t *testing.T) {
	s := memory.New()
	r := company.NewResolver(s, testLogger())

	// A project without credentials cannot deliver anything.
	p := &company.Project{
		Entity: entity.New(),
		ID:     id.NewProjectID(),
		Name:   "bare",
		URLs:   company.ServiceURLs{Invoice: "https://project.test/billService"},
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}

	_, err := r.Resolve(context.Background(), p.ID, "")
	if !errors.Is(err, company.ErrNotResolvable) {
		t.Errorf("err = %v, want ErrNotResolvable", err)
	}
}
