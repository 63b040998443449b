package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tributo/courier/id"
)

// ErrNotResolvable is returned when neither the company nor its project
// carries a usable SUNAT configuration. The orchestrator classifies it as a
// terminal COMPANY_NOT_FOUND failure.
var ErrNotResolvable = errors.New("company: no delivery configuration resolvable")

// Resolver resolves the delivery configuration for a document: company-level
// settings when the RUC is registered, otherwise the project defaults.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver creates a configuration resolver.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the configuration snapshot for the given project + RUC.
// Company-level URLs and credentials win over the project defaults; missing
// pieces fall back field by field. The snapshot is read-only and valid for
// a single phase invocation.
func (r *Resolver) Resolve(ctx context.Context, projectID id.ID, ruc string) (*Config, error) {
	var co *Company
	if ruc != "" {
		found, err := r.store.FindCompanyByRUC(ctx, projectID, ruc)
		switch {
		case err == nil:
			co = found
		case errors.Is(err, ErrCompanyNotFound):
			// Unknown RUC falls back to the project defaults.
		default:
			return nil, fmt.Errorf("company: find by ruc %q: %w", ruc, err)
		}
	}

	project, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrNotResolvable
		}
		return nil, fmt.Errorf("company: get project %s: %w", projectID, err)
	}

	cfg := &Config{
		URLs:        project.URLs,
		Credentials: project.Credentials,
	}
	if co != nil {
		if co.URLs != nil {
			cfg.URLs = *co.URLs
		}
		if co.Credentials != nil {
			cfg.Credentials = *co.Credentials
		}
	}

	if cfg.URLs.Invoice == "" || cfg.Credentials.Username == "" {
		r.logger.WarnContext(ctx, "incomplete delivery configuration",
			"project_id", projectID, "ruc", ruc)
		return nil, ErrNotResolvable
	}

	return cfg, nil
}
