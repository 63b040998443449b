package courier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tributo/courier/blob"
	"github.com/tributo/courier/company"
	"github.com/tributo/courier/delivery"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/gateway"
	"github.com/tributo/courier/id"
	"github.com/tributo/courier/internal/entity"
	"github.com/tributo/courier/observability"
	"github.com/tributo/courier/queue"
	"github.com/tributo/courier/ratelimit"
)

// Courier is the root document delivery scheduler.
type Courier struct {
	config    Config
	documents document.Store
	companies company.Store
	blobs     blob.Store
	gateway   gateway.Gateway
	queue     queue.Queue
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer

	gatewayRPS int

	resolver     *company.Resolver
	orchestrator *delivery.Orchestrator

	stopSweep chan struct{}
	sweepDone sync.WaitGroup
	startOnce sync.Once
}

// New creates a new Courier with the given options.
func New(opts ...Option) (*Courier, error) {
	c := &Courier{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.documents == nil {
		return nil, ErrNoDocumentStore
	}
	if c.companies == nil {
		return nil, ErrNoCompanyStore
	}
	if c.blobs == nil {
		return nil, ErrNoBlobStore
	}
	if c.gateway == nil {
		return nil, ErrNoGateway
	}
	if c.queue == nil {
		return nil, ErrNoQueue
	}
	c.wireServices()
	return c, nil
}

// wireServices initializes the internal services after options have been applied.
func (c *Courier) wireServices() {
	c.resolver = company.NewResolver(c.companies, c.logger)

	gw := c.gateway
	if c.gatewayRPS > 0 {
		gw = gateway.NewRateLimited(gw, ratelimit.New(), c.gatewayRPS)
	}

	retrier := delivery.NewRetrier(delivery.RetryConfig{
		MaxAttempts: c.config.MaxAttempts,
		BaseDelay:   c.config.RetryBaseDelay,
		Factor:      c.config.RetryFactor,
		MaxDelay:    c.config.RetryMaxDelay,
	})

	c.orchestrator = delivery.NewOrchestrator(delivery.Config{
		LookupRetries:       c.config.LookupRetries,
		LookupBackoff:       c.config.LookupBackoff,
		TicketCheckInterval: c.config.TicketCheckInterval,
		GatewayTimeout:      c.config.GatewayTimeout,
		BlobTimeout:         c.config.BlobTimeout,
	}, delivery.Deps{
		Documents: c.documents,
		Blobs:     c.blobs,
		Gateway:   gw,
		Resolver:  c.resolver,
		Queue:     c.queue,
		Retrier:   retrier,
		Logger:    c.logger,
		Metrics:   c.metrics,
		Tracer:    c.tracer,
	})

	c.queue.ConsumeSend(c.orchestrator.HandleSend)
	c.queue.ConsumeTicketCheck(c.orchestrator.HandleTicketCheck)
}

// Start begins queue consumption and, when configured, the requeue sweep.
func (c *Courier) Start(ctx context.Context) error {
	if err := c.queue.Start(ctx); err != nil {
		return fmt.Errorf("courier: start queue: %w", err)
	}

	c.startOnce.Do(func() {
		if c.config.RequeueInterval <= 0 {
			return
		}
		c.stopSweep = make(chan struct{})
		c.sweepDone.Add(1)
		go c.sweepLoop(ctx)
	})

	return nil
}

// Stop drains in-flight handlers and shuts down.
func (c *Courier) Stop(ctx context.Context) {
	if c.stopSweep != nil {
		close(c.stopSweep)
		c.sweepDone.Wait()
	}
	c.queue.Stop(ctx)
}

// Submit stores the raw XML payload, creates a document in the initial
// state and enqueues its first send attempt.
//
// The critical path:
//  1. Persist the payload bytes; the document only carries the ref.
//  2. Persist the document as SCHEDULED_TO_DELIVER, due immediately.
//  3. Enqueue the send job. A lost enqueue is recovered by the sweep,
//     which finds the document by its due time.
func (c *Courier) Submit(ctx context.Context, projectID id.ID, payload []byte) (*document.Document, error) {
	ref, err := c.blobs.Put(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("courier: store payload: %w", err)
	}

	doc := document.New(projectID, ref)
	now := time.Now().UTC()
	doc.ScheduledAt = &now
	if err := c.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("courier: persist document: %w", err)
	}

	if err := c.queue.EnqueueSend(ctx, doc.ID, 0); err != nil {
		return nil, fmt.Errorf("courier: enqueue send: %w", err)
	}

	c.logger.DebugContext(ctx, "document submitted",
		"document_id", doc.ID, "project_id", projectID)

	return doc, nil
}

// Document returns a document by id.
func (c *Courier) Document(ctx context.Context, docID id.ID) (*document.Document, error) {
	return c.documents.FindByID(ctx, docID)
}

// RequeueDue re-enqueues documents whose scheduled time has passed but
// whose queue job was lost, typically to a queue restart. Returns the
// number of documents requeued.
func (c *Courier) RequeueDue(ctx context.Context) (int, error) {
	docs, err := c.documents.ListScheduledBefore(ctx, time.Now().UTC(), c.config.RequeueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("courier: list due documents: %w", err)
	}

	var count int
	for _, doc := range docs {
		switch doc.State {
		case document.StateScheduledToDeliver, document.StateRescheduledToDeliver:
			err = c.queue.EnqueueSend(ctx, doc.ID, 0)
		case document.StateScheduledCheckTicket, document.StateRescheduledCheckTicket:
			err = c.queue.EnqueueTicketCheck(ctx, doc.ID, 0)
		default:
			continue
		}
		if err != nil {
			return count, fmt.Errorf("courier: requeue %s: %w", doc.ID, err)
		}
		count++
	}

	if count > 0 {
		c.logger.InfoContext(ctx, "requeued due documents", "count", count)
	}
	return count, nil
}

// sweepLoop periodically requeues due documents until Stop is called.
func (c *Courier) sweepLoop(ctx context.Context) {
	defer c.sweepDone.Done()

	ticker := time.NewTicker(c.config.RequeueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.RequeueDue(ctx); err != nil {
				c.logger.ErrorContext(ctx, "requeue sweep failed", "error", err)
			}
		}
	}
}

// CreateProject registers a project carrying the default delivery
// configuration for its companies.
func (c *Courier) CreateProject(ctx context.Context, name string, urls company.ServiceURLs, creds company.Credentials) (*company.Project, error) {
	p := &company.Project{
		Entity:      entity.New(),
		ID:          id.NewProjectID(),
		Name:        name,
		URLs:        urls,
		Credentials: creds,
	}
	if err := c.companies.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("courier: create project: %w", err)
	}
	return p, nil
}

// RegisterCompany registers an issuer within a project. URLs and credentials
// are optional; missing pieces fall back to the project defaults.
func (c *Courier) RegisterCompany(ctx context.Context, projectID id.ID, ruc, name string, urls *company.ServiceURLs, creds *company.Credentials) (*company.Company, error) {
	co := &company.Company{
		Entity:      entity.New(),
		ID:          id.NewCompanyID(),
		ProjectID:   projectID,
		RUC:         ruc,
		Name:        name,
		URLs:        urls,
		Credentials: creds,
	}
	if err := c.companies.CreateCompany(ctx, co); err != nil {
		return nil, fmt.Errorf("courier: register company: %w", err)
	}
	return co, nil
}
