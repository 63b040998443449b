// Package delivery implements the document delivery pipeline: fetching the
// raw XML, parsing routing metadata, resolving the issuer configuration,
// calling the gateway, persisting the CDR and driving the state machine.
//
// Every queue message is processed as a single optimistic read-modify-write
// against the document store. Handlers are idempotent: a redelivered message
// for a document that already progressed is acknowledged without effect, so
// the queue only needs at-least-once semantics.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tributo/courier/blob"
	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/gateway"
	"github.com/tributo/courier/id"
	"github.com/tributo/courier/observability"
	"github.com/tributo/courier/queue"
	"github.com/tributo/courier/ubl"
)

// jobKind distinguishes which queue a rescheduled document goes back to.
type jobKind int

const (
	jobSend jobKind = iota
	jobTicket
)

// Config tunes the orchestrator.
type Config struct {
	// LookupRetries bounds the by-id lookups when a freshly enqueued
	// message races replication of its document.
	LookupRetries int

	// LookupBackoff is the pause between bounded lookups.
	LookupBackoff time.Duration

	// TicketCheckInterval is the fixed delay between ticket polls while
	// the authority reports the submission as still pending.
	TicketCheckInterval time.Duration

	// GatewayTimeout bounds each gateway call.
	GatewayTimeout time.Duration

	// BlobTimeout bounds each blob store call.
	BlobTimeout time.Duration
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		LookupRetries:       10,
		LookupBackoff:       100 * time.Millisecond,
		TicketCheckInterval: time.Minute,
		GatewayTimeout:      30 * time.Second,
		BlobTimeout:         10 * time.Second,
	}
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Documents document.Store
	Blobs     blob.Store
	Gateway   gateway.Gateway
	Resolver  *company.Resolver
	Queue     queue.Queue
	Retrier   *Retrier
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Tracer    *observability.Tracer
}

// Orchestrator executes send and ticket-check jobs and owns every document
// mutation while a document is in flight.
type Orchestrator struct {
	cfg     Config
	docs    document.Store
	blobs   blob.Store
	gw      gateway.Gateway
	res     *company.Resolver
	queue   queue.Queue
	retrier *Retrier
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewOrchestrator creates an orchestrator, filling zero config fields with
// defaults.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	def := DefaultConfig()
	if cfg.LookupRetries <= 0 {
		cfg.LookupRetries = def.LookupRetries
	}
	if cfg.LookupBackoff <= 0 {
		cfg.LookupBackoff = def.LookupBackoff
	}
	if cfg.TicketCheckInterval <= 0 {
		cfg.TicketCheckInterval = def.TicketCheckInterval
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = def.GatewayTimeout
	}
	if cfg.BlobTimeout <= 0 {
		cfg.BlobTimeout = def.BlobTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Retrier == nil {
		deps.Retrier = NewRetrier(DefaultRetryConfig())
	}
	return &Orchestrator{
		cfg:     cfg,
		docs:    deps.Documents,
		blobs:   deps.Blobs,
		gw:      deps.Gateway,
		res:     deps.Resolver,
		queue:   deps.Queue,
		retrier: deps.Retrier,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}
}

// HandleSend processes one send job: fetch, parse, resolve, submit, and
// either finish the document or hand it to the ticket-check loop.
func (o *Orchestrator) HandleSend(ctx context.Context, msg queue.Message) (err error) {
	start := time.Now()
	ctx, span := o.tracer.StartPhase(ctx, "send", msg.DocumentID.String())
	defer func() {
		o.tracer.EndPhase(span, err)
		o.metrics.RecordPhase(ctx, "send", outcome(err), time.Since(start).Seconds())
	}()

	doc, err := o.loadWithRetry(ctx, msg.DocumentID)
	if err != nil {
		return fmt.Errorf("delivery: load %s: %w", msg.DocumentID, err)
	}

	switch doc.State {
	case document.StateScheduledToDeliver, document.StateRescheduledToDeliver:
	default:
		o.logger.DebugContext(ctx, "send job skipped, document already progressed",
			"document_id", doc.ID, "state", doc.State)
		return nil
	}

	// A document stranded by a CDR persistence failure already has a
	// definitive gateway outcome; never resubmit it.
	if doc.JobError != nil && doc.JobError.Phase == document.PhaseSaveCDR && doc.GatewayResponse != nil {
		return o.recoverLostCDR(ctx, doc)
	}

	bctx, cancel := context.WithTimeout(ctx, o.cfg.BlobTimeout)
	payload, err := o.blobs.Get(bctx, doc.RawFileRef)
	cancel()
	if err != nil {
		o.logger.WarnContext(ctx, "raw file fetch failed",
			"document_id", doc.ID, "ref", doc.RawFileRef, "error", err)
		return o.reschedule(ctx, doc, document.PhaseFetchFile, jobSend)
	}

	meta, err := ubl.Parse(payload)
	if err != nil {
		invalid := false
		doc.FileValid = &invalid
		doc.JobError = Classify(document.PhaseReadXMLFile, doc.RetryCount+1)
		doc.MarkTerminal(document.StateFailedTerminal)
		o.logger.WarnContext(ctx, "unreadable document file",
			"document_id", doc.ID, "error", err)
		return o.save(ctx, doc)
	}
	valid := true
	doc.FileValid = &valid
	doc.XMLMeta = meta
	doc.CompanyRUC = meta.RUC

	cfg, err := o.res.Resolve(ctx, doc.ProjectID, doc.CompanyRUC)
	if err != nil {
		if errors.Is(err, company.ErrNotResolvable) {
			doc.JobError = Classify(document.PhaseCompanyNotFound, doc.RetryCount+1)
			doc.MarkTerminal(document.StateFailedTerminal)
			o.logger.WarnContext(ctx, "no delivery configuration for issuer",
				"document_id", doc.ID, "ruc", doc.CompanyRUC)
			return o.save(ctx, doc)
		}
		return fmt.Errorf("delivery: resolve config for %s: %w", doc.ID, err)
	}

	gctx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
	res, err := o.gw.Send(gctx, payload, doc.XMLMeta, cfg)
	cancel()
	if err != nil {
		if gateway.IsTransient(err) {
			o.logger.WarnContext(ctx, "gateway send failed",
				"document_id", doc.ID, "error", err)
			return o.reschedule(ctx, doc, document.PhaseSendXMLFile, jobSend)
		}
		return fmt.Errorf("delivery: send %s: %w", doc.ID, err)
	}
	doc.SetResponse(res.Code, string(res.Status), res.Description, res.Notes, res.Ticket)

	if len(res.CDR) > 0 {
		ref, err := o.storeCDR(ctx, res.CDR)
		if err != nil {
			o.logger.ErrorContext(ctx, "cdr persistence failed",
				"document_id", doc.ID, "error", err)
			return o.reschedule(ctx, doc, document.PhaseSaveCDR, jobSend)
		}
		doc.SetCDR(ref)
	}

	if doc.Ticket != "" && doc.CDRRef == "" {
		return o.beginTicketWait(ctx, doc)
	}

	doc.ClearJobError()
	doc.MarkTerminal(document.StateDelivered)
	if err := o.save(ctx, doc); err != nil {
		return err
	}
	o.logger.InfoContext(ctx, "document delivered",
		"document_id", doc.ID, "status", res.Status, "code", res.Code)
	return nil
}

// HandleTicketCheck processes one ticket-check job: poll the ticket and
// either finish the document, keep waiting, or reschedule after a failure.
func (o *Orchestrator) HandleTicketCheck(ctx context.Context, msg queue.Message) (err error) {
	start := time.Now()
	ctx, span := o.tracer.StartPhase(ctx, "ticket_check", msg.DocumentID.String())
	defer func() {
		o.tracer.EndPhase(span, err)
		o.metrics.RecordPhase(ctx, "ticket_check", outcome(err), time.Since(start).Seconds())
	}()

	doc, err := o.loadWithRetry(ctx, msg.DocumentID)
	if err != nil {
		return fmt.Errorf("delivery: load %s: %w", msg.DocumentID, err)
	}

	switch {
	case doc.State != document.StateScheduledCheckTicket && doc.State != document.StateRescheduledCheckTicket:
		o.logger.DebugContext(ctx, "ticket job skipped, document already progressed",
			"document_id", doc.ID, "state", doc.State)
		return nil
	case !doc.InProgress || doc.Ticket == "":
		o.logger.DebugContext(ctx, "ticket job skipped, no confirmation outstanding",
			"document_id", doc.ID)
		return nil
	}

	cfg, err := o.res.Resolve(ctx, doc.ProjectID, doc.CompanyRUC)
	if err != nil {
		if errors.Is(err, company.ErrNotResolvable) {
			doc.JobError = Classify(document.PhaseCompanyNotFound, doc.RetryCount+1)
			doc.MarkTerminal(document.StateFailedTerminal)
			o.metrics.TicketFinished(ctx)
			return o.save(ctx, doc)
		}
		return fmt.Errorf("delivery: resolve config for %s: %w", doc.ID, err)
	}

	gctx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
	res, err := o.gw.PollTicket(gctx, doc.Ticket, doc.XMLMeta, cfg)
	cancel()
	if err != nil {
		if gateway.IsTransient(err) {
			o.logger.WarnContext(ctx, "ticket poll failed",
				"document_id", doc.ID, "ticket", doc.Ticket, "error", err)
			return o.reschedule(ctx, doc, document.PhaseVerifyTicket, jobTicket)
		}
		return fmt.Errorf("delivery: poll ticket for %s: %w", doc.ID, err)
	}
	doc.SetResponse(res.Code, string(res.Status), res.Description, res.Notes, res.Ticket)

	if res.Status == gateway.StatusPending {
		// Still processing; check again later. The poll itself succeeded,
		// so any failure classification and consumed budget are stale.
		doc.ClearJobError()
		doc.RetryCount = 0
		doc.State = document.StateScheduledCheckTicket
		due := time.Now().UTC().Add(o.cfg.TicketCheckInterval)
		doc.ScheduledAt = &due
		if err := o.save(ctx, doc); err != nil {
			return err
		}
		return o.queue.EnqueueTicketCheck(ctx, doc.ID, o.cfg.TicketCheckInterval)
	}

	if len(res.CDR) > 0 {
		ref, err := o.storeCDR(ctx, res.CDR)
		if err != nil {
			// The CDR can be re-obtained by polling the ticket again.
			o.logger.ErrorContext(ctx, "cdr persistence failed",
				"document_id", doc.ID, "error", err)
			return o.reschedule(ctx, doc, document.PhaseSaveCDR, jobTicket)
		}
		doc.SetCDR(ref)
	}

	doc.ClearJobError()
	doc.MarkTerminal(document.StateDelivered)
	if err := o.save(ctx, doc); err != nil {
		return err
	}
	o.metrics.TicketFinished(ctx)
	o.logger.InfoContext(ctx, "ticket confirmed",
		"document_id", doc.ID, "status", res.Status, "code", res.Code)
	return nil
}

// beginTicketWait moves a document with a fresh ticket into the ticket-check
// loop. The phase change resets the retry budget.
func (o *Orchestrator) beginTicketWait(ctx context.Context, doc *document.Document) error {
	doc.State = document.StateScheduledCheckTicket
	doc.InProgress = true
	doc.RetryCount = 0
	doc.ClearJobError()
	due := time.Now().UTC().Add(o.cfg.TicketCheckInterval)
	doc.ScheduledAt = &due
	if err := o.save(ctx, doc); err != nil {
		return err
	}
	o.metrics.TicketStarted(ctx)
	o.logger.InfoContext(ctx, "awaiting ticket confirmation",
		"document_id", doc.ID, "ticket", doc.Ticket)
	return o.queue.EnqueueTicketCheck(ctx, doc.ID, o.cfg.TicketCheckInterval)
}

// recoverLostCDR finishes a document whose gateway outcome is definitive but
// whose CDR bytes were lost to a persistence failure. With a ticket the CDR
// can be fetched again; without one the document completes CDR-less.
func (o *Orchestrator) recoverLostCDR(ctx context.Context, doc *document.Document) error {
	if doc.Ticket != "" && doc.CDRRef == "" {
		return o.beginTicketWait(ctx, doc)
	}
	doc.ClearJobError()
	doc.MarkTerminal(document.StateDelivered)
	if err := o.save(ctx, doc); err != nil {
		return err
	}
	o.logger.WarnContext(ctx, "document completed without stored cdr",
		"document_id", doc.ID)
	return nil
}

// reschedule applies the retry policy after a retryable phase failure:
// either record the rescheduled state and enqueue a delayed retry, or fail
// the document permanently once the budget is consumed.
func (o *Orchestrator) reschedule(ctx context.Context, doc *document.Document, phase document.ErrorPhase, kind jobKind) error {
	doc.RetryCount++
	if !o.retrier.ShouldRetry(phase, doc.RetryCount) {
		doc.JobError = Classify(document.PhaseRetryConsumed, doc.RetryCount)
		doc.MarkTerminal(document.StateFailedTerminal)
		if kind == jobTicket {
			o.metrics.TicketFinished(ctx)
		}
		if err := o.save(ctx, doc); err != nil {
			return err
		}
		o.logger.ErrorContext(ctx, "delivery failed permanently",
			"document_id", doc.ID, "phase", phase, "attempts", doc.RetryCount)
		return nil
	}

	delay := o.retrier.NextDelay(doc.RetryCount)
	due := time.Now().UTC().Add(delay)
	doc.ScheduledAt = &due
	doc.JobError = Classify(phase, doc.RetryCount)
	if kind == jobTicket {
		doc.State = document.StateRescheduledCheckTicket
	} else {
		doc.State = document.StateRescheduledToDeliver
	}
	if err := o.save(ctx, doc); err != nil {
		return err
	}
	o.metrics.RecordRetry(ctx, string(phase))
	o.logger.WarnContext(ctx, "delivery rescheduled",
		"document_id", doc.ID, "phase", phase, "attempt", doc.RetryCount, "delay", delay)
	if kind == jobTicket {
		return o.queue.EnqueueTicketCheck(ctx, doc.ID, delay)
	}
	return o.queue.EnqueueSend(ctx, doc.ID, delay)
}

// storeCDR persists the CDR bytes, retrying once immediately. Blob hiccups
// are common enough that a second attempt avoids burning a delivery retry.
func (o *Orchestrator) storeCDR(ctx context.Context, cdr []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		bctx, cancel := context.WithTimeout(ctx, o.cfg.BlobTimeout)
		ref, err := o.blobs.Put(bctx, cdr)
		cancel()
		if err == nil {
			return ref, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// loadWithRetry fetches a document by id, absorbing a short replication gap
// between enqueue and readability with a bounded number of retries.
func (o *Orchestrator) loadWithRetry(ctx context.Context, docID id.ID) (*document.Document, error) {
	for attempt := 1; ; attempt++ {
		doc, err := o.docs.FindByID(ctx, docID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, document.ErrNotFound) || attempt >= o.cfg.LookupRetries {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.LookupBackoff):
		}
	}
}

// save writes the document with its version check. A conflict means another
// worker progressed the document first; the message is redelivered and the
// idempotence gate settles it from a fresh load.
func (o *Orchestrator) save(ctx context.Context, doc *document.Document) error {
	if err := o.docs.Save(ctx, doc); err != nil {
		if errors.Is(err, document.ErrConcurrencyConflict) {
			o.logger.DebugContext(ctx, "lost save race, deferring to redelivery",
				"document_id", doc.ID)
		}
		return fmt.Errorf("delivery: save %s: %w", doc.ID, err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
