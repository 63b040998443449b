// Package memory provides an in-process Queue implementation: a delayed
// job list drained by a polling worker pool. Suitable for single-node
// deployments and tests; redelivery on handler failure gives the same
// at-least-once semantics as the broker-backed adapters.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tributo/courier/id"
	"github.com/tributo/courier/queue"
)

// compile-time interface check.
var _ queue.Queue = (*Queue)(nil)

// Config holds the in-memory queue settings.
type Config struct {
	// Concurrency is the number of jobs processed at once.
	Concurrency int

	// PollInterval is how often the due-job scan runs.
	PollInterval time.Duration

	// RedeliveryDelay is the delay before a nacked message is retried.
	RedeliveryDelay time.Duration
}

// DefaultConfig returns the default in-memory queue settings.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		PollInterval:    50 * time.Millisecond,
		RedeliveryDelay: 250 * time.Millisecond,
	}
}

type item struct {
	docID      id.ID
	enqueuedAt time.Time
	dueAt      time.Time
}

// Queue is an in-process delayed queue with two job kinds.
type Queue struct {
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	send    []item
	ticket  []item
	closed  bool
	started bool

	sendHandler   queue.Handler
	ticketHandler queue.Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an in-process queue.
func New(cfg Config, logger *slog.Logger) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.RedeliveryDelay <= 0 {
		cfg.RedeliveryDelay = DefaultConfig().RedeliveryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{config: cfg, logger: logger}
}

// EnqueueSend schedules a send job.
func (q *Queue) EnqueueSend(_ context.Context, docID id.ID, delay time.Duration) error {
	return q.push(&q.send, docID, delay)
}

// EnqueueTicketCheck schedules a ticket-check job.
func (q *Queue) EnqueueTicketCheck(_ context.Context, docID id.ID, delay time.Duration) error {
	return q.push(&q.ticket, docID, delay)
}

func (q *Queue) push(list *[]item, docID id.ID, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return queue.ErrClosed
	}

	now := time.Now().UTC()
	*list = append(*list, item{docID: docID, enqueuedAt: now, dueAt: now.Add(delay)})
	return nil
}

// ConsumeSend registers the send handler.
func (q *Queue) ConsumeSend(h queue.Handler) { q.sendHandler = h }

// ConsumeTicketCheck registers the ticket-check handler.
func (q *Queue) ConsumeTicketCheck(h queue.Handler) { q.ticketHandler = h }

// Start begins the poll loop and worker pool.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return nil
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.pollLoop(ctx)
	}()
	return nil
}

// Stop cancels the poll loop and waits for in-flight handlers.
func (q *Queue) Stop(_ context.Context) {
	q.mu.Lock()
	q.closed = true
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}

// pollLoop periodically claims due jobs and dispatches them to workers.
func (q *Queue) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, q.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.dispatch(ctx, sem, &q.send, q.sendHandler, q.EnqueueSend)
			q.dispatch(ctx, sem, &q.ticket, q.ticketHandler, q.EnqueueTicketCheck)
		}
	}
}

type requeueFn func(ctx context.Context, docID id.ID, delay time.Duration) error

// dispatch claims every due item of one kind and hands each to a worker.
func (q *Queue) dispatch(ctx context.Context, sem chan struct{}, list *[]item, h queue.Handler, requeue requeueFn) {
	if h == nil {
		return
	}

	now := time.Now().UTC()

	q.mu.Lock()
	var due, rest []item
	for _, it := range *list {
		if !it.dueAt.After(now) {
			due = append(due, it)
		} else {
			rest = append(rest, it)
		}
	}
	*list = rest
	q.mu.Unlock()

	for _, it := range due {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}

		q.wg.Add(1)
		go func(it item) {
			defer q.wg.Done()
			defer func() { <-sem }()

			msg := queue.Message{DocumentID: it.docID, EnqueuedAt: it.enqueuedAt}
			if err := queue.Run(ctx, h, msg); err != nil {
				q.logger.WarnContext(ctx, "job failed, scheduling redelivery",
					"document_id", it.docID, "error", err)
				if reqErr := requeue(ctx, it.docID, q.config.RedeliveryDelay); reqErr != nil {
					q.logger.ErrorContext(ctx, "redelivery enqueue failed",
						"document_id", it.docID, "error", reqErr)
				}
			}
		}(it)
	}
}
