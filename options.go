package courier

import (
	"log/slog"
	"time"

	"github.com/tributo/courier/blob"
	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/gateway"
	"github.com/tributo/courier/observability"
	"github.com/tributo/courier/queue"
	"github.com/tributo/courier/store"
)

// Option configures a Courier instance.
type Option func(*Courier) error

// WithStore sets a composite persistence backend serving both the document
// and company repositories.
func WithStore(s store.Store) Option {
	return func(c *Courier) error {
		c.documents = s
		c.companies = s
		return nil
	}
}

// WithDocumentStore sets the document repository.
func WithDocumentStore(s document.Store) Option {
	return func(c *Courier) error {
		c.documents = s
		return nil
	}
}

// WithCompanyStore sets the company repository.
func WithCompanyStore(s company.Store) Option {
	return func(c *Courier) error {
		c.companies = s
		return nil
	}
}

// WithBlobStore sets the blob storage backend for raw files and CDRs.
func WithBlobStore(s blob.Store) Option {
	return func(c *Courier) error {
		c.blobs = s
		return nil
	}
}

// WithGateway sets the external delivery gateway client.
func WithGateway(g gateway.Gateway) Option {
	return func(c *Courier) error {
		c.gateway = g
		return nil
	}
}

// WithQueue sets the job queue backend.
func WithQueue(q queue.Queue) Option {
	return func(c *Courier) error {
		c.queue = q
		return nil
	}
}

// WithLogger sets the structured logger for the Courier instance.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Courier) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Courier) error {
		c.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Courier) error {
		c.tracer = t
		return nil
	}
}

// WithMaxAttempts sets the total number of delivery attempts per step.
func WithMaxAttempts(n int) Option {
	return func(c *Courier) error {
		c.config.MaxAttempts = n
		return nil
	}
}

// WithRetryBackoff sets the retry backoff curve: the delay before the first
// retry, the multiplier applied on each further one, and the cap.
func WithRetryBackoff(base time.Duration, factor float64, maxDelay time.Duration) Option {
	return func(c *Courier) error {
		c.config.RetryBaseDelay = base
		c.config.RetryFactor = factor
		c.config.RetryMaxDelay = maxDelay
		return nil
	}
}

// WithTicketCheckInterval sets the delay between ticket polls.
func WithTicketCheckInterval(d time.Duration) Option {
	return func(c *Courier) error {
		c.config.TicketCheckInterval = d
		return nil
	}
}

// WithGatewayTimeout sets the timeout per gateway call.
func WithGatewayTimeout(d time.Duration) Option {
	return func(c *Courier) error {
		c.config.GatewayTimeout = d
		return nil
	}
}

// WithGatewayRateLimit caps gateway calls per second per issuer RUC.
// The authority throttles aggressive clients; limiting locally keeps
// submissions from failing on its side. 0 disables limiting.
func WithGatewayRateLimit(rps int) Option {
	return func(c *Courier) error {
		c.gatewayRPS = rps
		return nil
	}
}

// WithRequeueInterval enables the sweep loop that requeues due documents
// lost to a queue restart.
func WithRequeueInterval(d time.Duration) Option {
	return func(c *Courier) error {
		c.config.RequeueInterval = d
		return nil
	}
}
