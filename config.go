package courier

import "time"

// Config holds the configuration for a Courier instance.
type Config struct {
	// MaxAttempts is the total number of delivery attempts per logical
	// step before a document is failed permanently.
	MaxAttempts int

	// RetryBaseDelay is the delay before the first retry.
	RetryBaseDelay time.Duration

	// RetryFactor multiplies the delay on each further retry.
	RetryFactor float64

	// RetryMaxDelay caps the computed retry delay.
	RetryMaxDelay time.Duration

	// TicketCheckInterval is the fixed delay between ticket polls while the
	// authority reports a submission as still pending.
	TicketCheckInterval time.Duration

	// GatewayTimeout bounds each call to the external gateway.
	GatewayTimeout time.Duration

	// BlobTimeout bounds each blob store call.
	BlobTimeout time.Duration

	// LookupRetries bounds the by-id lookups when a freshly enqueued job
	// races replication of its document.
	LookupRetries int

	// LookupBackoff is the pause between bounded lookups.
	LookupBackoff time.Duration

	// RequeueInterval is how often due-but-unqueued documents are swept
	// back into the queue. Set to 0 to disable the sweep loop.
	RequeueInterval time.Duration

	// RequeueBatchSize is the maximum number of documents requeued per sweep.
	RequeueBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         3,
		RetryBaseDelay:      1 * time.Minute,
		RetryFactor:         5,
		RetryMaxDelay:       1 * time.Hour,
		TicketCheckInterval: 1 * time.Minute,
		GatewayTimeout:      30 * time.Second,
		BlobTimeout:         10 * time.Second,
		LookupRetries:       10,
		LookupBackoff:       100 * time.Millisecond,
		RequeueInterval:     0,
		RequeueBatchSize:    100,
	}
}
