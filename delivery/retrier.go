package delivery

import (
	"math/rand/v2"
	"time"

	"github.com/tributo/courier/document"
)

// RetryConfig controls how failed deliveries are rescheduled.
type RetryConfig struct {
	// MaxAttempts is the total number of delivery attempts before the
	// document is failed permanently.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Factor multiplies the delay on each further retry.
	Factor float64

	// MaxDelay caps the computed delay. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is given:
// three attempts total, one minute before the first retry, five times
// longer on each further one.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Minute,
		Factor:      5,
		MaxDelay:    time.Hour,
	}
}

// Retrier decides whether and when a failed document is redelivered.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier creates a Retrier, falling back to defaults for zero fields.
func NewRetrier(cfg RetryConfig) *Retrier {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Factor < 1 {
		cfg.Factor = def.Factor
	}
	if cfg.MaxDelay < 0 {
		cfg.MaxDelay = 0
	}
	return &Retrier{cfg: cfg}
}

// ShouldRetry reports whether another attempt is allowed after a failure
// in phase, given the number of attempts consumed so far.
func (r *Retrier) ShouldRetry(phase document.ErrorPhase, attempts int) bool {
	if !Retryable(phase) {
		return false
	}
	return attempts < r.cfg.MaxAttempts
}

// NextDelay returns the delay before the next attempt. attempts is the
// number consumed so far, so the first retry gets the base delay. A
// ±20% jitter keeps rescheduled documents from stampeding.
func (r *Retrier) NextDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := float64(r.cfg.BaseDelay)
	for i := 1; i < attempts; i++ {
		d *= r.cfg.Factor
		if r.cfg.MaxDelay > 0 && d >= float64(r.cfg.MaxDelay) {
			d = float64(r.cfg.MaxDelay)
			break
		}
	}
	if r.cfg.MaxDelay > 0 && d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}

	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(d * jitter)
}

// MaxAttempts exposes the attempt ceiling.
func (r *Retrier) MaxAttempts() int {
	return r.cfg.MaxAttempts
}
