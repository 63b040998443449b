package gateway

import (
	"context"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/ratelimit"
)

// RateLimited wraps a Gateway with per-issuer rate limiting. Calls block
// until the issuer's token bucket admits them or the context expires.
type RateLimited struct {
	inner   Gateway
	limiter *ratelimit.Limiter
	rps     int
}

// NewRateLimited creates a rate-limited gateway allowing rps calls per
// second per issuer RUC. An rps of 0 disables limiting.
func NewRateLimited(inner Gateway, limiter *ratelimit.Limiter, rps int) *RateLimited {
	return &RateLimited{inner: inner, limiter: limiter, rps: rps}
}

// Send submits after acquiring a token for the issuer.
func (g *RateLimited) Send(ctx context.Context, file []byte, meta *document.XMLMeta, cfg *company.Config) (*Result, error) {
	if err := g.limiter.Wait(ctx, meta.RUC, g.rps); err != nil {
		return nil, &TransientError{Op: "send", Err: err}
	}
	return g.inner.Send(ctx, file, meta, cfg)
}

// PollTicket polls after acquiring a token for the issuer.
func (g *RateLimited) PollTicket(ctx context.Context, ticket string, meta *document.XMLMeta, cfg *company.Config) (*Result, error) {
	if err := g.limiter.Wait(ctx, meta.RUC, g.rps); err != nil {
		return nil, &TransientError{Op: "poll ticket", Err: err}
	}
	return g.inner.PollTicket(ctx, ticket, meta, cfg)
}
