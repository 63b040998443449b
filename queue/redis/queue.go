// Package redis provides a Redis-backed Queue implementation. Jobs live in
// per-kind sorted sets scored by their due time; a Lua script claims due
// members atomically so concurrent schedulers never double-deliver the same
// message. Claimed members are parked in a processing set until the handler
// acks, so a worker crash mid-job surfaces the message again after the
// visibility timeout instead of losing it. Redelivery on handler failure
// re-adds the member with a delay.
package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tributo/courier/id"
	"github.com/tributo/courier/queue"
)

// compile-time interface check.
var _ queue.Queue = (*Queue)(nil)

// Sorted sets holding pending jobs scored by due time and in-flight jobs
// scored by claim time, plus companion hashes recording each member's
// enqueue timestamp.
const (
	zSendPending      = "courier:z:send:pending"
	zTicketPending    = "courier:z:ticket:pending"
	zSendProcessing   = "courier:z:send:processing"
	zTicketProcessing = "courier:z:ticket:processing"
	hSendEnqueued     = "courier:h:send:enqueued"
	hTicketEnqueue    = "courier:h:ticket:enqueued"
)

// claimScript atomically moves due members from a pending sorted set into
// the processing set, scored by claim time.
// KEYS[1] = pending zset
// KEYS[2] = processing zset
// ARGV[1] = current score threshold
// ARGV[2] = limit
// ARGV[3] = claim-time score
var claimScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return {} end
for i, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
    redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return ids
`)

// reclaimScript returns members whose claim outlived the visibility timeout
// to the pending set, due immediately. Covers workers that died between
// claim and ack; the redelivered message settles through the handler's
// idempotence gate.
// KEYS[1] = processing zset
// KEYS[2] = pending zset
// ARGV[1] = stale score threshold
// ARGV[2] = limit
// ARGV[3] = due-now score
var reclaimScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return 0 end
for i, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
    redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return #ids
`)

// Config holds the Redis queue settings.
type Config struct {
	// Concurrency is the number of jobs processed at once.
	Concurrency int

	// PollInterval is how often due jobs are claimed.
	PollInterval time.Duration

	// BatchSize is the maximum members claimed per poll cycle and kind.
	BatchSize int

	// RedeliveryDelay is the delay before a nacked message is retried.
	RedeliveryDelay time.Duration

	// VisibilityTimeout is how long a claimed message may stay unacked
	// before it is returned to the pending set. Must exceed the longest
	// handler run, including gateway and blob timeouts.
	VisibilityTimeout time.Duration
}

// DefaultConfig returns the default Redis queue settings.
func DefaultConfig() Config {
	return Config{
		Concurrency:       10,
		PollInterval:      1 * time.Second,
		BatchSize:         50,
		RedeliveryDelay:   5 * time.Second,
		VisibilityTimeout: 5 * time.Minute,
	}
}

// Queue is a Redis-backed queue.Queue.
type Queue struct {
	rdb    goredis.UniversalClient
	config Config
	logger *slog.Logger

	sendHandler   queue.Handler
	ticketHandler queue.Handler

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Redis queue on an existing client.
func New(rdb goredis.UniversalClient, cfg Config, logger *slog.Logger) *Queue {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.RedeliveryDelay <= 0 {
		cfg.RedeliveryDelay = def.RedeliveryDelay
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = def.VisibilityTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{rdb: rdb, config: cfg, logger: logger}
}

// EnqueueSend schedules a send job.
func (q *Queue) EnqueueSend(ctx context.Context, docID id.ID, delay time.Duration) error {
	return q.push(ctx, zSendPending, hSendEnqueued, docID, delay)
}

// EnqueueTicketCheck schedules a ticket-check job.
func (q *Queue) EnqueueTicketCheck(ctx context.Context, docID id.ID, delay time.Duration) error {
	return q.push(ctx, zTicketPending, hTicketEnqueue, docID, delay)
}

func (q *Queue) push(ctx context.Context, zkey, hkey string, docID id.ID, delay time.Duration) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return queue.ErrClosed
	}

	now := time.Now().UTC()
	due := now.Add(delay)

	// Re-adding an already-pending document only moves its due time; one
	// pending job per document and kind is exactly the semantics we want.
	pipe := q.rdb.Pipeline()
	pipe.ZAdd(ctx, zkey, goredis.Z{Score: scoreFromTime(due), Member: docID.String()})
	pipe.HSet(ctx, hkey, docID.String(), now.Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	return err
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

func (q *Queue) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, q.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.reclaimStale(ctx, zSendProcessing, zSendPending)
			q.reclaimStale(ctx, zTicketProcessing, zTicketPending)
			q.claimAndDispatch(ctx, sem, zSendPending, zSendProcessing, hSendEnqueued, q.sendHandler, q.EnqueueSend)
			q.claimAndDispatch(ctx, sem, zTicketPending, zTicketProcessing, hTicketEnqueue, q.ticketHandler, q.EnqueueTicketCheck)
		}
	}
}

// reclaimStale returns claims older than the visibility timeout to pending.
func (q *Queue) reclaimStale(ctx context.Context, procKey, pendKey string) {
	now := time.Now().UTC()
	stale := scoreFromTime(now.Add(-q.config.VisibilityTimeout))
	n, err := reclaimScript.Run(ctx, q.rdb, []string{procKey, pendKey},
		stale, q.config.BatchSize, scoreFromTime(now)).Int()
	if err != nil {
		if ctx.Err() == nil {
			q.logger.ErrorContext(ctx, "reclaim stale jobs failed", "key", procKey, "error", err)
		}
		return
	}
	if n > 0 {
		q.logger.WarnContext(ctx, "reclaimed stale in-flight jobs", "key", procKey, "count", n)
	}
}

type requeueFn func(ctx context.Context, docID id.ID, delay time.Duration) error

func (q *Queue) claimAndDispatch(ctx context.Context, sem chan struct{}, zkey, procKey, hkey string, h queue.Handler, requeue requeueFn) {
	if h == nil {
		return
	}

	nowScore := scoreFromTime(time.Now().UTC())
	members, err := claimScript.Run(ctx, q.rdb, []string{zkey, procKey},
		nowScore, q.config.BatchSize, nowScore).StringSlice()
	if err != nil {
		if ctx.Err() == nil {
			q.logger.ErrorContext(ctx, "claim pending jobs failed", "key", zkey, "error", err)
		}
		return
	}

	for _, member := range members {
		docID, parseErr := id.ParseDocumentID(member)
		if parseErr != nil {
			// A foreign member would be reclaimed forever; drop it loudly.
			q.logger.ErrorContext(ctx, "dropping unparseable queue member",
				"key", zkey, "member", member, "error", parseErr)
			q.rdb.ZRem(ctx, procKey, member)
			continue
		}

		enqueuedAt := time.Now().UTC()
		if raw, hErr := q.rdb.HGet(ctx, hkey, member).Result(); hErr == nil {
			if ts, tErr := time.Parse(time.RFC3339Nano, raw); tErr == nil {
				enqueuedAt = ts
			}
		}

		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}

		q.wg.Add(1)
		go func(docID id.ID, enqueuedAt time.Time) {
			defer q.wg.Done()
			defer func() { <-sem }()

			msg := queue.Message{DocumentID: docID, EnqueuedAt: enqueuedAt}
			if err := queue.Run(ctx, h, msg); err != nil {
				q.logger.WarnContext(ctx, "job failed, scheduling redelivery",
					"document_id", docID, "error", err)
				if reqErr := requeue(ctx, docID, q.config.RedeliveryDelay); reqErr != nil {
					q.logger.ErrorContext(ctx, "redelivery enqueue failed",
						"document_id", docID, "error", reqErr)
				}
				// The nack is parked in pending again; release the claim.
				q.rdb.ZRem(ctx, procKey, docID.String())
			} else {
				pipe := q.rdb.Pipeline()
				pipe.ZRem(ctx, procKey, docID.String())
				pipe.HDel(ctx, hkey, docID.String())
				if _, ackErr := pipe.Exec(ctx); ackErr != nil {
					q.logger.ErrorContext(ctx, "ack cleanup failed",
						"document_id", docID, "error", ackErr)
				}
			}
		}(docID, enqueuedAt)
	}
}

// scoreFromTime converts a time.Time to a sorted set score (unix seconds as float64).
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
