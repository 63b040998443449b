package redis_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tributo/courier/id"
	"github.com/tributo/courier/queue"
	redisqueue "github.com/tributo/courier/queue/redis"
)

// The claim and reclaim scripts need a live server and are exercised in
// integration environments; these tests cover the client-side contract.

func TestEnqueueAfterStop(t *testing.T) {
	// The client is never dialed: the closed check runs first.
	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	q := redisqueue.New(rdb, redisqueue.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	q.Stop(context.Background())

	if err := q.EnqueueSend(context.Background(), id.NewDocumentID(), 0); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("EnqueueSend after Stop = %v, want ErrClosed", err)
	}
	if err := q.EnqueueTicketCheck(context.Background(), id.NewDocumentID(), 0); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("EnqueueTicketCheck after Stop = %v, want ErrClosed", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := redisqueue.DefaultConfig()

	if cfg.Concurrency <= 0 || cfg.BatchSize <= 0 {
		t.Errorf("config = %+v, want positive worker settings", cfg)
	}
	if cfg.VisibilityTimeout <= cfg.PollInterval {
		t.Errorf("VisibilityTimeout = %v, must exceed the poll interval %v",
			cfg.VisibilityTimeout, cfg.PollInterval)
	}
}
