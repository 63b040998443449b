package memory_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tributo/courier/id"
	"github.com/tributo/courier/queue"
	"github.com/tributo/courier/queue/memory"
)

func newQueue(t *testing.T) *memory.Queue {
	t.Helper()

	q := memory.New(memory.Config{
		Concurrency:     2,
		PollInterval:    5 * time.Millisecond,
		RedeliveryDelay: 10 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { q.Stop(context.Background()) })
	return q
}

// recorder collects delivered messages.
type recorder struct {
	mu   sync.Mutex
	msgs []queue.Message
	errs int // handler failures to return before succeeding
}

func (r *recorder) handle(_ context.Context, msg queue.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs > 0 {
		r.errs--
		return errors.New("handler failure")
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEnqueueConsumeRoundtrip(t *testing.T) {
	q := newQueue(t)
	rec := &recorder{}
	q.ConsumeSend(rec.handle)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	docID := id.NewDocumentID()
	if err := q.EnqueueSend(context.Background(), docID, 0); err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}

	waitFor(t, func() bool { return rec.count() == 1 }, "send job never delivered")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.msgs[0].DocumentID != docID {
		t.Errorf("DocumentID = %v, want %v", rec.msgs[0].DocumentID, docID)
	}
	if rec.msgs[0].EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt should be stamped")
	}
}

func TestDelayIsHonored(t *testing.T) {
	q := newQueue(t)
	rec := &recorder{}
	q.ConsumeSend(rec.handle)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	delay := 100 * time.Millisecond
	start := time.Now()
	if err := q.EnqueueSend(context.Background(), id.NewDocumentID(), delay); err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}

	waitFor(t, func() bool { return rec.count() == 1 }, "delayed job never delivered")
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("delivered after %v, want at least %v", elapsed, delay)
	}
}

func TestRedeliveryOnHandlerFailure(t *testing.T) {
	q := newQueue(t)
	rec := &recorder{errs: 2}
	q.ConsumeTicketCheck(rec.handle)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	docID := id.NewDocumentID()
	if err := q.EnqueueTicketCheck(context.Background(), docID, 0); err != nil {
		t.Fatalf("EnqueueTicketCheck: %v", err)
	}

	waitFor(t, func() bool { return rec.count() == 1 }, "job never succeeded after redeliveries")
}

func TestHandlerPanicIsRedelivered(t *testing.T) {
	q := newQueue(t)
	rec := &recorder{}

	var mu sync.Mutex
	poisoned := true
	q.ConsumeSend(func(ctx context.Context, msg queue.Message) error {
		mu.Lock()
		first := poisoned
		poisoned = false
		mu.Unlock()
		if first {
			panic("unreadable payload")
		}
		return rec.handle(ctx, msg)
	})
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := q.EnqueueSend(context.Background(), id.NewDocumentID(), 0); err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}

	waitFor(t, func() bool { return rec.count() == 1 }, "message lost to a handler panic")
}

func TestSendAndTicketQueuesAreIndependent(t *testing.T) {
	q := newQueue(t)
	sends := &recorder{}
	tickets := &recorder{}
	q.ConsumeSend(sends.handle)
	q.ConsumeTicketCheck(tickets.handle)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := q.EnqueueSend(context.Background(), id.NewDocumentID(), 0); err != nil {
		t.Fatalf("EnqueueSend: %v", err)
	}
	if err := q.EnqueueTicketCheck(context.Background(), id.NewDocumentID(), 0); err != nil {
		t.Fatalf("EnqueueTicketCheck: %v", err)
	}

	waitFor(t, func() bool { return sends.count() == 1 && tickets.count() == 1 },
		"jobs never delivered to both handlers")
}

func TestEnqueueAfterStop(t *testing.T) {
	q := newQueue(t)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Stop(context.Background())

	err := q.EnqueueSend(context.Background(), id.NewDocumentID(), 0)
	if !errors.Is(err, queue.ErrClosed) {
		t.Errorf("EnqueueSend after Stop = %v, want ErrClosed", err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	q := newQueue(t)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
}
