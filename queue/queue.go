// Package queue defines the minimal job-queue contract the delivery
// orchestrator depends on, independent of transport. Any backend offering
// at-least-once delivery with per-message delay scheduling qualifies.
//
// A message carries only the document id and its enqueue time; all
// authoritative state lives in the document repository, so a queue restart
// loses no information. Handlers must be idempotent with respect to
// duplicate delivery.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tributo/courier/id"
)

// ErrClosed is returned when a message is enqueued after the queue stopped.
var ErrClosed = errors.New("queue: closed")

// Message is the payload delivered to a handler: the document id plus the
// enqueue timestamp, useful for duplicate detection and lag metrics.
type Message struct {
	// DocumentID identifies the document to process.
	DocumentID id.ID

	// EnqueuedAt is when the message was accepted by the queue.
	EnqueuedAt time.Time
}

// Handler processes one message. A nil return acknowledges the message; a
// non-nil return negatively acknowledges it, causing redelivery. Handlers
// must ack-after-persist: return nil only once the resulting state
// transition is durable.
type Handler func(ctx context.Context, msg Message) error

// Run invokes h with msg, converting a panic into an ordinary handler
// error. Backends use it so a poisoned message is redelivered instead of
// crashing a worker goroutine.
func Run(ctx context.Context, h Handler, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("queue: handler panic: %v", rec)
		}
	}()
	return h(ctx, msg)
}

// Queue is the transport-agnostic job queue. Enqueue methods accept a zero
// delay for immediate delivery. Consume methods register the handler for a
// job kind and must be called before Start.
type Queue interface {
	// EnqueueSend schedules a send job for the document after the delay.
	EnqueueSend(ctx context.Context, docID id.ID, delay time.Duration) error

	// EnqueueTicketCheck schedules a ticket-check job for the document
	// after the delay.
	EnqueueTicketCheck(ctx context.Context, docID id.ID, delay time.Duration) error

	// ConsumeSend registers the handler for send jobs.
	ConsumeSend(h Handler)

	// ConsumeTicketCheck registers the handler for ticket-check jobs.
	ConsumeTicketCheck(h Handler)

	// Start begins message consumption.
	Start(ctx context.Context) error

	// Stop drains in-flight handlers and stops consumption.
	Stop(ctx context.Context)
}
