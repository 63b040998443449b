// Package gateway defines the contract with the external tax-authority web
// service. The courier core never speaks the wire protocol itself; it hands
// bytes and credentials to a Gateway implementation and interprets the
// structured result.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
)

// Status is the definitive status reported by the gateway for a submission.
type Status string

const (
	// StatusAccepted means the submission was accepted by the authority.
	StatusAccepted Status = "accepted"

	// StatusRejected means the authority validated the content and rejected
	// it. This is a definitive business outcome, not a pipeline failure.
	StatusRejected Status = "rejected"

	// StatusPending means the authority has not finished processing; a
	// ticket must be polled again later.
	StatusPending Status = "pending"
)

// Result is the structured outcome of a gateway operation. Exactly one of
// the two protocols applies per call: an immediate result carries a status
// and usually a CDR; a deferred result carries a ticket and StatusPending.
type Result struct {
	// Status is the definitive (or pending) outcome.
	Status Status

	// Code is the numeric response code (e.g. 0 accepted, 2800 RUC not found).
	Code int

	// Description is the human-readable response description.
	Description string

	// Notes are supplementary observations attached to the response.
	Notes []string

	// CDR is the confirmation-receipt artifact, when one was returned.
	CDR []byte

	// Ticket is the token for deferred status confirmation, when issued.
	Ticket string
}

// TransientError wraps a connectivity failure talking to the gateway. It is
// the only gateway failure the retry policy treats as retryable; everything
// definitive comes back as a Result.
type TransientError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Gateway is the client contract for the external delivery web service.
// Both operations either return a definitive Result or fail with a
// *TransientError — never both. Implementations must honor ctx deadlines;
// the external service has no SLA of its own.
type Gateway interface {
	// Send submits the raw XML file. Immediate document types yield a
	// definitive accept/reject (rarely a ticket); deferred types always
	// yield a ticket with StatusPending.
	Send(ctx context.Context, file []byte, meta *document.XMLMeta, cfg *company.Config) (*Result, error)

	// PollTicket checks the status of a previously issued ticket.
	PollTicket(ctx context.Context, ticket string, meta *document.XMLMeta, cfg *company.Config) (*Result, error)
}

// ServiceURL returns the endpoint URL applicable to a document type.
// Perceptions and retentions use the dedicated service; everything else,
// including voided and summary documents, goes to the invoice service.
func ServiceURL(t document.Type, urls company.ServiceURLs) string {
	switch t {
	case document.TypePerception, document.TypeRetention:
		return urls.PerceptionRetention
	default:
		return urls.Invoice
	}
}
