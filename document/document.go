package document

import (
	"time"

	"github.com/tributo/courier/id"
	"github.com/tributo/courier/internal/entity"
)

// DeliveryState represents the current position of a document in the
// delivery state machine.
type DeliveryState string

const (
	// StateScheduledToDeliver indicates the document is awaiting its first
	// (or a replayed) send attempt. Initial state.
	StateScheduledToDeliver DeliveryState = "SCHEDULED_TO_DELIVER"

	// StateSending indicates a send attempt is in flight.
	StateSending DeliveryState = "SENDING"

	// StateRescheduledToDeliver indicates a retryable send failure occurred
	// and a delayed retry has been scheduled (ScheduledAt is set).
	StateRescheduledToDeliver DeliveryState = "RESCHEDULED_TO_DELIVER"

	// StateScheduledCheckTicket indicates the gateway issued a ticket and a
	// ticket-check job has been enqueued.
	StateScheduledCheckTicket DeliveryState = "SCHEDULED_CHECK_TICKET"

	// StateCheckingTicket indicates a ticket poll is in flight.
	StateCheckingTicket DeliveryState = "CHECKING_TICKET"

	// StateRescheduledCheckTicket indicates a retryable ticket-poll failure
	// occurred and a delayed re-check has been scheduled.
	StateRescheduledCheckTicket DeliveryState = "RESCHEDULED_CHECK_TICKET"

	// StateDelivered is the terminal success state. The gateway returned a
	// definitive result — which may be a business rejection.
	StateDelivered DeliveryState = "DELIVERED"

	// StateFailedTerminal is the terminal failure state: a non-retryable
	// pipeline failure or an exhausted retry budget.
	StateFailedTerminal DeliveryState = "FAILED_TERMINAL"
)

// Terminal reports whether the state admits no further transitions.
func (s DeliveryState) Terminal() bool {
	return s == StateDelivered || s == StateFailedTerminal
}

// Type identifies the kind of UBL document, which determines the gateway
// operation and response-handling branch.
type Type string

const (
	TypeInvoice         Type = "Invoice"
	TypeCreditNote      Type = "CreditNote"
	TypeDebitNote       Type = "DebitNote"
	TypeVoidedDocument  Type = "VoidedDocument"
	TypeSummaryDocument Type = "SummaryDocument"
	TypePerception      Type = "Perception"
	TypeRetention       Type = "Retention"
)

// Deferred reports whether the type is routed through the deferred gateway
// operation, which always returns a ticket instead of an immediate CDR.
func (t Type) Deferred() bool {
	return t == TypeVoidedDocument || t == TypeSummaryDocument
}

// Known reports whether t is one of the supported document types.
func (t Type) Known() bool {
	switch t {
	case TypeInvoice, TypeCreditNote, TypeDebitNote, TypeVoidedDocument,
		TypeSummaryDocument, TypePerception, TypeRetention:
		return true
	}
	return false
}

// GatewayResponse is the last response snapshot from the external gateway,
// fully overwritten on each attempt.
type GatewayResponse struct {
	// Code is the numeric response code reported by the gateway.
	Code int `json:"code"`

	// Status is the definitive status string (accepted, rejected, pending).
	Status string `json:"status"`

	// Description is the human-readable response description.
	Description string `json:"description"`

	// Notes are supplementary observations attached to the response.
	Notes []string `json:"notes,omitempty"`
}

// XMLMeta holds the routing metadata extracted from the raw XML during the
// send phase and reused by the ticket-check phase.
type XMLMeta struct {
	// RUC is the taxpayer identification number of the issuer.
	RUC string `json:"ruc"`

	// DocumentID is the series-number string (e.g. "F001-1").
	DocumentID string `json:"document_id"`

	// DocumentType is the UBL document type parsed from the root element.
	DocumentType Type `json:"document_type"`

	// VoidedLineCode is the sub-type code of the voided lines, set only for
	// voided documents.
	VoidedLineCode string `json:"voided_line_code,omitempty"`
}

// Document is the aggregate root driven through the delivery state machine.
// The orchestrator owns all mutations while a document is in flight; every
// mutation is an optimistic read-modify-write against the Store.
type Document struct {
	entity.Entity

	// ID is the unique TypeID for this document. Immutable.
	ID id.ID `json:"id"`

	// ProjectID is the owning project, used with CompanyRUC to resolve
	// delivery configuration.
	ProjectID id.ID `json:"project_id"`

	// CompanyRUC is the issuer RUC used as tenant/routing key.
	CompanyRUC string `json:"company_ruc"`

	// RawFileRef is the blob-store id of the original XML payload.
	// Immutable once set.
	RawFileRef string `json:"raw_file_ref"`

	// XMLMeta is populated by the parse step of the send phase.
	XMLMeta *XMLMeta `json:"xml_meta,omitempty"`

	// FileValid is nil until the parse step runs, then reports whether the
	// raw XML was readable and of a supported type.
	FileValid *bool `json:"file_valid,omitempty"`

	// State is the current delivery state. Mutated only by the orchestrator.
	State DeliveryState `json:"state"`

	// Ticket is the token issued by the gateway for deferred confirmation.
	// Latest value is kept for polling; never cleared.
	Ticket string `json:"ticket,omitempty"`

	// CDRRef is the blob-store id of the confirmation receipt. Write-once
	// per successful delivery.
	CDRRef string `json:"cdr_ref,omitempty"`

	// GatewayResponse is the last response snapshot.
	GatewayResponse *GatewayResponse `json:"gateway_response,omitempty"`

	// JobError is present only while the document carries a failure
	// classification; cleared when a phase succeeds.
	JobError *JobError `json:"job_error,omitempty"`

	// RetryCount counts failed attempts of the current logical step. It is
	// reset when the document progresses to a new phase.
	RetryCount int `json:"retry_count"`

	// ScheduledAt is when the next retry is due; nil when not waiting.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// InProgress is true while an asynchronous ticket confirmation is
	// outstanding.
	InProgress bool `json:"in_progress"`

	// CompletedAt is set when the document reaches a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// New builds a document in the initial state for a stored raw XML file.
func New(projectID id.ID, rawFileRef string) *Document {
	return &Document{
		Entity:     entity.New(),
		ID:         id.NewDocumentID(),
		ProjectID:  projectID,
		RawFileRef: rawFileRef,
		State:      StateScheduledToDeliver,
	}
}

// SetResponse overwrites the gateway response snapshot and keeps the latest
// ticket for polling.
func (d *Document) SetResponse(code int, status, description string, notes []string, ticket string) {
	d.GatewayResponse = &GatewayResponse{
		Code:        code,
		Status:      status,
		Description: description,
		Notes:       notes,
	}
	if ticket != "" {
		d.Ticket = ticket
	}
}

// SetCDR records the blob reference of the confirmation receipt. A CDR is
// write-once: an already-set reference is never overwritten.
func (d *Document) SetCDR(ref string) {
	if d.CDRRef == "" {
		d.CDRRef = ref
	}
}

// ClearJobError removes the failure classification after a successful phase.
func (d *Document) ClearJobError() {
	d.JobError = nil
}

// MarkTerminal moves the document into a terminal state and stamps the
// completion time.
func (d *Document) MarkTerminal(state DeliveryState) {
	d.State = state
	d.InProgress = false
	d.ScheduledAt = nil
	now := time.Now().UTC()
	d.CompletedAt = &now
}
