package document

// ErrorPhase identifies the pipeline phase at which a job failure occurred.
type ErrorPhase string

const (
	// PhaseFetchFile: the raw XML could not be fetched from the blob store. Retryable.
	PhaseFetchFile ErrorPhase = "FETCH_FILE"

	// PhaseReadXMLFile: the raw XML could not be parsed or carries an
	// unsupported document type. Not retryable.
	PhaseReadXMLFile ErrorPhase = "READ_XML_FILE"

	// PhaseSendXMLFile: connectivity failure while sending to the gateway. Retryable.
	PhaseSendXMLFile ErrorPhase = "SEND_XML_FILE"

	// PhaseSaveCDR: the confirmation receipt could not be stored. Retryable.
	PhaseSaveCDR ErrorPhase = "SAVE_CDR"

	// PhaseVerifyTicket: connectivity failure while polling a ticket. Retryable.
	PhaseVerifyTicket ErrorPhase = "VERIFY_TICKET"

	// PhaseCompanyNotFound: no delivery configuration resolvable for the
	// document's RUC. Terminal.
	PhaseCompanyNotFound ErrorPhase = "COMPANY_NOT_FOUND"

	// PhaseRetryConsumed: the retry budget was exhausted. Terminal.
	PhaseRetryConsumed ErrorPhase = "RETRY_CONSUMED"
)

// RecoveryAction tells operators (and the scheduler) what, if anything, can
// be re-attempted for a failed job.
type RecoveryAction string

const (
	// ActionRetrySend re-runs the full send (or ticket-check) phase.
	ActionRetrySend RecoveryAction = "RETRY_SEND"

	// ActionRetryFetchCDR re-runs only the CDR persistence step; the
	// already-obtained gateway response is kept.
	ActionRetryFetchCDR RecoveryAction = "RETRY_FETCH_CDR"

	// ActionNone means no automatic recovery applies.
	ActionNone RecoveryAction = "NONE"
)

// JobError is the structured failure record carried by a document while it
// is in a recoverable-failure sub-state, or terminally failed.
type JobError struct {
	// Phase is the pipeline phase at which the failure occurred.
	Phase ErrorPhase `json:"phase"`

	// Description is a human-readable summary of the failure.
	Description string `json:"description"`

	// RecoveryAction is the applicable recovery, if any.
	RecoveryAction RecoveryAction `json:"recovery_action"`

	// AttemptCount is the number of attempts made for the failing step.
	AttemptCount int `json:"attempt_count"`
}
