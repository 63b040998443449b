package delivery

import "github.com/tributo/courier/document"

// phaseDescriptions are the operator-facing texts stored on a document's
// job error. They describe what failed, not the underlying error, which
// goes to the log.
var phaseDescriptions = map[document.ErrorPhase]string{
	document.PhaseFetchFile:       "could not fetch the document file from storage",
	document.PhaseReadXMLFile:     "the document file is not a well-formed UBL document",
	document.PhaseSendXMLFile:     "could not deliver the document to the tax authority",
	document.PhaseSaveCDR:         "could not persist the CDR returned by the tax authority",
	document.PhaseVerifyTicket:    "could not verify the ticket with the tax authority",
	document.PhaseCompanyNotFound: "no company or project configuration matches the document issuer",
	document.PhaseRetryConsumed:   "gave up after exhausting all delivery attempts",
}

// recoveryActions maps each phase to what a scheduler should do next.
var recoveryActions = map[document.ErrorPhase]document.RecoveryAction{
	document.PhaseFetchFile:       document.ActionRetrySend,
	document.PhaseReadXMLFile:     document.ActionNone,
	document.PhaseSendXMLFile:     document.ActionRetrySend,
	document.PhaseSaveCDR:         document.ActionRetryFetchCDR,
	document.PhaseVerifyTicket:    document.ActionRetrySend,
	document.PhaseCompanyNotFound: document.ActionNone,
	document.PhaseRetryConsumed:   document.ActionNone,
}

// Classify builds the job error recorded on a document after a phase
// failure. attempts is the number of delivery attempts consumed so far.
func Classify(phase document.ErrorPhase, attempts int) *document.JobError {
	return &document.JobError{
		Phase:          phase,
		Description:    phaseDescriptions[phase],
		RecoveryAction: recoveryActions[phase],
		AttemptCount:   attempts,
	}
}

// Retryable reports whether a failure in phase can be recovered by
// rescheduling the document.
func Retryable(phase document.ErrorPhase) bool {
	return recoveryActions[phase] != document.ActionNone
}
