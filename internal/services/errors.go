package services

import "errors"

// Caller-facing business errors of the payment engine. All of them are
// recoverable: the caller is expected to re-fetch the step views and
// re-render, since every status is re-derivable from current rows.
// Anything else coming out of the services is an infrastructure failure.
var (
	// ErrStepNotPayable means the step's preconditions are unmet: locked,
	// waiting for BAST, or already occupied by a pending invoice.
	ErrStepNotPayable = errors.New("termin step is not payable")

	// ErrInvoiceAlreadyExists means a non-cancelled invoice already occupies
	// the (kontrak, step) slot; raced or stale client state.
	ErrInvoiceAlreadyExists = errors.New("invoice already exists for termin step")

	// ErrInvalidTransition means the invoice or contract is not in a state
	// that allows the requested change, e.g. uploading proof on a cancelled
	// invoice or recording a PM response twice.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrMissingApproval means a proof upload (or client response) was
	// attempted before the required PM/client response on the first step.
	ErrMissingApproval = errors.New("required approval not recorded")

	// ErrInvalidTahapan rejects termin templates whose step percentages do
	// not sum to 100.
	ErrInvalidTahapan = errors.New("termin tahapan percentages must sum to 100")
)
