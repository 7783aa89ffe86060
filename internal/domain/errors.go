package domain

import "errors"

// Error taxonomy for the request lifecycle. Callers classify with errors.Is;
// the first four are terminal and must not be retried, the last two are
// retryable with the same request id.
var (
	// ErrNotFound commission or request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAdmissionClosed commission availability was closed at submission time.
	ErrAdmissionClosed = errors.New("commission closed for new requests")

	// ErrConflict request is already decided (accepted/rejected are terminal).
	ErrConflict = errors.New("request already decided")

	// ErrValidation malformed input (empty content, missing form id, ...).
	ErrValidation = errors.New("validation failed")

	// ErrExternalService billing/messaging collaborator unreachable or rejected the call.
	ErrExternalService = errors.New("external service failure")

	// ErrPersistence store read/write failed.
	ErrPersistence = errors.New("persistence failure")
)
