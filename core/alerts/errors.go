package alerts

import "errors"

var (
	// ErrNotFound: the target alert does not exist.
	ErrNotFound = errors.New("alert not found")
	// ErrInvalidTransition: the requested transition is not legal from the
	// alert's current status. Also reported to the loser of a concurrent
	// transition race; the caller may re-fetch and reconsider, the service
	// never retries on its own.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStorageUnavailable: the conditional write could not be performed.
	// Safe to retry: a retried transition that already committed re-fails
	// with ErrInvalidTransition instead of duplicating the effect.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrValidation: the create payload carries an unknown enum value or a
	// missing required field.
	ErrValidation = errors.New("invalid alert payload")
)
