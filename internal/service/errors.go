package service

import "errors"

// Error taxonomy: validation and consistency failures are rejected
// synchronously with nothing persisted; transient storage failures during an
// exam are converted into queued retries and never surfaced to the student.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyGraded = errors.New("attempt already graded")
	ErrForbidden     = errors.New("actor not allowed for this tenant")
)
