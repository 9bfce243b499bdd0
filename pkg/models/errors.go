package models

import "errors"

// Failure categories shared by every layer. Callers wrap them with
// fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrInitFailed is returned when a client or session cannot be constructed.
	ErrInitFailed = errors.New("initialization failed")
	// ErrConnectionFailed is returned when the remote service cannot be reached.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrRequestFailed is returned when the remote service rejects a request.
	ErrRequestFailed = errors.New("request failed")
	// ErrParseFailed is returned when a response body cannot be decoded.
	ErrParseFailed = errors.New("parse failed")
	// ErrVerificationFailed is returned when a caller requires a verified verdict and did not get one.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrProverNotFound is returned for unknown prover kinds, extensions or invocation rules.
	ErrProverNotFound = errors.New("prover not found")
	// ErrTimeout is returned when a prover exceeds its time budget.
	ErrTimeout = errors.New("timeout")
	// ErrSubprocessFailed is returned when a prover process cannot be spawned or waited on.
	ErrSubprocessFailed = errors.New("subprocess failed")
	// ErrInvalidResponse is returned when a response decodes but lacks required fields.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrResourceExhausted is returned when scratch storage or buffers cannot be allocated.
	ErrResourceExhausted = errors.New("resource exhausted")
)
