package domain

import (
	"errors"

	m "nessie.dev/pkg/nessie/internal/model"
)

var (
	// ErrEmptyValuePool is returned when a value is requested from an empty in-scope pool.
	ErrEmptyValuePool = errors.New("no values in scope")
	// ErrNoCandidateFunctions is returned when no known function can be called
	// from the receivers in scope.
	ErrNoCandidateFunctions = errors.New("no candidate functions")
	// ErrInvalidExtension is returned when a test cannot be extended as requested.
	ErrInvalidExtension = errors.New("invalid test extension")
	// ErrTestRun is returned when the runtime could not execute a test.
	ErrTestRun = errors.New("test run failed")
	// ErrTraceParse is returned when a test's output is not a JSON trace.
	ErrTraceParse = errors.New("unparseable test trace")
	// ErrWriteTest is returned when a rendered test cannot be written or removed.
	ErrWriteTest = errors.New("cannot write test file")
	// ErrTooManyAttempts is returned when a test slot keeps failing.
	ErrTooManyAttempts = errors.New("too many failed attempts")
)

// IsRecoverable reports whether err only invalidates the current generation
// attempt. Malformed inputs and engine invariant violations are not.
func IsRecoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, m.ErrArgTypeValMismatch),
		errors.Is(err, m.ErrArgValNotSet),
		errors.Is(err, ErrEmptyValuePool),
		errors.Is(err, ErrNoCandidateFunctions):
		return false
	case errors.Is(err, ErrInvalidExtension),
		errors.Is(err, ErrTestRun),
		errors.Is(err, ErrTraceParse),
		errors.Is(err, ErrWriteTest):
		return true
	default:
		return false
	}
}
