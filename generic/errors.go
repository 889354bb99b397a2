/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability.
  Packages wrap these with fmt.Errorf("...: %w", err) to add context.

ERROR CATEGORIES:
  1. Input errors - Structurally invalid top-level arguments
  2. Transport errors - Worker protocol violations, superseded requests
  3. Store errors - Missing workspaces, database failures

Per-entry data problems are NOT errors. The engine recovers them locally
(zero duration, absent rate) and never returns them.

SEE ALSO:
  - overtime/engine.go: Returns ErrInvalidInput / ErrInvalidPeriod
  - worker/protocol.go, worker/client.go: UnknownMessageError, ErrSuperseded
  - api/handlers.go: Maps these to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for a structurally invalid top-level argument
	// (missing reference data, entries that are not a list).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidDate is returned when a date bound cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnknownMessage is returned by the worker for an unrecognised message type.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrSuperseded is returned to a caller whose request was overtaken by a
	// newer one before its result arrived.
	ErrSuperseded = errors.New("request superseded by a newer request")

	// ErrWorkerClosed is returned when the worker is no longer serving.
	ErrWorkerClosed = errors.New("worker closed")

	// ErrWorkspaceNotFound is returned when a referenced workspace doesn't exist.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrScenarioNotFound is returned for an unknown demo scenario.
	ErrScenarioNotFound = errors.New("scenario not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidDateError reports a date string that could not be parsed.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q", e.Value)
}

func (e *InvalidDateError) Unwrap() error {
	return ErrInvalidDate
}

// UnknownMessageError carries the offending message type.
// The message text is part of the worker wire protocol.
type UnknownMessageError struct {
	Type string
}

func (e *UnknownMessageError) Error() string {
	return "Unknown message type: " + e.Type
}

func (e *UnknownMessageError) Unwrap() error {
	return ErrUnknownMessage
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrUnknownMessage)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound) ||
		errors.Is(err, ErrScenarioNotFound)
}

// IsConflict returns true if the request lost to a newer one.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
