package logic

import "errors"

var (
	// ErrNotFound is returned when a match, player or prediction does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed identifiers or payloads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAnalysisInProgress is returned when a run for the same match is
	// already in flight.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)
