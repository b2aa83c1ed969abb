package harvest

import (
	"errors"
	"fmt"
)

// Common errors returned by the harvester.
var (
	// ErrRetryExhausted is returned when a page stayed malformed for every
	// attempt the retry policy allows.
	ErrRetryExhausted = errors.New("parse retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends mid-harvest.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidStartDate is returned for a start date not in YYYY-MM-DD form.
	ErrInvalidStartDate = errors.New("start date must be in YYYY-MM-DD form")

	// ErrMissingTargetSeries is returned when no target series is given.
	ErrMissingTargetSeries = errors.New("target series is required")

	// ErrMissingOutputPath is returned when no output path is given.
	ErrMissingOutputPath = errors.New("output path is required")

	errEmptyBody = errors.New("empty response body")
	errNotOAIPMH = errors.New("document root is not an OAI-PMH element")
)

// ParseError reports a response body that is not a well-formed OAI-PMH
// document. The driver re-fetches the same page when it sees one.
type ParseError struct {
	// Attempt is the number of consecutive failed parses of this page.
	Attempt int

	// Snippet is a short description of the offending body.
	Snippet string

	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("malformed page (attempt %d): %v [body: %s]", e.Attempt, e.Err, e.Snippet)
	}
	return fmt.Sprintf("malformed page: %v [body: %s]", e.Err, e.Snippet)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a record that passed the filters but lacks a
// field needed to build its row. Only that record is dropped.
type ExtractionError struct {
	// Identifier is the OAI header identifier, if the record has one.
	Identifier string

	// Field names the missing element.
	Field string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("record without identifier: missing %s", e.Field)
	}
	return fmt.Sprintf("record %s: missing %s", e.Identifier, e.Field)
}

// CodeNoRecordsMatch is the OAI-PMH error code for an empty result set.
const CodeNoRecordsMatch = "noRecordsMatch"

// ProtocolError is an OAI-PMH <error> element returned by the provider.
type ProtocolError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("OAI-PMH error (%s): %s", e.Code, e.Message)
}
