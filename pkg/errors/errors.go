// Package errors provides common domain error types for the convrep pipelines.
//
// This package defines sentinel errors for common pipeline conditions like
// "parse failure" or "empty scan" that can be used across all packages. Using
// typed errors enables consistent error handling with errors.Is() checks, and
// keeps parse degradation an explicit value rather than a silently swallowed
// condition.
//
// Usage:
//
//	import crerrors "github.com/otherjamesbrown/convrep/pkg/errors"
//
//	// Return a domain error
//	return nil, crerrors.ErrEmptyScan
//
//	// Check for domain errors
//	if crerrors.IsParse(err) {
//	    // apply the documented fallback
//	}
package errors

import (
	"errors"
	"fmt"
)

// Domain errors - common sentinel errors for pipeline conditions.
var (
	// ErrParse indicates input could not be parsed in any supported form.
	ErrParse = errors.New("parse failure")

	// ErrEmptyScan indicates the record store scan returned no rows.
	ErrEmptyScan = errors.New("empty scan")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrStageFailed indicates a pipeline stage failed and the run must stop.
	ErrStageFailed = errors.New("stage failed")

	// ErrQueueClosed indicates an operation on a closed partition queue.
	ErrQueueClosed = errors.New("queue closed")

	// ErrRefreshUnavailable indicates the BI refresh backend rejected or could
	// not accept the ingestion request. Always advisory, never fatal.
	ErrRefreshUnavailable = errors.New("refresh unavailable")
)

// ParseError describes a recoverable parse degradation: which kind of input
// failed and a snippet of it. Wraps ErrParse so IsParse matches.
type ParseError struct {
	Kind  string // "json", "literal", "date", "number", "feedback"
	Input string // truncated snippet of the offending input
	Err   error  // underlying cause, may be nil
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse failure (%s): %q: %v", e.Kind, e.Input, e.Err)
	}
	return fmt.Sprintf("parse failure (%s): %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// NewParseError builds a ParseError, truncating the input snippet so log
// lines stay bounded.
func NewParseError(kind, input string, err error) *ParseError {
	const maxSnippet = 80
	if len(input) > maxSnippet {
		input = input[:maxSnippet] + "..."
	}
	return &ParseError{Kind: kind, Input: input, Err: err}
}

// IsParse reports whether any error in err's chain is ErrParse.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsEmptyScan reports whether any error in err's chain is ErrEmptyScan.
func IsEmptyScan(err error) bool {
	return errors.Is(err, ErrEmptyScan)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStageFailed reports whether any error in err's chain is ErrStageFailed.
func IsStageFailed(err error) bool {
	return errors.Is(err, ErrStageFailed)
}
