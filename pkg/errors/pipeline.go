package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified pipeline error.
type ErrorCode string

const (
	ErrCodeTimeout          ErrorCode = "timeout"
	ErrCodeContextCancelled ErrorCode = "context_cancelled"
	ErrCodeParse            ErrorCode = "parse_error"
	ErrCodeEmptyScan        ErrorCode = "empty_scan"
	ErrCodeStoreUnavailable ErrorCode = "store_unavailable"
	ErrCodeCast             ErrorCode = "cast_error"
	ErrCodeQueue            ErrorCode = "queue_error"
	ErrCodeRefresh          ErrorCode = "refresh_error"
	ErrCodeProcessing       ErrorCode = "processing_error"
)

// StageError is a structured error for pipeline stage failures.
type StageError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Cause    error
}

func (e *StageError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects an error and returns a *StageError with the
// appropriate code. Errors that match no known pattern get ErrCodeProcessing.
func ClassifyError(err error, stage string) *StageError {
	if err == nil {
		return nil
	}

	se := &StageError{
		Stage: stage,
		Cause: err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		se.Code = ErrCodeTimeout
		se.Message = "operation timed out"
		return se
	}

	if errors.Is(err, context.Canceled) {
		se.Code = ErrCodeContextCancelled
		se.Message = "operation cancelled"
		return se
	}

	if errors.Is(err, ErrParse) {
		se.Code = ErrCodeParse
		se.Message = err.Error()
		return se
	}

	if errors.Is(err, ErrEmptyScan) {
		se.Code = ErrCodeEmptyScan
		se.Message = "record store scan returned no rows"
		return se
	}

	if errors.Is(err, ErrQueueClosed) {
		se.Code = ErrCodeQueue
		se.Message = err.Error()
		return se
	}

	if errors.Is(err, ErrRefreshUnavailable) {
		se.Code = ErrCodeRefresh
		se.Message = err.Error()
		return se
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") || strings.Contains(lower, "unavailable") {
		se.Code = ErrCodeStoreUnavailable
		se.Message = msg
		return se
	}

	if strings.Contains(lower, "cast") || strings.Contains(lower, "cannot convert") {
		se.Code = ErrCodeCast
		se.Message = msg
		return se
	}

	se.Code = ErrCodeProcessing
	se.Message = msg
	return se
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code == ErrCodeTimeout
	}
	return false
}

// IsErrorRetryable returns true if the error is likely transient and worth
// retrying, based on the ErrorCodeRegistry.
func IsErrorRetryable(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		if info, ok := ErrorCodeRegistry[se.Code]; ok {
			return info.Retryable
		}
		return false
	}
	return false
}
