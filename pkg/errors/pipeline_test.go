package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		stage    string
		wantCode ErrorCode
	}{
		{"deadline exceeded", context.DeadlineExceeded, "scan", ErrCodeTimeout},
		{"cancelled", context.Canceled, "scan", ErrCodeContextCancelled},
		{"parse sentinel", NewParseError("json", "{bad", nil), "merge", ErrCodeParse},
		{"empty scan", fmt.Errorf("scan: %w", ErrEmptyScan), "scan", ErrCodeEmptyScan},
		{"queue closed", ErrQueueClosed, "project", ErrCodeQueue},
		{"refresh", ErrRefreshUnavailable, "refresh", ErrCodeRefresh},
		{"connection refused", errors.New("dial tcp: connection refused"), "scan", ErrCodeStoreUnavailable},
		{"cast", errors.New("cannot convert \"abc\" to integer"), "project", ErrCodeCast},
		{"unknown", errors.New("something odd"), "aggregate", ErrCodeProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, tt.stage)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", got.Code, tt.wantCode)
			}
			if got.Stage != tt.stage {
				t.Errorf("Stage = %v, want %v", got.Stage, tt.stage)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error does not unwrap to cause")
			}
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if got := ClassifyError(nil, "scan"); got != nil {
		t.Fatalf("ClassifyError(nil) = %v, want nil", got)
	}
}

func TestIsErrorRetryable(t *testing.T) {
	timeout := ClassifyError(context.DeadlineExceeded, "scan")
	if !IsErrorRetryable(timeout) {
		t.Error("timeout should be retryable")
	}
	parse := ClassifyError(NewParseError("json", "x", nil), "merge")
	if IsErrorRetryable(parse) {
		t.Error("parse errors should not be retryable")
	}
	if IsErrorRetryable(errors.New("bare")) {
		t.Error("unclassified errors should not be retryable")
	}
}

func TestRegistryCoversAllCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeTimeout, ErrCodeContextCancelled, ErrCodeParse, ErrCodeEmptyScan,
		ErrCodeStoreUnavailable, ErrCodeCast, ErrCodeQueue, ErrCodeRefresh,
		ErrCodeProcessing,
	}
	for _, c := range codes {
		if GetDescription(c) == "Unknown error" {
			t.Errorf("code %s missing from registry", c)
		}
		if GetSuggestedAction(c) == "" {
			t.Errorf("code %s has empty suggested action", c)
		}
	}
}
