package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrCodeTimeout: {
		Code:            ErrCodeTimeout,
		Retryable:       true,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Re-run the job; increase the store scan timeout in config if it recurs",
	},
	ErrCodeContextCancelled: {
		Code:            ErrCodeContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Check if cancellation was intentional",
	},
	ErrCodeParse: {
		Code:            ErrCodeParse,
		Retryable:       false,
		Description:     "Input could not be parsed in any supported form",
		SuggestedAction: "Inspect the offending record; degraded rows are kept with sentinel values",
	},
	ErrCodeEmptyScan: {
		Code:            ErrCodeEmptyScan,
		Retryable:       false,
		Description:     "Record store scan returned no rows",
		SuggestedAction: "Verify the source table/path in config and that the store has data",
	},
	ErrCodeStoreUnavailable: {
		Code:            ErrCodeStoreUnavailable,
		Retryable:       true,
		Description:     "Record or object store unavailable",
		SuggestedAction: "Check connectivity; re-run once the store is reachable",
	},
	ErrCodeCast: {
		Code:            ErrCodeCast,
		Retryable:       false,
		Description:     "Typed projection cast failed outside the permissive rules",
		SuggestedAction: "Inspect the flat artifact column values; nulls are the expected fallback",
	},
	ErrCodeQueue: {
		Code:            ErrCodeQueue,
		Retryable:       true,
		Description:     "Partition queue error",
		SuggestedAction: "Check Redis connectivity, or run with the in-memory engine",
	},
	ErrCodeRefresh: {
		Code:            ErrCodeRefresh,
		Retryable:       true,
		Description:     "BI ingestion trigger failed (advisory)",
		SuggestedAction: "Artifacts are already published; re-run convrep refresh",
	},
	ErrCodeProcessing: {
		Code:            ErrCodeProcessing,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Check the run logs for the failing stage",
	},
}

// IsRetryable returns true if the given error code represents a transient,
// retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check the run logs for more details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
