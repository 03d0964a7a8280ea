package speech

// IsRetryableHTTPStatus classifies provider HTTP status codes that indicate a
// transient service-side condition.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// classifyStatus maps a provider HTTP status to the transcription taxonomy.
func classifyStatus(code int) *TranscriptionError {
	if IsRetryableHTTPStatus(code) {
		return &TranscriptionError{Code: FailureService, Retryable: true}
	}
	if code >= 400 && code < 500 {
		return &TranscriptionError{Code: FailureService, Retryable: false}
	}
	return &TranscriptionError{Code: FailureUnknown, Retryable: false}
}
