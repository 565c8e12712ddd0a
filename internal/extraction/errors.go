package extraction

import (
	"errors"
	"fmt"
)

// AnalysisErrorCode represents specific failure types when talking to Gemini.
type AnalysisErrorCode string

const (
	ErrGeminiUnavailable   AnalysisErrorCode = "GEMINI_UNAVAILABLE"
	ErrGeminiRateLimited   AnalysisErrorCode = "GEMINI_RATE_LIMITED"
	ErrGeminiNotConfigured AnalysisErrorCode = "GEMINI_NOT_CONFIGURED"
	ErrEmptyResponse       AnalysisErrorCode = "EMPTY_RESPONSE"
	ErrInvalidImage        AnalysisErrorCode = "INVALID_IMAGE"
)

// AnalysisError is a structured error for generation failures.
type AnalysisError struct {
	Code      AnalysisErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *AnalysisError) IsRetryable() bool {
	return e.Retryable
}

// IsCode reports whether err wraps an AnalysisError with the given code.
func IsCode(err error, code AnalysisErrorCode) bool {
	var aErr *AnalysisError
	return errors.As(err, &aErr) && aErr.Code == code
}
