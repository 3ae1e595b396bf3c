package openai

import "fmt"

type ErrorCode string

const (
	ErrorCodeValidation    ErrorCode = "validation_failed"
	ErrorCodeTimeout       ErrorCode = "timeout"
	ErrorCodeRateLimited   ErrorCode = "rate_limited"
	ErrorCodeInvalidAPIKey ErrorCode = "invalid_api_key"
	ErrorCodeRequestFailed ErrorCode = "request_failed"
	ErrorCodeEmptyResponse ErrorCode = "empty_response"
)

// APIError wraps every failure from the OpenAI platform with a stable code so
// callers can distinguish transient failures from configuration ones.
type APIError struct {
	Code      ErrorCode
	Operation string
	Message   string
	Cause     error
}

func (e *APIError) Error() string {
	if e == nil {
		return "openai operation failed"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		return fmt.Sprintf("openai %s failed (code=%s)", e.Operation, e.Code)
	}
	return fmt.Sprintf("openai %s failed (code=%s): %s", e.Operation, e.Code, msg)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Transient reports whether a retry with the same request could succeed.
func (e *APIError) Transient() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case ErrorCodeTimeout, ErrorCodeRateLimited, ErrorCodeRequestFailed:
		return true
	}
	return false
}

func apiErr(op string, code ErrorCode, msg string, cause error) error {
	return &APIError{Code: code, Operation: op, Message: msg, Cause: cause}
}
