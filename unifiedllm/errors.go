package unifiedllm

import (
	"context"
	"errors"
	"fmt"
)

// ErrJobFailed is matched by every permanent per-row failure returned in
// JobResult.Err.
var ErrJobFailed = errors.New("job failed")

// SDKError is the base error type for all archivist LLM errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error payload returned by an LLM provider.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

type AuthenticationError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }

type RequestTimeoutError struct{ SDKError }
type NetworkError struct{ SDKError }
type EmptyResponseError struct{ SDKError }
type ConfigurationError struct{ SDKError }

// ValidationError reports a response that arrived but lacks required structure.
type ValidationError struct {
	SDKError
	Missing []string
}

// JobError is the error sentinel for a row whose attempts are exhausted or
// whose failure is not retryable.
type JobError struct {
	RowIndex int
	Attempts int
	Cause    error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("row %d failed after %d attempt(s): %v", e.RowIndex, e.Attempts, e.Cause)
}

func (e *JobError) Unwrap() []error {
	return []error{ErrJobFailed, e.Cause}
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{SDKError: SDKError{Message: fmt.Sprintf(format, args...)}}
}

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(statusCode int, message, provider string, cause error) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == 401 || statusCode == 403:
		return &AuthenticationError{ProviderError: pe}
	case statusCode == 408:
		return &RequestTimeoutError{SDKError: pe.SDKError}
	case statusCode == 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case statusCode >= 500:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	case statusCode >= 400:
		return &InvalidRequestError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}

// transportError wraps a failure that happened before any status code was
// seen. Context expiry becomes a timeout; everything else is a network error.
func transportError(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &RequestTimeoutError{SDKError: SDKError{Message: provider + " request timed out", Cause: err}}
	}
	return &NetworkError{SDKError: SDKError{Message: provider + " request failed", Cause: err}}
}

// imageError marks a row whose image cannot be read. It is not retried.
func imageError(img *Image, err error) error {
	return &InvalidRequestError{ProviderError: ProviderError{
		SDKError: SDKError{Message: "load image " + img.Path, Cause: err},
		Provider: "local",
	}}
}

func emptyResponse(provider string) error {
	return &EmptyResponseError{SDKError: SDKError{Message: provider + " returned an empty response"}}
}

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError, *InvalidRequestError, *ConfigurationError:
		return false
	case *RateLimitError, *ServerError, *NetworkError, *RequestTimeoutError, *EmptyResponseError, *ValidationError:
		return true
	default:
		return true
	}
}

// IsConfigurationError reports whether err must abort the whole operation.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
