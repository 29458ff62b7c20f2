package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes a provider-neutral failure.
type ErrorKind string

const (
	ErrKindConfig           ErrorKind = "config"
	ErrKindProviderNotFound ErrorKind = "provider_not_found"
	ErrKindModelNotFound    ErrorKind = "model_not_found"
	ErrKindAuthentication   ErrorKind = "authentication"
	ErrKindRateLimit        ErrorKind = "rate_limit"
	ErrKindAPI              ErrorKind = "api"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindNetwork          ErrorKind = "network"
	ErrKindFramework        ErrorKind = "framework"
)

// Error is the provider-neutral error carried by every failing operation.
// Vendor adapters translate HTTP and transport failures into one of the
// kinds above; the registry and configuration layers use the config kinds.
type Error struct {
	Kind       ErrorKind
	Message    string
	Provider   string
	StatusCode int            // HTTP status for api/authentication/rate_limit kinds
	RetryAfter *time.Duration // optional hint carried by rate_limit errors
	Retryable  bool
	Err        error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigError reports missing or invalid configuration.
func NewConfigError(message string) *Error {
	return &Error{Kind: ErrKindConfig, Message: message}
}

// NewProviderNotFoundError reports a provider name with no registered constructor.
func NewProviderNotFoundError(provider string) *Error {
	return &Error{
		Kind:    ErrKindProviderNotFound,
		Message: fmt.Sprintf("LLM provider %q not found", provider),
	}
}

// NewModelNotFoundError reports a model absent from a provider's supported list.
func NewModelNotFoundError(model, provider string) *Error {
	return &Error{
		Kind:     ErrKindModelNotFound,
		Provider: provider,
		Message:  fmt.Sprintf("model %q not found for provider %q", model, provider),
	}
}

// NewAuthenticationError reports a vendor HTTP 401.
func NewAuthenticationError(provider, message string) *Error {
	return &Error{
		Kind:       ErrKindAuthentication,
		Provider:   provider,
		Message:    "authentication failed: " + message,
		StatusCode: 401,
	}
}

// NewRateLimitError reports a vendor HTTP 429, optionally with a retry-after hint.
func NewRateLimitError(provider, message string, retryAfter *time.Duration) *Error {
	return &Error{
		Kind:       ErrKindRateLimit,
		Provider:   provider,
		Message:    "rate limit exceeded: " + message,
		StatusCode: 429,
		RetryAfter: retryAfter,
		Retryable:  true,
	}
}

// NewAPIError reports any other non-success vendor response. A statusCode of
// zero means the response was 2xx but its body did not contain the expected
// success fields. 5xx statuses are marked retryable.
func NewAPIError(provider, message string, statusCode int) *Error {
	return &Error{
		Kind:       ErrKindAPI,
		Provider:   provider,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewTimeoutError reports that a call exceeded the configured timeout.
func NewTimeoutError(provider string, timeout time.Duration, cause error) *Error {
	return &Error{
		Kind:      ErrKindTimeout,
		Provider:  provider,
		Message:   fmt.Sprintf("request timeout after %s", timeout),
		Retryable: true,
		Err:       cause,
	}
}

// NewNetworkError reports a transport-level connectivity failure.
func NewNetworkError(provider string, cause error) *Error {
	return &Error{
		Kind:      ErrKindNetwork,
		Provider:  provider,
		Message:   "network error",
		Retryable: true,
		Err:       cause,
	}
}

// NewFrameworkError reports that a requested framework integration is unavailable.
func NewFrameworkError(framework, message string) *Error {
	return &Error{
		Kind:    ErrKindFramework,
		Message: fmt.Sprintf("framework %q: %s", framework, message),
	}
}

// kindOf extracts the ErrorKind from any error in the chain.
func kindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsConfigError checks for a configuration error.
func IsConfigError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindConfig
}

// IsProviderNotFoundError checks for an unregistered provider error.
func IsProviderNotFoundError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindProviderNotFound
}

// IsModelNotFoundError checks for an unsupported model error.
func IsModelNotFoundError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindModelNotFound
}

// IsAuthenticationError checks for a vendor 401.
func IsAuthenticationError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindAuthentication
}

// IsRateLimitError checks for a vendor 429.
func IsRateLimitError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindRateLimit
}

// IsAPIError checks for a generic vendor API error.
func IsAPIError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindAPI
}

// IsTimeoutError checks for a timeout error.
func IsTimeoutError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindTimeout
}

// IsNetworkError checks for a transport-level error.
func IsNetworkError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindNetwork
}

// IsFrameworkError checks for an unavailable framework integration error.
func IsFrameworkError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrKindFramework
}

// IsRetryable reports whether the error kind permits a retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// ExtractRetryAfter returns the retry-after hint from a rate-limit error, if any.
func ExtractRetryAfter(err error) *time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return nil
}

// StatusCode returns the HTTP status carried by the error, or zero.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
