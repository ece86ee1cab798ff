package miniagent

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates the error is temporary and the operation can be retried.
	// Examples: rate limits, temporary network issues, server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable through retry.
	// Examples: invalid API key, insufficient permissions, model not found.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the user provided invalid input that must be corrected.
	// Examples: malformed request, invalid parameters, content policy violation.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	Retryable() bool          // convenience: returns true if Category == ErrorTransient
	StatusCode() int          // HTTP status code if applicable, 0 otherwise
	RetryAfter() time.Duration // suggested retry delay from server, 0 if not available
}

// Error is a categorized error with metadata for error handling decisions.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error         // underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.Cat
}

// Retryable returns true if the error is transient and can be retried.
func (e *Error) Retryable() bool {
	return e.Cat == ErrorTransient
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewTransientError creates a transient error that can be retried.
func NewTransientError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorTransient,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewTransientErrorWithRetry creates a transient error with a suggested retry delay.
func NewTransientErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Msg:        msg,
		Cat:        ErrorTransient,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// NewPermanentError creates a permanent error that should not be retried.
func NewPermanentError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorPermanent,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewUserInputError creates an error indicating invalid user input.
func NewUserInputError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorUserInput,
		Code:  statusCode,
		Cause: cause,
	}
}

// CategoryOf returns the category of the first CategorizedError in the
// chain, or "" when the error carries none.
func CategoryOf(err error) ErrorCategory {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category()
	}
	return ""
}

// IsTransient returns true if the error is categorized as transient.
func IsTransient(err error) bool {
	return CategoryOf(err) == ErrorTransient
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	return CategoryOf(err) == ErrorPermanent
}

// IsUserInput returns true if the error is categorized as user input error.
func IsUserInput(err error) bool {
	return CategoryOf(err) == ErrorUserInput
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// CategoryForStatus maps an HTTP status code to an error category.
// Rate limits, overload and server errors are transient; auth failures are
// permanent; malformed requests are user input.
func CategoryForStatus(code int) ErrorCategory {
	switch {
	case code == 429 || code == 529:
		return ErrorTransient
	case code >= 500 && code < 600:
		return ErrorTransient
	case code == 401 || code == 403:
		return ErrorPermanent
	case code == 400 || code == 404 || code == 413 || code == 422:
		return ErrorUserInput
	default:
		return ErrorPermanent
	}
}

// NewStatusError categorizes a provider error by its HTTP status code.
// A positive retryAfter is kept as the suggested delay.
func NewStatusError(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	e := &Error{
		Msg:   msg,
		Cat:   CategoryForStatus(statusCode),
		Code:  statusCode,
		Cause: cause,
	}
	if retryAfter > 0 {
		e.Cat = ErrorTransient
		e.RetryDelay = retryAfter
	}
	return e
}

// ParseRetryAfter reads a Retry-After header value given in seconds or as
// an HTTP date. It returns 0 when the header is absent or unparseable.
func ParseRetryAfter(h http.Header) time.Duration {
	value := h.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
