package retry

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	ai "github.com/spetersoncode/miniagent"
)

// ExhaustedError is returned when every allowed attempt failed with a
// transient error.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// Last is the error returned by the final attempt.
	Last error
}

// Error returns a message naming the attempt count and the last failure.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last underlying error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// statusCoder is an interface for errors that have an HTTP status code.
// Both Anthropic and OpenAI SDK errors implement this interface.
type statusCoder interface {
	StatusCode() int
}

// IsTransient determines if an error is transient and should be retried.
// Errors implementing ai.CategorizedError are trusted as-is. Others fall
// back to heuristics: HTTP 429 and 5xx, network timeouts, connection resets,
// temporary DNS failures and well-known message patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce ai.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ai.ErrorTransient
	}

	var sc statusCoder
	if errors.As(err, &sc) && isTransientStatusCode(sc.StatusCode()) {
		return true
	}

	if code := googleAPIErrorCode(err); code > 0 && isTransientStatusCode(code) {
		return true
	}

	return isTransientNetworkError(err)
}

func isTransientStatusCode(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

// googleAPIErrorCode extracts the status code from a "googleapi: Error NNN:"
// message. Google errors carry a Code field rather than a StatusCode method.
func googleAPIErrorCode(err error) int {
	msg := err.Error()
	if !strings.Contains(msg, "googleapi:") {
		return 0
	}
	for _, code := range []int{429, 500, 502, 503, 504} {
		if strings.Contains(msg, fmt.Sprintf("Error %d", code)) {
			return code
		}
	}
	return 0
}

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"overloaded",
	"server error",
	"bad gateway",
	"gateway timeout",
}

func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && isTransientNetworkError(urlErr.Err) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
