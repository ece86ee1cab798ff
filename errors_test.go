package miniagent

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
		userInput bool
	}{
		{"transient", NewTransientError("rate limited", 429, nil), true, false, false},
		{"permanent", NewPermanentError("bad key", 401, nil), false, true, false},
		{"user input", NewUserInputError("bad request", 400, nil), false, false, true},
		{"plain", errors.New("boom"), false, false, false},
		{"wrapped transient", fmt.Errorf("call: %w", NewTransientError("overloaded", 529, nil)), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.permanent, IsPermanent(tt.err))
			assert.Equal(t, tt.userInput, IsUserInput(tt.err))
		})
	}
}

func TestErrorMetadata(t *testing.T) {
	cause := errors.New("upstream")
	err := NewTransientErrorWithRetry("slow down", 429, 3*time.Second, cause)

	assert.Equal(t, "slow down: upstream", err.Error())
	assert.True(t, err.Retryable())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 429, StatusCodeOf(fmt.Errorf("wrap: %w", err)))
	assert.Equal(t, 3*time.Second, RetryAfterOf(err))
	assert.Equal(t, ErrorCategory(""), CategoryOf(cause))
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		code     int
		category ErrorCategory
	}{
		{429, ErrorTransient},
		{529, ErrorTransient},
		{503, ErrorTransient},
		{401, ErrorPermanent},
		{403, ErrorPermanent},
		{400, ErrorUserInput},
		{404, ErrorUserInput},
		{418, ErrorPermanent},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := NewStatusError("provider: request failed", tt.code, 0, errors.New("cause"))
			assert.Equal(t, tt.category, CategoryOf(err))
			assert.Equal(t, tt.code, StatusCodeOf(err))
		})
	}

	err := NewStatusError("provider: request failed", 400, 3*time.Second, nil)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3*time.Second, RetryAfterOf(err))
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Zero(t, ParseRetryAfter(h))

	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, ParseRetryAfter(h))

	h.Set("Retry-After", "soon")
	assert.Zero(t, ParseRetryAfter(h))

	h.Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	assert.Greater(t, ParseRetryAfter(h), 30*time.Minute)
}
