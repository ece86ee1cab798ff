package openai

import (
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/miniagent"
)

// wrapError categorizes an OpenAI SDK error by status code, keeping any
// Retry-After delay. Other errors, usually network failures, are returned
// as-is for the retry heuristics.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var retryAfter time.Duration
	if apiErr.Response != nil {
		retryAfter = ai.ParseRetryAfter(apiErr.Response.Header)
	}
	return ai.NewStatusError(fmt.Sprintf("openai: status %d", apiErr.StatusCode), apiErr.StatusCode, retryAfter, err)
}
