package anthropic

import (
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/miniagent"
)

// wrapError categorizes an Anthropic SDK error by status code. 529
// (overloaded) is transient. Non-API errors are returned unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	var retryAfter time.Duration
	if apiErr.Response != nil {
		retryAfter = ai.ParseRetryAfter(apiErr.Response.Header)
	}
	return ai.NewStatusError(fmt.Sprintf("anthropic: status %d", apiErr.StatusCode), apiErr.StatusCode, retryAfter, err)
}
