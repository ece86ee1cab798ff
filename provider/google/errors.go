package google

import (
	"errors"
	"fmt"

	ai "github.com/spetersoncode/miniagent"
	"google.golang.org/genai"
)

// wrapError categorizes a GenAI API error by status code. genai.APIError
// does not expose response headers, so there is no Retry-After hint.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return ai.NewStatusError(fmt.Sprintf("google: status %d", apiErr.Code), apiErr.Code, 0, err)
}
