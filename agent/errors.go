package agent

import (
	"errors"
	"fmt"

	"github.com/spetersoncode/miniagent/retry"
)

// LLMError is returned by Run when the model could not be reached.
// It is the only condition that ends a run as a failure.
type LLMError struct {
	// Err is the error returned by the chat client.
	Err error
}

// Error returns the message reported to the user.
func (e *LLMError) Error() string {
	return llmFailureMessage(e.Err)
}

// Unwrap returns the underlying client error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// llmFailureMessage formats a model failure. Exhausted retries report the
// number of retries made after the first attempt.
func llmFailureMessage(err error) string {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Sprintf("LLM call failed after %d retries\nLast error: %v", exhausted.Attempts-1, exhausted.Last)
	}
	return fmt.Sprintf("LLM call failed: %v", err)
}

// CancelledMessage is the content of the error event that ends a cancelled run.
const CancelledMessage = "Task cancelled by user."

func maxStepsMessage(n int) string {
	return fmt.Sprintf("Task couldn't be completed after %d steps.", n)
}
