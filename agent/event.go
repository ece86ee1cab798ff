package agent

import (
	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/event"
)

// TerminationReason indicates why a run stopped.
type TerminationReason string

const (
	// TerminationComplete indicates the model answered without tool calls.
	TerminationComplete TerminationReason = "complete"

	// TerminationCancelled indicates the cancel token was signalled.
	TerminationCancelled TerminationReason = "cancelled"

	// TerminationMaxSteps indicates the step limit was reached.
	TerminationMaxSteps TerminationReason = "max_steps"

	// TerminationLLMFailed indicates the model call failed.
	TerminationLLMFailed TerminationReason = "llm_failed"
)

// reasonOf maps an error event's reason to a TerminationReason.
func reasonOf(e event.Event) TerminationReason {
	switch e.Reason {
	case event.ReasonCancelled:
		return TerminationCancelled
	case event.ReasonMaxSteps:
		return TerminationMaxSteps
	default:
		return TerminationLLMFailed
	}
}

// Result represents the outcome of a blocking run.
type Result struct {
	// Content is the assistant content produced over the whole run.
	Content string

	// Thinking is the reasoning produced over the whole run.
	Thinking string

	// Blocks are the ordered pieces of the assistant message.
	Blocks []event.Block

	// Steps is the number of model calls made.
	Steps int

	// ToolCalls is the number of tool calls dispatched.
	ToolCalls int

	// Termination indicates why execution stopped.
	Termination TerminationReason

	// Message is the error event content for runs that did not complete.
	Message string

	// Usage aggregates token usage across all steps.
	Usage ai.Usage
}
