// Package event defines the typed events an agent run streams to its caller,
// their JSON wire shape, and a Recorder that rebuilds the assistant message
// from them.
package event

import (
	"context"
	"encoding/json"
	"time"
)

// Type identifies the kind of event.
type Type string

// Per-step lifecycle events
const (
	// ThinkingStart opens a block of reasoning output.
	ThinkingStart Type = "thinking_start"

	// Thinking carries a reasoning fragment.
	Thinking Type = "thinking"

	// ThinkingEnd closes the reasoning block.
	ThinkingEnd Type = "thinking_end"

	// AssistantStart fires once per step before any content.
	AssistantStart Type = "assistant_start"

	// Content carries an assistant content fragment.
	Content Type = "content"
)

// Tool events
const (
	// ToolCall fires before a tool is dispatched.
	ToolCall Type = "tool_call"

	// ToolResult fires after the tool's result is appended to the history.
	ToolResult Type = "tool_result"
)

// Terminal events. Exactly one of them ends every run.
const (
	// Done ends a successful run.
	Done Type = "done"

	// Error ends a run that was cancelled, hit the step limit or failed to
	// reach the model.
	Error Type = "error"
)

// Reasons carried by Error events.
const (
	ReasonCancelled = "cancelled"
	ReasonMaxSteps  = "max_steps"
	ReasonLLMFailed = "llm_failed"
)

// Event is one observable transition of an agent run. Which fields are
// meaningful depends on Type; MarshalJSON emits only those.
type Event struct {
	Type Type

	// Content is the text fragment, the accumulated answer for Done, or the
	// message for Error.
	Content string

	// Thinking is the accumulated reasoning, set on Done when present.
	Thinking string

	ToolName   string
	ToolCallID string
	Arguments  map[string]any

	// Success and Result describe a ToolResult. Result is the tool's content
	// on success and its error otherwise.
	Success bool
	Result  string

	// Steps and ToolCalls are totals reported on Done.
	Steps     int
	ToolCalls int

	// Reason classifies an Error event.
	Reason string

	// SessionID and MessageID are filled in by servers that persist the run.
	SessionID string
	MessageID string

	Timestamp time.Time
}

// IsTerminal reports whether the event ends a run.
func (e Event) IsTerminal() bool {
	return e.Type == Done || e.Type == Error
}

// MarshalJSON encodes the event in its wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case ToolCall:
		args := e.Arguments
		if args == nil {
			args = map[string]any{}
		}
		return json.Marshal(struct {
			Type       Type           `json:"type"`
			ToolName   string         `json:"tool_name"`
			Arguments  map[string]any `json:"arguments"`
			ToolCallID string         `json:"tool_call_id"`
		}{e.Type, e.ToolName, args, e.ToolCallID})

	case ToolResult:
		return json.Marshal(struct {
			Type       Type   `json:"type"`
			ToolName   string `json:"tool_name"`
			Success    bool   `json:"success"`
			Result     string `json:"result"`
			ToolCallID string `json:"tool_call_id"`
		}{e.Type, e.ToolName, e.Success, e.Result, e.ToolCallID})

	case Done:
		return json.Marshal(struct {
			Type      Type   `json:"type"`
			Content   string `json:"content"`
			Thinking  string `json:"thinking,omitempty"`
			Steps     int    `json:"steps"`
			ToolCalls int    `json:"tool_calls"`
			SessionID string `json:"session_id,omitempty"`
			MessageID string `json:"message_id,omitempty"`
		}{e.Type, e.Content, e.Thinking, e.Steps, e.ToolCalls, e.SessionID, e.MessageID})

	case Error:
		return json.Marshal(struct {
			Type    Type   `json:"type"`
			Content string `json:"content"`
			Reason  string `json:"reason,omitempty"`
		}{e.Type, e.Content, e.Reason})

	default:
		return json.Marshal(struct {
			Type    Type   `json:"type"`
			Content string `json:"content"`
		}{e.Type, e.Content})
	}
}

// Emit stamps the event and sends it on ch, blocking until the consumer
// receives it. A send that can complete immediately always wins; otherwise
// Emit returns false without sending if ctx is done first.
func Emit(ctx context.Context, ch chan<- Event, e Event) bool {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case ch <- e:
		return true
	default:
	}
	select {
	case ch <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}
