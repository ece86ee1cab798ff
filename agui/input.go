package agui

import (
	"errors"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	ai "github.com/spetersoncode/miniagent"
)

// RunAgentInput represents the AG-UI protocol request for running an agent.
// It mirrors the AG-UI RunAgentInput shape and is transport-agnostic.
type RunAgentInput struct {
	ThreadID       string           `json:"thread_id"`
	RunID          string           `json:"run_id"`
	Messages       []events.Message `json:"messages"`
	Tools          []any            `json:"tools,omitempty"`
	Context        []any            `json:"context,omitempty"`
	State          any              `json:"state,omitempty"`
	ForwardedProps any              `json:"forwarded_props,omitempty"`
}

// PreparedInput contains validated input ready for agent execution.
type PreparedInput struct {
	ThreadID string
	RunID    string

	// Prompt is the content of the last user message.
	Prompt string
}

var (
	// ErrNoMessages is returned when the input contains no messages.
	ErrNoMessages = errors.New("no messages provided")

	// ErrNoUserMessage is returned when no message has the user role.
	ErrNoUserMessage = errors.New("no user message provided")
)

// Prepare validates the input and extracts the prompt. The agent keeps its
// own history per thread, so only the newest user message is used; earlier
// messages in the request are the frontend's copy of that history.
func (r *RunAgentInput) Prepare() (*PreparedInput, error) {
	messages := ToMessages(r.Messages)
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser && messages[i].Content != "" {
			return &PreparedInput{
				ThreadID: r.ThreadID,
				RunID:    r.RunID,
				Prompt:   messages[i].Content,
			}, nil
		}
	}
	return nil, ErrNoUserMessage
}
