package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	ai "github.com/spetersoncode/miniagent"
)

// Role constants matching AG-UI protocol.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ToMessages converts AG-UI messages to conversation messages.
func ToMessages(msgs []events.Message) []ai.Message {
	result := make([]ai.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, ToMessage(msg))
	}
	return result
}

// ToMessage converts a single AG-UI message. Tool call arguments that are
// not a JSON object decode to an empty map.
func ToMessage(msg events.Message) ai.Message {
	m := ai.Message{
		ID:   msg.ID,
		Role: toRole(msg.Role),
	}

	if msg.Content != nil {
		m.Content = *msg.Content
	}

	if len(msg.ToolCalls) > 0 {
		m.ToolCalls = make([]ai.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			args, err := ai.ParseArguments(tc.Function.Arguments)
			if err != nil {
				args = map[string]any{}
			}
			m.ToolCalls[i] = ai.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			}
		}
	}

	if msg.ToolCallID != nil {
		m.ToolCallID = *msg.ToolCallID
	}

	return m
}

// FromMessages converts conversation messages to AG-UI messages, e.g. for
// a MESSAGES_SNAPSHOT event.
func FromMessages(msgs []ai.Message) []events.Message {
	result := make([]events.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, FromMessage(msg))
	}
	return result
}

// FromMessage converts a single message. Messages without an ID get a
// generated one.
func FromMessage(msg ai.Message) events.Message {
	id := msg.ID
	if id == "" {
		id = events.GenerateMessageID()
	}
	m := events.Message{
		ID:   id,
		Role: fromRole(msg.Role),
	}

	if msg.Content != "" {
		content := msg.Content
		m.Content = &content
	}

	if len(msg.ToolCalls) > 0 {
		m.ToolCalls = make([]events.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			m.ToolCalls[i] = events.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: events.Function{
					Name:      tc.Name,
					Arguments: tc.ArgumentsJSON(),
				},
			}
		}
	}

	if msg.ToolCallID != "" {
		toolCallID := msg.ToolCallID
		m.ToolCallID = &toolCallID
	}

	return m
}

func toRole(role string) ai.Role {
	switch role {
	case RoleAssistant:
		return ai.RoleAssistant
	case RoleSystem:
		return ai.RoleSystem
	case RoleTool:
		return ai.RoleTool
	default:
		return ai.RoleUser
	}
}

func fromRole(role ai.Role) string {
	switch role {
	case ai.RoleAssistant:
		return RoleAssistant
	case ai.RoleSystem:
		return RoleSystem
	case ai.RoleTool:
		return RoleTool
	default:
		return RoleUser
	}
}
