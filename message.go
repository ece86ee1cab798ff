package miniagent

import "github.com/google/uuid"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation history.
//
// Messages are never edited once appended to a history. A tool message
// answers exactly one call from the assistant message directly before it.
type Message struct {
	// ID is an optional unique identifier for the message.
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// Thinking holds the model's reasoning text when the provider returns it.
	Thinking string `json:"thinking,omitempty"`
	// ThinkingSignature is the provider's opaque signature for Thinking,
	// required when the reasoning is sent back on a later request.
	ThinkingSignature string `json:"thinking_signature,omitempty"`
	// ToolCalls contains tool invocation requests from an assistant message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Name is the tool name on tool messages.
	Name string `json:"name,omitempty"`
}

// NewMessageID creates a unique message identifier.
func NewMessageID() string {
	return "msg-" + uuid.New().String()
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage creates the history entry for a finished tool call.
// Failed results are stored as "Error: <error>" so the model can react to them.
func ToolMessage(call ToolCall, result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Text(),
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// HasToolCalls reports whether the message requests any tool calls.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Response represents a complete response from a chat provider.
type Response struct {
	Content  string `json:"content,omitempty"`
	Thinking string `json:"thinking,omitempty"`
	// ThinkingSignature accompanies Thinking for providers that sign it.
	ThinkingSignature string `json:"thinking_signature,omitempty"`
	FinishReason      string `json:"finish_reason,omitempty"`
	Usage             Usage  `json:"usage"`
	// ToolCalls contains any tool invocation requests from the model.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Usage contains token usage information for a request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Total returns the reported total, or input plus output when the
// provider did not report one.
func (u Usage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}
