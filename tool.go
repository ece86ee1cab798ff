package miniagent

import (
	"encoding/json"
	"fmt"
)

// Tool defines a function that can be called by the model.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string `json:"name"`
	// Description explains what the tool does (helps the model decide when to use it).
	Description string `json:"description"`
	// Parameters is a JSON Schema object defining the function parameters.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall represents a request from the model to invoke a tool.
type ToolCall struct {
	// ID is a unique identifier for this tool call (used to match results).
	ID string `json:"id"`
	// Name is the name of the tool to invoke.
	Name string `json:"name"`
	// Arguments holds the decoded JSON arguments.
	Arguments map[string]any `json:"arguments"`
}

// ArgumentsJSON returns the arguments encoded as a JSON object.
func (c ToolCall) ArgumentsJSON() string {
	if len(c.Arguments) == 0 {
		return "{}"
	}
	data, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ParseArguments decodes a raw JSON argument string as sent by providers.
// An empty string yields an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

// ToolResult is the outcome of executing a tool call.
type ToolResult struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// OK creates a successful result.
func OK(content string) ToolResult {
	return ToolResult{Success: true, Content: content}
}

// Failed creates a failed result carrying the given error text.
func Failed(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Text returns the text fed back to the model.
func (r ToolResult) Text() string {
	if r.Success {
		return r.Content
	}
	return "Error: " + r.Error
}

// Output returns the content on success and the error otherwise.
func (r ToolResult) Output() string {
	if r.Success {
		return r.Content
	}
	return r.Error
}
