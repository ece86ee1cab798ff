package google

import (
	ai "github.com/spetersoncode/miniagent"
	"google.golang.org/genai"
)

// convertMessages splits system messages into a system instruction and
// converts the rest. Consecutive tool messages become one user turn of
// function responses, matching the calls of the preceding model turn.
func convertMessages(messages []ai.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			if msg.Content == "" {
				continue
			}
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: msg.Content})
		case ai.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			sig := decodeSignature(msg.ThinkingSignature)
			for i, tc := range msg.ToolCalls {
				part := &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Arguments,
				}}
				// The signature belongs to the first function call of the turn.
				if i == 0 {
					part.ThoughtSignature = sig
				}
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
		case ai.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: responseObject(msg.Content),
			}}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
		default:
			if msg.Content != "" {
				contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
			}
		}
	}

	return contents, system
}

func isFunctionResponseTurn(c *genai.Content) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}
