package google

import (
	"github.com/google/uuid"
	ai "github.com/spetersoncode/miniagent"
	"google.golang.org/genai"
)

func convertTools(tools []ai.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	funcs := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		funcs[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: funcs}}
}

// toolCall converts a function call. Gemini API calls often lack an ID, so
// one is generated to pair the call with its result.
func toolCall(fc *genai.FunctionCall) ai.ToolCall {
	id := fc.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	return ai.ToolCall{ID: id, Name: fc.Name, Arguments: args}
}
