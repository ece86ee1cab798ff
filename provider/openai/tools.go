package openai

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	ai "github.com/spetersoncode/miniagent"
)

func convertTools(tools []ai.Tool) []openai.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		params := shared.FunctionParameters{"type": "object", "properties": map[string]any{}}
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &params)
		}
		result[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		}
	}
	return result
}

// extractToolCalls converts completed tool calls. Arguments that are not a
// JSON object decode to an empty map, which the tool then rejects.
func extractToolCalls(toolCalls []openai.ChatCompletionMessageToolCall) []ai.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}
	result := make([]ai.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		args, err := ai.ParseArguments(tc.Function.Arguments)
		if err != nil {
			args = map[string]any{}
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		result[i] = ai.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: args,
		}
	}
	return result
}
