package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/miniagent"
)

func convertTools(tools []ai.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		var schema map[string]any
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &schema)
		}

		var required []string
		if reqVal, ok := schema["required"].([]any); ok {
			for _, r := range reqVal {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}

		properties := schema["properties"]
		if properties == nil {
			properties = map[string]any{}
		}

		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		}
	}
	return result
}

// toolCall converts a tool_use block. Input that is not a JSON object
// decodes to an empty map.
func toolCall(block anthropic.ContentBlockUnion) ai.ToolCall {
	args, err := ai.ParseArguments(string(block.Input))
	if err != nil {
		args = map[string]any{}
	}
	return ai.ToolCall{
		ID:        block.ID,
		Name:      block.Name,
		Arguments: args,
	}
}
