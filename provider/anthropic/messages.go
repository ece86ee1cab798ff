package anthropic

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/miniagent"
)

// toolErrorPrefix marks tool messages that carry a failed result.
const toolErrorPrefix = "Error: "

// convertMessages splits system messages out of the history and converts
// the rest. Consecutive tool messages become one user turn of tool_result
// blocks.
func convertMessages(messages []ai.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var result []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			// The API rejects empty text blocks.
			if msg.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: msg.Content})
			}
		case ai.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Thinking != "" && msg.ThinkingSignature != "" {
				blocks = append(blocks, anthropic.NewThinkingBlock(msg.ThinkingSignature, msg.Thinking))
			}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
		case ai.RoleTool:
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, strings.HasPrefix(msg.Content, toolErrorPrefix))
			if n := len(result); n > 0 && isToolResultTurn(result[n-1]) {
				result[n-1].Content = append(result[n-1].Content, block)
				continue
			}
			result = append(result, anthropic.NewUserMessage(block))
		default:
			if msg.Content != "" {
				result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
	}

	return result, system
}

func isToolResultTurn(m anthropic.MessageParam) bool {
	if m.Role != anthropic.MessageParamRoleUser || len(m.Content) == 0 {
		return false
	}
	for _, b := range m.Content {
		if b.OfToolResult == nil {
			return false
		}
	}
	return true
}
