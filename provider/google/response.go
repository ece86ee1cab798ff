package google

import (
	"encoding/base64"
	"encoding/json"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"google.golang.org/genai"
)

// accumulator folds streamed responses into one. The Gemini stream sends
// whole function calls rather than argument fragments.
type accumulator struct {
	content      string
	thinking     string
	signature    string
	finishReason string
	usage        ai.Usage
	toolCalls    []ai.ToolCall
}

// add merges resp and returns the chunks it contributes.
func (a *accumulator) add(resp *genai.GenerateContentResponse) []chat.Chunk {
	var chunks []chat.Chunk
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				chunks = append(chunks, a.part(part)...)
			}
		}
		if cand.FinishReason != "" {
			a.finishReason = string(cand.FinishReason)
		}
	}
	if u := resp.UsageMetadata; u != nil {
		a.usage = ai.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount + u.ThoughtsTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return chunks
}

func (a *accumulator) part(p *genai.Part) []chat.Chunk {
	if len(p.ThoughtSignature) > 0 && a.signature == "" {
		a.signature = base64.StdEncoding.EncodeToString(p.ThoughtSignature)
	}
	switch {
	case p.FunctionCall != nil:
		call := toolCall(p.FunctionCall)
		a.toolCalls = append(a.toolCalls, call)
		return []chat.Chunk{
			{Type: chat.ChunkToolCallStart, ToolCall: &ai.ToolCall{ID: call.ID, Name: call.Name}},
			{Type: chat.ChunkToolCallArgs, Delta: call.ArgumentsJSON(), ToolCall: &ai.ToolCall{ID: call.ID}},
		}
	case p.Text == "":
		return nil
	case p.Thought:
		a.thinking += p.Text
		return []chat.Chunk{{Type: chat.ChunkThinking, Delta: p.Text}}
	default:
		a.content += p.Text
		return []chat.Chunk{{Type: chat.ChunkContent, Delta: p.Text}}
	}
}

func (a *accumulator) response() *ai.Response {
	return &ai.Response{
		Content:           a.content,
		Thinking:          a.thinking,
		ThinkingSignature: a.signature,
		FinishReason:      a.finishReason,
		Usage:             a.usage,
		ToolCalls:         a.toolCalls,
	}
}

// decodeSignature reverses the base64 encoding applied to thought signatures.
func decodeSignature(sig string) []byte {
	if sig == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return nil
	}
	return b
}

// responseObject wraps tool output for a FunctionResponse. JSON objects pass
// through, anything else is nested under "result".
func responseObject(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil || obj == nil {
		return map[string]any{"result": content}
	}
	return obj
}
