package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sse(name, data string) string {
	return "event: " + name + "\ndata: " + data + "\n\n"
}

func TestStreamGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range []string{
			sse("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"test","content":[],"usage":{"input_tokens":100,"output_tokens":0}}}`),
			sse("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`),
			sse("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Let me see"}}`),
			sse("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"sig_1"}}`),
			sse("content_block_stop", `{"type":"content_block_stop","index":0}`),
			sse("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`),
			sse("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"Reading."}}`),
			sse("content_block_stop", `{"type":"content_block_stop","index":1}`),
			sse("content_block_start", `{"type":"content_block_start","index":2,"content_block":{"type":"tool_use","id":"toolu_1","name":"read_file","input":{}}}`),
			sse("content_block_delta", `{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`),
			sse("content_block_delta", `{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"\"a.txt\"}"}}`),
			sse("content_block_stop", `{"type":"content_block_stop","index":2}`),
			sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":25}}`),
			sse("message_stop", `{"type":"message_stop"}`),
		} {
			fmt.Fprint(w, ev)
		}
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	chunks, err := c.StreamGenerate(context.Background(),
		[]ai.Message{ai.SystemMessage("sys"), ai.UserMessage("read a.txt")},
		[]ai.Tool{{Name: "read_file", Parameters: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`)}},
		ai.WithDeepThink(2048),
	)
	require.NoError(t, err)

	var content, thinking, args strings.Builder
	var final *ai.Response
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		switch chunk.Type {
		case chat.ChunkContent:
			content.WriteString(chunk.Delta)
		case chat.ChunkThinking:
			thinking.WriteString(chunk.Delta)
		case chat.ChunkToolCallArgs:
			assert.Equal(t, "toolu_1", chunk.ToolCall.ID)
			args.WriteString(chunk.Delta)
		case chat.ChunkDone:
			final = chunk.Response
		}
	}

	assert.Equal(t, "Reading.", content.String())
	assert.Equal(t, "Let me see", thinking.String())
	assert.Equal(t, `{"path":"a.txt"}`, args.String())

	require.NotNil(t, final)
	assert.Equal(t, "Reading.", final.Content)
	assert.Equal(t, "Let me see", final.Thinking)
	assert.Equal(t, "sig_1", final.ThinkingSignature)
	assert.Equal(t, "tool_use", final.FinishReason)
	assert.Equal(t, 125, final.Usage.Total())
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "read_file", final.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"path": "a.txt"}, final.ToolCalls[0].Arguments)

	thinkingCfg, ok := body["thinking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "enabled", thinkingCfg["type"])
	assert.EqualValues(t, 2048, thinkingCfg["budget_tokens"])
	assert.Greater(t, body["max_tokens"].(float64), float64(2048))
}

func TestGenerateOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	c := New("key", WithBaseURL(srv.URL))
	_, err := c.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")}, nil)

	require.Error(t, err)
	assert.True(t, ai.IsTransient(err))
	assert.Equal(t, 529, ai.StatusCodeOf(err))
}

func TestConvertMessages(t *testing.T) {
	msgs, system := convertMessages([]ai.Message{
		ai.SystemMessage("sys"),
		ai.UserMessage("go"),
		{
			Role:              ai.RoleAssistant,
			Thinking:          "plan",
			ThinkingSignature: "sig",
			ToolCalls: []ai.ToolCall{
				{ID: "t1", Name: "a", Arguments: map[string]any{"x": 1}},
				{ID: "t2", Name: "b"},
			},
		},
		{Role: ai.RoleTool, ToolCallID: "t1", Content: "ok"},
		{Role: ai.RoleTool, ToolCallID: "t2", Content: "Error: failed"},
		ai.UserMessage("next"),
	})

	require.Len(t, system, 1)
	assert.Equal(t, "sys", system[0].Text)

	require.Len(t, msgs, 4)
	require.Len(t, msgs[1].Content, 3)
	assert.NotNil(t, msgs[1].Content[0].OfThinking)
	assert.NotNil(t, msgs[1].Content[1].OfToolUse)

	require.Len(t, msgs[2].Content, 2, "tool results share one user turn")
	require.NotNil(t, msgs[2].Content[1].OfToolResult)
	assert.True(t, msgs[2].Content[1].OfToolResult.IsError.Value)
	assert.False(t, msgs[2].Content[0].OfToolResult.IsError.Value)

	assert.Len(t, msgs[3].Content, 1)
}
