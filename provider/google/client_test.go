package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[
			{"text":"weighing options","thought":true},
			{"text":"Reading it."},
			{"functionCall":{"name":"read_file","args":{"path":"a.txt"}}}
		]},"finishReason":"STOP"}],
		"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":4,"thoughtsTokenCount":2,"totalTokenCount":16}}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), "key", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(),
		[]ai.Message{ai.SystemMessage("sys"), ai.UserMessage("read a.txt")},
		[]ai.Tool{{Name: "read_file", Parameters: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`)}},
		ai.WithDeepThink(1024),
	)
	require.NoError(t, err)

	assert.Equal(t, "Reading it.", resp.Content)
	assert.Equal(t, "weighing options", resp.Thinking)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 16, resp.Usage.Total())
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
	assert.NotEmpty(t, resp.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"path": "a.txt"}, resp.ToolCalls[0].Arguments)

	assert.Contains(t, body, "systemInstruction")
	genCfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, genCfg, "thinkingConfig")
}

func TestGenerateUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), "key", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.True(t, ai.IsTransient(err))
	assert.Equal(t, 503, ai.StatusCodeOf(err))
}

func TestAccumulator(t *testing.T) {
	var acc accumulator
	var chunks []chat.Chunk
	for _, resp := range []*genai.GenerateContentResponse{
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "hmm", Thought: true, ThoughtSignature: []byte("sig")},
		}}}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "Hel"}, {Text: "lo"},
		}}}}},
		{
			Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{ID: "f1", Name: "echo", Args: map[string]any{"text": "x"}}}}},
				FinishReason: genai.FinishReasonStop,
			}},
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 5, CandidatesTokenCount: 3, TotalTokenCount: 8},
		},
	} {
		chunks = append(chunks, acc.add(resp)...)
	}

	require.Len(t, chunks, 5)
	assert.Equal(t, chat.ChunkThinking, chunks[0].Type)
	assert.Equal(t, chat.ChunkContent, chunks[1].Type)
	assert.Equal(t, chat.ChunkToolCallStart, chunks[3].Type)
	assert.Equal(t, "f1", chunks[3].ToolCall.ID)
	assert.JSONEq(t, `{"text":"x"}`, chunks[4].Delta)

	resp := acc.response()
	assert.Equal(t, "Hello", resp.Content)
	assert.Equal(t, "hmm", resp.Thinking)
	assert.Equal(t, []byte("sig"), decodeSignature(resp.ThinkingSignature))
	assert.Equal(t, 8, resp.Usage.Total())
	require.Len(t, resp.ToolCalls, 1)
}

func TestConvertMessages(t *testing.T) {
	contents, system := convertMessages([]ai.Message{
		ai.SystemMessage("sys"),
		ai.UserMessage("go"),
		{
			Role:      ai.RoleAssistant,
			ToolCalls: []ai.ToolCall{{ID: "f1", Name: "a"}, {ID: "f2", Name: "b"}},
		},
		{Role: ai.RoleTool, ToolCallID: "f1", Name: "a", Content: `{"n":1}`},
		{Role: ai.RoleTool, ToolCallID: "f2", Name: "b", Content: "plain"},
	})

	require.NotNil(t, system)
	assert.Equal(t, "sys", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[2].Parts, 2, "function responses share one turn")
	assert.Equal(t, "a", contents[2].Parts[0].FunctionResponse.Name)
	assert.Equal(t, map[string]any{"n": float64(1)}, contents[2].Parts[0].FunctionResponse.Response)
	assert.Equal(t, map[string]any{"result": "plain"}, contents[2].Parts[1].FunctionResponse.Response)
}

func TestConvertSchema(t *testing.T) {
	s := convertSchema(json.RawMessage(`{"type":"object","properties":{"tags":{"type":"array","items":{"type":"string"}}},"required":["tags"]}`))
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"tags"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)

	assert.Equal(t, genai.TypeObject, convertSchema(nil).Type)
}
