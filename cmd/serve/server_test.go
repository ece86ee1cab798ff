package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/budget"
	"github.com/spetersoncode/miniagent/chat"
	"github.com/spetersoncode/miniagent/store"
	"github.com/spetersoncode/miniagent/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays one response per StreamGenerate call, repeating
// the last one once the script runs out.
type scriptedClient struct {
	mu        sync.Mutex
	responses []ai.Response
	calls     int
	// options records the resolved options of each StreamGenerate call.
	options []ai.Options
}

func (c *scriptedClient) seenOptions() []ai.Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ai.Options(nil), c.options...)
}

func (c *scriptedClient) next() ai.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := min(c.calls, len(c.responses)-1)
	c.calls++
	return c.responses[i]
}

func (c *scriptedClient) Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error) {
	resp := c.next()
	return &resp, nil
}

func (c *scriptedClient) StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan chat.Chunk, error) {
	c.mu.Lock()
	c.options = append(c.options, *ai.ApplyOptions(opts...))
	c.mu.Unlock()
	resp := c.next()
	ch := make(chan chat.Chunk)
	go func() {
		defer close(ch)
		for _, r := range resp.Content {
			select {
			case ch <- chat.Chunk{Type: chat.ChunkContent, Delta: string(r)}:
			case <-ctx.Done():
				ch <- chat.Chunk{Err: ctx.Err()}
				return
			}
		}
		ch <- chat.Chunk{Type: chat.ChunkDone, Response: &resp}
	}()
	return ch, nil
}

type echoArgs struct {
	Text string `json:"text" required:"true"`
}

func newTestServer(t *testing.T, responses ...ai.Response) (*Server, *store.SessionStore) {
	t.Helper()
	c := &scriptedClient{responses: responses}
	registry := tool.NewRegistry().Add(
		tool.Func("echo", "Echo text", func(ctx context.Context, args echoArgs) (string, error) {
			return "echo: " + args.Text, nil
		}),
	)
	st := store.NewSessionStore(store.NewMemoryAdapter())
	logger := slog.New(slog.DiscardHandler)
	srv := NewServer(st, func() *agent.Agent {
		return agent.New(c, registry, "You are a test assistant.",
			agent.WithEstimator(budget.NewFallbackEstimator()),
			agent.WithLogger(logger),
		)
	}, logger)
	return srv, st
}

func toolThenAnswer() []ai.Response {
	return []ai.Response{
		{ToolCalls: []ai.ToolCall{{ID: "call_1", Name: "echo", Arguments: map[string]any{"text": "hi"}}}},
		{Content: "All done.", Usage: ai.Usage{InputTokens: 10, OutputTokens: 5}},
	}
}

// readEvents parses data-only SSE frames into JSON objects.
func readEvents(t *testing.T, body io.Reader) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, ai.Response{Content: "x"})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChatStream(t *testing.T) {
	srv, st := newTestServer(t, toolThenAnswer()...)

	rec := post(t, srv.Routes(), "/api/chat", `{"message":"say hi through the tool"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readEvents(t, rec.Body)
	require.NotEmpty(t, events)

	first := events[0]
	assert.Equal(t, "start", first["type"])
	sessionID, _ := first["session_id"].(string)
	messageID, _ := first["message_id"].(string)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, messageID)
	assert.Equal(t, "say hi throu...", first["title"])

	var types []string
	for _, ev := range events {
		types = append(types, ev["type"].(string))
	}
	assert.Contains(t, types, "tool_call")
	assert.Contains(t, types, "tool_result")

	last := events[len(events)-1]
	assert.Equal(t, "done", last["type"])
	assert.Equal(t, "All done.", last["content"])
	assert.Equal(t, sessionID, last["session_id"])
	assert.Equal(t, messageID, last["message_id"])
	assert.EqualValues(t, 2, last["steps"])
	assert.EqualValues(t, 1, last["tool_calls"])

	sess, err := st.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, ai.RoleUser, sess.Messages[0].Role)

	assistant := sess.Messages[1]
	assert.Equal(t, messageID, assistant.ID)
	assert.Equal(t, "All done.", assistant.Content)
	require.NotEmpty(t, assistant.Blocks)
	assert.Equal(t, "tool_call", string(assistant.Blocks[0].Type))

	require.Len(t, sess.ToolCalls, 1)
	assert.Equal(t, store.ToolCallSuccess, sess.ToolCalls[0].Status)
	assert.Equal(t, "echo: hi", sess.ToolCalls[0].Result)
	assert.Equal(t, messageID, sess.ToolCalls[0].MessageID)
}

func TestChatKeepsAgentPerSession(t *testing.T) {
	srv, st := newTestServer(t, ai.Response{Content: "ok"})
	h := srv.Routes()

	first := readEvents(t, post(t, h, "/api/chat", `{"message":"one"}`).Body)
	sessionID := first[0]["session_id"].(string)

	post(t, h, "/api/chat", `{"message":"two","session_id":"`+sessionID+`"}`)

	sess, err := st.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 4)
	assert.Equal(t, "one", sess.Title)

	cached, ok := srv.sessions.Get(sessionID)
	require.True(t, ok)
	assert.Len(t, cached.Agent.Messages(), 5, "system plus two user/assistant pairs")
}

func TestChatBlocking(t *testing.T) {
	srv, st := newTestServer(t, toolThenAnswer()...)

	rec := post(t, srv.Routes(), "/api/chat", `{"message":"hi","session_id":"s-1","stream":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, "All done.", resp.Response)
	assert.Equal(t, 2, resp.Steps)
	assert.Equal(t, 1, resp.ToolCalls)
	assert.Equal(t, agent.TerminationComplete, resp.Termination)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.Total())

	sess, err := st.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 2)
	require.Len(t, sess.ToolCalls, 1)
	assert.Equal(t, store.ToolCallSuccess, sess.ToolCalls[0].Status)
}

func TestChatRequiresMessage(t *testing.T) {
	srv, _ := newTestServer(t, ai.Response{Content: "x"})

	rec := post(t, srv.Routes(), "/api/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, srv.Routes(), "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, ai.Response{Content: "x"})
	h := srv.Routes()

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/sessions", `{"title":"Planning"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created store.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Planning", created.Title)

	rec = do(http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Sessions []store.SessionInfo `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, created.ID, list.Sessions[0].ID)

	rec = do(http.MethodPut, "/api/sessions/"+created.ID+"/title", `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Renamed")

	rec = do(http.MethodPut, "/api/sessions/"+created.ID+"/title", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Run a chat so the session has a cached agent to evict.
	readEvents(t, do(http.MethodPost, "/api/chat", `{"message":"hello","session_id":"`+created.ID+`"}`).Body)
	_, cached := srv.sessions.Get(created.ID)
	require.True(t, cached)

	rec = do(http.MethodGet, "/api/sessions/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got store.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Messages, 2)

	rec = do(http.MethodDelete, "/api/sessions/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, cached = srv.sessions.Get(created.ID)
	assert.False(t, cached)

	rec = do(http.MethodGet, "/api/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodDelete, "/api/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelWithoutRun(t *testing.T) {
	srv, _ := newTestServer(t, ai.Response{Content: "x"})

	rec := post(t, srv.Routes(), "/api/sessions/unknown/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"session_id":"unknown","cancelled":false}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, ai.Response{Content: "x"})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAGUI(t *testing.T) {
	srv, _ := newTestServer(t, toolThenAnswer()...)

	body := `{"thread_id":"thread-1","run_id":"run-1","messages":[{"id":"m1","role":"user","content":"hi"}]}`
	rec := post(t, srv.Routes(), "/api/agui", body)
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	for _, want := range []string{
		"event: RUN_STARTED",
		"event: STEP_STARTED",
		"event: TOOL_CALL_START",
		"event: TOOL_CALL_RESULT",
		"event: TEXT_MESSAGE_CONTENT",
		"event: RUN_FINISHED",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "RUN_STARTED"), strings.Index(out, "RUN_FINISHED"))

	_, cached := srv.sessions.Get("thread-1")
	assert.True(t, cached)
}

func TestAGUIRejectsEmptyInput(t *testing.T) {
	srv, _ := newTestServer(t, ai.Response{Content: "x"})

	rec := post(t, srv.Routes(), "/api/agui", `{"thread_id":"t","run_id":"r","messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatDeepThinkPerRequest(t *testing.T) {
	c := &scriptedClient{responses: []ai.Response{{Content: "ok"}}}
	logger := slog.New(slog.DiscardHandler)
	srv := NewServer(store.NewSessionStore(store.NewMemoryAdapter()), func() *agent.Agent {
		return agent.New(c, nil, "sys", agent.WithEstimator(budget.NewFallbackEstimator()))
	}, logger)
	srv.thinkingBudget = 4096
	h := srv.Routes()

	rec := post(t, h, "/api/chat", `{"message":"think hard","session_id":"s1","stream":false,"enable_deep_think":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = post(t, h, "/api/chat", `{"message":"quick one","session_id":"s1","stream":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = post(t, h, "/api/chat", `{"message":"streamed","session_id":"s1","enable_deep_think":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	seen := c.seenOptions()
	require.Len(t, seen, 3)
	assert.True(t, seen[0].DeepThink)
	assert.Equal(t, 4096, seen[0].ThinkingBudget)
	assert.False(t, seen[1].DeepThink, "deep think applies to one turn only")
	assert.True(t, seen[2].DeepThink)
}
