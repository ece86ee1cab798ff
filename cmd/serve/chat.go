package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/event"
	"github.com/spetersoncode/miniagent/store"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`

	// Stream selects SSE (the default) or a single JSON response.
	Stream *bool `json:"stream,omitempty"`

	// EnableDeepThink asks the model for reasoning output on this turn.
	EnableDeepThink bool `json:"enable_deep_think,omitempty"`
}

// ChatResponse is the non-streaming reply of POST /api/chat.
type ChatResponse struct {
	SessionID   string                  `json:"session_id"`
	MessageID   string                  `json:"message_id"`
	Response    string                  `json:"response"`
	Thinking    string                  `json:"thinking,omitempty"`
	Steps       int                     `json:"steps"`
	ToolCalls   int                     `json:"tool_calls"`
	Termination agent.TerminationReason `json:"termination"`
	Usage       *ai.Usage               `json:"usage,omitempty"`
}

// startEvent opens every chat stream.
type startEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Title     string `json:"title"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Warn("invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	// Persistence outlives the request so a disconnect cannot lose the
	// messages of a run that is still winding down.
	ctx := context.WithoutCancel(r.Context())

	sess, err := s.ensureSession(ctx, req.SessionID)
	if err != nil {
		s.logger.Error("failed to load session", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	messageID := req.MessageID
	if messageID == "" {
		messageID = ai.NewMessageID()
	}
	log := s.logger.With("session_id", sess.ID, "message_id", messageID)

	if _, err := s.store.AddMessage(ctx, sess.ID, store.Message{Role: ai.RoleUser, Content: req.Message}); err != nil {
		log.Error("failed to save user message", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	run, token := s.acquire(sess.ID)
	defer run.Unlock()
	defer watchDisconnect(r, token)()

	var opts []ai.Option
	if req.EnableDeepThink {
		opts = append(opts, ai.WithDeepThink(s.thinkingBudget))
	}

	log.Info("chat started", "message_length", len(req.Message), "deep_think", req.EnableDeepThink)
	if req.Stream != nil && !*req.Stream {
		s.chatBlocking(ctx, w, run.Agent, token, req.Message, sess.ID, messageID, opts, log)
	} else {
		s.chatStream(ctx, w, run.Agent, token, req.Message, sess.ID, messageID, opts, log)
	}
	log.Info("chat finished", "duration_ms", time.Since(start).Milliseconds())
}

func (s *Server) chatStream(ctx context.Context, w http.ResponseWriter, a *agent.Agent, token *agent.CancelToken, message, sessionID, messageID string, opts []ai.Option, log *slog.Logger) {
	sse, err := newSSEWriter(w)
	if err != nil {
		log.Error("streaming not supported")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := ""
	if sess, err := s.store.Get(ctx, sessionID); err == nil {
		title = sess.Title
	}
	if err := sse.Data(startEvent{Type: "start", SessionID: sessionID, MessageID: messageID, Title: title}); err != nil {
		log.Warn("client disconnected before start", "error", err)
		token.Cancel()
	}

	rec := event.NewRecorder()
	var sent int
	for ev := range a.RunStream(ctx, message, token, opts...) {
		rec.Record(ev)

		switch ev.Type {
		case event.ToolCall:
			call := ai.ToolCall{ID: ev.ToolCallID, Name: ev.ToolName, Arguments: ev.Arguments}
			if err := s.store.AddToolCall(ctx, sessionID, messageID, call); err != nil {
				log.Warn("failed to record tool call", "tool", ev.ToolName, "error", err)
			}
		case event.ToolResult:
			if err := s.store.UpdateToolCallResult(ctx, sessionID, messageID, ev.ToolCallID, toolResult(ev.Success, ev.Result)); err != nil {
				log.Warn("failed to record tool result", "tool", ev.ToolName, "error", err)
			}
		case event.Done:
			s.saveAssistant(ctx, sessionID, messageID, rec, log)
			ev.SessionID = sessionID
			ev.MessageID = messageID
		case event.Error:
			log.Warn("run ended with error", "reason", ev.Reason, "content", ev.Content)
		}

		// Keep draining after a failed write; the run finishes through the
		// cancel token and its history is rolled back.
		if sse.Failed() {
			continue
		}
		if err := sse.Data(ev); err != nil {
			log.Info("client disconnected", "error", err)
			token.Cancel()
			continue
		}
		sent++
	}
	log.Debug("stream closed", "events_sent", sent, "cancelled", token.Cancelled())
}

func (s *Server) chatBlocking(ctx context.Context, w http.ResponseWriter, a *agent.Agent, token *agent.CancelToken, message, sessionID, messageID string, opts []ai.Option, log *slog.Logger) {
	result, err := a.Run(ctx, message, token, opts...)
	if err != nil {
		log.Error("run failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	for _, b := range result.Blocks {
		switch b.Type {
		case event.BlockToolCall:
			call := ai.ToolCall{ID: b.ToolCallID, Name: b.ToolName, Arguments: b.Arguments}
			if err := s.store.AddToolCall(ctx, sessionID, messageID, call); err != nil {
				log.Warn("failed to record tool call", "tool", b.ToolName, "error", err)
			}
		case event.BlockToolResult:
			res := toolResult(b.Success != nil && *b.Success, b.Result)
			if err := s.store.UpdateToolCallResult(ctx, sessionID, messageID, b.ToolCallID, res); err != nil {
				log.Warn("failed to record tool result", "tool", b.ToolName, "error", err)
			}
		}
	}
	if result.Termination == agent.TerminationComplete {
		msg := store.Message{
			ID:       messageID,
			Role:     ai.RoleAssistant,
			Content:  result.Content,
			Thinking: result.Thinking,
			Blocks:   result.Blocks,
		}
		if _, err := s.store.AddMessage(ctx, sessionID, msg); err != nil {
			log.Error("failed to save assistant message", "error", err)
		}
	}

	resp := ChatResponse{
		SessionID:   sessionID,
		MessageID:   messageID,
		Response:    result.Content,
		Thinking:    result.Thinking,
		Steps:       result.Steps,
		ToolCalls:   result.ToolCalls,
		Termination: result.Termination,
	}
	if result.Termination != agent.TerminationComplete {
		resp.Response = result.Message
	}
	if result.Usage.Total() > 0 {
		usage := result.Usage
		resp.Usage = &usage
	}
	writeJSON(w, http.StatusOK, resp)
}

// saveAssistant persists the assistant message rebuilt by rec.
func (s *Server) saveAssistant(ctx context.Context, sessionID, messageID string, rec *event.Recorder, log *slog.Logger) {
	msg := store.Message{
		ID:       messageID,
		Role:     ai.RoleAssistant,
		Content:  rec.Content(),
		Thinking: rec.Thinking(),
		Blocks:   rec.Blocks(),
	}
	if _, err := s.store.AddMessage(ctx, sessionID, msg); err != nil {
		log.Error("failed to save assistant message", "error", err)
		return
	}
	log.Debug("assistant message saved", "blocks", len(msg.Blocks), "content_length", len(msg.Content))
}

func toolResult(success bool, output string) ai.ToolResult {
	if success {
		return ai.OK(output)
	}
	return ai.ToolResult{Error: output}
}
