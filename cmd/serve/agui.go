package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spetersoncode/miniagent/agui"
)

// handleAGUI runs the agent of the request's thread and streams the run as
// AG-UI events over SSE.
func (s *Server) handleAGUI(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input agui.RunAgentInput
	if err := decodeJSON(r, &input); err != nil {
		s.logger.Warn("invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prepared, err := input.Prepare()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapper := agui.NewMapper(prepared.ThreadID, prepared.RunID)
	log := s.logger.With("thread_id", mapper.ThreadID(), "run_id", mapper.RunID())

	sse, err := newSSEWriter(w)
	if err != nil {
		log.Error("streaming not supported")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run, token := s.acquire(mapper.ThreadID())
	defer run.Unlock()
	defer watchDisconnect(r, token)()

	log.Info("request started", "prompt_length", len(prepared.Prompt))

	var eventCount int
	if err := sse.AGUI(mapper.RunStarted()); err != nil {
		token.Cancel()
	}
	for ev := range run.Agent.RunStream(context.WithoutCancel(r.Context()), prepared.Prompt, token) {
		for _, out := range mapper.MapEvent(ev) {
			if sse.Failed() {
				break
			}
			if err := sse.AGUI(out); err != nil {
				log.Info("client disconnected", "error", err, "event_type", out.Type())
				token.Cancel()
				break
			}
			eventCount++
		}
	}

	log.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", eventCount,
		"cancelled", token.Cancelled(),
	)
}
