// Package agui projects agent events onto the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an open, lightweight, event-based protocol
// that standardizes how AI agents connect to user-facing applications. This
// package converts the agent's stream into AG-UI events so that AG-UI
// frontends can drive the agent.
//
// The package does NOT provide HTTP handlers. The server in cmd/serve
// writes the mapped events with its own SSE writer.
//
// # Usage
//
//	mapper := agui.NewMapper(threadID, runID)
//	writeEvent(mapper.RunStarted())
//	for ev := range a.RunStream(ctx, prompt, token) {
//	    for _, out := range mapper.MapEvent(ev) {
//	        writeEvent(out)
//	    }
//	}
//
// # Event Mapping
//
//   - assistant_start → STEP_FINISHED for the previous step, STEP_STARTED
//   - content → TEXT_MESSAGE_START (on the first fragment), TEXT_MESSAGE_CONTENT
//   - tool_call → TEXT_MESSAGE_END (if open), TOOL_CALL_START, TOOL_CALL_ARGS, TOOL_CALL_END
//   - tool_result → TOOL_CALL_RESULT
//   - done → RUN_FINISHED; error → RUN_ERROR
//
// # Thread Safety
//
// The Mapper is NOT safe for concurrent use. Message conversion functions
// are stateless and safe for concurrent use.
package agui
