// Package agent runs the step loop of a tool-using conversation.
//
// Each run appends a user message and then repeats, for at most MaxSteps
// steps: check the cancel token, summarize the history if it is over the
// token limit, stream one model response, and dispatch the tool calls it
// requests in order. The run ends when the model answers without tool
// calls, when the token is cancelled, when the step limit is reached or
// when the model cannot be reached.
//
// # Basic Usage
//
//	a := agent.New(client, registry, systemPrompt,
//	    agent.WithMaxSteps(50),
//	    agent.WithTokenLimit(80000),
//	)
//
//	for ev := range a.RunStream(ctx, "List the files here", nil) {
//	    switch ev.Type {
//	    case event.Content:
//	        fmt.Print(ev.Content)
//	    case event.ToolCall:
//	        fmt.Printf("\n[%s]\n", ev.ToolName)
//	    case event.Error:
//	        fmt.Println("\n" + ev.Content)
//	    }
//	}
//
// # Cancellation
//
// A [CancelToken] may be cancelled from any goroutine. The run notices it at
// the next check, removes the interrupted assistant message and its tool
// results from the history, and ends with an error event whose reason is
// "cancelled":
//
//	token := agent.NewCancelToken()
//	go token.WatchContext(r.Context())
//	events := a.RunStream(context.WithoutCancel(r.Context()), msg, token)
//
// # Sessions
//
// [Sessions] caches one Agent per conversation. Runs on the same session
// must be serialized with [Session.Lock].
package agent
