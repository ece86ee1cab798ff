// Package miniagent holds the shared types of an autonomous, tool-using
// conversational agent: messages, tool calls and results, chat options and
// categorized errors.
//
// The agent loop itself lives in [github.com/spetersoncode/miniagent/agent].
// Provider access goes through [github.com/spetersoncode/miniagent/client],
// which returns a [github.com/spetersoncode/miniagent/chat.Client].
//
// # Basic Usage
//
//	c, err := client.New(ctx, client.Config{
//	    Provider: ai.ProviderAnthropic,
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := tool.NewRegistry().Add(tool.WorkspaceTools("./workspace")...)
//	a := agent.New(c, registry, "You are a helpful assistant.")
//
//	for ev := range a.RunStream(ctx, "Summarize notes.txt", nil) {
//	    fmt.Print(ev.Content)
//	}
//
// # Tool Results
//
// Tools never fail the run. A failed [ToolResult] is fed back to the model
// as "Error: <error>" and the loop continues:
//
//	result := ai.Failed("file not found: %s", path)
//	msg := ai.ToolMessage(call, result) // Content: "Error: file not found: ..."
//
// # Errors
//
// Provider errors are wrapped in [Error] with a category. Transient errors
// are retried by [github.com/spetersoncode/miniagent/retry]:
//
//	if ai.IsTransient(err) {
//	    // rate limit, overload, network failure
//	}
package miniagent
