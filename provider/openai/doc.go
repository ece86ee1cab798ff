// Package openai implements chat.Client on the OpenAI chat completions API.
//
// # Compatible Endpoints
//
// Any OpenAI-compatible server can be used through WithBaseURL:
//
//	c := openai.New(apiKey,
//	    openai.WithBaseURL("https://api.deepseek.com/v1"),
//	    openai.WithModel("deepseek-chat"),
//	)
//
// Reasoning text that such endpoints return in a reasoning_content field is
// surfaced as thinking chunks and as Response.Thinking.
//
// # Deep Think
//
// With ai.WithDeepThink the request sets reasoning_effort, derived from the
// thinking budget, for reasoning models.
//
// # Streaming
//
// StreamGenerate accumulates the streamed deltas with the SDK's
// ChatCompletionAccumulator. Tool call arguments are streamed as
// tool_call_args chunks and parsed once the stream completes.
//
// # Retries
//
// SDK retries are disabled; wrap the client with client.Wrap or build it
// with client.New to apply a retry policy.
package openai
