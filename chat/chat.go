// Package chat defines the language-model client interface the agent talks
// to, together with the chunk type used for streamed responses.
//
// Provider implementations live under provider/, and
// [github.com/spetersoncode/miniagent/client.New] wraps them with a retry
// policy.
package chat

import (
	"context"

	ai "github.com/spetersoncode/miniagent"
)

// ChunkType identifies the kind of streamed chunk.
type ChunkType string

const (
	// ChunkThinking carries a fragment of reasoning output.
	ChunkThinking ChunkType = "thinking"

	// ChunkContent carries a fragment of assistant content.
	ChunkContent ChunkType = "content"

	// ChunkToolCallStart announces a tool call. ToolCall carries id and name.
	ChunkToolCallStart ChunkType = "tool_call_start"

	// ChunkToolCallArgs carries a fragment of a tool call's JSON arguments.
	ChunkToolCallArgs ChunkType = "tool_call_args"

	// ChunkDone ends the stream. Response holds the accumulated response.
	ChunkDone ChunkType = "done"
)

// Chunk is one element of a streamed model response.
type Chunk struct {
	Type ChunkType

	// Delta is the text fragment for thinking, content and tool_call_args chunks.
	Delta string

	// ToolCall identifies the call for tool_call_start and tool_call_args chunks.
	// Arguments are only populated on the final Response.
	ToolCall *ai.ToolCall

	// Response is set on the done chunk.
	Response *ai.Response

	// Err reports a failure mid-stream. The chunk carrying it is the last one.
	Err error
}

// Client is a language-model client.
type Client interface {
	// Generate sends the conversation and returns the complete response.
	Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error)

	// StreamGenerate sends the conversation and returns a channel of chunks.
	// The channel is closed after a done chunk or a chunk carrying Err.
	StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan Chunk, error)
}

// Collect drains a chunk stream and returns the final response. It is the
// blocking counterpart of StreamGenerate for callers that want both.
func Collect(ctx context.Context, chunks <-chan Chunk) (*ai.Response, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				return nil, ErrStreamClosed
			}
			if c.Err != nil {
				return nil, c.Err
			}
			if c.Type == ChunkDone {
				return c.Response, nil
			}
		}
	}
}
