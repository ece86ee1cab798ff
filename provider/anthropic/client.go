// Package anthropic implements chat.Client on the Anthropic Messages API.
//
// Deep-think requests enable extended thinking. Thinking blocks are streamed
// as thinking chunks and replayed, with their signatures, on later requests.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
)

const (
	// DefaultModel is used when neither the client nor the request names a model.
	DefaultModel = "claude-sonnet-4-5"

	defaultMaxTokens      = 4096
	defaultThinkingBudget = 8192
	// minThinkingBudget is the smallest budget the API accepts.
	minThinkingBudget = 1024
)

// Client wraps the Anthropic SDK to implement chat.Client.
type Client struct {
	client anthropic.Client
	model  string
}

// ClientOption configures the Anthropic client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	model   string
	baseURL string
}

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// New creates a new Anthropic client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Client{
		client: anthropic.NewClient(reqOpts...),
		model:  cfg.model,
	}
}

func (c *Client) params(messages []ai.Message, tools []ai.Tool, opts []ai.Option) anthropic.MessageNewParams {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	maxTokens := int64(defaultMaxTokens)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:    anthropic.Model(model),
		Messages: msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	if options.DeepThink {
		budget := int64(options.ThinkingBudget)
		if budget <= 0 {
			budget = defaultThinkingBudget
		}
		budget = max(budget, minThinkingBudget)
		// The thinking budget counts against max_tokens.
		if maxTokens <= budget {
			maxTokens = budget + defaultMaxTokens
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	} else if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}
	params.MaxTokens = maxTokens
	return params
}

// Generate sends a conversation and returns a complete response.
func (c *Client) Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error) {
	resp, err := c.client.Messages.New(ctx, c.params(messages, tools, opts))
	if err != nil {
		return nil, wrapError(err)
	}
	return convertResponse(resp), nil
}

// StreamGenerate sends a conversation and returns a channel of chunks.
func (c *Client) StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan chat.Chunk, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(messages, tools, opts))
	ch := make(chan chat.Chunk)

	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(chunk chat.Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var acc anthropic.Message
		toolIDs := map[int64]string{}

		for stream.Next() {
			ev := stream.Current()
			if err := acc.Accumulate(ev); err != nil {
				send(chat.Chunk{Err: err})
				return
			}

			var chunk chat.Chunk
			switch variant := ev.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if variant.ContentBlock.Type != "tool_use" {
					continue
				}
				toolIDs[variant.Index] = variant.ContentBlock.ID
				chunk = chat.Chunk{
					Type:     chat.ChunkToolCallStart,
					ToolCall: &ai.ToolCall{ID: variant.ContentBlock.ID, Name: variant.ContentBlock.Name},
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					chunk = chat.Chunk{Type: chat.ChunkContent, Delta: delta.Text}
				case anthropic.ThinkingDelta:
					chunk = chat.Chunk{Type: chat.ChunkThinking, Delta: delta.Thinking}
				case anthropic.InputJSONDelta:
					chunk = chat.Chunk{
						Type:     chat.ChunkToolCallArgs,
						Delta:    delta.PartialJSON,
						ToolCall: &ai.ToolCall{ID: toolIDs[variant.Index]},
					}
				default:
					continue
				}
				if chunk.Delta == "" {
					continue
				}
			default:
				continue
			}
			if !send(chunk) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			send(chat.Chunk{Err: wrapError(err)})
			return
		}

		send(chat.Chunk{Type: chat.ChunkDone, Response: convertResponse(&acc)})
	}()

	return ch, nil
}

// convertResponse flattens a message's content blocks into a Response.
func convertResponse(msg *anthropic.Message) *ai.Response {
	resp := &ai.Response{
		FinishReason: string(msg.StopReason),
		Usage: ai.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "thinking":
			resp.Thinking += block.Thinking
			if block.Signature != "" {
				resp.ThinkingSignature = block.Signature
			}
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, toolCall(block))
		}
	}
	return resp
}

var _ chat.Client = (*Client)(nil)
