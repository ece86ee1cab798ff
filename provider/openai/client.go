package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
)

// DefaultModel is used when neither the client nor the request names a model.
const DefaultModel = "gpt-4o"

// Client wraps the OpenAI SDK to implement chat.Client.
type Client struct {
	client openai.Client
	model  string
}

// ClientOption configures the OpenAI client.
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

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// New creates a new OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	// Retries belong to the retry package, so the SDK's own are disabled.
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Client{
		client: openai.NewClient(reqOpts...),
		model:  cfg.model,
	}
}

func (c *Client) params(messages []ai.Message, tools []ai.Tool, opts []ai.Option) openai.ChatCompletionNewParams {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: convertMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	if options.DeepThink {
		params.ReasoningEffort = reasoningEffort(options.ThinkingBudget)
	}
	return params
}

// reasoningEffort maps a thinking budget onto OpenAI's effort levels.
func reasoningEffort(budget int) shared.ReasoningEffort {
	switch {
	case budget <= 0:
		return shared.ReasoningEffortMedium
	case budget <= 2048:
		return shared.ReasoningEffortLow
	case budget <= 8192:
		return shared.ReasoningEffortMedium
	default:
		return shared.ReasoningEffortHigh
	}
}

// Generate sends a conversation and returns a complete response.
func (c *Client) Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages, tools, opts))
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.NewTransientError("openai: response has no choices", 0, nil)
	}

	choice := resp.Choices[0]
	return &ai.Response{
		Content:      choice.Message.Content,
		Thinking:     reasoningText(choice.Message.JSON.ExtraFields),
		FinishReason: string(choice.FinishReason),
		Usage: ai.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		ToolCalls: extractToolCalls(choice.Message.ToolCalls),
	}, nil
}

// StreamGenerate sends a conversation and returns a channel of chunks.
func (c *Client) StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan chat.Chunk, error) {
	params := c.params(messages, tools, opts)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
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

		var acc openai.ChatCompletionAccumulator
		var thinking []byte

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if r := reasoningText(delta.JSON.ExtraFields); r != "" {
				thinking = append(thinking, r...)
				if !send(chat.Chunk{Type: chat.ChunkThinking, Delta: r}) {
					return
				}
			}
			if delta.Content != "" {
				if !send(chat.Chunk{Type: chat.ChunkContent, Delta: delta.Content}) {
					return
				}
			}
			for _, tc := range delta.ToolCalls {
				if tc.ID != "" {
					if !send(chat.Chunk{Type: chat.ChunkToolCallStart, ToolCall: &ai.ToolCall{ID: tc.ID, Name: tc.Function.Name}}) {
						return
					}
				}
				if tc.Function.Arguments != "" {
					if !send(chat.Chunk{Type: chat.ChunkToolCallArgs, Delta: tc.Function.Arguments, ToolCall: &ai.ToolCall{ID: tc.ID}}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(chat.Chunk{Err: wrapError(err)})
			return
		}
		if len(acc.Choices) == 0 {
			send(chat.Chunk{Err: chat.ErrStreamClosed})
			return
		}

		completion := acc.Choices[0]
		send(chat.Chunk{
			Type: chat.ChunkDone,
			Response: &ai.Response{
				Content:      completion.Message.Content,
				Thinking:     string(thinking),
				FinishReason: string(completion.FinishReason),
				Usage: ai.Usage{
					InputTokens:  int(acc.Usage.PromptTokens),
					OutputTokens: int(acc.Usage.CompletionTokens),
					TotalTokens:  int(acc.Usage.TotalTokens),
				},
				ToolCalls: extractToolCalls(completion.Message.ToolCalls),
			},
		})
	}()

	return ch, nil
}

var _ chat.Client = (*Client)(nil)
