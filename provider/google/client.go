package google

import (
	"context"
	"fmt"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"google.golang.org/genai"
)

const (
	// DefaultModel is used when neither the client nor the request names a model.
	DefaultModel = "gemini-2.5-flash"

	defaultThinkingBudget = 8192
)

// Client wraps the Google GenAI SDK to implement chat.Client.
type Client struct {
	client *genai.Client
	model  string
}

// ClientOption configures the Google client.
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

// New creates a new Gemini API client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client, model: cfg.model}, nil
}

func (c *Client) request(messages []ai.Message, tools []ai.Tool, opts []ai.Option) (string, []*genai.Content, *genai.GenerateContentConfig) {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	contents, system := convertMessages(messages)
	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if len(tools) > 0 {
		config.Tools = convertTools(tools)
	}
	if options.DeepThink {
		budget := int32(options.ThinkingBudget)
		if budget <= 0 {
			budget = defaultThinkingBudget
		}
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  &budget,
		}
	}
	return model, contents, config
}

// Generate sends a conversation and returns a complete response.
func (c *Client) Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error) {
	model, contents, config := c.request(messages, tools, opts)
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}
	if err := blocked(resp); err != nil {
		return nil, err
	}

	var acc accumulator
	acc.add(resp)
	return acc.response(), nil
}

// StreamGenerate sends a conversation and returns a channel of chunks.
func (c *Client) StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan chat.Chunk, error) {
	model, contents, config := c.request(messages, tools, opts)
	ch := make(chan chat.Chunk)

	go func() {
		defer close(ch)

		send := func(chunk chat.Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var acc accumulator
		var iterCount int

		for resp, err := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
			iterCount++
			if err != nil {
				send(chat.Chunk{Err: wrapError(err)})
				return
			}
			if err := blocked(resp); err != nil {
				send(chat.Chunk{Err: err})
				return
			}

			for _, chunk := range acc.add(resp) {
				if !send(chunk) {
					return
				}
			}
		}

		if iterCount == 0 {
			send(chat.Chunk{Err: fmt.Errorf("google: stream returned no data")})
			return
		}

		send(chat.Chunk{Type: chat.ChunkDone, Response: acc.response()})
	}()

	return ch, nil
}

// BlockedError is returned when the prompt is rejected by safety filters.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked: %s", e.Reason)
}

func blocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)}
	}
	return nil
}

var _ chat.Client = (*Client)(nil)
