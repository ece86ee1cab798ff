package client

import (
	"context"
	"fmt"
	"time"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"github.com/spetersoncode/miniagent/provider/anthropic"
	"github.com/spetersoncode/miniagent/provider/google"
	"github.com/spetersoncode/miniagent/provider/openai"
	"github.com/spetersoncode/miniagent/retry"
)

// Config holds configuration for creating a client.
type Config struct {
	// Provider selects the backend: anthropic, openai or google.
	Provider ai.Provider

	// APIKey authenticates against the provider.
	APIKey string

	// APIBase overrides the provider endpoint. With the openai provider it
	// targets any OpenAI-compatible server.
	APIBase string

	// Model is the default model. Empty uses the provider's default.
	Model string

	// RetryConfig configures retry behavior for transient errors.
	// If nil, uses default retry configuration (10 attempts with exponential backoff).
	RetryConfig *retry.Config

	// Events is an optional channel for receiving client operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event
}

// ErrMissingAPIKey is returned when no API key is configured for the provider.
type ErrMissingAPIKey struct {
	Provider string
}

func (e *ErrMissingAPIKey) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrUnsupportedProvider is returned for a provider name New does not know.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported provider: %q", e.Provider)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDefaultTemperature sets the default temperature for chat requests.
// Per-request options override this default.
func WithDefaultTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.defaultOpts = append(c.defaultOpts, ai.WithTemperature(t))
	}
}

// WithDefaultMaxTokens sets the default max tokens for chat requests.
// Per-request options override this default.
func WithDefaultMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.defaultOpts = append(c.defaultOpts, ai.WithMaxTokens(n))
	}
}

// WithDefaultChatOptions sets default options for all chat requests.
// Per-request options override these defaults.
func WithDefaultChatOptions(opts ...ai.Option) ClientOption {
	return func(c *Client) {
		c.defaultOpts = append(c.defaultOpts, opts...)
	}
}

// Client wraps a provider with a retry policy and event emission.
type Client struct {
	inner       chat.Client
	provider    ai.Provider
	retryConfig retry.Config
	events      chan<- Event
	defaultOpts []ai.Option
}

// New builds the provider client named by cfg and wraps it with the
// configured retry policy.
func New(ctx context.Context, cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &ErrMissingAPIKey{Provider: cfg.Provider.String()}
	}

	var inner chat.Client
	switch cfg.Provider {
	case ai.ProviderAnthropic:
		var popts []anthropic.ClientOption
		if cfg.Model != "" {
			popts = append(popts, anthropic.WithModel(cfg.Model))
		}
		if cfg.APIBase != "" {
			popts = append(popts, anthropic.WithBaseURL(cfg.APIBase))
		}
		inner = anthropic.New(cfg.APIKey, popts...)
	case ai.ProviderOpenAI:
		var popts []openai.ClientOption
		if cfg.Model != "" {
			popts = append(popts, openai.WithModel(cfg.Model))
		}
		if cfg.APIBase != "" {
			popts = append(popts, openai.WithBaseURL(cfg.APIBase))
		}
		inner = openai.New(cfg.APIKey, popts...)
	case ai.ProviderGoogle:
		var popts []google.ClientOption
		if cfg.Model != "" {
			popts = append(popts, google.WithModel(cfg.Model))
		}
		if cfg.APIBase != "" {
			popts = append(popts, google.WithBaseURL(cfg.APIBase))
		}
		g, err := google.New(ctx, cfg.APIKey, popts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google client: %w", err)
		}
		inner = g
	default:
		return nil, &ErrUnsupportedProvider{Provider: cfg.Provider.String()}
	}

	return Wrap(inner, cfg.Provider, cfg.RetryConfig, cfg.Events, opts...), nil
}

// Wrap adds retries and events to an existing chat.Client. A nil retryConfig
// uses retry.DefaultConfig.
func Wrap(inner chat.Client, provider ai.Provider, retryConfig *retry.Config, events chan<- Event, opts ...ClientOption) *Client {
	rc := retry.DefaultConfig()
	if retryConfig != nil {
		rc = *retryConfig
	}
	c := &Client{
		inner:       inner,
		provider:    provider,
		retryConfig: rc,
		events:      events,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the backend this client talks to.
func (c *Client) Provider() ai.Provider {
	return c.provider
}

// Generate sends a conversation and returns a complete response.
// Transient errors are retried according to the client's retry configuration.
func (c *Client) Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error) {
	opts = append(append([]ai.Option{}, c.defaultOpts...), opts...)

	start := time.Now()
	emit(c.events, Event{Type: EventRequestStart, Operation: "generate", Provider: c.provider})

	retryEvents, done := c.retryEvents("generate")
	resp, err := retry.DoWithEvents(ctx, c.retryConfig, retryEvents, func() (*ai.Response, error) {
		return c.inner.Generate(ctx, messages, tools, opts...)
	})
	done()

	if err != nil {
		emit(c.events, Event{
			Type:      EventRequestError,
			Operation: "generate",
			Provider:  c.provider,
			Duration:  time.Since(start),
			Error:     err,
		})
		return nil, err
	}

	emit(c.events, Event{
		Type:      EventRequestComplete,
		Operation: "generate",
		Provider:  c.provider,
		Duration:  time.Since(start),
		Usage:     &resp.Usage,
	})
	return resp, nil
}

// StreamGenerate sends a conversation and returns a channel of chunks.
//
// A stream is retried while it has produced nothing: an error on the first
// chunk counts as a failed attempt. Once a chunk has been delivered, later
// errors pass through to the caller.
func (c *Client) StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan chat.Chunk, error) {
	opts = append(append([]ai.Option{}, c.defaultOpts...), opts...)

	start := time.Now()
	emit(c.events, Event{Type: EventRequestStart, Operation: "stream_generate", Provider: c.provider})

	retryEvents, done := c.retryEvents("stream_generate")
	ch, err := retry.DoStreamWithEvents(ctx, c.retryConfig, retryEvents, func() (<-chan chat.Chunk, error) {
		return c.open(ctx, messages, tools, opts)
	})
	done()

	if err != nil {
		emit(c.events, Event{
			Type:      EventRequestError,
			Operation: "stream_generate",
			Provider:  c.provider,
			Duration:  time.Since(start),
			Error:     err,
		})
		return nil, err
	}

	emit(c.events, Event{
		Type:      EventRequestComplete,
		Operation: "stream_generate",
		Provider:  c.provider,
		Duration:  time.Since(start),
	})
	return ch, nil
}

// open starts a stream and waits for its first chunk so that failures to
// connect surface as errors the retry loop can see.
func (c *Client) open(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts []ai.Option) (<-chan chat.Chunk, error) {
	src, err := c.inner.StreamGenerate(ctx, messages, tools, opts...)
	if err != nil {
		return nil, err
	}

	var first chat.Chunk
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case chunk, ok := <-src:
		if !ok {
			return nil, chat.ErrStreamClosed
		}
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		first = chunk
	}

	out := make(chan chat.Chunk)
	go func() {
		defer close(out)
		chunk := first
		for {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			var ok bool
			if chunk, ok = <-src; !ok {
				return
			}
		}
	}()
	return out, nil
}

// retryEvents returns a channel forwarding retry events to the client's
// event channel, and a func that stops the forwarding.
func (c *Client) retryEvents(operation string) (chan<- retry.Event, func()) {
	if c.events == nil {
		return nil, func() {}
	}
	ch := make(chan retry.Event, 10)
	go c.forwardRetryEvents(ch, operation)
	return ch, func() { close(ch) }
}

// forwardRetryEvents reads from a retry events channel and forwards events
// to the client's event channel as EventRetry events.
func (c *Client) forwardRetryEvents(retryEvents <-chan retry.Event, operation string) {
	for re := range retryEvents {
		emit(c.events, Event{
			Type:       EventRetry,
			Operation:  operation,
			Provider:   c.provider,
			RetryEvent: &re,
		})
	}
}

var _ chat.Client = (*Client)(nil)
