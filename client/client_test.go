package client

import (
	"context"
	"errors"
	"testing"
	"time"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"github.com/spetersoncode/miniagent/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyClient fails its first `failures` calls with err.
type flakyClient struct {
	failures int
	err      error
	calls    int
	opts     ai.Options
}

func (f *flakyClient) Generate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (*ai.Response, error) {
	f.calls++
	f.opts = *ai.ApplyOptions(opts...)
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &ai.Response{Content: "ok", Usage: ai.Usage{InputTokens: 2, OutputTokens: 1}}, nil
}

func (f *flakyClient) StreamGenerate(ctx context.Context, messages []ai.Message, tools []ai.Tool, opts ...ai.Option) (<-chan chat.Chunk, error) {
	f.calls++
	ch := make(chan chat.Chunk, 3)
	if f.calls <= f.failures {
		ch <- chat.Chunk{Err: f.err}
	} else {
		ch <- chat.Chunk{Type: chat.ChunkContent, Delta: "o"}
		ch <- chat.Chunk{Type: chat.ChunkContent, Delta: "k"}
		ch <- chat.Chunk{Type: chat.ChunkDone, Response: &ai.Response{Content: "ok"}}
	}
	close(ch)
	return ch, nil
}

func fastRetry(attempts int) *retry.Config {
	return &retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

var errOverloaded = ai.NewStatusError("overloaded", 529, 0, nil)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: ai.ProviderOpenAI})
		var missing *ErrMissingAPIKey
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "no API key configured for openai", err.Error())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(ctx, Config{Provider: "acme", APIKey: "k"})
		var unsupported *ErrUnsupportedProvider
		require.ErrorAs(t, err, &unsupported)
	})

	for _, p := range []ai.Provider{ai.ProviderAnthropic, ai.ProviderOpenAI, ai.ProviderGoogle} {
		t.Run(p.String(), func(t *testing.T) {
			c, err := New(ctx, Config{Provider: p, APIKey: "k", Model: "m"})
			require.NoError(t, err)
			assert.Equal(t, p, c.Provider())
		})
	}
}

func TestGenerateRetries(t *testing.T) {
	t.Run("recovers from transient errors", func(t *testing.T) {
		inner := &flakyClient{failures: 2, err: errOverloaded}
		c := Wrap(inner, ai.ProviderAnthropic, fastRetry(3), nil)

		resp, err := c.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")}, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("exhaustion", func(t *testing.T) {
		inner := &flakyClient{failures: 5, err: errOverloaded}
		c := Wrap(inner, ai.ProviderAnthropic, fastRetry(3), nil)

		_, err := c.Generate(context.Background(), []ai.Message{ai.UserMessage("hi")}, nil)
		var exhausted *retry.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
		assert.ErrorIs(t, err, errOverloaded)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		denied := ai.NewStatusError("denied", 401, 0, nil)
		inner := &flakyClient{failures: 5, err: denied}
		c := Wrap(inner, ai.ProviderOpenAI, fastRetry(3), nil)

		_, err := c.Generate(context.Background(), nil, nil)
		assert.ErrorIs(t, err, denied)
		assert.Equal(t, 1, inner.calls)
	})
}

func TestStreamGenerateRetriesFirstChunk(t *testing.T) {
	inner := &flakyClient{failures: 1, err: errOverloaded}
	c := Wrap(inner, ai.ProviderOpenAI, fastRetry(3), nil)

	chunks, err := c.StreamGenerate(context.Background(), []ai.Message{ai.UserMessage("hi")}, nil)
	require.NoError(t, err)

	resp, err := chat.Collect(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, inner.calls)
}

func TestStreamGenerateExhausted(t *testing.T) {
	inner := &flakyClient{failures: 5, err: errOverloaded}
	c := Wrap(inner, ai.ProviderOpenAI, fastRetry(2), nil)

	_, err := c.StreamGenerate(context.Background(), nil, nil)
	var exhausted *retry.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 2, exhausted.Attempts)
}

func TestDefaultOptions(t *testing.T) {
	inner := &flakyClient{}
	c := Wrap(inner, ai.ProviderOpenAI, nil, nil, WithDefaultMaxTokens(100), WithDefaultTemperature(0.2))

	_, err := c.Generate(context.Background(), nil, nil, ai.WithMaxTokens(10))
	require.NoError(t, err)
	assert.Equal(t, 10, inner.opts.MaxTokens, "request options override defaults")
	require.NotNil(t, inner.opts.Temperature)
	assert.InDelta(t, 0.2, *inner.opts.Temperature, 1e-9)
}

func TestEvents(t *testing.T) {
	events := make(chan Event, 100)
	inner := &flakyClient{failures: 1, err: errOverloaded}
	c := Wrap(inner, ai.ProviderGoogle, fastRetry(2), events)

	_, err := c.Generate(context.Background(), nil, nil)
	require.NoError(t, err)

	// start, five forwarded retry events, complete
	require.Eventually(t, func() bool { return len(events) >= 7 }, time.Second, time.Millisecond)
	close(events)

	var types []EventType
	var usage *ai.Usage
	for ev := range events {
		types = append(types, ev.Type)
		assert.Equal(t, ai.ProviderGoogle, ev.Provider)
		if ev.Type == EventRequestComplete {
			usage = ev.Usage
		}
	}
	assert.Equal(t, EventRequestStart, types[0])
	assert.Contains(t, types, EventRetry)
	assert.Contains(t, types, EventRequestComplete)
	require.NotNil(t, usage)
	assert.Equal(t, 3, usage.Total())
}
