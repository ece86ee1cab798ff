package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelTokenIdempotent(t *testing.T) {
	token := NewCancelToken()
	assert.False(t, token.Cancelled())

	token.Cancel()
	token.Cancel()

	assert.True(t, token.Cancelled())
	select {
	case <-token.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestCancelTokenWatchContext(t *testing.T) {
	token := NewCancelToken()
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		token.WatchContext(ctx)
		close(finished)
	}()

	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not return")
	}
	assert.True(t, token.Cancelled())
}

func TestCancelTokenWatchReturnsOnCancel(t *testing.T) {
	token := NewCancelToken()

	finished := make(chan struct{})
	go func() {
		token.WatchContext(context.Background())
		close(finished)
	}()

	token.Cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not return")
	}
}

func TestCancelTokenContext(t *testing.T) {
	token := NewCancelToken()
	ctx, stop := token.Context(context.Background())
	defer stop()

	require.NoError(t, ctx.Err())
	token.Cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("derived context was not cancelled")
	}
}
