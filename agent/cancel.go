package agent

import (
	"context"
	"sync"
	"time"
)

// DisconnectPollInterval is how often WatchContext checks its context.
const DisconnectPollInterval = 500 * time.Millisecond

// CancelToken is a cooperative cancellation signal shared between a run and
// whoever may stop it. The agent checks it at the top of every step, after
// the model call and after every tool result.
//
// Cancel is idempotent and safe to call from any goroutine.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken creates an unsignalled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel signals the token. Calls after the first have no effect.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the token is cancelled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// WatchContext cancels the token when ctx ends, checking every
// DisconnectPollInterval. It returns when either ctx ends or the token is
// cancelled by someone else, so it is meant to run in its own goroutine.
//
// Servers use it to turn a client disconnect into a cancellation.
func (t *CancelToken) WatchContext(ctx context.Context) {
	ticker := time.NewTicker(DisconnectPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Cancel()
			return
		case <-t.done:
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				t.Cancel()
				return
			}
		}
	}
}

// Context derives a context from parent that is cancelled when the token is.
// The returned CancelFunc releases the watcher and must be called.
func (t *CancelToken) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
