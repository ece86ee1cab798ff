package retry

import (
	"context"
	"time"

	ai "github.com/spetersoncode/miniagent"
)

// effectiveDelay returns the delay to use, honoring the server's Retry-After
// when it is larger.
func effectiveDelay(configured time.Duration, err error) time.Duration {
	if server := ai.RetryAfterOf(err); server > configured {
		return server
	}
	return configured
}

// Do executes fn with retry logic and returns its first successful result.
//
// Non-transient errors are returned unchanged without retrying. When every
// attempt fails with a transient error and retries are enabled, the result
// is an *ExhaustedError. Context cancellation during a backoff wait returns
// ctx.Err().
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoStream is like Do but for functions that return a channel.
// It retries the stream connection establishment, not individual chunks.
func DoStream[T any](ctx context.Context, cfg Config, fn func() (<-chan T, error)) (<-chan T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoStreamWithEvents is like DoStream but emits events for observability.
func DoStreamWithEvents[T any](ctx context.Context, cfg Config, events chan<- Event, fn func() (<-chan T, error)) (<-chan T, error) {
	return DoWithEvents(ctx, cfg, events, fn)
}

// DoWithEvents is like Do but emits events for observability.
// Events are sent non-blocking; if the channel is full, events are dropped.
// Pass nil for events to disable event emission.
func DoWithEvents[T any](ctx context.Context, cfg Config, events chan<- Event, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		emit(events, Event{Type: EventAttemptStart, Attempt: attempt + 1, MaxAttempts: attempts})

		result, err := fn()
		if err == nil {
			emit(events, Event{Type: EventSuccess, Attempt: attempt + 1, MaxAttempts: attempts})
			return result, nil
		}

		lastErr = err
		retryable := IsTransient(err)

		emit(events, Event{
			Type:        EventAttemptFailed,
			Attempt:     attempt + 1,
			MaxAttempts: attempts,
			Error:       err,
			Retryable:   retryable,
		})

		if !retryable {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < attempts-1 {
			delay := effectiveDelay(cfg.Delay(attempt), err)
			emit(events, Event{Type: EventRetrying, Attempt: attempt + 1, MaxAttempts: attempts, Delay: delay})

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	emit(events, Event{Type: EventExhausted, Attempt: attempts, MaxAttempts: attempts, Error: lastErr})

	if attempts == 1 {
		return zero, lastErr
	}
	return zero, &ExhaustedError{Attempts: attempts, Last: lastErr}
}
