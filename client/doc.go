// Package client builds a provider-backed chat.Client and wraps it with a
// retry policy.
//
//	c, err := client.New(ctx, client.Config{
//	    Provider: ai.ProviderAnthropic,
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	})
//
// Transient failures (rate limits, overload, 5xx, network errors) are
// retried with exponential backoff. When every attempt fails the error is a
// *retry.ExhaustedError carrying the attempt count and the last error.
//
// # Events
//
// An optional Events channel receives request start, completion, error and
// retry events. Sends never block; a full channel drops events.
package client
