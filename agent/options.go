package agent

import (
	"log/slog"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/budget"
	"github.com/spetersoncode/miniagent/chat"
)

// Default limits.
const (
	DefaultMaxSteps   = 50
	DefaultTokenLimit = 80000
)

// Estimator approximates the token count of a history.
// [*budget.Estimator] is the standard implementation.
type Estimator interface {
	Estimate(messages []ai.Message) int
}

// Options contains configuration for an Agent.
type Options struct {
	// MaxSteps limits the number of model calls per run. Default is 50.
	MaxSteps int

	// TokenLimit is the history size above which completed rounds are
	// summarized. Default is 80000.
	TokenLimit int

	// Estimator counts history tokens before each step.
	// Default is the shared cl100k_base estimator, budget.Default.
	Estimator Estimator

	// Logger receives step and summarization logs. Default discards.
	Logger *slog.Logger

	// ChatOptions are passed through to every model call of a run.
	ChatOptions []ai.Option

	// SummaryClient makes the summarization calls. Defaults to the
	// agent's own client.
	SummaryClient chat.Client

	// Workspace is the absolute workspace directory announced in the
	// system prompt. Empty leaves the prompt untouched.
	Workspace string
}

// Option is a functional option for configuring an Agent.
type Option func(*Options)

// WithMaxSteps sets the maximum number of steps per run.
func WithMaxSteps(n int) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithTokenLimit sets the summarization threshold.
func WithTokenLimit(n int) Option {
	return func(o *Options) {
		o.TokenLimit = n
	}
}

// WithEstimator replaces the token estimator.
func WithEstimator(e Estimator) Option {
	return func(o *Options) {
		o.Estimator = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithChatOptions passes options through to the chat client.
// These options are applied to every model call the agent makes.
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithModel is a convenience option to set the model for chat calls.
func WithModel(model string) Option {
	return WithChatOptions(ai.WithModel(model))
}

// WithDeepThink is a convenience option that asks the model for reasoning
// output with the given token budget.
func WithDeepThink(budget int) Option {
	return WithChatOptions(ai.WithDeepThink(budget))
}

// WithSummaryClient sets a separate client for summarization calls.
func WithSummaryClient(c chat.Client) Option {
	return func(o *Options) {
		o.SummaryClient = c
	}
}

// WithWorkspace names the workspace directory in the system prompt.
func WithWorkspace(dir string) Option {
	return func(o *Options) {
		o.Workspace = dir
	}
}

// ApplyOptions applies functional options to an Options struct with defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		MaxSteps:   DefaultMaxSteps,
		TokenLimit: DefaultTokenLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Estimator == nil {
		o.Estimator = budget.Default()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
