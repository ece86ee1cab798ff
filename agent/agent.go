package agent

import (
	"context"
	"slices"
	"strings"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
	"github.com/spetersoncode/miniagent/event"
	"github.com/spetersoncode/miniagent/tool"
)

// Agent runs a conversation in which the model may call tools. It keeps the
// history between runs, so an Agent belongs to a single conversation and
// runs on it must not overlap.
type Agent struct {
	client     chat.Client
	registry   *tool.Registry
	options    *Options
	conv       *conversation
	summarizer *summarizer
}

// New creates an Agent with the given chat client, tool registry and system
// prompt. A nil registry means no tools.
func New(c chat.Client, registry *tool.Registry, systemPrompt string, opts ...Option) *Agent {
	options := ApplyOptions(opts...)
	if registry == nil {
		registry = tool.NewRegistry()
	}
	summaryClient := options.SummaryClient
	if summaryClient == nil {
		summaryClient = c
	}
	return &Agent{
		client:   c,
		registry: registry,
		options:  options,
		conv:     newConversation(withWorkspace(systemPrompt, options.Workspace)),
		summarizer: &summarizer{
			client: summaryClient,
			opts:   options.ChatOptions,
			logger: options.Logger,
		},
	}
}

// Messages returns a copy of the conversation history.
func (a *Agent) Messages() []ai.Message {
	return a.conv.history.Messages()
}

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tool.Registry {
	return a.registry
}

// Run executes a run to completion and returns its result. opts are added
// to the agent's chat options for this run's model calls only.
// A model failure is returned as *LLMError. Cancellation and the step limit
// are not errors; they are reported through Result.Termination.
func (a *Agent) Run(ctx context.Context, userMessage string, token *CancelToken, opts ...ai.Option) (*Result, error) {
	ch := event.NewChannel()
	var out outcome
	go func() {
		defer close(ch)
		out = a.run(ctx, userMessage, token, ch, opts)
	}()

	rec := event.NewRecorder()
	for ev := range ch {
		rec.Record(ev)
	}

	result := &Result{
		Content:     rec.Content(),
		Thinking:    rec.Thinking(),
		Blocks:      rec.Blocks(),
		Steps:       out.steps,
		ToolCalls:   out.toolCalls,
		Termination: TerminationComplete,
		Usage:       out.usage,
	}
	if final := rec.Final(); final != nil && final.Type == event.Error {
		result.Termination = reasonOf(*final)
		result.Message = final.Content
	}
	if out.err != nil {
		return result, &LLMError{Err: out.err}
	}
	if err := ctx.Err(); err != nil && !rec.Finished() {
		result.Termination = TerminationCancelled
		result.Message = CancelledMessage
		return result, err
	}
	return result, nil
}

// RunStream executes a run and returns a channel of its events.
// The channel is closed after the terminal done or error event. Sends block
// until the caller receives, so the channel must be drained; if ctx ends
// first the remaining events are abandoned. opts apply as in Run.
func (a *Agent) RunStream(ctx context.Context, userMessage string, token *CancelToken, opts ...ai.Option) <-chan event.Event {
	ch := event.NewChannel()
	go func() {
		defer close(ch)
		a.run(ctx, userMessage, token, ch, opts)
	}()
	return ch
}

// outcome summarizes a finished run for Run.
type outcome struct {
	steps     int
	toolCalls int
	usage     ai.Usage
	err       error
}

// runState carries the per-run bookkeeping of the step loop.
type runState struct {
	ctx    context.Context
	reqCtx context.Context
	token  *CancelToken
	ch     chan<- event.Event
	anchor string
	opts   []ai.Option

	content  strings.Builder
	thinking strings.Builder
	out      outcome
}

func (s *runState) emit(e event.Event) bool {
	return event.Emit(s.ctx, s.ch, e)
}

func (s *runState) cancelled() bool {
	return s.token.Cancelled() || s.ctx.Err() != nil
}

func (a *Agent) run(ctx context.Context, userMessage string, token *CancelToken, ch chan<- event.Event, opts []ai.Option) outcome {
	if token == nil {
		token = NewCancelToken()
	}
	reqCtx, stop := token.Context(ctx)
	defer stop()

	user := ai.UserMessage(userMessage)
	user.ID = ai.NewMessageID()
	a.conv.history.Append(user)

	s := &runState{
		ctx:    ctx,
		reqCtx: reqCtx,
		token:  token,
		ch:     ch,
		anchor: user.ID,
		opts:   append(slices.Clip(a.options.ChatOptions), opts...),
	}
	log := a.options.Logger

	for step := 0; step < a.options.MaxSteps; step++ {
		if s.cancelled() {
			a.cancel(s)
			return s.out
		}

		a.checkBudget(reqCtx)

		log.Debug("step started", "step", step+1, "max_steps", a.options.MaxSteps)
		s.out.steps = step + 1

		resp, err := a.callModel(s)
		if err != nil {
			if s.cancelled() {
				a.cancel(s)
				return s.out
			}
			log.Debug("model call failed", "step", step+1, "error", err)
			s.out.err = err
			s.emit(event.Event{Type: event.Error, Content: llmFailureMessage(err), Reason: event.ReasonLLMFailed})
			return s.out
		}

		a.conv.history.Append(ai.Message{
			ID:                ai.NewMessageID(),
			Role:              ai.RoleAssistant,
			Content:           resp.Content,
			Thinking:          resp.Thinking,
			ThinkingSignature: resp.ThinkingSignature,
			ToolCalls:         resp.ToolCalls,
		})
		a.conv.setAPIReported(resp.Usage.Total())
		s.out.usage.InputTokens += resp.Usage.InputTokens
		s.out.usage.OutputTokens += resp.Usage.OutputTokens
		s.out.usage.TotalTokens += resp.Usage.Total()

		if s.cancelled() {
			a.cancel(s)
			return s.out
		}

		if len(resp.ToolCalls) == 0 {
			log.Debug("run complete", "steps", step+1, "tool_calls", s.out.toolCalls)
			s.emit(event.Event{
				Type:      event.Done,
				Content:   s.content.String(),
				Thinking:  s.thinking.String(),
				Steps:     step + 1,
				ToolCalls: s.out.toolCalls,
			})
			return s.out
		}

		for _, call := range resp.ToolCalls {
			if !a.dispatch(s, call) || s.cancelled() {
				a.cancel(s)
				return s.out
			}
		}
	}

	log.Debug("step limit reached", "max_steps", a.options.MaxSteps)
	s.emit(event.Event{
		Type:    event.Error,
		Content: maxStepsMessage(a.options.MaxSteps),
		Reason:  event.ReasonMaxSteps,
	})
	return s.out
}

// checkBudget summarizes the history when it is over the token limit.
// The check right after a summary is skipped.
func (a *Agent) checkBudget(ctx context.Context) {
	b, ok := a.conv.budget(a.options.TokenLimit, a.options.Estimator)
	if !ok || !b.Exceeded() {
		return
	}

	log := a.options.Logger
	log.Info("token limit exceeded, summarizing history",
		"local_estimate", b.LocalEstimate,
		"api_reported", b.APIReported,
		"limit", b.Limit,
	)

	msgs, ok := a.summarizer.summarize(ctx, a.conv.history.Messages())
	if !ok {
		log.Info("nothing to summarize")
		return
	}
	a.conv.summarized(msgs)
	log.Info("history summarized",
		"before", b.LocalEstimate,
		"after", a.options.Estimator.Estimate(msgs),
		"messages", len(msgs),
	)
}

// callModel streams one model response, projecting its chunks onto
// thinking and content events.
func (a *Agent) callModel(s *runState) (*ai.Response, error) {
	chunks, err := a.client.StreamGenerate(s.reqCtx, a.conv.history.Messages(), a.registry.Definitions(), s.opts...)
	if err != nil {
		return nil, err
	}

	var (
		thinkingStarted  bool
		thinkingEnded    bool
		assistantStarted bool
		sawThinking      bool
		sawContent       bool
		resp             *ai.Response
	)
	endThinking := func() {
		if thinkingStarted && !thinkingEnded {
			thinkingEnded = true
			s.emit(event.Event{Type: event.ThinkingEnd})
		}
	}
	startAssistant := func() {
		endThinking()
		if !assistantStarted {
			assistantStarted = true
			s.emit(event.Event{Type: event.AssistantStart})
		}
	}
	thinking := func(delta string) {
		if thinkingEnded {
			// Reasoning resumed after text; open a new thinking sequence.
			thinkingStarted, thinkingEnded = false, false
		}
		if !thinkingStarted {
			thinkingStarted = true
			s.emit(event.Event{Type: event.ThinkingStart})
		}
		sawThinking = true
		s.thinking.WriteString(delta)
		s.emit(event.Event{Type: event.Thinking, Content: delta})
	}
	content := func(delta string) {
		startAssistant()
		sawContent = true
		s.content.WriteString(delta)
		s.emit(event.Event{Type: event.Content, Content: delta})
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		switch chunk.Type {
		case chat.ChunkThinking:
			if chunk.Delta != "" {
				thinking(chunk.Delta)
			}
		case chat.ChunkContent:
			if chunk.Delta != "" {
				content(chunk.Delta)
			}
		case chat.ChunkDone:
			resp = chunk.Response
		}
	}

	if resp == nil {
		if err := s.reqCtx.Err(); err != nil {
			return nil, err
		}
		return nil, chat.ErrStreamClosed
	}

	// Providers that deliver text only on the final response still produce
	// the same event sequence.
	if !sawThinking && resp.Thinking != "" {
		thinking(resp.Thinking)
	}
	if !sawContent && resp.Content != "" {
		content(resp.Content)
	}
	startAssistant()
	return resp, nil
}

// dispatch runs one tool call and records its result. It returns false if
// ctx ended before an event could be delivered; the round is then partial
// and must be rolled back.
func (a *Agent) dispatch(s *runState, call ai.ToolCall) bool {
	if !s.emit(event.Event{
		Type:       event.ToolCall,
		ToolName:   call.Name,
		ToolCallID: call.ID,
		Arguments:  call.Arguments,
	}) {
		return false
	}

	result := a.registry.Dispatch(s.reqCtx, call)
	s.out.toolCalls++
	if !result.Success {
		a.options.Logger.Debug("tool failed", "tool", call.Name, "tool_call_id", call.ID, "error", result.Error)
	}

	a.conv.history.Append(ai.ToolMessage(call, result))

	return s.emit(event.Event{
		Type:       event.ToolResult,
		ToolName:   call.Name,
		ToolCallID: call.ID,
		Success:    result.Success,
		Result:     result.Output(),
	})
}

// cancel rolls back the interrupted step and emits the cancellation event.
func (a *Agent) cancel(s *runState) {
	removed := a.conv.rollback(s.anchor)
	a.options.Logger.Debug("run cancelled", "removed_messages", removed)
	s.emit(event.Event{
		Type:    event.Error,
		Content: CancelledMessage,
		Reason:  event.ReasonCancelled,
	})
}
