package agui

import (
	"testing"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/event"
)

func types(evs []events.Event) []events.EventType {
	out := make([]events.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type()
	}
	return out
}

func expectTypes(t *testing.T, got []events.Event, want ...events.EventType) {
	t.Helper()
	gotTypes := types(got)
	if len(gotTypes) != len(want) {
		t.Fatalf("expected %v, got %v", want, gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], gotTypes[i])
		}
	}
}

func TestNewMapper(t *testing.T) {
	t.Run("with provided IDs", func(t *testing.T) {
		m := NewMapper("thread-123", "run-456")
		if m.ThreadID() != "thread-123" {
			t.Errorf("expected thread ID 'thread-123', got %q", m.ThreadID())
		}
		if m.RunID() != "run-456" {
			t.Errorf("expected run ID 'run-456', got %q", m.RunID())
		}
	})

	t.Run("generates IDs when empty", func(t *testing.T) {
		m := NewMapper("", "")
		if m.ThreadID() == "" {
			t.Error("expected generated thread ID, got empty")
		}
		if m.RunID() == "" {
			t.Error("expected generated run ID, got empty")
		}
	})
}

func TestMapper_LifecycleEvents(t *testing.T) {
	m := NewMapper("thread-1", "run-1")

	if ev := m.RunStarted(); ev.Type() != events.EventTypeRunStarted {
		t.Errorf("expected RUN_STARTED, got %s", ev.Type())
	}
	if ev := m.RunFinished(); ev.Type() != events.EventTypeRunFinished {
		t.Errorf("expected RUN_FINISHED, got %s", ev.Type())
	}
	if ev := m.RunError("boom"); ev.Type() != events.EventTypeRunError {
		t.Errorf("expected RUN_ERROR, got %s", ev.Type())
	}
}

func TestMapper_TextMessage(t *testing.T) {
	m := NewMapper("thread-1", "run-1")

	expectTypes(t, m.MapEvent(event.Event{Type: event.AssistantStart}),
		events.EventTypeStepStarted)

	expectTypes(t, m.MapEvent(event.Event{Type: event.Content, Content: "Hel"}),
		events.EventTypeTextMessageStart, events.EventTypeTextMessageContent)

	expectTypes(t, m.MapEvent(event.Event{Type: event.Content, Content: "lo"}),
		events.EventTypeTextMessageContent)

	if got := m.MapEvent(event.Event{Type: event.Content}); len(got) != 0 {
		t.Errorf("expected empty content to map to nothing, got %v", types(got))
	}

	expectTypes(t, m.MapEvent(event.Event{Type: event.Done, Content: "Hello"}),
		events.EventTypeTextMessageEnd, events.EventTypeStepFinished, events.EventTypeRunFinished)
}

func TestMapper_ToolCall(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	m.MapEvent(event.Event{Type: event.AssistantStart})
	m.MapEvent(event.Event{Type: event.Content, Content: "Reading."})

	got := m.MapEvent(event.Event{
		Type:       event.ToolCall,
		ToolName:   "read_file",
		ToolCallID: "call-1",
		Arguments:  map[string]any{"path": "a.txt"},
	})
	expectTypes(t, got,
		events.EventTypeTextMessageEnd,
		events.EventTypeToolCallStart,
		events.EventTypeToolCallArgs,
		events.EventTypeToolCallEnd,
	)

	args, ok := got[2].(*events.ToolCallArgsEvent)
	if !ok {
		t.Fatalf("expected *ToolCallArgsEvent, got %T", got[2])
	}
	if args.Delta != `{"path":"a.txt"}` {
		t.Errorf("unexpected args %q", args.Delta)
	}

	expectTypes(t, m.MapEvent(event.Event{Type: event.ToolResult, ToolCallID: "call-1", Success: true, Result: "data"}),
		events.EventTypeToolCallResult)

	// The next step closes the previous one; no text message is open.
	expectTypes(t, m.MapEvent(event.Event{Type: event.AssistantStart}),
		events.EventTypeStepFinished, events.EventTypeStepStarted)
}

func TestMapper_ThinkingIgnored(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	for _, typ := range []event.Type{event.ThinkingStart, event.Thinking, event.ThinkingEnd} {
		if got := m.MapEvent(event.Event{Type: typ, Content: "hmm"}); len(got) != 0 {
			t.Errorf("%s: expected nothing, got %v", typ, types(got))
		}
	}
}

func TestMapper_Error(t *testing.T) {
	m := NewMapper("thread-1", "run-1")
	m.MapEvent(event.Event{Type: event.AssistantStart})

	got := m.MapEvent(event.Event{Type: event.Error, Reason: event.ReasonCancelled, Content: "Task cancelled by user."})
	expectTypes(t, got, events.EventTypeStepFinished, events.EventTypeRunError)

	runErr, ok := got[1].(*events.RunErrorEvent)
	if !ok {
		t.Fatalf("expected *RunErrorEvent, got %T", got[1])
	}
	if runErr.Message != "cancelled: Task cancelled by user." {
		t.Errorf("unexpected message %q", runErr.Message)
	}
}

func TestToMessage(t *testing.T) {
	t.Run("user message", func(t *testing.T) {
		content := "Hello"
		msg := ToMessage(events.Message{ID: "msg-1", Role: RoleUser, Content: &content})

		if msg.Role != ai.RoleUser {
			t.Errorf("expected RoleUser, got %v", msg.Role)
		}
		if msg.Content != "Hello" {
			t.Errorf("expected 'Hello', got %q", msg.Content)
		}
	})

	t.Run("assistant message with tool calls", func(t *testing.T) {
		msg := ToMessage(events.Message{
			ID:   "msg-1",
			Role: RoleAssistant,
			ToolCalls: []events.ToolCall{{
				ID:       "call-1",
				Type:     "function",
				Function: events.Function{Name: "get_weather", Arguments: `{"location": "NYC"}`},
			}},
		})

		if len(msg.ToolCalls) != 1 {
			t.Fatalf("expected 1 tool call, got %d", len(msg.ToolCalls))
		}
		if msg.ToolCalls[0].Arguments["location"] != "NYC" {
			t.Errorf("unexpected arguments %v", msg.ToolCalls[0].Arguments)
		}
	})

	t.Run("tool result message", func(t *testing.T) {
		content := `{"temp": 72}`
		toolCallID := "call-1"
		msg := ToMessage(events.Message{ID: "msg-1", Role: RoleTool, Content: &content, ToolCallID: &toolCallID})

		if msg.Role != ai.RoleTool || msg.ToolCallID != "call-1" {
			t.Errorf("unexpected tool message %+v", msg)
		}
	})
}

func TestFromMessage(t *testing.T) {
	msg := FromMessage(ai.Message{
		Role:      ai.RoleAssistant,
		Content:   "checking",
		ToolCalls: []ai.ToolCall{{ID: "call-1", Name: "echo", Arguments: map[string]any{"text": "x"}}},
	})

	if msg.ID == "" {
		t.Error("expected generated ID")
	}
	if msg.Role != RoleAssistant {
		t.Errorf("expected assistant role, got %q", msg.Role)
	}
	if msg.Content == nil || *msg.Content != "checking" {
		t.Errorf("unexpected content %v", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Arguments != `{"text":"x"}` {
		t.Errorf("unexpected tool calls %+v", msg.ToolCalls)
	}
}

func TestPrepare(t *testing.T) {
	first, second := "first", "second"
	answer := "answer"

	t.Run("uses last user message", func(t *testing.T) {
		in := RunAgentInput{ThreadID: "t", RunID: "r", Messages: []events.Message{
			{ID: "1", Role: RoleUser, Content: &first},
			{ID: "2", Role: RoleAssistant, Content: &answer},
			{ID: "3", Role: RoleUser, Content: &second},
		}}
		prepared, err := in.Prepare()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prepared.Prompt != "second" || prepared.ThreadID != "t" {
			t.Errorf("unexpected prepared input %+v", prepared)
		}
	})

	t.Run("no messages", func(t *testing.T) {
		if _, err := (&RunAgentInput{}).Prepare(); err != ErrNoMessages {
			t.Errorf("expected ErrNoMessages, got %v", err)
		}
	})

	t.Run("no user message", func(t *testing.T) {
		in := RunAgentInput{Messages: []events.Message{{ID: "1", Role: RoleAssistant, Content: &answer}}}
		if _, err := in.Prepare(); err != ErrNoUserMessage {
			t.Errorf("expected ErrNoUserMessage, got %v", err)
		}
	})
}
