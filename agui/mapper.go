package agui

import (
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/event"
)

// Mapper converts agent events to AG-UI events.
//
// Agent events are flat while AG-UI expects Start-Content-End sequences, so
// the Mapper tracks the open step and text message. Each assistant_start
// opens a step; the first content fragment of a step opens a text message,
// which a tool call or the end of the step closes.
//
// Create a new Mapper for each run using NewMapper. The Mapper is not
// safe for concurrent use - each goroutine should have its own Mapper.
type Mapper struct {
	threadID string
	runID    string

	step      int
	stepOpen  bool
	messageID string
}

// NewMapper creates a new Mapper for a single run.
// The threadID and runID are used in lifecycle events (RUN_STARTED, RUN_FINISHED).
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(msg string) events.Event {
	if msg == "" {
		msg = "unknown error"
	}
	return events.NewRunErrorEvent(msg)
}

// MapEvent converts one agent event into zero or more AG-UI events.
// Thinking events have no AG-UI equivalent and map to nothing.
func (m *Mapper) MapEvent(e event.Event) []events.Event {
	switch e.Type {
	case event.AssistantStart:
		out := m.closeStep()
		m.step++
		m.stepOpen = true
		return append(out, events.NewStepStartedEvent(m.stepName()))

	case event.Content:
		if e.Content == "" {
			return nil
		}
		var out []events.Event
		if m.messageID == "" {
			m.messageID = events.GenerateMessageID()
			out = append(out, events.NewTextMessageStartEvent(m.messageID, events.WithRole(RoleAssistant)))
		}
		return append(out, events.NewTextMessageContentEvent(m.messageID, e.Content))

	case event.ToolCall:
		out := m.closeMessage()
		return append(out,
			events.NewToolCallStartEvent(e.ToolCallID, e.ToolName),
			events.NewToolCallArgsEvent(e.ToolCallID, ai.ToolCall{Arguments: e.Arguments}.ArgumentsJSON()),
			events.NewToolCallEndEvent(e.ToolCallID),
		)

	case event.ToolResult:
		return []events.Event{
			events.NewToolCallResultEvent(events.GenerateMessageID(), e.ToolCallID, e.Result),
		}

	case event.Done:
		return append(m.closeStep(), m.RunFinished())

	case event.Error:
		msg := e.Content
		if e.Reason != "" {
			msg = fmt.Sprintf("%s: %s", e.Reason, e.Content)
		}
		return append(m.closeStep(), m.RunError(msg))

	default:
		return nil
	}
}

func (m *Mapper) stepName() string {
	return fmt.Sprintf("step-%d", m.step)
}

func (m *Mapper) closeMessage() []events.Event {
	if m.messageID == "" {
		return nil
	}
	ev := events.NewTextMessageEndEvent(m.messageID)
	m.messageID = ""
	return []events.Event{ev}
}

func (m *Mapper) closeStep() []events.Event {
	out := m.closeMessage()
	if m.stepOpen {
		out = append(out, events.NewStepFinishedEvent(m.stepName()))
		m.stepOpen = false
	}
	return out
}
