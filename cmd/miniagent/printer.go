package main

import (
	"fmt"
	"io"
	"strings"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/event"
)

// resultPreview caps how much of a tool result is echoed to the terminal.
const resultPreview = 300

// printer renders agent events as plain terminal text.
type printer struct {
	w io.Writer
	// midLine is set while streamed text has not ended with a newline.
	midLine bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) prompt() {
	fmt.Fprint(p.w, "\n> ")
}

func (p *printer) text(s string) {
	if s == "" {
		return
	}
	fmt.Fprint(p.w, s)
	p.midLine = !strings.HasSuffix(s, "\n")
}

func (p *printer) line(format string, args ...any) {
	if p.midLine {
		fmt.Fprintln(p.w)
		p.midLine = false
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) print(ev event.Event) {
	switch ev.Type {
	case event.ThinkingStart:
		p.line("[thinking]")
	case event.Thinking:
		p.text(ev.Content)
	case event.ThinkingEnd:
		p.line("[/thinking]")
	case event.Content:
		p.text(ev.Content)
	case event.ToolCall:
		p.line("-> %s(%s)", ev.ToolName, ai.ToolCall{Arguments: ev.Arguments}.ArgumentsJSON())
	case event.ToolResult:
		status := "ok"
		if !ev.Success {
			status = "error"
		}
		p.line("<- %s [%s] %s", ev.ToolName, status, truncate(ev.Result, resultPreview))
	case event.Done:
		p.line("")
		p.line("(%d steps, %d tool calls)", ev.Steps, ev.ToolCalls)
	case event.Error:
		p.line("")
		if ev.Reason == event.ReasonCancelled {
			p.line("Cancelled. The turn was rolled back.")
			return
		}
		p.line("Error: %s", ev.Content)
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
