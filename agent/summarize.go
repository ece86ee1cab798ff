package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/chat"
)

// SummaryPrefix starts every message that replaces a summarized round.
const SummaryPrefix = "[Assistant Execution Summary]\n\n"

const (
	summarySystemPrompt = "You are an assistant skilled at summarizing Agent execution processes."

	summaryPromptTemplate = `Please provide a concise summary of the following Agent execution process:

%s

Requirements:
1. Focus on what tasks were completed and which tools were called
2. Keep key execution results and important findings
3. Be concise and clear, within 1000 words
4. Use English
5. Do not include "user" related content, only summarize the Agent's execution process`

	// toolPreviewLimit caps how much of each tool result enters a transcript.
	toolPreviewLimit = 500
)

// summarizer collapses completed rounds of a history into summaries.
type summarizer struct {
	client chat.Client
	opts   []ai.Option
	logger *slog.Logger
}

// summarize rewrites msgs as [system, user1, summary1, user2, summary2, ...].
// A round with no assistant or tool messages keeps only its user message.
// It reports false when there is nothing to summarize.
func (s *summarizer) summarize(ctx context.Context, msgs []ai.Message) ([]ai.Message, bool) {
	var anchors []int
	for i, m := range msgs {
		if i > 0 && m.Role == ai.RoleUser {
			anchors = append(anchors, i)
		}
	}
	if len(msgs) == 0 || len(anchors) == 0 {
		return nil, false
	}

	out := []ai.Message{msgs[0]}
	for n, start := range anchors {
		out = append(out, msgs[start])

		end := len(msgs)
		if n+1 < len(anchors) {
			end = anchors[n+1]
		}
		round := msgs[start+1 : end]
		if len(round) == 0 {
			continue
		}

		summary := s.summarizeRound(ctx, round, n+1)
		out = append(out, ai.Message{
			ID:      ai.NewMessageID(),
			Role:    ai.RoleUser,
			Content: SummaryPrefix + summary,
		})
	}
	return out, true
}

// summarizeRound asks the model to summarize one round. On failure or an
// empty summary the raw transcript is used instead.
func (s *summarizer) summarizeRound(ctx context.Context, round []ai.Message, n int) string {
	transcript := roundTranscript(round, n)

	resp, err := s.client.Generate(ctx, []ai.Message{
		ai.SystemMessage(summarySystemPrompt),
		ai.UserMessage(fmt.Sprintf(summaryPromptTemplate, transcript)),
	}, nil, s.opts...)
	if err != nil {
		s.logger.Warn("summary generation failed", "round", n, "error", err)
		return transcript
	}
	if strings.TrimSpace(resp.Content) == "" {
		s.logger.Warn("summary generation returned no content", "round", n)
		return transcript
	}
	s.logger.Info("round summarized", "round", n)
	return resp.Content
}

// roundTranscript renders a round as plain text for the summary prompt.
func roundTranscript(round []ai.Message, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d execution process:\n\n", n)
	for _, m := range round {
		switch m.Role {
		case ai.RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n", m.Content)
			if len(m.ToolCalls) > 0 {
				names := make([]string, len(m.ToolCalls))
				for i, tc := range m.ToolCalls {
					names[i] = tc.Name
				}
				fmt.Fprintf(&b, "  → Called tools: %s\n", strings.Join(names, ", "))
			}
		case ai.RoleTool:
			fmt.Fprintf(&b, "  ← Tool returned: %s\n", preview(m.Content, toolPreviewLimit))
		}
	}
	return b.String()
}

// preview returns at most limit runes of s, marking a cut with "...".
func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
