package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory() []ai.Message {
	return []ai.Message{
		ai.SystemMessage("sys"),
		ai.UserMessage("list files"),
		{Role: ai.RoleAssistant, Content: "Looking.", ToolCalls: []ai.ToolCall{
			{ID: "c1", Name: "list_dir"},
			{ID: "c2", Name: "read_file"},
		}},
		{Role: ai.RoleTool, ToolCallID: "c1", Name: "list_dir", Content: strings.Repeat("a.txt ", 200)},
		{Role: ai.RoleTool, ToolCallID: "c2", Name: "read_file", Content: "hello"},
		{Role: ai.RoleAssistant, Content: "There is one file."},
		ai.UserMessage("thanks"),
		ai.UserMessage("bye"),
		{Role: ai.RoleAssistant, Content: "Goodbye."},
	}
}

func newTestSummarizer(c *mockClient) *summarizer {
	return &summarizer{client: c, logger: slog.New(slog.DiscardHandler)}
}

func TestSummarizeStructure(t *testing.T) {
	client := &mockClient{summary: "did things"}
	s := newTestSummarizer(client)

	out, ok := s.summarize(context.Background(), sampleHistory())

	require.True(t, ok)
	require.Len(t, out, 6)
	assert.Equal(t, ai.RoleSystem, out[0].Role)
	assert.Equal(t, "list files", out[1].Content)
	assert.Equal(t, SummaryPrefix+"did things", out[2].Content)
	assert.Equal(t, "thanks", out[3].Content)
	assert.Equal(t, "bye", out[4].Content)
	assert.Equal(t, SummaryPrefix+"did things", out[5].Content)
	for _, m := range out[1:] {
		assert.Equal(t, ai.RoleUser, m.Role)
	}
	// One call per non-empty round.
	assert.Equal(t, 2, client.summaries())
}

func TestSummarizeFallsBackToTranscript(t *testing.T) {
	client := &mockClient{summaryErr: errors.New("unavailable")}
	s := newTestSummarizer(client)

	out, ok := s.summarize(context.Background(), sampleHistory())

	require.True(t, ok)
	assert.True(t, strings.HasPrefix(out[2].Content, SummaryPrefix+"Round 1 execution process:\n\n"))
	assert.True(t, strings.HasPrefix(out[5].Content, SummaryPrefix+"Round 3 execution process:"))
}

func TestSummarizeEmptySummaryFallsBackToTranscript(t *testing.T) {
	client := &mockClient{summary: "  \n"}
	s := newTestSummarizer(client)

	out, ok := s.summarize(context.Background(), sampleHistory())

	require.True(t, ok)
	assert.True(t, strings.HasPrefix(out[2].Content, SummaryPrefix+"Round 1 execution process:\n\n"))
	assert.Contains(t, out[2].Content, "Called tools: list_dir, read_file")
}

func TestSummarizeWithoutUserMessages(t *testing.T) {
	client := &mockClient{summary: "x"}
	s := newTestSummarizer(client)

	out, ok := s.summarize(context.Background(), []ai.Message{ai.SystemMessage("sys")})

	assert.False(t, ok)
	assert.Nil(t, out)
	assert.Zero(t, client.summaries())
}

func TestSummarizeReducesEstimate(t *testing.T) {
	client := &mockClient{summary: "short"}
	s := newTestSummarizer(client)
	est := budget.NewFallbackEstimator()

	history := sampleHistory()
	out, ok := s.summarize(context.Background(), history)

	require.True(t, ok)
	assert.LessOrEqual(t, est.Estimate(out), est.Estimate(history))
}

func TestRoundTranscript(t *testing.T) {
	round := sampleHistory()[2:6]

	got := roundTranscript(round, 1)

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Round 1 execution process:", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "Assistant: Looking.", lines[2])
	assert.Equal(t, "  → Called tools: list_dir, read_file", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "  ← Tool returned: a.txt"))
	assert.Equal(t, "  ← Tool returned: hello", lines[5])
	assert.Equal(t, "Assistant: There is one file.", lines[6])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ab...", preview("abcdef", 2))
	assert.Equal(t, "日本...", preview("日本語", 2))
}
