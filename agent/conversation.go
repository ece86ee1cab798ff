package agent

import (
	"strings"
	"sync"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/budget"
	"github.com/spetersoncode/miniagent/store"
)

// conversation is the state an Agent carries between runs: the message
// history and the token accounting used to decide when to summarize.
type conversation struct {
	history *store.MessageStore

	mu          sync.Mutex
	apiReported int
	skipCheck   bool
}

func newConversation(systemPrompt string) *conversation {
	return &conversation{
		history: store.NewMessageStore(ai.SystemMessage(systemPrompt)),
	}
}

func (c *conversation) setAPIReported(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiReported = n
}

// budget evaluates the token budget unless the one-shot skip flag is set,
// in which case it clears the flag and reports ok=false.
func (c *conversation) budget(limit int, est Estimator) (b budget.Budget, ok bool) {
	c.mu.Lock()
	if c.skipCheck {
		c.skipCheck = false
		c.mu.Unlock()
		return budget.Budget{}, false
	}
	reported := c.apiReported
	c.mu.Unlock()

	return budget.Budget{
		Limit:         limit,
		LocalEstimate: est.Estimate(c.history.Messages()),
		APIReported:   reported,
	}, true
}

// summarized swaps in the summarized history and arms the skip flag.
func (c *conversation) summarized(msgs []ai.Message) {
	c.history.Replace(msgs)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipCheck = true
}

// rollback drops the most recent assistant message and everything after
// it, provided that message belongs to the run started by the user message
// with id anchor. It returns the number of messages removed.
func (c *conversation) rollback(anchor string) int {
	floor := -1
	for i, m := range c.history.Messages() {
		if m.ID == anchor {
			floor = i
		}
	}
	i := c.history.LastIndexOf(ai.RoleAssistant)
	if floor < 0 || i <= floor {
		return 0
	}
	n := c.history.Len() - i
	c.history.TruncateFrom(i)
	return n
}

const workspaceHeading = "## Current Workspace"

// withWorkspace appends a workspace section to prompt unless it already has
// one.
func withWorkspace(prompt, dir string) string {
	if dir == "" || strings.Contains(prompt, "Current Workspace") {
		return prompt
	}
	return prompt + "\n\n" + workspaceHeading + "\n" +
		"You are currently working in: `" + dir + "`\n" +
		"All relative paths will be resolved relative to this directory."
}
