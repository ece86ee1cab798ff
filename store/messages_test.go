package store

import (
	"sync"
	"testing"

	ai "github.com/spetersoncode/miniagent"
	"github.com/stretchr/testify/assert"
)

func TestMessageStore_Append(t *testing.T) {
	ms := NewMessageStore()
	assert.Equal(t, 0, ms.Len())

	ms.Append(ai.UserMessage("Hello"))
	assert.Equal(t, 1, ms.Len())

	ms.Append(
		ai.Message{Role: ai.RoleAssistant, Content: "Hi there"},
		ai.UserMessage("How are you?"),
	)
	assert.Equal(t, 3, ms.Len())

	ms.Append()
	assert.Equal(t, 3, ms.Len())
}

func TestMessageStore_MessagesIsCopy(t *testing.T) {
	initial := []ai.Message{ai.SystemMessage("sys"), ai.UserMessage("Hello")}
	ms := NewMessageStore(initial...)

	initial[1].Content = "Modified"
	messages := ms.Messages()
	assert.Equal(t, "Hello", messages[1].Content)

	messages[0].Content = "Modified"
	assert.Equal(t, "sys", ms.Messages()[0].Content)
}

func TestMessageStore_Replace(t *testing.T) {
	ms := NewMessageStore(ai.SystemMessage("sys"), ai.UserMessage("a"), ai.UserMessage("b"))

	replacement := []ai.Message{ai.SystemMessage("sys"), ai.UserMessage("summary")}
	ms.Replace(replacement)
	replacement[1].Content = "changed"

	got := ms.Messages()
	assert.Len(t, got, 2)
	assert.Equal(t, "summary", got[1].Content)
}

func TestMessageStore_TruncateFrom(t *testing.T) {
	build := func() *MessageStore {
		return NewMessageStore(
			ai.SystemMessage("sys"),
			ai.UserMessage("q"),
			ai.Message{Role: ai.RoleAssistant, Content: "a"},
			ai.Message{Role: ai.RoleTool, Content: "r", ToolCallID: "c1"},
		)
	}

	t.Run("before last assistant", func(t *testing.T) {
		ms := build()
		idx := ms.LastIndexOf(ai.RoleAssistant)
		assert.Equal(t, 2, idx)

		ms.TruncateFrom(idx)
		assert.Equal(t, 2, ms.Len())
		assert.Equal(t, ai.RoleUser, ms.Messages()[1].Role)
	})

	t.Run("append after truncate does not resurrect", func(t *testing.T) {
		ms := build()
		before := ms.Messages()
		ms.TruncateFrom(2)
		ms.Append(ai.UserMessage("next"))

		assert.Equal(t, ai.RoleAssistant, before[2].Role)
		assert.Equal(t, "next", ms.Messages()[2].Content)
	})

	t.Run("out of range is a no-op", func(t *testing.T) {
		ms := build()
		ms.TruncateFrom(-1)
		ms.TruncateFrom(4)
		assert.Equal(t, 4, ms.Len())
	})

	t.Run("missing role", func(t *testing.T) {
		assert.Equal(t, -1, NewMessageStore(ai.SystemMessage("s")).LastIndexOf(ai.RoleAssistant))
	})
}

func TestMessageStore_Concurrent(t *testing.T) {
	ms := NewMessageStore()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ms.Append(ai.UserMessage("msg"))
		}()
		go func() {
			defer wg.Done()
			_ = ms.Messages()
		}()
	}

	wg.Wait()
	assert.Equal(t, 100, ms.Len())
}
