package store

import (
	"sync"

	ai "github.com/spetersoncode/miniagent"
)

// MessageStore holds an ordered conversation history.
// It is safe for concurrent use. Messages are never modified in place:
// history is corrected by truncation or by replacing it wholesale.
type MessageStore struct {
	mu       sync.RWMutex
	messages []ai.Message
}

// NewMessageStore creates a MessageStore initialized with a copy of messages.
func NewMessageStore(messages ...ai.Message) *MessageStore {
	ms := &MessageStore{messages: make([]ai.Message, len(messages))}
	copy(ms.messages, messages)
	return ms
}

// Messages returns a copy of all messages.
func (m *MessageStore) Messages() []ai.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ai.Message, len(m.messages))
	copy(result, m.messages)
	return result
}

// Append adds messages to the store.
func (m *MessageStore) Append(msgs ...ai.Message) {
	if len(msgs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

// Len returns the number of messages.
func (m *MessageStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Replace swaps the whole history for msgs in a single step.
func (m *MessageStore) Replace(msgs []ai.Message) {
	replacement := make([]ai.Message, len(msgs))
	copy(replacement, msgs)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = replacement
}

// TruncateFrom drops the message at index i and everything after it.
// Out-of-range indexes are a no-op.
func (m *MessageStore) TruncateFrom(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.messages) {
		return
	}
	m.messages = m.messages[:i:i]
}

// LastIndexOf returns the index of the most recent message with the given
// role, or -1.
func (m *MessageStore) LastIndexOf(role ai.Role) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == role {
			return i
		}
	}
	return -1
}
