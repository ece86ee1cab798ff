package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/event"
)

const sessionKeyPrefix = "session:"

// titleLength is the number of characters of the first message used as a
// session title.
const titleLength = 12

// Message is a persisted chat message. Assistant messages carry the ordered
// blocks rebuilt from the run's events.
type Message struct {
	ID        string        `json:"id"`
	Role      ai.Role       `json:"role"`
	Content   string        `json:"content"`
	Thinking  string        `json:"thinking,omitempty"`
	Blocks    []event.Block `json:"blocks,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ToolCallStatus tracks a tool call from dispatch to result.
type ToolCallStatus string

const (
	ToolCallPending ToolCallStatus = "pending"
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallFailed  ToolCallStatus = "failed"
)

// ToolCallRecord is a persisted tool invocation belonging to an assistant
// message.
type ToolCallRecord struct {
	ToolCallID string         `json:"tool_call_id"`
	MessageID  string         `json:"message_id"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Result     string         `json:"result,omitempty"`
	Status     ToolCallStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Session is a persisted conversation.
type Session struct {
	ID        string           `json:"session_id"`
	Title     string           `json:"title"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []Message        `json:"messages"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// Titled is set once the title has been derived from a message or
	// supplied explicitly.
	Titled bool `json:"titled,omitempty"`
}

// SessionInfo summarizes a session for listings.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Info returns the listing summary of s.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
	}
}

// TitleFrom derives a session title from a message: its first 12
// characters, followed by "..." when truncated.
func TitleFrom(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= titleLength {
		return content
	}
	return string(runes[:titleLength]) + "..."
}

// SessionStore persists sessions as JSON documents in an Adapter.
// Each mutation is a read-modify-write under the store's lock.
type SessionStore struct {
	mu      sync.Mutex
	adapter Adapter
	now     func() time.Time
}

// NewSessionStore creates a SessionStore. A nil adapter selects an
// in-memory adapter.
func NewSessionStore(adapter Adapter) *SessionStore {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &SessionStore{adapter: adapter, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (s *SessionStore) load(ctx context.Context, id string) (*Session, error) {
	raw, ok, err := s.adapter.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, &SerializationError{Key: sessionKey(id), Err: err}
	}
	return &sess, nil
}

func (s *SessionStore) save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return &SerializationError{Key: sessionKey(sess.ID), Err: err}
	}
	return s.adapter.Set(ctx, sessionKey(sess.ID), raw)
}

// update loads a session, applies fn and saves it.
func (s *SessionStore) update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.now()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Create stores a new, empty session. An empty title defaults to
// "New Chat <date>" and is replaced by the first message's title later.
func (s *SessionStore) Create(ctx context.Context, title string) (*Session, error) {
	return s.CreateWithID(ctx, uuid.NewString(), title)
}

// CreateWithID is like Create but uses the caller's id.
func (s *SessionStore) CreateWithID(ctx context.Context, id, title string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        id,
		Title:     title,
		Titled:    title != "",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
	if sess.Title == "" {
		sess.Title = "New Chat " + now.Format("2006-01-02 15:04")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns a session with its messages.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, id)
}

// List returns summaries of all sessions, most recently updated first.
func (s *SessionStore) List(ctx context.Context) ([]SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.adapter.Keys(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]SessionInfo, 0, len(keys))
	for _, key := range keys {
		id, ok := strings.CutPrefix(key, sessionKeyPrefix)
		if !ok {
			continue
		}
		sess, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, sess.Info())
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Delete removes a session. It returns ErrSessionNotFound if it does not
// exist.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.adapter.Delete(ctx, sessionKey(id))
}

// UpdateTitle sets an explicit title.
func (s *SessionStore) UpdateTitle(ctx context.Context, id, title string) (*Session, error) {
	return s.update(ctx, id, func(sess *Session) error {
		if title != "" {
			sess.Title = title
			sess.Titled = true
		}
		return nil
	})
}

// AddMessage appends a message, assigning an id and timestamp when missing.
// The first message of an untitled session also sets its title.
func (s *SessionStore) AddMessage(ctx context.Context, id string, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = ai.NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	_, err := s.update(ctx, id, func(sess *Session) error {
		if len(sess.Messages) == 0 && !sess.Titled && msg.Content != "" {
			sess.Title = TitleFrom(msg.Content)
			sess.Titled = true
		}
		sess.Messages = append(sess.Messages, msg)
		return nil
	})
	return msg, err
}

// AddToolCall records a dispatched tool call as pending.
func (s *SessionStore) AddToolCall(ctx context.Context, id, messageID string, call ai.ToolCall) error {
	_, err := s.update(ctx, id, func(sess *Session) error {
		now := s.now()
		sess.ToolCalls = append(sess.ToolCalls, ToolCallRecord{
			ToolCallID: call.ID,
			MessageID:  messageID,
			ToolName:   call.Name,
			Arguments:  call.Arguments,
			Status:     ToolCallPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return nil
	})
	return err
}

// UpdateToolCallResult stores the result of a previously recorded call.
func (s *SessionStore) UpdateToolCallResult(ctx context.Context, id, messageID, toolCallID string, result ai.ToolResult) error {
	_, err := s.update(ctx, id, func(sess *Session) error {
		for i := range sess.ToolCalls {
			rec := &sess.ToolCalls[i]
			if rec.ToolCallID != toolCallID || rec.MessageID != messageID {
				continue
			}
			rec.Result = result.Output()
			rec.Status = ToolCallSuccess
			if !result.Success {
				rec.Status = ToolCallFailed
			}
			rec.UpdatedAt = s.now()
			return nil
		}
		return ErrToolCallNotFound
	})
	return err
}
