package agent

import (
	"sort"
	"sync"
)

// Session is a cached agent together with the lock that serializes its
// runs and the token of the run in progress.
type Session struct {
	ID    string
	Agent *Agent

	runMu sync.Mutex

	mu    sync.Mutex
	token *CancelToken
}

// Lock serializes runs on the session. It blocks until the previous run
// has released it.
func (s *Session) Lock() {
	s.runMu.Lock()
}

// Unlock releases the run lock.
func (s *Session) Unlock() {
	s.runMu.Unlock()
}

// Begin installs a fresh cancel token for a new run and returns it.
func (s *Session) Begin() *CancelToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = NewCancelToken()
	return s.token
}

// Cancel signals the token of the current run. It reports whether there was
// a run to cancel.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return false
	}
	s.token.Cancel()
	return true
}

// Sessions caches one Agent per session id. The lock guards only the map;
// it is never held while an agent runs.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, calling factory to build its
// agent if the session does not exist yet.
func (r *Sessions) GetOrCreate(id string, factory func() *Agent) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := &Session{ID: id, Agent: factory()}
	r.sessions[id] = s
	return s
}

// Get returns the session for id.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Evict removes the session for id, cancelling any run in progress.
// It reports whether the session existed.
func (r *Sessions) Evict(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Cancel()
	}
	return ok
}

// IDs returns the cached session ids in sorted order.
func (r *Sessions) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of cached sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
