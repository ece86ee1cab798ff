package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/store"
)

// Server exposes agents over HTTP. Each session id maps to one cached agent
// whose runs are serialized by the session lock.
type Server struct {
	store    *store.SessionStore
	sessions *agent.Sessions
	newAgent func() *agent.Agent
	logger   *slog.Logger

	// thinkingBudget is used for turns that request deep thinking.
	thinkingBudget int
}

// NewServer creates a Server. newAgent builds the agent for a session the
// first time it is used.
func NewServer(st *store.SessionStore, newAgent func() *agent.Agent, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		sessions: agent.NewSessions(),
		newAgent: newAgent,
		logger:   logger,
	}
}

// Routes returns the HTTP handler with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/title", s.handleUpdateTitle)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/agui", s.handleAGUI)
	mux.HandleFunc("GET /health", healthHandler)
	return corsMiddleware(mux)
}

// ensureSession returns the stored session for id, creating it when id is
// empty or unknown.
func (s *Server) ensureSession(ctx context.Context, id string) (*store.Session, error) {
	if id == "" {
		return s.store.Create(ctx, "")
	}
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return s.store.CreateWithID(ctx, id, "")
	}
	return sess, err
}

// acquire returns the session's agent locked for a new run, together with
// the run's cancel token. The caller must Unlock the session.
func (s *Server) acquire(id string) (*agent.Session, *agent.CancelToken) {
	sess := s.sessions.GetOrCreate(id, s.newAgent)
	sess.Lock()
	return sess, sess.Begin()
}

// watchDisconnect cancels token once the client goes away. The returned
// func ends the watch; it signals the token too, which is a no-op for a
// run that has already finished.
func watchDisconnect(r *http.Request, token *agent.CancelToken) context.CancelFunc {
	ctx, cancel := context.WithCancel(r.Context())
	go token.WatchContext(ctx)
	return cancel
}
