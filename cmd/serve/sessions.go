package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/spetersoncode/miniagent/store"
)

type titleRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.store.Create(r.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	s.logger.Info("session created", "session_id", sess.ID, "title", sess.Title)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession removes the stored session and evicts its agent,
// cancelling a run in progress.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	evicted := s.sessions.Evict(id)
	s.logger.Info("session deleted", "session_id", id, "agent_evicted", evicted)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session_id": id})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	sess, err := s.store.UpdateTitle(r.Context(), r.PathValue("id"), title)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// handleCancel signals the token of the session's current run.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cancelled := false
	if sess, ok := s.sessions.Get(id); ok {
		cancelled = sess.Cancel()
	}
	s.logger.Info("cancel requested", "session_id", id, "cancelled", cancelled)
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "cancelled": cancelled})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Error("session store failed", "error", err)
	writeError(w, http.StatusInternalServerError, "session store error")
}
