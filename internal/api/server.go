// Package api serves the task list over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"task-list/internal/session"
	"task-list/pkg/task"
)

// Server is the HTTP API server.
type Server struct {
	sess *session.Session
	mux  *http.ServeMux
}

// New creates a new Server over an open session.
func New(sess *session.Session) *Server {
	s := &Server{
		sess: sess,
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("GET /api/tasks/stream", s.handleTaskStream)
	s.mux.HandleFunc("POST /api/tasks/complete-all", s.handleCompleteAll)
	s.mux.HandleFunc("POST /api/tasks/clear-completed", s.handleClearCompleted)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleTaskDelete)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/save", s.handleSave)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write json", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeTaskError maps a model error to a status code.
func writeTaskError(w http.ResponseWriter, err error) {
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"field": string(ve.Field),
		})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
