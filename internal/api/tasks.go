package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"task-list/internal/session"
	"task-list/pkg/task"
)

// createRequest mirrors the add form. DueDate is YYYY-MM-DD or empty.
type createRequest struct {
	Title   string
	Tags    string
	DueDate string
}

// updateRequest holds the fields to change. A null DueDate clears it.
type updateRequest struct {
	Title       *string
	IsCompleted *bool
	Tags        *string
	DueDate     json.RawMessage
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks := s.sess.Tasks()
	tag := r.URL.Query().Get("tag")
	status := r.URL.Query().Get("status")
	if tag == "" && status == "" {
		writeJSON(w, 200, tasks)
		return
	}
	filtered := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if tag != "" && !strings.Contains(t.Tags, tag) {
			continue
		}
		if status == "pending" && t.IsCompleted || status == "completed" && !t.IsCompleted {
			continue
		}
		filtered = append(filtered, t)
	}
	writeJSON(w, 200, filtered)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	t, ok := s.sess.Task(r.PathValue("id"))
	if !ok {
		writeError(w, 404, "task not found")
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	t, err := s.sess.AddTask(req.Title, req.Tags, req.DueDate)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, 201, t)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sess.Task(id); !ok {
		writeError(w, 404, "task not found")
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}

	var due *string
	if len(req.DueDate) > 0 {
		var d *string
		if err := json.Unmarshal(req.DueDate, &d); err != nil {
			writeError(w, 400, "DueDate must be a string or null")
			return
		}
		if d == nil {
			d = new(string)
		}
		// reject a bad date before any field is applied
		if _, err := session.ParseDueInput(*d); err != nil {
			writeTaskError(w, err)
			return
		}
		due = d
	}

	if req.Title != nil {
		if err := s.sess.Rename(id, *req.Title); err != nil {
			writeTaskError(w, err)
			return
		}
	}
	if req.IsCompleted != nil {
		s.sess.SetCompleted(id, *req.IsCompleted)
	}
	if req.Tags != nil {
		if err := s.sess.SetTags(id, *req.Tags); err != nil {
			writeTaskError(w, err)
			return
		}
	}
	if due != nil {
		if err := s.sess.SetDue(id, *due); err != nil {
			writeTaskError(w, err)
			return
		}
	}

	t, _ := s.sess.Task(id)
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sess.Delete(r.PathValue("id")) {
		writeError(w, 404, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteAll(w http.ResponseWriter, r *http.Request) {
	s.sess.CompleteAll()
	writeJSON(w, 200, s.sess.Tasks())
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	n := s.sess.ClearCompleted()
	writeJSON(w, 200, map[string]int{"removed": n})
}
