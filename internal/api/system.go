package api

import (
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tasks := s.sess.Tasks()
	pending := 0
	for _, t := range tasks {
		if !t.IsCompleted {
			pending++
		}
	}

	st := s.sess.SaveStatus()
	resp := map[string]any{
		"tasks":         len(tasks),
		"pending_tasks": pending,
		"save_mode":     s.sess.Mode(),
		"dirty":         s.sess.Dirty(),
	}
	if st.Attempted() {
		resp["last_save"] = st.At
		resp["last_save_ok"] = st.OK
		if st.Err != nil {
			resp["last_save_error"] = st.Err.Error()
		}
	}
	if err := s.sess.LoadError(); err != nil {
		resp["load_error"] = err.Error()
	}
	writeJSON(w, 200, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Save(r.Context()); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "saved"})
}
