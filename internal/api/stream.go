package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"task-list/pkg/task"
)

type changeEvent struct {
	Op    task.Op    `json:"op"`
	IDs   []string   `json:"ids"`
	Field task.Field `json:"field,omitempty"`
}

// handleTaskStream pushes store changes as server-sent events.
func (s *Server) handleTaskStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := make(chan task.Change, 64)
	cancel := s.sess.Subscribe(func(c task.Change) {
		select {
		case ch <- c:
		default:
			// client is behind; drop to avoid blocking the mutation
		}
	})
	defer cancel()
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-ch:
			data, err := json.Marshal(changeEvent{Op: c.Op, IDs: c.IDs, Field: c.Field})
			if err != nil {
				log.Error("encode change", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
