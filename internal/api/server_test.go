package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"task-list/internal/session"
	"task-list/pkg/persist"
	"task-list/pkg/task"
)

type memGateway struct {
	mu    sync.Mutex
	saves int
}

func (g *memGateway) Load(context.Context) ([]task.Task, error) {
	return []task.Task{}, nil
}

func (g *memGateway) Save(context.Context, []task.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves++
	return nil
}

func (g *memGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}

func newTestServer(t *testing.T) (*httptest.Server, *memGateway) {
	t.Helper()
	gw := &memGateway{}
	sess, err := session.Open(context.Background(), gw, session.Options{Mode: persist.ModeSync})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(sess))
	t.Cleanup(srv.Close)
	return srv, gw
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeTask(t *testing.T, data []byte) task.Task {
	t.Helper()
	var tk task.Task
	if err := json.Unmarshal(data, &tk); err != nil {
		t.Fatalf("unmarshal task: %v; body=%s", err, data)
	}
	return tk
}

func decodeTasks(t *testing.T, data []byte) []task.Task {
	t.Helper()
	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("unmarshal tasks: %v; body=%s", err, data)
	}
	return tasks
}

func TestCreateListAndGet(t *testing.T) {
	srv, gw := newTestServer(t)

	resp, data := doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": "Pay rent", "Tags": "bills", "DueDate": "2024-01-01"})
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d, body=%s", resp.StatusCode, data)
	}
	created := decodeTask(t, data)
	if created.ID == "" || created.Title != "Pay rent" || created.DueDate == nil {
		t.Fatalf("created = %+v", created)
	}

	_, data = doJSON(t, "GET", srv.URL+"/api/tasks", nil)
	if tasks := decodeTasks(t, data); len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("list = %+v", tasks)
	}

	resp, data = doJSON(t, "GET", srv.URL+"/api/tasks/"+created.ID, nil)
	if resp.StatusCode != 200 || decodeTask(t, data).Title != "Pay rent" {
		t.Fatalf("get: %d %s", resp.StatusCode, data)
	}
	if n := gw.saveCount(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
}

func TestCreateValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "blank title", body: `{"Title":"  "}`, field: "Title"},
		{name: "bad due", body: `{"Title":"x","DueDate":"next week"}`, field: "DueDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/tasks", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			var payload map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != 400 || payload["field"] != tt.field {
				t.Fatalf("status=%d payload=%v", resp.StatusCode, payload)
			}
		})
	}

	resp, _ := doJSON(t, "POST", srv.URL+"/api/tasks", "not an object")
	if resp.StatusCode != 400 {
		t.Errorf("invalid JSON status = %d", resp.StatusCode)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	_, data := doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": "a", "DueDate": "2024-01-01"})
	id := decodeTask(t, data).ID

	resp, data := doJSON(t, "PATCH", srv.URL+"/api/tasks/"+id, map[string]any{"Title": "b", "IsCompleted": true, "Tags": "x", "DueDate": nil})
	if resp.StatusCode != 200 {
		t.Fatalf("patch: %d %s", resp.StatusCode, data)
	}
	got := decodeTask(t, data)
	if got.Title != "b" || !got.IsCompleted || got.Tags != "x" || got.DueDate != nil {
		t.Fatalf("updated = %+v", got)
	}

	for _, due := range []any{"soon", 5} {
		resp, _ = doJSON(t, "PATCH", srv.URL+"/api/tasks/"+id, map[string]any{"DueDate": due})
		if resp.StatusCode != 400 {
			t.Errorf("due %v status = %d", due, resp.StatusCode)
		}
	}
	resp, _ = doJSON(t, "PATCH", srv.URL+"/api/tasks/missing", map[string]any{"Title": "x"})
	if resp.StatusCode != 404 {
		t.Errorf("missing status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/tasks/"+id, nil)
	if resp.StatusCode != 204 {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/tasks/"+id, nil)
	if resp.StatusCode != 404 {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
}

func TestBulkActionsAndFilters(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, title := range []string{"a", "b"} {
		doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": title, "Tags": "home"})
	}
	doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": "c", "Tags": "work"})

	_, data := doJSON(t, "GET", srv.URL+"/api/tasks?tag=work", nil)
	if tasks := decodeTasks(t, data); len(tasks) != 1 || tasks[0].Title != "c" {
		t.Fatalf("tag filter = %+v", tasks)
	}

	_, data = doJSON(t, "POST", srv.URL+"/api/tasks/complete-all", nil)
	for _, tk := range decodeTasks(t, data) {
		if !tk.IsCompleted {
			t.Fatalf("not completed: %+v", tk)
		}
	}
	_, data = doJSON(t, "GET", srv.URL+"/api/tasks?status=pending", nil)
	if tasks := decodeTasks(t, data); len(tasks) != 0 {
		t.Fatalf("pending = %+v", tasks)
	}

	_, data = doJSON(t, "POST", srv.URL+"/api/tasks/clear-completed", nil)
	var cleared map[string]int
	if err := json.Unmarshal(data, &cleared); err != nil || cleared["removed"] != 3 {
		t.Fatalf("clear = %s", data)
	}
}

func TestStatusAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": "a"})

	resp, _ := doJSON(t, "GET", srv.URL+"/health", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("health = %d", resp.StatusCode)
	}

	_, data := doJSON(t, "GET", srv.URL+"/api/status", nil)
	var st map[string]any
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatal(err)
	}
	if st["tasks"] != float64(1) || st["save_mode"] != "sync" || st["last_save_ok"] != true {
		t.Fatalf("status = %v", st)
	}

	resp, _ = doJSON(t, "POST", srv.URL+"/api/save", nil)
	if resp.StatusCode != 200 {
		t.Errorf("save = %d", resp.StatusCode)
	}
}

func TestStreamDeliversChanges(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/tasks/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": "a"})

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev changeEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Op != task.OpAdd || len(ev.IDs) != 1 {
			t.Fatalf("event = %+v", ev)
		}
		return
	}
	t.Fatalf("stream ended without an event: %v", sc.Err())
}

func TestUpdateWithBadDueChangesNothing(t *testing.T) {
	srv, gw := newTestServer(t)
	_, data := doJSON(t, "POST", srv.URL+"/api/tasks", map[string]string{"Title": "a", "Tags": "home"})
	id := decodeTask(t, data).ID
	saves := gw.saveCount()

	resp, data := doJSON(t, "PATCH", srv.URL+"/api/tasks/"+id, map[string]any{
		"Title":       "renamed",
		"IsCompleted": true,
		"Tags":        "work",
		"DueDate":     "next tuesday",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, body=%s", resp.StatusCode, data)
	}

	_, data = doJSON(t, "GET", srv.URL+"/api/tasks/"+id, nil)
	got := decodeTask(t, data)
	if got.Title != "a" || got.IsCompleted || got.Tags != "home" || got.DueDate != nil {
		t.Fatalf("task changed by rejected patch: %+v", got)
	}
	if n := gw.saveCount(); n != saves {
		t.Errorf("saves = %d, want %d", n, saves)
	}
}
