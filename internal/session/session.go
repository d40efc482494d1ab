// Package session is the boundary between a front end and the task model.
// It loads the collection before any mutation is accepted, wires saving to
// store changes, and exposes user intents plus a passive save status.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"task-list/pkg/persist"
	"task-list/pkg/task"
)

// Options configures a Session.
type Options struct {
	Mode persist.Mode

	// OnSaveStatus is called after every save attempt, possibly from the
	// background saver goroutine.
	OnSaveStatus func(persist.Status)
}

// Session owns the store and its saver for the life of a front end.
type Session struct {
	store   *task.Store
	saver   *persist.Saver
	loadErr error
	unsub   func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Open loads the collection through gw and builds the session. A degraded
// load is logged and reported by LoadError; it does not fail Open.
func Open(ctx context.Context, gw persist.Gateway, opts Options) (*Session, error) {
	mode := opts.Mode
	if mode == "" {
		mode = persist.ModeAuto
	}
	if _, err := persist.ParseMode(string(mode)); err != nil {
		return nil, err
	}

	tasks, loadErr := gw.Load(ctx)
	if loadErr != nil {
		log.Warn("load failed, starting empty", "err", loadErr)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}

	store := task.NewStore(tasks)
	saver := persist.NewSaver(store, gw, mode, opts.OnSaveStatus)
	s := &Session{
		store:   store,
		saver:   saver,
		loadErr: loadErr,
	}
	s.unsub = store.Subscribe(saver.Notify)
	log.Info("session opened", "tasks", len(tasks), "mode", mode)
	return s, nil
}

// Start runs the background saver in auto mode. It is a no-op otherwise,
// and when already started.
func (s *Session) Start(ctx context.Context) {
	if s.saver.Mode() != persist.ModeAuto {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.saver.Run(ctx)
	}()
}

// Close stops the background saver and flushes unsaved changes. In manual
// mode unsaved changes are left alone.
func (s *Session) Close(ctx context.Context) error {
	s.unsub()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	if s.saver.Mode() == persist.ModeManual {
		if s.saver.Dirty() {
			log.Warn("closing with unsaved changes")
		}
		return nil
	}
	return s.saver.Flush(ctx)
}

// Subscribe registers an observer on the underlying store.
func (s *Session) Subscribe(fn task.Observer) func() {
	return s.store.Subscribe(fn)
}

// AddTask adds a task from raw form input. due is empty or YYYY-MM-DD.
func (s *Session) AddTask(title, tags, due string) (task.Task, error) {
	dueDate, err := ParseDueInput(due)
	if err != nil {
		return task.Task{}, err
	}
	return s.store.Add(title, strings.TrimSpace(tags), dueDate)
}

// ParseDueInput parses a user-entered due date in local time.
func ParseDueInput(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(task.DueLayout, s, time.Local)
	if err != nil {
		return nil, &task.ValidationError{
			Field: task.FieldDueDate,
			Err:   fmt.Errorf("%w: %q", task.ErrBadDueDate, s),
		}
	}
	return &d, nil
}

// Delete removes the task with id.
func (s *Session) Delete(id string) bool {
	return s.store.Remove(id)
}

// SetCompleted sets the completion flag of the task with id.
func (s *Session) SetCompleted(id string, done bool) {
	// bool matches FieldCompleted, so Update cannot fail here
	_, _ = s.store.Update(id, task.FieldCompleted, done)
}

// Rename changes the title of the task with id.
func (s *Session) Rename(id, title string) error {
	_, err := s.store.Update(id, task.FieldTitle, title)
	return err
}

// SetTags replaces the tags of the task with id.
func (s *Session) SetTags(id, tags string) error {
	_, err := s.store.Update(id, task.FieldTags, strings.TrimSpace(tags))
	return err
}

// SetDue replaces the due date of the task with id. Empty input clears it.
func (s *Session) SetDue(id, due string) error {
	d, err := ParseDueInput(due)
	if err != nil {
		return err
	}
	_, err = s.store.Update(id, task.FieldDueDate, d)
	return err
}

// CompleteAll marks every task completed.
func (s *Session) CompleteAll() {
	s.store.CompleteAll()
}

// ClearCompleted removes completed tasks and returns how many went.
func (s *Session) ClearCompleted() int {
	return s.store.ClearCompleted()
}

// Save writes the collection now, in any mode.
func (s *Session) Save(ctx context.Context) error {
	return s.saver.SaveNow(ctx)
}

// Tasks returns the current collection in display order.
func (s *Session) Tasks() []task.Task {
	return s.store.List()
}

// Task returns the task with id.
func (s *Session) Task(id string) (task.Task, bool) {
	return s.store.Get(id)
}

// SaveStatus returns the outcome of the last save attempt.
func (s *Session) SaveStatus() persist.Status {
	return s.saver.Status()
}

// Dirty reports whether there are changes not yet saved.
func (s *Session) Dirty() bool {
	return s.saver.Dirty()
}

// Mode returns the save mode.
func (s *Session) Mode() persist.Mode {
	return s.saver.Mode()
}

// LoadError returns the error behind a degraded startup load, if any.
func (s *Session) LoadError() error {
	return s.loadErr
}
