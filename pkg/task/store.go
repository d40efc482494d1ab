package task

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory, ordered task collection. Every mutation that
// changes state is followed by exactly one notification to each observer.
// Observers run on the mutating goroutine after the lock is released.
type Store struct {
	mu    sync.RWMutex
	tasks []Task

	obsMu     sync.Mutex
	observers []subscription
	nextSub   int
}

type subscription struct {
	id int
	fn Observer
}

// NewStore creates a Store seeded with a loaded collection. Seeding does not
// notify observers.
func NewStore(initial []Task) *Store {
	tasks := make([]Task, len(initial))
	for i, t := range initial {
		t.DueDate = cloneTime(t.DueDate)
		tasks[i] = t
	}
	return &Store{tasks: tasks}
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	s.obsMu.Unlock()

	for _, sub := range subs {
		sub.fn(c)
	}
}

// Add appends a new task. Titles that are empty or only whitespace are
// rejected with a *ValidationError and leave the collection unchanged.
func (s *Store) Add(title, tags string, due *time.Time) (Task, error) {
	if strings.TrimSpace(title) == "" {
		return Task{}, &ValidationError{Field: FieldTitle, Err: ErrEmptyTitle}
	}
	t := Task{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Title:   title,
		Tags:    tags,
		DueDate: cloneTime(due),
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.notify(Change{Op: OpAdd, IDs: []string{t.ID}})
	return t, nil
}

// Remove deletes the task with the given id and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	s.notify(Change{Op: OpRemove, IDs: []string{id}})
	return true
}

// Update sets a single field of the task with the given id. It returns true
// when the stored value changed. Unknown ids are ignored. The value must be a
// string for FieldTitle and FieldTags, a bool for FieldCompleted, and a
// *time.Time, time.Time or nil for FieldDueDate.
func (s *Store) Update(id string, field Field, value any) (bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	changed, err := apply(&s.tasks[i], field, value)
	s.mu.Unlock()
	if err != nil || !changed {
		return false, err
	}

	s.notify(Change{Op: OpUpdate, IDs: []string{id}, Field: field})
	return true, nil
}

func apply(t *Task, field Field, value any) (bool, error) {
	bad := &ValidationError{Field: field, Err: ErrBadValue}
	switch field {
	case FieldTitle:
		v, ok := value.(string)
		if !ok {
			return false, bad
		}
		if t.Title == v {
			return false, nil
		}
		t.Title = v
	case FieldTags:
		v, ok := value.(string)
		if !ok {
			return false, bad
		}
		if t.Tags == v {
			return false, nil
		}
		t.Tags = v
	case FieldCompleted:
		v, ok := value.(bool)
		if !ok {
			return false, bad
		}
		if t.IsCompleted == v {
			return false, nil
		}
		t.IsCompleted = v
	case FieldDueDate:
		var due *time.Time
		switch v := value.(type) {
		case nil:
		case *time.Time:
			due = cloneTime(v)
		case time.Time:
			due = &v
		default:
			return false, bad
		}
		if sameDue(t.DueDate, due) {
			return false, nil
		}
		t.DueDate = due
	default:
		return false, &ValidationError{Field: field, Err: ErrUnknownField}
	}
	return true, nil
}

// CompleteAll marks every task completed and notifies once for the batch.
func (s *Store) CompleteAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.tasks))
	for i := range s.tasks {
		if !s.tasks[i].IsCompleted {
			s.tasks[i].IsCompleted = true
			ids = append(ids, s.tasks[i].ID)
		}
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpCompleteAll, IDs: ids})
}

// ClearCompleted removes every completed task, keeping the order of the
// rest, and returns how many were removed.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	var removed []string
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.IsCompleted {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	// zero the tail so dropped tasks are not retained by the backing array
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = Task{}
	}
	s.tasks = kept
	s.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}
	s.notify(Change{Op: OpClearCompleted, IDs: removed})
	return len(removed)
}

// List returns a copy of the collection in display order.
func (s *Store) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		t.DueDate = cloneTime(t.DueDate)
		out[i] = t
	}
	return out
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	t := s.tasks[i]
	t.DueDate = cloneTime(t.DueDate)
	return t, true
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
