package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"task-list/pkg/task"
)

// Mode selects when the Saver writes.
type Mode string

const (
	ModeAuto   Mode = "auto"   // coalesced background save after every change
	ModeSync   Mode = "sync"   // save inline in the change notification
	ModeManual Mode = "manual" // save only on SaveNow
)

// ParseMode validates a mode name. An empty name means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeSync, ModeManual:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown save mode %q (want auto, sync or manual)", s)
}

// Source is what the Saver snapshots. *task.Store satisfies it.
type Source interface {
	List() []task.Task
}

// Status is the outcome of the most recent save attempt.
type Status struct {
	At    time.Time // zero if no save has been attempted
	OK    bool
	Err   error
	Count int // tasks written on success
}

// Attempted reports whether a save has been attempted.
func (s Status) Attempted() bool {
	return !s.At.IsZero()
}

// Saver writes store snapshots through a Gateway. Saves are serialized so
// that no two writes interleave.
type Saver struct {
	src      Source
	gw       Gateway
	mode     Mode
	onStatus func(Status)

	wake   chan struct{}
	saveMu sync.Mutex

	mu     sync.Mutex
	dirty  bool
	status Status
}

// NewSaver creates a Saver. onStatus, if non-nil, is called after every save
// attempt; it must not call back into the Saver.
func NewSaver(src Source, gw Gateway, mode Mode, onStatus func(Status)) *Saver {
	return &Saver{
		src:      src,
		gw:       gw,
		mode:     mode,
		onStatus: onStatus,
		wake:     make(chan struct{}, 1),
	}
}

// Mode returns the save mode.
func (s *Saver) Mode() Mode {
	return s.mode
}

// Notify is a task.Observer. It never blocks in ModeAuto: if a save is
// already queued the new change rides along with it.
func (s *Saver) Notify(task.Change) {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()

	switch s.mode {
	case ModeSync:
		_ = s.SaveNow(context.Background())
	case ModeAuto:
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Run performs queued saves until ctx is cancelled. A save still queued at
// cancellation is left for Flush, and a save already running is not cut short.
func (s *Saver) Run(ctx context.Context) {
	saveCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			if ctx.Err() != nil {
				return
			}
			_ = s.SaveNow(saveCtx)
		}
	}
}

// SaveNow snapshots the source and saves it. The error is also recorded in
// Status; callers may ignore it.
func (s *Saver) SaveNow(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	tasks := s.src.List()
	err := s.gw.Save(ctx, tasks)

	st := Status{At: time.Now(), OK: err == nil, Err: err}
	s.mu.Lock()
	if err != nil {
		s.dirty = true
	} else {
		st.Count = len(tasks)
	}
	s.status = st
	s.mu.Unlock()

	if err != nil {
		log.Error("save failed", "mode", s.mode, "err", err)
	}
	if s.onStatus != nil {
		s.onStatus(st)
	}
	return err
}

// Flush saves if there are unsaved changes.
func (s *Saver) Flush(ctx context.Context) error {
	if !s.Dirty() {
		return nil
	}
	return s.SaveNow(ctx)
}

// Dirty reports whether changes have happened since the last successful save.
func (s *Saver) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Status returns the outcome of the last save attempt.
func (s *Saver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
