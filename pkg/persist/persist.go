// Package persist moves the task collection between memory and durable
// storage. Gateways always hand back a usable collection: a failed load
// yields an empty one together with a typed *Error, and a failed save leaves
// the in-memory store untouched.
package persist

import (
	"context"
	"errors"
	"fmt"

	"task-list/pkg/task"
)

// Gateway is the contract for whole-collection persistence.
type Gateway interface {
	// Load returns the persisted collection. The slice is never nil; a
	// non-nil error describes why an empty collection was substituted.
	Load(ctx context.Context) ([]task.Task, error)

	// Save replaces the persisted collection with tasks.
	Save(ctx context.Context, tasks []task.Task) error
}

// Kind classifies persistence failures.
type Kind string

const (
	KindDeserialization Kind = "deserialization" // stored data is malformed or the wrong shape
	KindIO              Kind = "io"              // the storage medium failed
)

// Error is returned by gateways for every failure.
type Error struct {
	Kind Kind
	Op   string // "load" or "save"
	Path string // file path or table name
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s error: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
