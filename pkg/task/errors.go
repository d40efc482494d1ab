package task

import "errors"

var (
	ErrEmptyTitle   = errors.New("title is required")
	ErrBadValue     = errors.New("value has the wrong type for field")
	ErrBadDueDate   = errors.New("due date must be YYYY-MM-DD")
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError is returned when input is rejected before any mutation.
type ValidationError struct {
	Field Field
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return string(e.Field) + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
