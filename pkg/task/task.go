package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task is a single to-do entry. JSON keys are PascalCase to match existing
// data files.
type Task struct {
	ID          string     `json:"Id"`
	Title       string     `json:"Title"`
	IsCompleted bool       `json:"IsCompleted"`
	Tags        string     `json:"Tags"`
	DueDate     *time.Time `json:"DueDate"` // nil when unset
}

// DueLayout is the date format accepted from users for due dates.
const DueLayout = "2006-01-02"

// Layouts tried, in order, when reading a stored due date. Zone-less values
// are interpreted in local time.
var dueReadLayouts = []string{
	"2006-01-02T15:04:05",
	DueLayout,
}

// UnmarshalJSON accepts RFC 3339 due dates as well as the zone-less form.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		DueDate *string `json:"DueDate"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.DueDate = nil
	if aux.DueDate == nil {
		return nil
	}
	due, err := ParseDue(*aux.DueDate)
	if err != nil {
		return err
	}
	t.DueDate = &due
	return nil
}

// ParseDue parses a stored due date.
func ParseDue(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range dueReadLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse due date %q: %w", s, ErrBadDueDate)
}

// Equal reports whether two tasks carry the same id and field values.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID &&
		t.Title == o.Title &&
		t.IsCompleted == o.IsCompleted &&
		t.Tags == o.Tags &&
		sameDue(t.DueDate, o.DueDate)
}

func sameDue(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Field names a mutable task attribute for Update.
type Field string

const (
	FieldTitle     Field = "Title"
	FieldCompleted Field = "IsCompleted"
	FieldTags      Field = "Tags"
	FieldDueDate   Field = "DueDate"
)

// Op identifies the logical mutation behind a Change.
type Op string

const (
	OpAdd            Op = "add"
	OpRemove         Op = "remove"
	OpUpdate         Op = "update"
	OpCompleteAll    Op = "complete_all"
	OpClearCompleted Op = "clear_completed"
)

// Change is delivered to observers once per logical mutation.
type Change struct {
	Op    Op
	IDs   []string // tasks touched by the mutation
	Field Field    // set for OpUpdate
}

// Observer receives store change notifications.
type Observer func(Change)
