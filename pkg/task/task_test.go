package task

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTaskJSONKeys(t *testing.T) {
	due := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	data, err := json.Marshal(Task{ID: "1", Title: "Pay rent", Tags: "bills", DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Id":"1","Title":"Pay rent","IsCompleted":false,"Tags":"bills","DueDate":"2024-01-01T09:30:00Z"}`
	if string(data) != want {
		t.Fatalf("got  %s\nwant %s", data, want)
	}

	data, err = json.Marshal(Task{ID: "2", Title: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"DueDate":null`) {
		t.Fatalf("unset due date should be null: %s", data)
	}
}

func TestTaskUnmarshalDueFormats(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{"rfc3339", `"2024-01-01T09:30:00Z"`, ptr(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))},
		{"zone-less", `"2024-01-01T00:00:00"`, ptr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))},
		{"fractional zone-less", `"2024-01-01T00:00:00.1234567"`, ptr(time.Date(2024, 1, 1, 0, 0, 0, 123456700, time.Local))},
		{"date only", `"2024-01-01"`, ptr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Task
			in := `{"Id":"a","Title":"t","IsCompleted":true,"Tags":"x","DueDate":` + tt.in + `}`
			if err := json.Unmarshal([]byte(in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.ID != "a" || got.Title != "t" || !got.IsCompleted || got.Tags != "x" {
				t.Errorf("fields lost: %+v", got)
			}
			if !sameDue(got.DueDate, tt.want) {
				t.Errorf("due = %v, want %v", got.DueDate, tt.want)
			}
		})
	}
}

func TestTaskUnmarshalMissingDue(t *testing.T) {
	var got Task
	if err := json.Unmarshal([]byte(`{"Id":"a","Title":"t"}`), &got); err != nil {
		t.Fatal(err)
	}
	if got.DueDate != nil {
		t.Fatalf("due = %v, want nil", got.DueDate)
	}
}

func TestTaskUnmarshalBadDue(t *testing.T) {
	var got Task
	err := json.Unmarshal([]byte(`{"Id":"a","Title":"t","DueDate":"next week"}`), &got)
	if !errors.Is(err, ErrBadDueDate) {
		t.Fatalf("expected ErrBadDueDate, got %v", err)
	}
}

func TestTaskEqual(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Task{ID: "1", Title: "a", DueDate: &due}
	b := a
	other := due.In(time.FixedZone("x", 7200))
	b.DueDate = &other
	if !a.Equal(b) {
		t.Error("same instant in different zones should be equal")
	}
	b.DueDate = nil
	if a.Equal(b) {
		t.Error("nil vs set due should differ")
	}
}

func ptr(t time.Time) *time.Time { return &t }
