package persist

import (
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// taskListSchema describes the persisted document. A null root is accepted
// and read as an empty list. Id and Title may be absent: decode assigns a
// fresh id, and a missing title reads as empty.
const taskListSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": ["array", "null"],
  "items": {
    "type": "object",
    "properties": {
      "Id":          {"type": ["string", "null"]},
      "Title":       {"type": ["string", "null"]},
      "IsCompleted": {"type": "boolean"},
      "Tags":        {"type": ["string", "null"]},
      "DueDate":     {"type": ["string", "null"]}
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("task-list.schema.json", taskListSchema)

// validateShape checks a decoded JSON document against taskListSchema.
func validateShape(doc any) error {
	err := compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("validate shape: %w", err)
	}
	var msgs []string
	collectLeaves(ve, &msgs)
	return fmt.Errorf("unexpected document shape: %s", strings.Join(msgs, "; "))
}

func collectLeaves(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, msgs)
	}
}
