package tool

import (
	"encoding/json"

	ai "github.com/spetersoncode/miniagent"
)

// SchemaFor generates a JSON schema from a struct type T.
// See [ai.SchemaFor] for the supported struct tags.
func SchemaFor[T any]() (json.RawMessage, error) {
	return ai.SchemaFor[T]()
}

// MustSchemaFor is like SchemaFor but panics on error.
func MustSchemaFor[T any]() json.RawMessage {
	return ai.MustSchemaFor[T]()
}
