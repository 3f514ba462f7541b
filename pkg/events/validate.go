package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// canonicalEventSchema pins the canonical event contract. Ingest handlers can
// opt into validating every outbound event against it; the test suite always
// does.
const canonicalEventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://ingresskit.dev/schemas/canonical-event.json",
  "type": "object",
  "required": ["event_id", "source", "occurred_at", "action"],
  "properties": {
    "event_id": {"type": "string"},
    "source": {"type": "string", "enum": ["stripe", "github", "slack"]},
    "occurred_at": {
      "type": "string",
      "pattern": "^\\d{4}-\\d{2}-\\d{2}T\\d{2}:\\d{2}:\\d{2}\\+00:00$"
    },
    "actor": {"type": "object"},
    "subject": {"type": "object"},
    "action": {"type": "string", "minLength": 1},
    "metadata": {"type": "object"},
    "trace": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["op"],
        "properties": {
          "op": {"type": "string"},
          "field": {"type": "string"},
          "from": {"type": "string"},
          "to": {"type": "string"},
          "detail": {"type": "string"}
        }
      }
    }
  },
  "additionalProperties": false
}`

var compiledEventSchema = jsonschema.MustCompileString(
	"https://ingresskit.dev/schemas/canonical-event.json", canonicalEventSchema)

// Validate checks a canonical event against the pinned JSON Schema.
func Validate(ev *CanonicalEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal for validation: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var inst any
	if err := dec.Decode(&inst); err != nil {
		return fmt.Errorf("events: decode for validation: %w", err)
	}
	if err := compiledEventSchema.Validate(inst); err != nil {
		return fmt.Errorf("events: canonical event invalid: %w", err)
	}
	return nil
}

// SchemaJSON returns the canonical event JSON Schema document, exposed by the
// schema listing endpoint.
func SchemaJSON() json.RawMessage {
	return json.RawMessage(canonicalEventSchema)
}
