package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ingresskit/ingresskit/pkg/schema"
)

// ErrNotObject marks non-object JSON where an object was expected.
var ErrNotObject = errors.New("repair: input is not a JSON object")

// nameKeys are the slugs that trigger contact name splitting when the schema
// declares first_name/last_name and neither was populated directly.
var nameKeys = map[string]bool{"name": true, "full_name": true, "fullname": true}

// DecodeObject decodes a single JSON object while preserving key order, which
// the trace contract requires (entry order equals input order). Map-based
// decoding would randomize it.
func DecodeObject(r io.Reader) ([]string, map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, ErrNotObject
	}

	var keys []string
	values := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		key := tok.(string)
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = val
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	return keys, values, nil
}

// RepairObject runs a single key/value object through the engine: resolves
// the object's keys, coerces each mapped value, then applies contact name
// splitting. The record and its full trace are returned.
func RepairObject(sch *schema.Schema, keys []string, values map[string]any) (Record, []TraceEntry) {
	row := make([]string, len(keys))
	for i, k := range keys {
		row[i] = stringify(values[k])
	}

	mappings, trace := ResolveHeaders(sch, keys)
	rec, _, entries := repairRow(sch, mappings, row)
	trace = append(trace, entries...)

	if entry, ok := splitName(sch, rec, keys, values); ok {
		trace = append(trace, entry)
	}
	return rec, trace
}

// splitName fills first_name/last_name from a name-like key. "Last, First"
// splits on the comma; "First Last" on the first whitespace; a single token
// becomes first_name only.
func splitName(sch *schema.Schema, rec Record, keys []string, values map[string]any) (TraceEntry, bool) {
	if !sch.Has("first_name") || !sch.Has("last_name") {
		return TraceEntry{}, false
	}
	if rec["first_name"] != nil || rec["last_name"] != nil {
		return TraceEntry{}, false
	}

	for _, k := range keys {
		if !nameKeys[schema.Slug(k)] {
			continue
		}
		full := strings.TrimSpace(stringify(values[k]))
		if full == "" {
			return TraceEntry{}, false
		}

		var first, last string
		if i := strings.Index(full, ","); i >= 0 {
			last = strings.TrimSpace(full[:i])
			first = strings.TrimSpace(full[i+1:])
		} else if i := strings.IndexAny(full, " \t"); i >= 0 {
			first = strings.TrimSpace(full[:i])
			last = strings.TrimSpace(full[i+1:])
		} else {
			first = full
		}

		if first != "" {
			rec["first_name"] = &first
		}
		if last != "" {
			rec["last_name"] = &last
		}
		return TraceEntry{Op: OpSplitName, Field: "name", From: full}, true
	}
	return TraceEntry{}, false
}

// stringify renders a decoded JSON value the way the coercers expect. Null
// behaves as empty; numbers keep their literal form via json.Number.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
