package repair

import (
	"regexp"

	"github.com/ingresskit/ingresskit/pkg/schema"
)

// unitTagged matches headers of the form "base (unit)", e.g. "Weight (lb)".
var unitTagged = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*$`)

// Mapping binds one input key (by position) to a canonical field, or marks it
// unmapped. A resolved batch-wide mapping is immutable and applied uniformly
// to every record.
type Mapping struct {
	Index  int
	Key    string
	Field  string // canonical field name; empty when unmapped
	Unit   string // inline unit captured from a unit-tagged header
	Detail string // "unmapped" or "duplicate_of:<field>" when Field is empty
}

// ResolveHeaders maps raw input keys to canonical schema fields. Rules are
// evaluated in order, first match wins: exact slug, synonym, then the same
// two retried on the base of a unit-tagged header. When two keys resolve to
// the same field the earlier key wins and the later one is reported as a
// duplicate.
//
// Every input key yields exactly one trace entry: map_header or unmapped.
func ResolveHeaders(sch *schema.Schema, keys []string) ([]Mapping, []TraceEntry) {
	mappings := make([]Mapping, len(keys))
	trace := make([]TraceEntry, 0, len(keys))
	claimed := make(map[string]bool, len(sch.Fields))

	for i, key := range keys {
		field, unit := resolveKey(sch, key)
		m := Mapping{Index: i, Key: key, Field: field, Unit: unit}

		switch {
		case field == "":
			m.Detail = "unmapped"
		case claimed[field]:
			m.Detail = "duplicate_of:" + field
			m.Field = ""
			m.Unit = ""
		default:
			claimed[field] = true
		}

		if m.Field != "" {
			trace = append(trace, TraceEntry{Op: OpMapHeader, Field: m.Field, From: key, To: m.Field})
		} else {
			trace = append(trace, TraceEntry{Op: OpUnmapped, From: key, Detail: m.Detail})
		}
		mappings[i] = m
	}
	return mappings, trace
}

// resolveKey applies the resolution rules to a single key. The returned unit
// is non-empty only when the key matched via its unit-tagged form.
func resolveKey(sch *schema.Schema, key string) (field, unit string) {
	if f := matchSlug(sch, schema.Slug(key)); f != "" {
		return f, ""
	}
	if m := unitTagged.FindStringSubmatch(key); m != nil {
		if f := matchSlug(sch, schema.Slug(m[1])); f != "" {
			return f, m[2]
		}
	}
	return "", ""
}

// matchSlug checks a slug against field names first, then synonyms. Fields
// are scanned in schema order so resolution is deterministic even when a
// synonym (e.g. "id") is listed under several canonical fields.
func matchSlug(sch *schema.Schema, slug string) string {
	if slug == "" {
		return ""
	}
	if sch.Has(slug) {
		return slug
	}
	for _, f := range sch.Fields {
		for _, syn := range sch.Synonyms[f.Name] {
			if schema.Slug(syn) == slug {
				return f.Name
			}
		}
	}
	return ""
}
