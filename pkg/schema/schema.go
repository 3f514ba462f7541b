// Package schema holds the named canonical target schemas: ordered field
// lists, per-field normalization kinds, and the synonym table used for header
// resolution. Schemas are immutable once registered and safe to share across
// workers.
package schema

import (
	"errors"
	"fmt"
)

// Kind is the closed set of per-field normalization rules. The kind selects
// the value coercer applied during repair.
type Kind string

const (
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindDecimal  Kind = "decimal"
	KindDate     Kind = "date"
	KindCurrency Kind = "currency"
	KindOpaqueID Kind = "opaque_id"
	KindFreeText Kind = "free_text"
	KindMassSI   Kind = "mass_si"
	KindLengthSI Kind = "length_si"
)

var validKinds = map[Kind]bool{
	KindEmail: true, KindPhone: true, KindDecimal: true, KindDate: true,
	KindCurrency: true, KindOpaqueID: true, KindFreeText: true,
	KindMassSI: true, KindLengthSI: true,
}

// ErrUnknownKind is returned when a schema declares a kind outside the closed set.
var ErrUnknownKind = errors.New("schema: unknown field kind")

// Field binds a canonical field name to its kind.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Schema is a named canonical target: an ordered field list plus the synonym
// sets accepted for each field. Synonyms are matched after slug-normalization.
type Schema struct {
	Name     string
	Fields   []Field
	Synonyms map[string][]string

	kinds map[string]Kind
}

// New builds an immutable schema, validating kinds and snapshotting the
// synonym table so later mutation of the inputs cannot leak in.
func New(name string, fields []Field, synonyms map[string][]string) (*Schema, error) {
	if name == "" {
		return nil, errors.New("schema: name must not be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %q: no fields declared", name)
	}
	s := &Schema{
		Name:     name,
		Fields:   make([]Field, len(fields)),
		Synonyms: make(map[string][]string, len(synonyms)),
		kinds:    make(map[string]Kind, len(fields)),
	}
	copy(s.Fields, fields)
	for _, f := range s.Fields {
		if !validKinds[f.Kind] {
			return nil, fmt.Errorf("schema %q field %q: %w: %q", name, f.Name, ErrUnknownKind, f.Kind)
		}
		if _, dup := s.kinds[f.Name]; dup {
			return nil, fmt.Errorf("schema %q: duplicate field %q", name, f.Name)
		}
		s.kinds[f.Name] = f.Kind
	}
	for field, syns := range synonyms {
		if _, ok := s.kinds[field]; !ok {
			continue // synonym table may cover fields this schema does not declare
		}
		s.Synonyms[field] = append([]string(nil), syns...)
	}
	return s, nil
}

// FieldNames returns the ordered canonical field names.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Has reports whether name is a declared canonical field.
func (s *Schema) Has(name string) bool {
	_, ok := s.kinds[name]
	return ok
}

// KindOf returns the kind bound to a canonical field.
func (s *Schema) KindOf(name string) (Kind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}
