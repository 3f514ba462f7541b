package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownSchema is returned when a schema name is not registered.
var ErrUnknownSchema = errors.New("schema: unknown schema")

// defaultSynonyms is the shared alias table. Keys are canonical field names;
// values are the accepted raw spellings, compared after slug-normalization.
var defaultSynonyms = map[string][]string{
	"email":      {"email", "e-mail", "mail", "email address"},
	"phone":      {"phone", "phone number", "tel", "telephone"},
	"first_name": {"first", "first name", "fname", "given name"},
	"last_name":  {"last", "last name", "lname", "surname", "family name"},
	"company":    {"company", "organization", "org", "employer"},

	"id":          {"id", "txn id", "transaction id"},
	"amount":      {"amount", "total", "value", "amount_cents", "amount (usd)", "price"},
	"currency":    {"currency", "curr", "iso currency"},
	"occurred_at": {"date", "occurred at", "timestamp", "created", "time"},
	"customer_id": {"customer id", "customer", "client id", "account id"},

	"sku":       {"sku", "id", "product id", "code"},
	"name":      {"name", "title", "product name"},
	"price":     {"price", "amount", "cost"},
	"category":  {"category", "type", "group"},
	"weight_kg": {"weight", "mass", "weight_kg"},
	"length_m":  {"length", "size", "height", "width", "depth", "length_m"},
}

// DefaultSynonyms returns a copy of the shared alias table.
func DefaultSynonyms() map[string][]string {
	out := make(map[string][]string, len(defaultSynonyms))
	for k, v := range defaultSynonyms {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Registry holds the named canonical schemas. It is populated at startup and
// immutable afterwards, so it may be shared across all workers.
type Registry struct {
	schemas map[string]*Schema
	names   []string
}

// NewRegistry returns a registry preloaded with the bootstrap schemas:
// contacts, transactions and products.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]*Schema)}
	for _, b := range builtins() {
		r.register(b)
	}
	return r
}

func (r *Registry) register(s *Schema) {
	if _, exists := r.schemas[s.Name]; !exists {
		r.names = append(r.names, s.Name)
	}
	r.schemas[s.Name] = s
}

// Get returns the schema registered under name.
func (r *Registry) Get(name string) (*Schema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// Describe returns a serializable view of every registered schema, used by
// the GET /v1/schemas endpoint.
func (r *Registry) Describe() map[string]any {
	out := make(map[string]any, len(r.schemas))
	for name, s := range r.schemas {
		fields := make([]map[string]string, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = map[string]string{"name": f.Name, "kind": string(f.Kind)}
		}
		out[name] = map[string]any{
			"fields":   fields,
			"synonyms": s.Synonyms,
		}
	}
	return out
}

func mustNew(name string, fields []Field) *Schema {
	s, err := New(name, fields, defaultSynonyms)
	if err != nil {
		panic(err) // bootstrap schemas are compile-time constants
	}
	return s
}

func builtins() []*Schema {
	return []*Schema{
		mustNew("contacts", []Field{
			{Name: "email", Kind: KindEmail},
			{Name: "phone", Kind: KindPhone},
			{Name: "first_name", Kind: KindFreeText},
			{Name: "last_name", Kind: KindFreeText},
			{Name: "company", Kind: KindFreeText},
		}),
		mustNew("transactions", []Field{
			{Name: "id", Kind: KindOpaqueID},
			{Name: "amount", Kind: KindDecimal},
			{Name: "currency", Kind: KindCurrency},
			{Name: "occurred_at", Kind: KindDate},
			{Name: "customer_id", Kind: KindOpaqueID},
		}),
		mustNew("products", []Field{
			{Name: "sku", Kind: KindOpaqueID},
			{Name: "name", Kind: KindFreeText},
			{Name: "price", Kind: KindDecimal},
			{Name: "currency", Kind: KindCurrency},
			{Name: "category", Kind: KindFreeText},
			{Name: "weight_kg", Kind: KindMassSI},
			{Name: "length_m", Kind: KindLengthSI},
		}),
	}
}
