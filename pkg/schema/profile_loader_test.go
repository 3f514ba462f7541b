package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const ordersProfile = `name: orders
fields:
  - name: order_id
    kind: opaque_id
  - name: total
    kind: decimal
  - name: placed_at
    kind: date
synonyms:
  order_id:
    - order
    - order number
  total:
    - grand total
`

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "schema_orders.yaml", ordersProfile)

	s, err := LoadProfile(filepath.Join(dir, "schema_orders.yaml"))
	require.NoError(t, err)
	require.Equal(t, "orders", s.Name)
	require.Equal(t, []string{"order_id", "total", "placed_at"}, s.FieldNames())
	require.Contains(t, s.Synonyms["order_id"], "order number")
	// declared synonyms extend, not replace, the shared table
	require.Contains(t, s.Synonyms["total"], "grand total")
}

func TestLoadProfile_NameFromFilename(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "schema_shipments.yaml", `fields:
  - name: tracking
    kind: opaque_id
`)
	s, err := LoadProfile(filepath.Join(dir, "schema_shipments.yaml"))
	require.NoError(t, err)
	require.Equal(t, "shipments", s.Name)
}

func TestLoadProfiles_SkipsBuiltins(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "schema_orders.yaml", ordersProfile)
	writeProfile(t, dir, "schema_contacts.yaml", `name: contacts
fields:
  - name: email
    kind: free_text
`)

	reg := NewRegistry()
	require.NoError(t, reg.LoadProfiles(dir))

	require.Contains(t, reg.Names(), "orders")

	// the built-in contacts schema must win over the profile
	contacts, err := reg.Get("contacts")
	require.NoError(t, err)
	kind, _ := contacts.KindOf("email")
	require.Equal(t, KindEmail, kind)
}

func TestLoadProfiles_BadKind(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "schema_bad.yaml", `fields:
  - name: x
    kind: mystery
`)
	reg := NewRegistry()
	require.Error(t, reg.LoadProfiles(dir))
}
