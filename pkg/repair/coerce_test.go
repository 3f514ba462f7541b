package repair

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ingresskit/ingresskit/pkg/schema"
)

func str(v *string) string {
	if v == nil {
		return "<absent>"
	}
	return *v
}

func TestCoerce_Email(t *testing.T) {
	v, entries := coerceValue(schema.KindEmail, "email", "  A@B.COM ", "")
	require.Equal(t, "a@b.com", str(v))
	require.Len(t, entries, 1)
	require.Equal(t, OpLower, entries[0].Op)
	require.Equal(t, "a@b.com", entries[0].To)
}

func TestCoerce_Phone(t *testing.T) {
	v, entries := coerceValue(schema.KindPhone, "phone", "(555) 123-4567", "")
	require.Equal(t, "5551234567", str(v))
	require.Equal(t, OpDigits, entries[0].Op)

	v, entries = coerceValue(schema.KindPhone, "phone", "ext.", "")
	require.Nil(t, v)
	require.Empty(t, entries)
}

func TestCoerce_Decimal(t *testing.T) {
	v, _ := coerceValue(schema.KindDecimal, "amount", "$1,299.50", "")
	require.Equal(t, "1299.50", str(v))

	v, _ = coerceValue(schema.KindDecimal, "amount", "12", "")
	require.Equal(t, "12.00", str(v))

	v, entries := coerceValue(schema.KindDecimal, "amount", "abc", "")
	require.Nil(t, v)
	require.Equal(t, OpCoerceError, entries[0].Op)
	require.Equal(t, "bad_decimal:abc", entries[0].Detail)
}

func TestCoerce_DateFormats(t *testing.T) {
	cases := map[string]string{
		"2024-01-02":          "2024-01-02",
		"01/02/2024":          "2024-01-02",
		"2024/01/02":          "2024-01-02",
		"2-Jan-2024":          "2024-01-02",
		"Jan 2, 2024":         "2024-01-02",
		"2024-01-02T10:30:00": "2024-01-02",
		"January 2, 2024":     "2024-01-02",
	}
	for in, want := range cases {
		v, entries := coerceValue(schema.KindDate, "occurred_at", in, "")
		require.Equal(t, want, str(v), "input %q", in)
		require.Equal(t, OpParseDate, entries[0].Op)
	}
}

func TestCoerce_DateUnrecognized(t *testing.T) {
	v, entries := coerceValue(schema.KindDate, "occurred_at", "not a date", "")
	require.Nil(t, v)
	require.Equal(t, OpCoerceError, entries[0].Op)
	require.Equal(t, "unrecognized_date:not a date", entries[0].Detail)
}

func TestCoerce_Currency(t *testing.T) {
	v, entries := coerceValue(schema.KindCurrency, "currency", " usd ", "")
	require.Equal(t, "USD", str(v))
	require.Equal(t, OpUppercaseCurrency, entries[0].Op)

	// unknown but well-formed codes pass
	v, _ = coerceValue(schema.KindCurrency, "currency", "XYZ", "")
	require.Equal(t, "XYZ", str(v))

	v, entries = coerceValue(schema.KindCurrency, "currency", "x", "")
	require.Nil(t, v)
	require.Equal(t, "bad_currency:x", entries[0].Detail)
}

func TestCoerce_OpaqueIDPreservesCase(t *testing.T) {
	v, entries := coerceValue(schema.KindOpaqueID, "sku", " AbC-9 ", "")
	require.Equal(t, "AbC-9", str(v))
	require.Empty(t, entries)
}

func TestCoerce_MassWithUnit(t *testing.T) {
	v, entries := coerceValue(schema.KindMassSI, "weight_kg", "2.2", "lb")
	require.Equal(t, "0.997903", str(v))
	require.Equal(t, OpConvertUnit, entries[0].Op)
	require.Equal(t, "lb->kg", entries[0].Detail)
}

func TestCoerce_MassUnknownUnit(t *testing.T) {
	v, entries := coerceValue(schema.KindMassSI, "weight_kg", "2.2", "stone")
	require.Nil(t, v)
	require.Equal(t, OpCoerceError, entries[0].Op)
	require.Equal(t, "unknown_mass_unit:stone", entries[0].Detail)
}

func TestCoerce_MassWithoutUnit(t *testing.T) {
	// no inline unit: already canonical kg, rendered to 6 digits
	v, entries := coerceValue(schema.KindMassSI, "weight_kg", "0.997903", "")
	require.Equal(t, "0.997903", str(v))
	require.Equal(t, OpParseDecimal, entries[0].Op)
}

func TestCoerce_LengthWithUnit(t *testing.T) {
	v, _ := coerceValue(schema.KindLengthSI, "length_m", "3", "ft")
	require.Equal(t, "0.914400", str(v))
}

func TestCoerce_EmptyAlwaysAbsent(t *testing.T) {
	for _, kind := range []schema.Kind{
		schema.KindEmail, schema.KindPhone, schema.KindDecimal, schema.KindDate,
		schema.KindCurrency, schema.KindOpaqueID, schema.KindFreeText,
		schema.KindMassSI, schema.KindLengthSI,
	} {
		for _, raw := range []string{"", "   ", "\t"} {
			v, entries := coerceValue(kind, "f", raw, "")
			require.Nil(t, v, "kind %s raw %q", kind, raw)
			require.Empty(t, entries)
		}
	}
}
