package repair

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ingresskit/ingresskit/pkg/schema"
	"github.com/ingresskit/ingresskit/pkg/units"
)

// dateLayouts are tried in declared order; the first hit wins, so ambiguous
// forms like "01/02/2024" consistently parse as month/day.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"2-Jan-2006",
	"02/01/2006",
	"Jan 2, 2006",
}

// dateLayoutsFallback is the general-parse tail applied after the fast paths.
// A fixed list keeps parsing deterministic across hosts and locales.
var dateLayoutsFallback = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2 2006",
	"2006.01.02",
	time.RFC1123,
	time.RFC1123Z,
}

var commonCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CAD": true, "AUD": true, "INR": true,
}

// coerceValue normalizes one raw value under a field's kind. On success it
// returns the canonical value plus the trace entries applied; on semantic
// failure it returns nil plus a single coerce_error entry. Empty and
// whitespace-only input is always absent with no error.
func coerceValue(kind schema.Kind, field, raw, unit string) (*string, []TraceEntry) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}

	switch kind {
	case schema.KindEmail:
		out := strings.ToLower(v)
		return &out, []TraceEntry{{Op: OpLower, Field: field, From: v, To: out}}

	case schema.KindPhone:
		out := keepDigits(v)
		if out == "" {
			return nil, nil
		}
		return &out, []TraceEntry{{Op: OpDigits, Field: field, From: v, To: out}}

	case schema.KindDecimal:
		return coerceDecimal(field, v, 2)

	case schema.KindDate:
		return coerceDate(field, v)

	case schema.KindCurrency:
		return coerceCurrency(field, v)

	case schema.KindOpaqueID, schema.KindFreeText:
		return &v, nil

	case schema.KindMassSI:
		return coerceUnit(field, v, unit, units.Mass)

	case schema.KindLengthSI:
		return coerceUnit(field, v, unit, units.Length)
	}

	// Unknown kinds cannot occur for registered schemas; treat as opaque.
	return &v, nil
}

func keepDigits(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keepNumeric strips everything outside [0-9.-] before float parsing.
func keepNumeric(v string) string {
	var b strings.Builder
	for _, r := range v {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func coerceDecimal(field, v string, places int) (*string, []TraceEntry) {
	f, err := strconv.ParseFloat(keepNumeric(v), 64)
	if err != nil {
		return nil, []TraceEntry{{Op: OpCoerceError, Field: field, From: v, Detail: "bad_decimal:" + v}}
	}
	out := strconv.FormatFloat(f, 'f', places, 64)
	return &out, []TraceEntry{{Op: OpParseDecimal, Field: field, From: v, To: out}}
}

func coerceDate(field, v string) (*string, []TraceEntry) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			out := t.Format("2006-01-02")
			return &out, []TraceEntry{{Op: OpParseDate, Field: field, From: v, To: out}}
		}
	}
	for _, layout := range dateLayoutsFallback {
		if t, err := time.Parse(layout, v); err == nil {
			out := t.Format("2006-01-02")
			return &out, []TraceEntry{{Op: OpParseDate, Field: field, From: v, To: out}}
		}
	}
	return nil, []TraceEntry{{Op: OpCoerceError, Field: field, From: v, Detail: "unrecognized_date:" + v}}
}

func coerceCurrency(field, v string) (*string, []TraceEntry) {
	var b strings.Builder
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	cur := strings.ToUpper(b.String())
	// Unknown 2-4 letter codes pass; only the length gate rejects.
	if !commonCurrencies[cur] && (len(cur) < 2 || len(cur) > 4) {
		return nil, []TraceEntry{{Op: OpCoerceError, Field: field, From: v, Detail: "bad_currency:" + v}}
	}
	return &cur, []TraceEntry{{Op: OpUppercaseCurrency, Field: field, From: v, To: cur}}
}

// coerceUnit handles mass_si and length_si. With an inline header unit the
// numeric portion is converted to the SI base; without one the value is
// treated as already canonical. Both render with 6 fractional digits so that
// engine output re-ingests byte-identically.
func coerceUnit(field, v, unit string, dim units.Dimension) (*string, []TraceEntry) {
	f, err := strconv.ParseFloat(keepNumeric(v), 64)
	if err != nil {
		return nil, []TraceEntry{{Op: OpCoerceError, Field: field, From: v, Detail: "bad_decimal:" + v}}
	}

	if unit == "" {
		out := strconv.FormatFloat(f, 'f', 6, 64)
		return &out, []TraceEntry{{Op: OpParseDecimal, Field: field, From: v, To: out}}
	}

	var si float64
	var base string
	switch dim {
	case units.Mass:
		si, err = units.NormalizeMass(f, unit)
		base = "kg"
	case units.Length:
		si, err = units.NormalizeLength(f, unit)
		base = "m"
	}
	if err != nil {
		return nil, []TraceEntry{{Op: OpCoerceError, Field: field, From: v, Detail: err.Error()}}
	}
	out := strconv.FormatFloat(si, 'f', 6, 64)
	detail := fmt.Sprintf("%s->%s", strings.TrimSpace(unit), base)
	return &out, []TraceEntry{{Op: OpConvertUnit, Field: field, From: v, To: out, Detail: detail}}
}
