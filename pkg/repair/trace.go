// Package repair implements the deterministic repair pipeline: header
// resolution against a canonical schema, per-field value coercion, and the
// audit trace describing every decision made along the way.
//
// The engine is purely functional. It performs no I/O, holds no locks and
// keeps no state between batches, so concurrent invocations on independent
// data need no coordination.
package repair

import "strings"

// Op is the closed vocabulary of trace operations. The trace is part of the
// engine's contract, not a debug artifact: entry order reflects application
// order and consumers may dispatch on these exact strings.
type Op string

const (
	OpMapHeader         Op = "map_header"
	OpLower             Op = "lower"
	OpDigits            Op = "digits"
	OpParseDate         Op = "parse_date"
	OpParseDecimal      Op = "parse_decimal"
	OpUppercaseCurrency Op = "uppercase_currency"
	OpSplitName         Op = "split_name"
	OpConvertUnit       Op = "convert_unit"
	OpUnmapped          Op = "unmapped"
	OpCoerceError       Op = "coerce_error"
)

// TraceEntry records a single decision applied to a field.
type TraceEntry struct {
	Op     Op     `json:"op"`
	Field  string `json:"field,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// errorKind reduces a semantic detail like "bad_decimal:x-9" to its histogram
// bucket ("bad_decimal").
func errorKind(detail string) string {
	if i := strings.IndexByte(detail, ':'); i >= 0 {
		return detail[:i]
	}
	return detail
}
