package repair

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

var headerPool = []string{
	"Email", "E-Mail", "email_address", "Phone", "Telephone",
	"First Name", "Last Name", "Surname", "Company", "Employer",
	"Favorite Color", "Notes", "", "  ", "Email",
}

var cellPool = []string{
	"A@B.com", "dup@x.com", "(555) 123-4567", "555", "ext.",
	"Jane", "Doe", "Acme", "", "   ", "héllo wörld", "12,34",
	"not a date", "2024-01-02", "\"quoted\"",
}

func genBatch() gopter.Gen {
	pick := func(pool []string) gopter.Gen {
		return gen.IntRange(0, 1<<20).Map(func(i int) string { return pool[i%len(pool)] })
	}
	headers := gen.SliceOf(pick(headerPool)).SuchThat(func(h []string) bool {
		return len(h) <= 8
	})
	rows := gen.SliceOf(gen.SliceOf(pick(cellPool)).SuchThat(func(r []string) bool {
		return len(r) <= 8
	})).SuchThat(func(rs [][]string) bool { return len(rs) <= 6 })
	return gopter.CombineGens(headers, rows)
}

func batchParts(v []interface{}) ([]string, [][]string) {
	return v[0].([]string), v[1].([][]string)
}

func invariantParams() *gopter.TestParameters {
	p := gopter.DefaultTestParameters()
	p.MinSuccessfulTests = 100
	return p
}

// Repairing repaired output is a fixed point.
func TestInvariant_Idempotence(t *testing.T) {
	sch := mustSchema(t, "contacts")
	properties := gopter.NewProperties(invariantParams())

	properties.Property("repair(repair(x)) == repair(x)", prop.ForAll(
		func(v []interface{}) bool {
			headers, rows := batchParts(v)
			first := Repair(sch, headers, rows)

			var out bytes.Buffer
			if err := first.WriteCSV(&out); err != nil {
				return false
			}
			second, err := RepairCSV(sch, strings.NewReader(out.String()))
			if err != nil {
				return false
			}
			var again bytes.Buffer
			if err := second.WriteCSV(&again); err != nil {
				return false
			}
			return out.String() == again.String()
		},
		genBatch(),
	))

	properties.TestingRun(t)
}

// Same input bytes, same result, byte for byte.
func TestInvariant_Determinism(t *testing.T) {
	sch := mustSchema(t, "contacts")
	properties := gopter.NewProperties(invariantParams())

	properties.Property("fingerprints agree across runs", prop.ForAll(
		func(v []interface{}) bool {
			headers, rows := batchParts(v)
			a, err := Repair(sch, headers, rows).Fingerprint()
			if err != nil {
				return false
			}
			b, err := Repair(sch, headers, rows).Fingerprint()
			if err != nil {
				return false
			}
			return a == b
		},
		genBatch(),
	))

	properties.TestingRun(t)
}

// Every input header lands in the trace exactly once, mapped or not.
func TestInvariant_HeaderCoverage(t *testing.T) {
	sch := mustSchema(t, "contacts")
	properties := gopter.NewProperties(invariantParams())

	properties.Property("one header entry per input column", prop.ForAll(
		func(v []interface{}) bool {
			headers, _ := batchParts(v)
			res := Repair(sch, headers, nil)

			n := 0
			for _, e := range res.Trace {
				if e.Op == OpMapHeader || (e.Op == OpUnmapped && e.To == "") {
					n++
				}
			}
			return n == len(headers)
		},
		genBatch(),
	))

	properties.TestingRun(t)
}

// Output records contain exactly the declared fields, no more, no less.
func TestInvariant_SchemaClosure(t *testing.T) {
	sch := mustSchema(t, "contacts")
	declared := sch.FieldNames()
	properties := gopter.NewProperties(invariantParams())

	properties.Property("records close over the schema", prop.ForAll(
		func(v []interface{}) bool {
			headers, rows := batchParts(v)
			res := Repair(sch, headers, rows)
			for _, rec := range res.Records {
				if len(rec) != len(declared) {
					return false
				}
				for _, f := range declared {
					if _, ok := rec[f]; !ok {
						return false
					}
				}
			}
			return true
		},
		genBatch(),
	))

	properties.TestingRun(t)
}

// Output row order mirrors input row order.
func TestInvariant_OrderPreservation(t *testing.T) {
	sch := mustSchema(t, "contacts")

	headers := []string{"Email", "Company"}
	rows := [][]string{
		{"a@x.com", "one"},
		{"b@x.com", "two"},
		{"c@x.com", "three"},
		{"d@x.com", "four"},
	}
	res := Repair(sch, headers, rows)
	require.Len(t, res.Records, len(rows))
	for i, row := range rows {
		require.Equal(t, row[0], str(res.Records[i]["email"]))
		require.Equal(t, row[1], str(res.Records[i]["company"]))
	}
}

// Trace ops never stray outside the published vocabulary.
func TestInvariant_TraceVocabulary(t *testing.T) {
	known := map[Op]bool{
		OpMapHeader: true, OpLower: true, OpDigits: true, OpParseDate: true,
		OpParseDecimal: true, OpUppercaseCurrency: true, OpSplitName: true,
		OpConvertUnit: true, OpUnmapped: true, OpCoerceError: true,
	}

	for _, name := range []string{"contacts", "products", "transactions"} {
		sch := mustSchema(t, name)
		res := Repair(sch,
			[]string{"Email", "SKU", "ID", "Amount", "Weight (lb)", "Date", "Mystery"},
			[][]string{{"A@B.com", "k", "t", "x", "bad", "nope", "?"}})
		for _, e := range res.Trace {
			require.True(t, known[e.Op], "unknown op %q in %s", e.Op, name)
		}
	}
}
