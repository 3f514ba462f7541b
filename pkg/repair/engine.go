package repair

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/gowebpki/jcs"

	"github.com/ingresskit/ingresskit/pkg/schema"
)

// MaxSampleDiffs bounds the number of before/after pairs retained for
// inspection.
const MaxSampleDiffs = 5

// Record maps every canonical field of the schema to its repaired value;
// nil marks an absent value. Each declared field appears exactly once.
type Record map[string]*string

// Summary aggregates a repair batch.
type Summary struct {
	Schema      []string          `json:"schema"`
	RowsIn      int               `json:"rows_in"`
	RowsOut     int               `json:"rows_out"`
	HeaderMap   map[string]string `json:"header_map"`
	ErrorCounts map[string]int    `json:"error_counts"`
}

// Diff is one retained before/after pair. Before holds the raw values of the
// mapped input keys; After holds what the coercers produced for them.
type Diff struct {
	Before map[string]string  `json:"before"`
	After  map[string]*string `json:"after"`
}

// Result is the full outcome of repairing one batch.
type Result struct {
	Records     []Record     `json:"records_out"`
	Summary     Summary      `json:"summary"`
	SampleDiffs []Diff       `json:"sample_diffs"`
	Trace       []TraceEntry `json:"trace"`

	sch *schema.Schema
}

// Schema returns the canonical schema this result was repaired against.
func (r *Result) Schema() *schema.Schema { return r.sch }

// Fingerprint returns the SHA-256 digest of the result's RFC 8785 canonical
// JSON form. Identical inputs always fingerprint identically.
func (r *Result) Fingerprint() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Repair drives a batch of tabular records through the pipeline. Headers are
// resolved once and applied uniformly; a coercion failure yields an absent
// field plus a coerce_error entry and never aborts the batch. Output record
// order equals input order.
func Repair(sch *schema.Schema, headers []string, rows [][]string) *Result {
	mappings, headerTrace := ResolveHeaders(sch, headers)

	res := &Result{
		Records:     make([]Record, 0, len(rows)),
		SampleDiffs: make([]Diff, 0, MaxSampleDiffs),
		Trace:       headerTrace,
		sch:         sch,
		Summary: Summary{
			Schema:      sch.FieldNames(),
			RowsIn:      len(rows),
			HeaderMap:   make(map[string]string, len(mappings)),
			ErrorCounts: make(map[string]int),
		},
	}
	for _, m := range mappings {
		res.Summary.HeaderMap[strconv.Itoa(m.Index)] = m.Field
	}
	countErrors(res.Summary.ErrorCounts, headerTrace)

	for _, row := range rows {
		rec, diff, entries := repairRow(sch, mappings, row)
		res.Records = append(res.Records, rec)
		res.Trace = append(res.Trace, entries...)
		countErrors(res.Summary.ErrorCounts, entries)
		if len(res.SampleDiffs) < MaxSampleDiffs {
			res.SampleDiffs = append(res.SampleDiffs, diff)
		}
	}

	res.Summary.RowsOut = len(res.Records)
	return res
}

// repairRow coerces one input row into a canonical record. Fields transition
// Unset -> (Set | CoerceError) once; a set field is never overwritten.
func repairRow(sch *schema.Schema, mappings []Mapping, row []string) (Record, Diff, []TraceEntry) {
	rec := newRecord(sch)
	diff := Diff{Before: make(map[string]string), After: make(map[string]*string)}
	var entries []TraceEntry

	for i, raw := range row {
		if i >= len(mappings) {
			break // ragged row wider than the header
		}
		m := mappings[i]
		if m.Field == "" {
			continue
		}
		if rec[m.Field] != nil {
			continue
		}

		kind, _ := sch.KindOf(m.Field)
		diff.Before[m.Field] = raw
		val, applied := coerceValue(kind, m.Field, raw, m.Unit)
		rec[m.Field] = val
		diff.After[m.Field] = val
		entries = append(entries, applied...)
	}
	return rec, diff, entries
}

func newRecord(sch *schema.Schema) Record {
	rec := make(Record, len(sch.Fields))
	for _, f := range sch.Fields {
		rec[f.Name] = nil
	}
	return rec
}

func countErrors(counts map[string]int, entries []TraceEntry) {
	for _, e := range entries {
		if (e.Op == OpCoerceError || e.Op == OpUnmapped) && e.Detail != "" {
			counts[errorKind(e.Detail)]++
		}
	}
}
