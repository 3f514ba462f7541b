package repair

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ingresskit/ingresskit/pkg/schema"
)

// ErrUnreadableInput marks structural failure at the container level; the
// engine is never invoked for it.
var ErrUnreadableInput = errors.New("repair: unreadable input")

// RepairCSV parses delimited input permissively (invalid byte sequences
// replaced, ragged rows tolerated), takes the first row as the header, and
// runs the batch through the engine.
func RepairCSV(sch *schema.Schema, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}

	cr := csv.NewReader(strings.NewReader(strings.ToValidUTF8(string(data), "�")))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}
	if len(rows) == 0 {
		return Repair(sch, nil, nil), nil
	}
	return Repair(sch, rows[0], rows[1:]), nil
}

// RepairCSVFile repairs a CSV file on disk.
func RepairCSVFile(sch *schema.Schema, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}
	defer func() { _ = f.Close() }()
	return RepairCSV(sch, f)
}

// WriteCSV renders the repaired batch in schema field order, absent values as
// empty strings, standard CSV quoting.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	fields := r.Summary.Schema

	if err := cw.Write(fields); err != nil {
		return err
	}
	row := make([]string, len(fields))
	for _, rec := range r.Records {
		for i, f := range fields {
			if v := rec[f]; v != nil {
				row[i] = *v
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the output atomically: to a temp file in the target
// directory, then rename.
func (r *Result) SaveCSV(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := r.WriteCSV(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
