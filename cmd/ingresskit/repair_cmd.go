package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/ingresskit/ingresskit/pkg/repair"
	"github.com/ingresskit/ingresskit/pkg/schema"
)

// runRepairCmd implements `ingresskit repair --in <path> --out <path>
// --schema <name> [--tenant <id>]`. Exit 0 on success; 1 on unknown schema or
// unreadable input.
func runRepairCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("repair", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inPath := fs.String("in", "", "Input CSV file")
	outPath := fs.String("out", "", "Output cleaned CSV file")
	schemaName := fs.String("schema", "contacts", "Target schema: contacts|transactions|products")
	tenantID := fs.String("tenant", "default", "Tenant identifier (reserved, no effect)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inPath == "" || *outPath == "" {
		_, _ = fmt.Fprintln(stderr, "repair: --in and --out are required")
		fs.Usage()
		return 2
	}

	reg := schema.NewRegistry()
	sch, err := reg.Get(*schemaName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown schema: %s\n", *schemaName)
		return 1
	}

	slog.Debug("repairing file", "in", *inPath, "schema", *schemaName, "tenant", *tenantID)

	result, err := repair.RepairCSVFile(sch, *inPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unreadable input: %v\n", err)
		return 1
	}
	if err := result.SaveCSV(*outPath); err != nil {
		_, _ = fmt.Fprintf(stderr, "Writing output failed: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Repaired %d rows -> %d rows\n", result.Summary.RowsIn, result.Summary.RowsOut)
	diffs, _ := json.Marshal(result.SampleDiffs)
	_, _ = fmt.Fprintf(stdout, "Sample diffs: %s\n", diffs)
	return 0
}
