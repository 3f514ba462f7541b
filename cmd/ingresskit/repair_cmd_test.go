package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepairCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"Email,Phone,First Name\nA@B.com,(555) 123-4567,Jane\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"ingresskit", "repair", "--in", in, "--out", out, "--schema", "contacts"},
		&stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Contains(t, stdout.String(), "Repaired 1 rows -> 1 rows")
	require.Contains(t, stdout.String(), "Sample diffs:")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Equal(t, "email,phone,first_name,last_name,company", lines[0])
	require.Equal(t, "a@b.com,5551234567,Jane,,", lines[1])
}

func TestRepairCmd_UnknownSchema(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := Run([]string{"ingresskit", "repair",
		"--in", filepath.Join(dir, "in.csv"), "--out", filepath.Join(dir, "out.csv"),
		"--schema", "nope"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "Unknown schema: nope")
}

func TestRepairCmd_MissingInput(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := Run([]string{"ingresskit", "repair",
		"--in", filepath.Join(dir, "absent.csv"), "--out", filepath.Join(dir, "out.csv")},
		&stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "Unreadable input")
}

func TestRepairCmd_RequiredFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"ingresskit", "repair"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "--in and --out are required")
}

func TestRunVersionAndHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, Run([]string{"ingresskit", "version"}, &stdout, &stderr))
	require.Equal(t, version+"\n", stdout.String())

	stdout.Reset()
	require.Equal(t, 0, Run([]string{"ingresskit", "help"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "Usage: ingresskit")
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 2, Run([]string{"ingresskit", "bogus"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Unknown command: bogus")
}

func TestRunDefaultsToServer(t *testing.T) {
	orig := startServer
	defer func() { startServer = orig }()

	called := 0
	startServer = func() int { called++; return 0 }

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, Run([]string{"ingresskit"}, &stdout, &stderr))
	require.Equal(t, 0, Run([]string{"ingresskit", "serve"}, &stdout, &stderr))
	require.Equal(t, 2, called)
}
