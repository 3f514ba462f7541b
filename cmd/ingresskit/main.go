// Command ingresskit is the IngressKit entrypoint: an HTTP server for webhook
// harmonization and JSON normalization, plus a CSV repair CLI.
package main

import (
	"fmt"
	"io"
	"os"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable to allow mocking in tests
var startServer = runServer

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		// Default to server
		return startServer()
	}

	switch args[1] {
	case "serve", "server":
		return startServer()
	case "repair":
		return runRepairCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintln(stdout, version)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: ingresskit <command>

Commands:
  serve    Start the HTTP server (default)
  repair   Repair a CSV file against a canonical schema
  version  Print the version`)
}
