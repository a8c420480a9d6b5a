// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command piiscan walks a directory tree, extracts text from every
// supported document format, runs it through one or more PII detection
// engines, and writes the surviving findings to a CSV, JSON, or XLSX
// report (spec §6). It exposes a single subcommand, scan, mirroring the
// teacher's top-level dispatch-by-os.Args[1] shape even though there is
// only one command to dispatch to.
package main

import (
	"fmt"
	"os"

	"github.com/kraklabs/piiscan/internal/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(errors.ExitArgs)
	}

	switch os.Args[1] {
	case "scan":
		runScan(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	case "-v", "--version", "version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(errors.ExitArgs)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `piiscan - personally identifiable information scanner

Usage:
  piiscan scan <path> [options]

Commands:
  scan          Scan a directory tree for PII

Global Options:
  --version     Show version and exit
  --help        Show this message

Run 'piiscan scan --help' for the full scan option list.
`)
}

func printVersion() {
	fmt.Printf("piiscan version %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("built: %s\n", date)
}
