// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"

	"github.com/kraklabs/piiscan/internal/output"
	"github.com/kraklabs/piiscan/internal/stats"
	"github.com/kraklabs/piiscan/internal/ui"
)

// renderSummary prints the run summary in the requested format,
// grounded on cmd/cie/index.go's printResult for the human branch and
// internal/output.JSON for the json branch.
func renderSummary(summary stats.Summary, format string, outputPath string, stopped bool) {
	if format == "json" {
		_ = output.JSON(summary)
		return
	}
	printHumanSummary(summary, outputPath, stopped)
}

func printHumanSummary(summary stats.Summary, outputPath string, stopped bool) {
	fmt.Println()
	ui.Header("Scan Complete")
	fmt.Printf("%s %s\n", ui.Label("Files Discovered:"), ui.CountText(int(summary.FilesDiscovered)))
	fmt.Printf("%s %s\n", ui.Label("Files Scanned:"), ui.CountText(int(summary.FilesAdmitted)))
	fmt.Printf("%s %s\n", ui.Label("Findings Written:"), ui.CountText(int(summary.FindingsEmitted)))
	fmt.Printf("%s %s\n", ui.Label("Whitelisted:"), ui.CountText(int(summary.Whitelisted)))
	fmt.Printf("%s %s\n", ui.Label("Deduplicated:"), ui.CountText(int(summary.Deduplicated)))

	if len(summary.Errors) > 0 {
		fmt.Println("\nErrors:")
		for kind, count := range summary.Errors {
			ui.Warningf("%s: %d", kind, count)
		}
	}

	if len(summary.ExtensionHist) > 0 {
		fmt.Println("\nFiles by Extension:")
		for ext, count := range summary.ExtensionHist {
			fmt.Printf("  %s: %d\n", ext, count)
		}
	}

	if len(summary.Engines) > 0 {
		fmt.Println("\nEngine Timings:")
		for _, e := range summary.Engines {
			fmt.Printf("  %s: %d calls, avg %s\n", e.Engine, e.Invocations, e.AverageTime)
		}
	}

	fmt.Printf("\n%s %s\n", ui.Label("Duration:"), summary.Duration)
	if stopped {
		ui.Warning("Stopped early: --stop-count reached")
	}
	fmt.Printf("%s %s\n", ui.Label("Output:"), ui.DimText(outputPath))
}
