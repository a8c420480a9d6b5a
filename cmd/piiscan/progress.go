// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// ProgressConfig determines whether and how the scan progress spinner
// is displayed, grounded on cmd/cie/progress.go's shape.
type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
	NoColor bool
}

// NewProgressConfig builds a ProgressConfig from the caller's intent
// (wantProgress is false for --quiet or --summary-format json) and TTY
// detection: progress never prints to a pipe or CI log.
func NewProgressConfig(wantProgress, noColor bool) ProgressConfig {
	return ProgressConfig{
		Enabled: wantProgress && isatty.IsTerminal(os.Stderr.Fd()),
		Writer:  os.Stderr,
		NoColor: noColor,
	}
}

// NewSpinner creates an indeterminate progress spinner, since the scan
// walk discovers its file count as it goes rather than knowing it
// upfront. Returns nil if progress is disabled, so callers can treat a
// nil spinner as a no-op.
func NewSpinner(cfg ProgressConfig, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}

	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}
