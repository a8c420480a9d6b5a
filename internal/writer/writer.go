// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package writer implements the format-specific sinks named in spec
// §4.6: a row-streaming CSV writer and document-buffered JSON/XLSX
// writers, all satisfying the same Writer interface.
package writer

import "github.com/kraklabs/piiscan/internal/stats"

// Finding is the row shape every writer renders, in the stable §4.6
// column order: match, file, type, confidence, engine.
type Finding struct {
	Text       string
	Path       string
	Label      string
	Confidence float64
	HasConf    bool // confidence is absent for pattern matches (spec §3)
	Engine     string
}

// Writer is satisfied by every findings sink. WriteFinding is called
// once per surviving finding (immediately for streaming formats,
// buffered for document formats); WriteSummary is called exactly once,
// before Close, with the frozen run summary; Close finalizes and
// releases the underlying file handle and must be idempotent.
type Writer interface {
	WriteFinding(f Finding) error
	WriteSummary(s stats.Summary) error
	Close() error
}
