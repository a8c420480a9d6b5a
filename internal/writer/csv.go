// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/kraklabs/piiscan/internal/stats"
)

// csvColumns is the stable §4.6 schema. New columns may only be
// appended at the end.
var csvColumns = []string{"match", "file", "type", "confidence", "engine"}

// CSVWriter is the row-streaming writer: it opens the file once,
// writes a header row unless NoHeader is set, and flushes after every
// row so a crashed run still yields a readable partial report.
type CSVWriter struct {
	NoHeader bool

	mu     sync.Mutex
	f      *os.File
	w      *csv.Writer
	closed bool
}

// NewCSVWriter opens path for writing and emits the header row
// immediately (unless noHeader), per spec §4.6.
func NewCSVWriter(path string, noHeader bool) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open csv output: %w", err)
	}
	cw := &CSVWriter{NoHeader: noHeader, f: f, w: csv.NewWriter(f)}
	if !noHeader {
		if err := cw.w.Write(csvColumns); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		cw.w.Flush()
		if err := cw.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}
	return cw, nil
}

func (w *CSVWriter) WriteFinding(f Finding) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("csv writer: write after close")
	}

	confidence := ""
	if f.HasConf {
		confidence = strconv.FormatFloat(f.Confidence, 'f', -1, 64)
	}
	row := []string{f.Text, f.Path, f.Label, confidence, f.Engine}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	w.w.Flush()
	return w.w.Error()
}

// WriteSummary is a no-op for the row-streaming writer: the CSV format
// has no place for run-level metadata (spec §4.6 reserves the
// metadata/statistics sections for the document formats).
func (w *CSVWriter) WriteSummary(stats.Summary) error { return nil }

func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.w.Flush()
	flushErr := w.w.Error()
	closeErr := w.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
