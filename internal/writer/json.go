// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kraklabs/piiscan/internal/stats"
)

// jsonFinding is the on-disk shape of one findings-array entry;
// Confidence is a pointer so pattern-engine findings (no confidence,
// per spec §3) serialize as a JSON null rather than 0.
type jsonFinding struct {
	Match      string   `json:"match"`
	File       string   `json:"file"`
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
	Engine     string   `json:"engine"`
}

type jsonDocument struct {
	Metadata struct {
		GeneratedAt time.Time `json:"generated_at"`
	} `json:"metadata"`
	Statistics *stats.Summary `json:"statistics"`
	Findings   []jsonFinding  `json:"findings"`
}

// JSONWriter buffers findings and writes a single document on Close,
// per spec §4.6's "document (JSON, XLSX)" writer category.
type JSONWriter struct {
	path string

	mu       sync.Mutex
	findings []jsonFinding
	summary  *stats.Summary
	closed   bool
}

func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

func (w *JSONWriter) WriteFinding(f Finding) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("json writer: write after close")
	}
	var conf *float64
	if f.HasConf {
		c := f.Confidence
		conf = &c
	}
	w.findings = append(w.findings, jsonFinding{
		Match: f.Text, File: f.Path, Type: f.Label, Confidence: conf, Engine: f.Engine,
	})
	return nil
}

func (w *JSONWriter) WriteSummary(s stats.Summary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("json writer: write after close")
	}
	w.summary = &s
	return nil
}

// Close is idempotent: the second and subsequent calls are no-ops,
// since the document was already finalized on disk by the first call.
func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	doc := jsonDocument{Statistics: w.summary, Findings: w.findings}
	doc.Metadata.GeneratedAt = time.Now()
	if doc.Findings == nil {
		doc.Findings = []jsonFinding{}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("open json output: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}
