// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package writer

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/qax-os/excelize/v2"

	"github.com/kraklabs/piiscan/internal/stats"
)

// XLSXWriter buffers findings and writes a single workbook on Close,
// with the header row from csvColumns and auto-sized columns (spec
// §4.6). A second "Summary" sheet carries the run statistics.
type XLSXWriter struct {
	path string

	mu       sync.Mutex
	findings []Finding
	summary  *stats.Summary
	closed   bool
}

func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) WriteFinding(f Finding) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("xlsx writer: write after close")
	}
	w.findings = append(w.findings, f)
	return nil
}

func (w *XLSXWriter) WriteSummary(s stats.Summary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("xlsx writer: write after close")
	}
	w.summary = &s
	return nil
}

func (w *XLSXWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Findings"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range csvColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}

	widths := make([]int, len(csvColumns))
	for i, col := range csvColumns {
		widths[i] = len(col)
	}

	for rowIdx, finding := range w.findings {
		row := rowIdx + 2 // header occupies row 1
		confidence := ""
		if finding.HasConf {
			confidence = strconv.FormatFloat(finding.Confidence, 'f', -1, 64)
		}
		values := []string{finding.Text, finding.Path, finding.Label, confidence, finding.Engine}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
			if len(v) > widths[col] {
				widths[col] = len(v)
			}
		}
	}

	for i := range csvColumns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, float64(widths[i]+2))
	}

	if w.summary != nil {
		const summarySheet = "Summary"
		f.NewSheet(summarySheet)
		f.SetCellValue(summarySheet, "A1", "files_discovered")
		f.SetCellValue(summarySheet, "B1", w.summary.FilesDiscovered)
		f.SetCellValue(summarySheet, "A2", "files_admitted")
		f.SetCellValue(summarySheet, "B2", w.summary.FilesAdmitted)
		f.SetCellValue(summarySheet, "A3", "findings_emitted")
		f.SetCellValue(summarySheet, "B3", w.summary.FindingsEmitted)
		f.SetCellValue(summarySheet, "A4", "whitelisted")
		f.SetCellValue(summarySheet, "B4", w.summary.Whitelisted)
		f.SetCellValue(summarySheet, "A5", "deduplicated")
		f.SetCellValue(summarySheet, "B5", w.summary.Deduplicated)
		f.SetCellValue(summarySheet, "A6", "duration")
		f.SetCellValue(summarySheet, "B6", w.summary.Duration.String())
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("write xlsx output: %w", err)
	}
	return nil
}
