// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
)

// CSVExtractor yields one chunk per row, joined by tabs, so a
// multi-million-row export is never loaded whole (spec §4.2's lazy
// chunking rule for unbounded inputs).
type CSVExtractor struct{}

type csvSeq struct {
	f *os.File
	r *csv.Reader
}

func (CSVExtractor) Extract(path string) (TextOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows rather than failing the file
	r.LazyQuotes = true
	return Lazy(&csvSeq{f: f, r: r}), nil
}

func (s *csvSeq) Next() (string, bool, error) {
	record, err := s.r.Read()
	if err == io.EOF {
		return "", false, nil
	}
	if err != nil {
		return "", true, err
	}
	return strings.Join(record, "\t"), true, nil
}

func (s *csvSeq) Close() error { return s.f.Close() }
