// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"github.com/ledongthuc/pdf"
)

// PDFExtractor yields one chunk per page, since a multi-hundred-page PDF
// cannot be loaded whole without excessive memory (spec §4.2). Chunk
// boundaries are not reassembled across pages (SPEC_FULL.md, Open
// Question 2) — an entity split across a page break may be missed.
type PDFExtractor struct{}

type pdfPageSeq struct {
	file    *pdf.File
	closer  func() error
	current int
	total   int
}

func (PDFExtractor) Extract(path string) (TextOutput, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	return Lazy(&pdfPageSeq{
		file:    r,
		closer:  f.Close,
		current: 1,
		total:   r.NumPage(),
	}), nil
}

func (s *pdfPageSeq) Next() (string, bool, error) {
	for s.current <= s.total {
		pageNum := s.current
		s.current++

		page := s.file.Page(pageNum)
		if page.V.IsNull() {
			continue // blank/absent page, skip without erroring the whole file
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// TODO: surface per-page decode failures distinctly once the
			// processor can attribute a chunk-level error to a page number.
			continue
		}
		if text == "" {
			continue
		}
		return text, true, nil
	}
	return "", false, nil
}

func (s *pdfPageSeq) Close() error { return s.closer() }
