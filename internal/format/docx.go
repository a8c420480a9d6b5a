// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"regexp"

	"github.com/nguyenthenguyen/docx"
)

// DOCXExtractor reads a Word-processing document (a zipped OOXML
// archive) and returns its paragraph text as a single eager string,
// per spec §4.2's "word-processing documents (structured XML archives)".
type DOCXExtractor struct{}

// docxTagPattern strips the OOXML markup GetContent returns, leaving
// paragraph text. A full OOXML schema walk is unnecessary here: the
// library already hands back document.xml's text runs inline with
// their wrapping tags, so tag-stripping is sufficient.
var docxTagPattern = regexp.MustCompile(`<[^>]*>`)

func (DOCXExtractor) Extract(path string) (TextOutput, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	defer r.Close()

	raw := r.Editable().GetContent()
	text := docxTagPattern.ReplaceAllString(raw, " ")
	return Eager(text), nil
}
