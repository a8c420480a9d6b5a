// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// ODTExtractor reads OpenDocument Text's content.xml and returns the
// paragraph text as a single eager string. Like PPTX and RTF, ODF has no
// mature Go ecosystem reader, so this walks the zipped content.xml
// directly (SPEC_FULL.md §4.8).
type ODTExtractor struct{}

func (ODTExtractor) Extract(path string) (TextOutput, error) {
	text, err := readODFContentText(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	return Eager(text.joined), nil
}

// ODSExtractor reads OpenDocument Spreadsheet's content.xml, one chunk
// per table:table element (sheet).
type ODSExtractor struct{}

func (ODSExtractor) Extract(path string) (TextOutput, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}

	f := findZipFile(zr.File, "content.xml")
	if f == nil {
		zr.Close()
		return Lazy(newSliceSeq(nil, func() error { return nil })), nil
	}

	rc, err := f.Open()
	if err != nil {
		zr.Close()
		return TextOutput{}, extractionErr(path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		zr.Close()
		return TextOutput{}, extractionErr(path, err)
	}

	chunks := extractODSSheets(data)
	return Lazy(newSliceSeq(chunks, zr.Close)), nil
}

type odfText struct{ joined string }

func readODFContentText(path string) (odfText, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return odfText{}, err
	}
	defer zr.Close()

	f := findZipFile(zr.File, "content.xml")
	if f == nil {
		return odfText{}, nil
	}
	rc, err := f.Open()
	if err != nil {
		return odfText{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return odfText{}, err
	}

	var out []string
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "p" {
			var s string
			if err := dec.DecodeElement(&s, &se); err == nil && s != "" {
				out = append(out, s)
			}
		}
	}
	return odfText{joined: strings.Join(out, "\n")}, nil
}

func extractODSSheets(data []byte) []string {
	var chunks []string
	var current strings.Builder
	inTable := false

	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "table":
				inTable = true
				current.Reset()
			case "p":
				if inTable {
					var s string
					if err := dec.DecodeElement(&s, &se); err == nil {
						current.WriteString(s)
						current.WriteByte('\t')
					}
				}
			}
		case xml.EndElement:
			if se.Name.Local == "table" {
				inTable = false
				if current.Len() > 0 {
					chunks = append(chunks, current.String())
				}
			}
		}
	}
	return chunks
}

func findZipFile(files []*zip.File, suffix string) *zip.File {
	for _, f := range files {
		if strings.HasSuffix(f.Name, suffix) {
			return f
		}
	}
	return nil
}
