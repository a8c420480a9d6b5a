// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"sort"
	"strings"
)

// PPTXExtractor reads a presentation's slide and speaker-notes text
// runs directly from the zipped OOXML package: one chunk per slide,
// followed by one chunk per notes page (empty ones are skipped). No
// mature ecosystem library covers PPTX text extraction specifically, so
// this walks ppt/slides/slideN.xml and ppt/notesSlides/notesSlideN.xml
// with the standard archive/zip and encoding/xml packages
// (SPEC_FULL.md §4.8).
type PPTXExtractor struct{}

// drawingMLText mirrors the <a:t> text-run elements common to both
// p:sld and p:notes XML trees.
type drawingMLText struct {
	Runs []string `xml:"t"`
}

func (PPTXExtractor) Extract(path string) (TextOutput, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}

	var slideFiles, noteFiles []*zip.File
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml"):
			slideFiles = append(slideFiles, f)
		case strings.HasPrefix(f.Name, "ppt/notesSlides/notesSlide") && strings.HasSuffix(f.Name, ".xml"):
			noteFiles = append(noteFiles, f)
		}
	}
	sort.Slice(slideFiles, func(i, j int) bool { return slideFiles[i].Name < slideFiles[j].Name })
	sort.Slice(noteFiles, func(i, j int) bool { return noteFiles[i].Name < noteFiles[j].Name })

	chunks := make([]string, 0, len(slideFiles)+len(noteFiles))
	for _, f := range slideFiles {
		if text := extractDrawingMLText(f); text != "" {
			chunks = append(chunks, text)
		}
	}
	for _, f := range noteFiles {
		if text := extractDrawingMLText(f); text != "" {
			chunks = append(chunks, text)
		}
	}

	return Lazy(newSliceSeq(chunks, zr.Close)), nil
}

func extractDrawingMLText(f *zip.File) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ""
	}

	var runs []string
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "t" {
			var s string
			if err := dec.DecodeElement(&s, &se); err == nil {
				runs = append(runs, s)
			}
		}
	}
	return strings.Join(runs, " ")
}
