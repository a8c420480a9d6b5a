// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"bytes"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor strips markup and returns the visible text content,
// per spec §4.2's "HTML (tag-stripped visible text)". <script> and
// <style> element bodies are excluded since they are never visible text.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(path string) (TextOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	defer f.Close()

	text, err := stripHTML(f)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	return Eager(text), nil
}

// stripHTMLBytes is the byte-slice convenience wrapper used by the
// EML/MBOX extractors for text/html MIME parts.
func stripHTMLBytes(data []byte) string {
	text, _ := stripHTML(bytes.NewReader(data))
	return text
}

func stripHTML(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var out strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && err.Error() != "EOF" {
				return "", err
			}
			return out.String(), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "script" || string(name) == "style" {
				if tt == html.StartTagToken {
					skipDepth++
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if (string(name) == "script" || string(name) == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				out.Write(z.Text())
				out.WriteByte(' ')
			}
		}
	}
}
