// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // registers non-UTF-8 charset decoders
)

// EMLExtractor reads a single RFC 5322 message, concatenating selected
// headers and the text/plain (or text/html, tag-stripped) body.
type EMLExtractor struct{}

func (EMLExtractor) Extract(path string) (TextOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	defer f.Close()

	text, err := renderMessage(f)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	return Eager(text), nil
}

// MBOXExtractor yields one chunk per mailbox entry, since an mbox file
// can hold years of archived mail and must not be loaded whole
// (spec §4.2's lazy-chunking rule for unbounded inputs).
type MBOXExtractor struct{}

type mboxSeq struct {
	f *os.File
	r *mbox.Reader
}

func (MBOXExtractor) Extract(path string) (TextOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	return Lazy(&mboxSeq{f: f, r: mbox.NewReader(f)}), nil
}

func (s *mboxSeq) Next() (string, bool, error) {
	r, err := s.r.NextMessage()
	if err == io.EOF {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	text, err := renderMessage(r)
	if err != nil {
		return "", true, err // skip this entry, iteration continues
	}
	return text, true, nil
}

func (s *mboxSeq) Close() error { return s.f.Close() }

func renderMessage(r io.Reader) (string, error) {
	m, err := message.Read(r)
	if err != nil {
		// message.Read returns a non-nil m alongside certain recoverable
		// errors (e.g. an unknown charset); fall through and use what
		// could be decoded rather than discarding the whole message.
		if m == nil {
			return "", err
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%s %s\n", m.Header.Get("Subject"), m.Header.Get("From"))

	if mr := m.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			appendPartText(&out, part)
		}
	} else {
		body, err := io.ReadAll(m.Body)
		if err == nil {
			out.Write(body)
		}
	}

	return out.String(), nil
}

func appendPartText(out *strings.Builder, part *message.Entity) {
	ct, _, _ := part.Header.ContentType()
	body, err := io.ReadAll(part.Body)
	if err != nil {
		return
	}
	switch {
	case strings.HasPrefix(ct, "text/html"):
		out.WriteString(stripHTMLBytes(body))
	case strings.HasPrefix(ct, "text/"):
		out.Write(body)
	}
	out.WriteByte('\n')
}
