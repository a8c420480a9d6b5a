// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package format implements the Format Registry and the per-format Text
// Extractors (spec §4.2, SPEC_FULL.md §4.8). The registry maps a file,
// by extension and optionally by sniffed MIME type, to a single
// extractor; extractors yield either an eager string or a finite lazy
// chunk sequence, modeled here as the closed sum TextOutput.
package format

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ChunkSeq is a finite lazy sequence of text chunks. Implementations
// must never return an infinite sequence and must release any
// underlying file handle when Close is called, regardless of whether
// the sequence was fully drained.
type ChunkSeq interface {
	// Next returns the next chunk. ok is false with err == nil when the
	// sequence is exhausted. err != nil reports a chunk that could not
	// be read: with ok true the sequence continues past it and the
	// caller may call Next again for the following chunk; with ok false
	// the sequence cannot continue.
	Next() (chunk string, ok bool, err error)
	Close() error
}

// PathedChunkSeq is optionally implemented by a ChunkSeq whose chunks
// cannot all be attributed to the caller-supplied file path — an
// archive member, for instance, whose own path is the member name
// suffixed "member@archive" rather than the archive's own path
// (SPEC_FULL.md §4.8). Path returns the path of the chunk most
// recently returned by Next; callers must call Next first.
type PathedChunkSeq interface {
	ChunkSeq
	Path() string
}

// TextOutput is the closed sum over {eager string, lazy finite
// sequence}. Exactly one of the two branches is valid, discriminated by
// Chunked.
type TextOutput struct {
	Chunked bool
	Text    string
	Seq     ChunkSeq
}

// Eager wraps a fully-materialized string.
func Eager(s string) TextOutput { return TextOutput{Chunked: false, Text: s} }

// Lazy wraps a finite chunk sequence.
func Lazy(seq ChunkSeq) TextOutput { return TextOutput{Chunked: true, Seq: seq} }

// sliceSeq adapts a pre-computed []string to ChunkSeq, for extractors
// whose "chunks" are cheap to materialize up front (sheets, slides,
// archive members already enumerated into memory).
type sliceSeq struct {
	chunks []string
	pos    int
	closer func() error
}

func newSliceSeq(chunks []string, closer func() error) *sliceSeq {
	return &sliceSeq{chunks: chunks, closer: closer}
}

func (s *sliceSeq) Next() (string, bool, error) {
	if s.pos >= len(s.chunks) {
		return "", false, nil
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, true, nil
}

func (s *sliceSeq) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// ExtractionError wraps a decode failure, corruption, or missing
// optional dependency condition, as spec §4.2 requires: such failures
// must surface, not be silently skipped.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionErr(path string, err error) error {
	return &ExtractionError{Path: path, Err: err}
}

// Extractor turns a file on disk into a TextOutput.
type Extractor interface {
	Extract(path string) (TextOutput, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(path string) (TextOutput, error)

func (f ExtractorFunc) Extract(path string) (TextOutput, error) { return f(path) }

// ImageMarker is the zero-value extractor for image formats: no text
// output, an opaque handoff signal for the processor to route the file
// to the Multimodal LLM engine (or skip it if that engine is disabled).
var ImageMarker Extractor = ExtractorFunc(func(path string) (TextOutput, error) {
	return TextOutput{}, ErrOpaqueImage
})

// ErrOpaqueImage is returned by ImageMarker; it is not an
// ExtractionError and must not be counted as one by the processor.
var ErrOpaqueImage = fmt.Errorf("image format: opaque handoff, no text extraction")

// Registry resolves (extension, path, mime) to a single Extractor,
// per spec §4.2's resolution order: exact extension, then MIME (if
// magic detection is enabled), then the text/* sentinel.
type Registry struct {
	byExt        map[string]Extractor
	byMIMEPrefix map[string]Extractor
	magicEnabled bool
	sentinel     Extractor

	cache map[string]Extractor // path -> resolved extractor, since a
	// resolution that required content sniffing is worth remembering
	// for the (rare) case the same path is resolved twice in one run.
}

// NewRegistry builds an empty registry. RegisterDefaults builds a
// registry with the standard format set already registered.
func NewRegistry(magicEnabled bool) *Registry {
	return &Registry{
		byExt:        map[string]Extractor{},
		byMIMEPrefix: map[string]Extractor{},
		magicEnabled: magicEnabled,
		cache:        map[string]Extractor{},
	}
}

// Register binds a lower-cased, dot-prefixed extension to an extractor.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// RegisterMIMEPrefix binds a MIME-type prefix (e.g. "application/pdf")
// consulted only when magic detection is enabled and the extension
// alone did not resolve.
func (r *Registry) RegisterMIMEPrefix(prefix string, e Extractor) {
	r.byMIMEPrefix[prefix] = e
}

// SetTextSentinel installs the fallback extractor used when content
// sniffing reports a "text/*" MIME type and nothing more specific matched.
func (r *Registry) SetTextSentinel(e Extractor) { r.sentinel = e }

// Resolve implements the §4.2 resolution order. path is passed through
// so magic detection can read the first bytes; it is not otherwise
// interpreted here.
func (r *Registry) Resolve(ext string, path string) (Extractor, bool) {
	if e, ok := r.cache[path]; ok {
		return e, true
	}

	ext = strings.ToLower(ext)
	if e, ok := r.byExt[ext]; ok {
		r.cache[path] = e
		return e, true
	}

	if !r.magicEnabled {
		return nil, false
	}

	mime, err := sniffMIME(path)
	if err != nil {
		return nil, false
	}
	for prefix, e := range r.byMIMEPrefix {
		if strings.HasPrefix(mime, prefix) {
			r.cache[path] = e
			return e, true
		}
	}
	if strings.HasPrefix(mime, "text/") && r.sentinel != nil {
		r.cache[path] = r.sentinel
		return r.sentinel, true
	}
	return nil, false
}

// sniffMIME reads the first 512 bytes of path and detects its content
// type, the same heuristic net/http uses for Content-Type sniffing.
func sniffMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
