// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/gzip"
	"github.com/nwaples/rardecode/v2"
)

// ArchiveExtractor recurses into zip, tar, tar.gz, 7z, and rar
// containers, re-dispatching each member through the Registry by its
// own extension, bounded by MaxDepth to guard against archive bombs
// (spec §4.2's archive handling, SPEC_FULL.md §4.8). Members are
// materialized into temp files rather than streamed chunk-by-chunk:
// the archive libraries expose unrelated reader shapes (zip.File,
// tar.Reader, sevenzip.File, rardecode.ReadCloser), and normalizing
// them into one lazy ChunkSeq is not worth the complexity given
// max_archive_depth already bounds recursion. Each yielded chunk
// carries the member's path suffixed "member@archive" rather than the
// archive's own path, via pathedMemberSeq.
type ArchiveExtractor struct {
	Registry *Registry
	MaxDepth int
}

var archiveExts = map[string]bool{
	".zip": true, ".tar": true, ".tgz": true, ".gz": true, ".7z": true, ".rar": true,
}

// memberChunk pairs one archive member's extracted text with the
// member's own attribution path, so a finding inside an archive maps
// back to the member it came from, not the outer archive file.
type memberChunk struct {
	path string
	text string
}

func (a ArchiveExtractor) Extract(path string) (TextOutput, error) {
	chunks, err := a.extractPath(path, 0, path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	return Lazy(newPathedMemberSeq(chunks)), nil
}

// extractPath dispatches by extension at the given nesting depth.
// archiveLabel is the "@archive" suffix member chunks at this level
// are attributed to: the outer file's path at depth 0, or the
// enclosing member's own composite path when recursing.
func (a ArchiveExtractor) extractPath(path string, depth int, archiveLabel string) ([]memberChunk, error) {
	if depth > a.MaxDepth {
		return nil, fmt.Errorf("archive nesting exceeds max depth %d", a.MaxDepth)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".zip":
		return a.extractZip(path, depth, archiveLabel)
	case ".tar":
		return a.extractTarStream(path, depth, false, archiveLabel)
	case ".tgz", ".gz":
		return a.extractTarStream(path, depth, true, archiveLabel)
	case ".7z":
		return a.extract7z(path, depth, archiveLabel)
	case ".rar":
		return a.extractRar(path, depth, archiveLabel)
	default:
		return nil, fmt.Errorf("unrecognized archive extension %q", ext)
	}
}

func (a ArchiveExtractor) extractZip(path string, depth int, archiveLabel string) ([]memberChunk, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var chunks []memberChunk
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		sub, derr := a.dispatchMember(f.Name, rc, depth, archiveLabel)
		rc.Close()
		if derr != nil {
			return chunks, derr
		}
		chunks = append(chunks, sub...)
	}
	return chunks, nil
}

func (a ArchiveExtractor) extractTarStream(path string, depth int, gzipped bool, archiveLabel string) ([]memberChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	var chunks []memberChunk
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		sub, derr := a.dispatchMember(hdr.Name, tr, depth, archiveLabel)
		if derr != nil {
			return chunks, derr
		}
		chunks = append(chunks, sub...)
	}
	return chunks, nil
}

func (a ArchiveExtractor) extract7z(path string, depth int, archiveLabel string) ([]memberChunk, error) {
	zr, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var chunks []memberChunk
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		sub, derr := a.dispatchMember(f.Name, rc, depth, archiveLabel)
		rc.Close()
		if derr != nil {
			return chunks, derr
		}
		chunks = append(chunks, sub...)
	}
	return chunks, nil
}

func (a ArchiveExtractor) extractRar(path string, depth int, archiveLabel string) ([]memberChunk, error) {
	rr, err := rardecode.OpenReader(path, "")
	if err != nil {
		return nil, err
	}
	defer rr.Close()

	var chunks []memberChunk
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if hdr.IsDir {
			continue
		}
		sub, derr := a.dispatchMember(hdr.Name, rr, depth, archiveLabel)
		if derr != nil {
			return chunks, derr
		}
		chunks = append(chunks, sub...)
	}
	return chunks, nil
}

// dispatchMember writes an archive member to a temp file and either
// recurses (if the member is itself an archive, within MaxDepth) or
// resolves it through the Registry like any other scanned file. The
// member's chunks are attributed to name+"@"+archiveLabel; a nested
// archive's own members chain further, e.g. "deep.txt@inner.zip@outer.zip".
func (a ArchiveExtractor) dispatchMember(name string, r io.Reader, depth int, archiveLabel string) ([]memberChunk, error) {
	ext := strings.ToLower(filepath.Ext(name))
	memberPath := name + "@" + archiveLabel

	tmp, err := writeTemp(ext, r)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	if archiveExts[ext] {
		return a.extractPath(tmp, depth+1, memberPath)
	}

	extractor, ok := a.Registry.Resolve(ext, tmp)
	if !ok {
		return nil, nil
	}
	out, err := extractor.Extract(tmp)
	if err != nil {
		return nil, nil // skip an unreadable member, not the whole archive
	}
	texts, err := drainTextOutput(out)
	if err != nil {
		return nil, nil
	}
	chunks := make([]memberChunk, len(texts))
	for i, t := range texts {
		chunks[i] = memberChunk{path: memberPath, text: t}
	}
	return chunks, nil
}

func drainTextOutput(out TextOutput) ([]string, error) {
	if !out.Chunked {
		if out.Text == "" {
			return nil, nil
		}
		return []string{out.Text}, nil
	}
	defer out.Seq.Close()

	var chunks []string
	for {
		c, ok, err := out.Seq.Next()
		if err != nil || !ok {
			break
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// pathedMemberSeq adapts a []memberChunk to ChunkSeq, additionally
// implementing PathedChunkSeq so the processor can attribute each
// chunk to its originating archive member.
type pathedMemberSeq struct {
	chunks []memberChunk
	pos    int
}

func newPathedMemberSeq(chunks []memberChunk) *pathedMemberSeq {
	return &pathedMemberSeq{chunks: chunks}
}

func (s *pathedMemberSeq) Next() (string, bool, error) {
	if s.pos >= len(s.chunks) {
		return "", false, nil
	}
	c := s.chunks[s.pos]
	s.pos++
	return c.text, true, nil
}

// Path returns the path of the chunk most recently returned by Next.
func (s *pathedMemberSeq) Path() string {
	if s.pos == 0 || s.pos > len(s.chunks) {
		return ""
	}
	return s.chunks[s.pos-1].path
}

func (s *pathedMemberSeq) Close() error { return nil }

func writeTemp(ext string, r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "piiscan-archive-*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
