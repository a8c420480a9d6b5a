// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/piiscan/internal/format"
)

func writeZip(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for memberName, content := range members {
		w, err := zw.Create(memberName)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func drainArchiveChunks(t *testing.T, out format.TextOutput) (texts []string, paths []string) {
	t.Helper()
	require.True(t, out.Chunked)
	pathed, ok := out.Seq.(format.PathedChunkSeq)
	require.True(t, ok, "archive ChunkSeq must implement PathedChunkSeq")
	defer out.Seq.Close()

	for {
		chunk, ok, err := out.Seq.Next()
		require.NoError(t, err)
		if !ok {
			return texts, paths
		}
		texts = append(texts, chunk)
		paths = append(paths, pathed.Path())
	}
}

func TestArchiveExtractor_AttributesChunksToMemberPath(t *testing.T) {
	reg := format.NewRegistry(false)
	reg.Register(".txt", format.PlainTextExtractor{})

	dir := t.TempDir()
	zipPath := writeZip(t, dir, "report.zip", map[string]string{
		"memo.txt": "contact u@example.com",
	})

	a := format.ArchiveExtractor{Registry: reg, MaxDepth: 4}
	out, err := a.Extract(zipPath)
	require.NoError(t, err)

	texts, paths := drainArchiveChunks(t, out)
	require.Len(t, texts, 1)
	assert.Equal(t, "contact u@example.com", texts[0])
	assert.Equal(t, "memo.txt@"+zipPath, paths[0])
}

func TestArchiveExtractor_NestedArchiveChainsMemberPath(t *testing.T) {
	reg := format.NewRegistry(false)
	reg.Register(".txt", format.PlainTextExtractor{})

	dir := t.TempDir()
	innerPath := writeZip(t, dir, "inner.zip", map[string]string{
		"secret.txt": "ssn 123-45-6789",
	})
	innerBytes, err := os.ReadFile(innerPath)
	require.NoError(t, err)

	outerPath := filepath.Join(dir, "outer.zip")
	f, err := os.Create(outerPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner.zip")
	require.NoError(t, err)
	_, err = w.Write(innerBytes)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	a := format.ArchiveExtractor{Registry: reg, MaxDepth: 4}
	out, err := a.Extract(outerPath)
	require.NoError(t, err)

	texts, paths := drainArchiveChunks(t, out)
	require.Len(t, texts, 1)
	assert.Equal(t, "ssn 123-45-6789", texts[0])
	assert.Equal(t, "secret.txt@inner.zip@"+outerPath, paths[0])
}

func TestArchiveExtractor_DepthExceededSurfacesExtractionError(t *testing.T) {
	reg := format.NewRegistry(false)
	reg.Register(".txt", format.PlainTextExtractor{})

	dir := t.TempDir()
	innerPath := writeZip(t, dir, "inner.zip", map[string]string{
		"secret.txt": "ssn 123-45-6789",
	})
	innerBytes, err := os.ReadFile(innerPath)
	require.NoError(t, err)

	outerPath := filepath.Join(dir, "outer.zip")
	f, err := os.Create(outerPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner.zip")
	require.NoError(t, err)
	_, err = w.Write(innerBytes)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	a := format.ArchiveExtractor{Registry: reg, MaxDepth: 0}
	_, err = a.Extract(outerPath)
	require.Error(t, err)

	var extractionErr *format.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, outerPath, extractionErr.Path)
}
