// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/piiscan/internal/format"
	piitesting "github.com/kraklabs/piiscan/internal/testing"
)

func TestRegistry_ResolveByExtension(t *testing.T) {
	r := format.NewRegistry(false)
	r.Register(".txt", format.PlainTextExtractor{})

	e, ok := r.Resolve(".txt", "/irrelevant/path.txt")
	require.True(t, ok)
	require.IsType(t, format.PlainTextExtractor{}, e)
}

func TestRegistry_UnknownExtensionWithoutMagicFails(t *testing.T) {
	r := format.NewRegistry(false)
	_, ok := r.Resolve(".weird", "/irrelevant/path.weird")
	assert.False(t, ok)
}

func TestRegistry_MagicFallsBackToTextSentinel(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"note.weird": "just plain ascii text, no special extension registered",
	})

	r := format.NewRegistry(true)
	r.SetTextSentinel(format.PlainTextExtractor{})

	e, ok := r.Resolve(".weird", dir+"/note.weird")
	require.True(t, ok)
	require.IsType(t, format.PlainTextExtractor{}, e)
}

func TestPlainTextExtractor(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"a.txt": piitesting.SamplePIIText(),
	})

	out, err := format.PlainTextExtractor{}.Extract(dir + "/a.txt")
	require.NoError(t, err)
	assert.False(t, out.Chunked)
	assert.Equal(t, piitesting.SamplePIIText(), out.Text)
}

func TestCSVExtractor_YieldsOneChunkPerRow(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"data.csv": "name,email\nAda,ada@example.com\nGrace,grace@example.com\n",
	})

	out, err := format.CSVExtractor{}.Extract(dir + "/data.csv")
	require.NoError(t, err)
	require.True(t, out.Chunked)
	defer out.Seq.Close()

	var rows []string
	for {
		chunk, ok, err := out.Seq.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, chunk)
	}
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1], "ada@example.com")
}

func TestJSONExtractor_WalksNestedStrings(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"doc.json": `{"user": {"email": "u@example.com", "tags": ["a", "b"]}}`,
	})

	out, err := format.JSONExtractor{}.Extract(dir + "/doc.json")
	require.NoError(t, err)
	assert.Contains(t, out.Text, "u@example.com")
	assert.Contains(t, out.Text, "a")
}

func TestYAMLExtractor_CollectsScalars(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"doc.yaml": "user:\n  email: u@example.com\n  role: admin\n",
	})

	out, err := format.YAMLExtractor{}.Extract(dir + "/doc.yaml")
	require.NoError(t, err)
	assert.Contains(t, out.Text, "u@example.com")
	assert.Contains(t, out.Text, "admin")
}

func TestXMLExtractor_CollectsTextAndAttributes(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"doc.xml": `<person email="u@example.com"><name>Ada</name></person>`,
	})

	out, err := format.XMLExtractor{}.Extract(dir + "/doc.xml")
	require.NoError(t, err)
	assert.Contains(t, out.Text, "u@example.com")
	assert.Contains(t, out.Text, "Ada")
}

func TestHTMLExtractor_StripsTagsAndScripts(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"page.html": `<html><body><p>Contact u@example.com</p><script>var x = "secret";</script></body></html>`,
	})

	out, err := format.HTMLExtractor{}.Extract(dir + "/page.html")
	require.NoError(t, err)
	assert.Contains(t, out.Text, "u@example.com")
	assert.NotContains(t, out.Text, "secret")
	assert.NotContains(t, out.Text, "<p>")
}

func TestLegacyUnsupported_ReturnsExtractionError(t *testing.T) {
	dir := piitesting.TempTree(t, map[string]string{
		"old.doc": "not a real OLE2 file, just a placeholder",
	})

	_, err := format.LegacyUnsupported.Extract(dir + "/old.doc")
	require.Error(t, err)
	var extErr *format.ExtractionError
	require.ErrorAs(t, err, &extErr)
}

func TestImageMarker_ReturnsOpaqueImageSentinel(t *testing.T) {
	_, err := format.ImageMarker.Extract("/irrelevant/photo.png")
	require.ErrorIs(t, err, format.ErrOpaqueImage)
}

func TestRegisterDefaults_ResolvesCoreFormats(t *testing.T) {
	r := format.RegisterDefaults(true, 4)

	cases := []string{".txt", ".pdf", ".docx", ".xlsx", ".csv", ".json", ".xml", ".yaml", ".html", ".zip", ".png"}
	for _, ext := range cases {
		_, ok := r.Resolve(ext, "/irrelevant/file"+ext)
		assert.Truef(t, ok, "expected %s to resolve", ext)
	}
}
