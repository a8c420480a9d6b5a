// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/piiscan/internal/config"
	"github.com/kraklabs/piiscan/internal/engine"
	"github.com/kraklabs/piiscan/internal/format"
	"github.com/kraklabs/piiscan/internal/match"
	"github.com/kraklabs/piiscan/internal/scanner"
	"github.com/kraklabs/piiscan/internal/stats"
	"github.com/kraklabs/piiscan/internal/writer"
)

type fakeWriter struct {
	findings []writer.Finding
	summary  *stats.Summary
	closed   bool
}

func (w *fakeWriter) WriteFinding(f writer.Finding) error {
	w.findings = append(w.findings, f)
	return nil
}
func (w *fakeWriter) WriteSummary(s stats.Summary) error { w.summary = &s; return nil }
func (w *fakeWriter) Close() error                       { w.closed = true; return nil }

// echoEngine reports every word of text as a finding of its own name,
// so tests can tell which chunks actually reached the fan-out.
type echoEngine struct{ name string }

func (e echoEngine) Name() string                    { return e.name }
func (e echoEngine) IsAvailable() bool               { return true }
func (e echoEngine) Concurrency() engine.Concurrency { return engine.Shared }
func (e echoEngine) Detect(_ context.Context, text string, _ []string) ([]engine.Finding, error) {
	if text == "" {
		return nil, nil
	}
	return []engine.Finding{{Text: text, Label: "echo", Engine: e.name}}, nil
}

type explodingEngine struct{}

func (explodingEngine) Name() string                    { return "explode" }
func (explodingEngine) IsAvailable() bool               { return true }
func (explodingEngine) Concurrency() engine.Concurrency { return engine.Shared }
func (explodingEngine) Detect(context.Context, string, []string) ([]engine.Finding, error) {
	return nil, fmt.Errorf("engine blew up")
}

func testContext(t *testing.T, engines ...engine.Engine) (*Context, *fakeWriter) {
	t.Helper()
	reg := engine.NewRegistry()
	for _, e := range engines {
		reg.Add(e)
	}
	fw := &fakeWriter{}
	st := stats.New()
	return &Context{
		Config:  &config.Config{},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Engines: reg,
		Stats:   st,
		Match:   match.New(nil, fw, st),
	}, fw
}

func TestProcessFile_EagerExtractionReachesEngines(t *testing.T) {
	c, fw := testContext(t, echoEngine{name: "regex"})
	extractor := format.ExtractorFunc(func(string) (format.TextOutput, error) {
		return format.Eager("hello world"), nil
	})

	require.NoError(t, c.ProcessFile(context.Background(), scanner.File{Path: "/a.txt"}, extractor))
	require.Len(t, fw.findings, 1)
	assert.Equal(t, "hello world", fw.findings[0].Text)
}

type sliceSeq struct {
	chunks []string
	pos    int
	closed bool
}

func (s *sliceSeq) Next() (string, bool, error) {
	if s.pos >= len(s.chunks) {
		return "", false, nil
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, true, nil
}
func (s *sliceSeq) Close() error { s.closed = true; return nil }

func TestProcessFile_ChunkedExtractionDrainsAndCloses(t *testing.T) {
	c, fw := testContext(t, echoEngine{name: "regex"})
	seq := &sliceSeq{chunks: []string{"first chunk", "second chunk"}}
	extractor := format.ExtractorFunc(func(string) (format.TextOutput, error) {
		return format.Lazy(seq), nil
	})

	require.NoError(t, c.ProcessFile(context.Background(), scanner.File{Path: "/a.txt"}, extractor))
	require.Len(t, fw.findings, 2)
	assert.Equal(t, "first chunk", fw.findings[0].Text)
	assert.Equal(t, "second chunk", fw.findings[1].Text)
	assert.True(t, seq.closed)
}

func TestProcessFile_OpaqueImageRoutesToMultimodalWhenConfigured(t *testing.T) {
	c, fw := testContext(t)
	c.multimodal = &engine.MultimodalEngine{EngineName: "multimodal"}

	extractor := format.ImageMarker
	// multimodal has no provider configured, so DetectImage fails and
	// processImage swallows the error rather than aborting the run.
	require.NoError(t, c.ProcessFile(context.Background(), scanner.File{Path: "/photo.png"}, extractor))
	assert.Empty(t, fw.findings)
	assert.Equal(t, int64(1), c.Stats.Snapshot().Errors["EngineError"])
}

func TestProcessFile_OpaqueImageWithNoMultimodalIsANoOp(t *testing.T) {
	c, fw := testContext(t)
	require.NoError(t, c.ProcessFile(context.Background(), scanner.File{Path: "/photo.png"}, format.ImageMarker))
	assert.Empty(t, fw.findings)
}

func TestDetectChunk_EmptyTextSkipsEngines(t *testing.T) {
	c, fw := testContext(t, echoEngine{name: "regex"})
	require.NoError(t, c.detectChunk(context.Background(), "/a.txt", ""))
	assert.Empty(t, fw.findings)
}

func TestDetectChunk_EngineErrorIsIsolatedAndCounted(t *testing.T) {
	c, fw := testContext(t, echoEngine{name: "regex"}, explodingEngine{})
	require.NoError(t, c.detectChunk(context.Background(), "/a.txt", "hello"))

	require.Len(t, fw.findings, 1)
	assert.Equal(t, "regex", fw.findings[0].Engine)
	assert.Equal(t, int64(1), c.Stats.Snapshot().Errors["EngineError"])
}

func TestLabels_EmptyNERLabelsReturnsNil(t *testing.T) {
	c, _ := testContext(t)
	assert.Nil(t, c.labels())
}

func TestLabels_ProjectsNEREntriesToLabelStrings(t *testing.T) {
	c, _ := testContext(t)
	c.Config.NERLabels = []config.NEREntry{{Label: "email"}, {Label: "phone"}}
	assert.Equal(t, []string{"email", "phone"}, c.labels())
}
