// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package match_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/piiscan/internal/engine"
	"github.com/kraklabs/piiscan/internal/match"
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

func TestContainer_CountingIdentity(t *testing.T) {
	fw := &fakeWriter{}
	s := stats.New()
	c := match.New(nil, fw, s)

	added := []engine.Finding{
		{Text: "u@example.com", Path: "/a.txt", Label: "email", Engine: "regex"},
		{Text: "u@example.com", Path: "/a.txt", Label: "email", Engine: "regex"}, // duplicate
		{Text: "v@example.com", Path: "/a.txt", Label: "email", Engine: "regex"},
	}
	for _, f := range added {
		require.NoError(t, c.Add(f))
	}

	snap := s.Snapshot()
	assert.Equal(t, int64(len(added)), snap.FindingsEmitted+snap.Whitelisted+snap.Deduplicated)
	assert.Len(t, fw.findings, 2)
}

func TestContainer_WhitelistDropsExactMatch(t *testing.T) {
	wl := regexp.MustCompile(`^(?:u@example\.com)$`)
	fw := &fakeWriter{}
	s := stats.New()
	c := match.New(wl, fw, s)

	require.NoError(t, c.Add(engine.Finding{Text: "u@example.com", Path: "/a.txt", Label: "email", Engine: "regex"}))
	require.NoError(t, c.Add(engine.Finding{Text: "v@example.com", Path: "/a.txt", Label: "email", Engine: "regex"}))

	assert.Len(t, fw.findings, 1)
	assert.Equal(t, int64(1), s.Snapshot().Whitelisted)
}

func TestContainer_SameEntityDifferentEnginesBothSurvive(t *testing.T) {
	fw := &fakeWriter{}
	s := stats.New()
	c := match.New(nil, fw, s)

	require.NoError(t, c.Add(engine.Finding{Text: "u@example.com", Path: "/a.txt", Label: "email", Engine: "regex"}))
	require.NoError(t, c.Add(engine.Finding{Text: "u@example.com", Path: "/a.txt", Label: "email", Engine: "ner"}))

	assert.Len(t, fw.findings, 2)
	assert.Equal(t, int64(0), s.Snapshot().Deduplicated)
}

func TestContainer_PatternMatchHasNoConfidence(t *testing.T) {
	fw := &fakeWriter{}
	c := match.New(nil, fw, stats.New())
	require.NoError(t, c.Add(engine.Finding{Text: "x", Path: "/a", Label: "l", Engine: "regex"}))
	assert.False(t, fw.findings[0].HasConf)
}

func TestContainer_CloseIsIdempotentAndWritesSummaryOnce(t *testing.T) {
	fw := &fakeWriter{}
	s := stats.New()
	c := match.New(nil, fw, s)

	snap := s.Snapshot()
	require.NoError(t, c.Close(snap))
	require.NoError(t, c.Close(snap))
	assert.True(t, fw.closed)
	require.NotNil(t, fw.summary)
}
