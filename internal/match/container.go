// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package match implements the Match Container (spec §4.5): a
// whitelist-filtering, per-(text,path,engine)-deduplicating sink that
// streams or buffers surviving findings to a Writer and keeps the
// run's counting invariant (findings_emitted == findings_added -
// whitelisted - deduplicated).
package match

import (
	"regexp"
	"strings"
	"sync"

	"github.com/kraklabs/piiscan/internal/engine"
	"github.com/kraklabs/piiscan/internal/stats"
	"github.com/kraklabs/piiscan/internal/writer"
)

// Container ingests engine.Finding values, filters and deduplicates
// them, and hands survivors to a Writer. All mutations are serialized
// under a single write lock (spec §4.5 "single process-wide write
// lock"), since findings arrive from the engine registry's fan-out
// across potentially-concurrent files.
type Container struct {
	whitelist *regexp.Regexp
	w         writer.Writer
	stats     *stats.Statistics

	mu     sync.Mutex
	seen   map[dedupKey]struct{}
	closed bool
}

type dedupKey struct {
	textLower string
	path      string
	engine    string
}

// New builds a Container. whitelist may be nil (no whitelist loaded).
func New(whitelist *regexp.Regexp, w writer.Writer, s *stats.Statistics) *Container {
	return &Container{
		whitelist: whitelist,
		w:         w,
		stats:     s,
		seen:      map[dedupKey]struct{}{},
	}
}

// Add ingests one finding. Order of checks per spec §4.5: whitelist
// first, then dedup; a survivor is written immediately (the CSV writer
// is row-streaming; document writers buffer internally).
func (c *Container) Add(f engine.Finding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	if c.whitelist != nil && c.whitelist.MatchString(f.Text) {
		c.stats.IncWhitelisted()
		return nil
	}

	key := dedupKey{textLower: strings.ToLower(f.Text), path: f.Path, engine: f.Engine}
	if _, dup := c.seen[key]; dup {
		c.stats.IncDeduplicated()
		return nil
	}
	c.seen[key] = struct{}{}

	if err := c.w.WriteFinding(writer.Finding{
		Text:       f.Text,
		Path:       f.Path,
		Label:      f.Label,
		Confidence: f.Confidence,
		HasConf:    f.HasConfidence,
		Engine:     f.Engine,
	}); err != nil {
		return err
	}
	c.stats.IncFindingsEmitted()
	return nil
}

// Close writes the final summary and finalizes the writer exactly
// once; subsequent calls are no-ops, matching the writer's own
// idempotent Close contract.
func (c *Container) Close(summary stats.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.w.WriteSummary(summary); err != nil {
		return err
	}
	return c.w.Close()
}
