// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package engine

import (
	"context"
	"sync"
	"time"
)

// Registry holds the enabled engines in a stable, deterministic order
// (registration order) and fans a chunk of text out to all of them,
// per spec §4.3/§9. Exclusive engines are serialized with their own
// mutex so a single slow external call cannot be issued twice
// concurrently against the same sidecar or provider; Shared engines run
// without additional synchronization.
type Registry struct {
	entries []registryEntry
}

type registryEntry struct {
	engine Engine
	mu     *sync.Mutex // non-nil only for Exclusive engines
}

// NewRegistry builds an empty registry; call Add for each enabled
// engine in the order they should run (and be reported) in.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers an engine. Engines unavailable at startup should not
// be added at all — the caller surfaces ErrorKind EngineUnavailable
// instead (spec §7).
func (r *Registry) Add(e Engine) {
	entry := registryEntry{engine: e}
	if e.Concurrency() == Exclusive {
		entry.mu = &sync.Mutex{}
	}
	r.entries = append(r.entries, entry)
}

// Names returns the registered engines' names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.engine.Name()
	}
	return names
}

// EngineError pairs a per-engine failure with the engine's name, so the
// processor can attribute it to Statistics without aborting the other
// engines' results for the same chunk (spec §4.3's per-engine error
// isolation).
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string { return e.Engine + ": " + e.Err.Error() }
func (e *EngineError) Unwrap() error { return e.Err }

// Detect runs every registered engine against text in registration
// order and returns the concatenation of their findings, in that same
// order, so downstream consumers (Match Container dedup, the CSV/JSON
// writers) see deterministic ordering across runs (spec §9). Failures
// from individual engines are collected and returned alongside
// whatever findings succeeded, never aborting the whole fan-out. The
// third return value is this call's own wall time for each engine,
// keyed by engine name, so the caller can feed Statistics per-engine
// timing (spec §4.7) instead of one lump sum for the whole fan-out.
func (r *Registry) Detect(ctx context.Context, path, text string, labels []string) ([]Finding, []*EngineError, map[string]time.Duration) {
	var findings []Finding
	var errs []*EngineError
	timings := make(map[string]time.Duration, len(r.entries))

	for _, entry := range r.entries {
		if entry.mu != nil {
			entry.mu.Lock()
		}
		start := time.Now()
		results, err := entry.engine.Detect(ctx, text, labels)
		timings[entry.engine.Name()] = time.Since(start)
		if entry.mu != nil {
			entry.mu.Unlock()
		}
		if err != nil {
			errs = append(errs, &EngineError{Engine: entry.engine.Name(), Err: err})
			continue
		}
		for i := range results {
			results[i].Path = path
		}
		findings = append(findings, results...)
	}

	return findings, errs, timings
}
