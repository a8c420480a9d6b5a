// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package engine implements the five detection engines named in spec
// §4.3 (Pattern/regex, AI-NER, spaCy-NER, LLM, Multimodal LLM) behind a
// uniform Engine interface, plus the Registry that fans a chunk out to
// every enabled engine in stable order (SPEC_FULL.md §4.9).
package engine

import "context"

// Concurrency tags whether an engine may run concurrently with other
// invocations of itself. Local, CPU-bound engines (Pattern) are Shared;
// engines backed by a single external process or rate-limited API
// (NER sidecars, LLM providers) are Exclusive, and the Registry
// serializes calls to them with a per-engine mutex.
type Concurrency int

const (
	Shared Concurrency = iota
	Exclusive
)

// Finding is one candidate PII detection emitted by an engine, before
// whitelist filtering or deduplication (spec §3).
type Finding struct {
	Text          string
	Label         string
	Engine        string
	Path          string
	Confidence    float64
	HasConfidence bool // false for pattern matches, true for model-based matches (spec §3)
}

// Engine is the uniform interface every detection engine implements.
// Detect receives already-extracted text (a whole file or one chunk)
// and the set of labels the caller is interested in; an empty labels
// slice means "all labels this engine knows how to produce."
type Engine interface {
	Name() string
	IsAvailable() bool
	Concurrency() Concurrency
	Detect(ctx context.Context, text string, labels []string) ([]Finding, error)
}
