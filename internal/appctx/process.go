// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package appctx

import (
	"context"
	"errors"

	piierrors "github.com/kraklabs/piiscan/internal/errors"
	"github.com/kraklabs/piiscan/internal/format"
	"github.com/kraklabs/piiscan/internal/scanner"
)

// ProcessFile is the Scanner's per-file callback: it extracts text
// (or, for an opaque image, hands the path straight to the Multimodal
// engine), runs every enabled detection engine over each chunk, and
// feeds survivors into the Match Container. This is the single place
// the four core components — Scanner, Format Registry, Engine
// Registry, Match Container — are wired together, kept out of
// cmd/piiscan so the CLI layer stays limited to flag parsing and
// output (the same thinness the teacher's cmd/cie/index.go shows by
// delegating to pkg/ingestion.LocalPipeline).
func (c *Context) ProcessFile(ctx context.Context, f scanner.File, extractor format.Extractor) error {
	out, err := extractor.Extract(f.Path)
	if err != nil {
		if errors.Is(err, format.ErrOpaqueImage) {
			return c.processImage(ctx, f.Path)
		}
		return err
	}

	if !out.Chunked {
		return c.detectChunk(ctx, f.Path, out.Text)
	}

	defer out.Seq.Close()
	pathedSeq, hasOwnPaths := out.Seq.(format.PathedChunkSeq)
	for {
		chunk, ok, err := out.Seq.Next()
		if err != nil {
			c.Logger.Warn("appctx.process.chunk_error", "path", f.Path, "err", err)
			if !ok {
				return err
			}
			continue
		}
		if !ok {
			return nil
		}
		chunkPath := f.Path
		if hasOwnPaths {
			chunkPath = pathedSeq.Path()
		}
		if err := c.detectChunk(ctx, chunkPath, chunk); err != nil {
			return err
		}
	}
}

func (c *Context) detectChunk(ctx context.Context, path, text string) error {
	if text == "" {
		return nil
	}
	findings, errs, timings := c.Engines.Detect(ctx, path, text, c.labels())
	for engineName, d := range timings {
		c.Stats.RecordEngineTime(engineName, d)
	}
	for _, ee := range errs {
		c.Stats.IncError(piierrors.KindEngineError)
		c.Logger.Warn("appctx.process.engine_error", "path", path, "engine", ee.Engine, "err", ee.Err)
	}
	for _, finding := range findings {
		if err := c.Match.Add(finding); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) processImage(ctx context.Context, path string) error {
	mm := c.multimodal
	if mm == nil {
		return nil // no multimodal engine enabled: image is silently skipped, not an error
	}
	findings, err := mm.DetectImage(ctx, path)
	if err != nil {
		c.Stats.IncError(piierrors.KindEngineError)
		c.Logger.Warn("appctx.process.multimodal_error", "path", path, "err", err)
		return nil
	}
	for i := range findings {
		findings[i].Path = path
	}
	for _, finding := range findings {
		if err := c.Match.Add(finding); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) labels() []string {
	if len(c.Config.NERLabels) == 0 {
		return nil
	}
	labels := make([]string, len(c.Config.NERLabels))
	for i, l := range c.Config.NERLabels {
		labels[i] = l.Label
	}
	return labels
}
