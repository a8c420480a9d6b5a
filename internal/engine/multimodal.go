// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/kraklabs/piiscan/internal/config"
	"github.com/kraklabs/piiscan/pkg/llm"
)

const multimodalSystemPrompt = `You detect personally identifiable information visible in an image ` +
	`(printed or handwritten text, ID cards, forms, screenshots). ` +
	`Respond with ONLY a JSON object of the form ` +
	`{"entities":[{"text":"<verbatim visible text>","type":"<label>","confidence":<0..1>}]}. ` +
	`If nothing is found, respond with {"entities":[]}.`

// MultimodalEngine sends an image file's raw bytes, base64-encoded, to
// a vision-capable model via the same pkg/llm.Provider abstraction the
// text LLM engine uses (SPEC_FULL.md §4.9). It is the handoff target
// for files the Format Registry marks as opaque images
// (format.ErrOpaqueImage).
type MultimodalEngine struct {
	EngineName string
	Provider   llm.Provider
	Model      string
	Retry      config.RetryConfig
}

func (e *MultimodalEngine) Name() string            { return e.EngineName }
func (e *MultimodalEngine) Concurrency() Concurrency { return Exclusive }

func (e *MultimodalEngine) IsAvailable() bool {
	if e.Provider == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := e.Provider.Models(ctx)
	return err == nil
}

// DetectImage reads imagePath and submits it for visual PII
// extraction. Detect (the Engine interface method) is not meaningful
// here since this engine operates on image bytes, not pre-extracted
// text; appctx.ProcessFile calls DetectImage directly for image files,
// and this engine is never added to the Engine Registry.
func (e *MultimodalEngine) DetectImage(ctx context.Context, imagePath string) ([]Finding, error) {
	if e.Provider == nil {
		return nil, fmt.Errorf("%s: no provider configured", e.EngineName)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: read image: %w", e.EngineName, err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	req := llm.ChatRequest{
		Model: e.Model,
		Messages: []llm.Message{
			{Role: "system", Content: multimodalSystemPrompt},
			{Role: "user", Content: "Extract any PII visible in this image.", Images: []string{encoded}},
		},
		Temperature: 0,
	}

	retry := e.Retry
	if retry.MaxRetries <= 0 {
		retry = config.DefaultRetryConfig()
	}

	var resp *llm.ChatResponse
	for attempt := 0; attempt < retry.MaxRetries; attempt++ {
		resp, err = e.Provider.Chat(ctx, req)
		if err == nil {
			break
		}
		if !isRetryableLLMError(err) || attempt == retry.MaxRetries-1 {
			return nil, fmt.Errorf("%s: %w", e.EngineName, err)
		}
		sleep := computeBackoffWithJitter(retry, attempt)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.EngineName, err)
	}

	findings := parseLLMFindings(e.EngineName, resp.Message.Content)
	for i := range findings {
		findings[i].Path = imagePath
	}
	return findings, nil
}

// Detect satisfies the Engine interface and always returns an error:
// text input is not supported, and image inputs never reach it since
// the processor dispatches images via DetectImage.
func (e *MultimodalEngine) Detect(_ context.Context, _ string, _ []string) ([]Finding, error) {
	return nil, fmt.Errorf("%s: use DetectImage for image input", e.EngineName)
}
