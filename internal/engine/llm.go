// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/piiscan/internal/config"
	"github.com/kraklabs/piiscan/pkg/llm"
)

// llmSystemPrompt is the fixed extraction instruction sent as the
// system message on every call. It is intentionally not
// user-configurable (spec §4.3: the LLM engine's prompt is fixed,
// unlike the Pattern engine's pattern file).
const llmSystemPrompt = `You detect personally identifiable information in text. ` +
	`Respond with ONLY a JSON object of the form ` +
	`{"entities":[{"text":"<exact substring>","type":"<label>","confidence":<0..1>}]}. ` +
	`Extract exact substrings verbatim from the input; do not paraphrase or summarize. ` +
	`If nothing is found, respond with {"entities":[]}.`

// LLMEngine drives a pkg/llm.Provider with a fixed PII-extraction
// prompt, reusing the teacher's Provider/Chat abstraction unchanged and
// its embedding-retry shape (computeBackoffWithJitter,
// isRetryableEmbeddingError) adapted here to LLM calls.
type LLMEngine struct {
	EngineName string
	Provider   llm.Provider
	Model      string
	Retry      config.RetryConfig

	limiter *latencyLimiter
	once    sync.Once
}

func (e *LLMEngine) Name() string            { return e.EngineName }
func (e *LLMEngine) Concurrency() Concurrency { return Exclusive }

func (e *LLMEngine) IsAvailable() bool {
	if e.Provider == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := e.Provider.Models(ctx)
	return err == nil
}

func (e *LLMEngine) ensureLimiter() *latencyLimiter {
	e.once.Do(func() { e.limiter = newLatencyLimiter() })
	return e.limiter
}

func (e *LLMEngine) Detect(ctx context.Context, text string, labels []string) ([]Finding, error) {
	if e.Provider == nil {
		return nil, fmt.Errorf("%s: no provider configured", e.EngineName)
	}

	limiter := e.ensureLimiter()
	if wait := limiter.throttle(); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	userPrompt := text
	if len(labels) > 0 {
		userPrompt = fmt.Sprintf("Only extract these types: %s.\n\n%s", strings.Join(labels, ", "), text)
	}

	req := llm.ChatRequest{
		Model: e.Model,
		Messages: []llm.Message{
			{Role: "system", Content: llmSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
	}

	retry := e.Retry
	if retry.MaxRetries <= 0 {
		retry = config.DefaultRetryConfig()
	}

	var resp *llm.ChatResponse
	var err error
	for attempt := 0; attempt < retry.MaxRetries; attempt++ {
		start := time.Now()
		resp, err = e.Provider.Chat(ctx, req)
		limiter.record(time.Since(start))
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

	return parseLLMFindings(e.EngineName, resp.Message.Content), nil
}

// llmJSONFence strips a ```json fenced code block some models wrap
// their response in, despite the system prompt asking for raw JSON.
var llmJSONFence = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

func parseLLMFindings(engineName, content string) []Finding {
	body := strings.TrimSpace(content)
	if m := llmJSONFence.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	var parsed struct {
		Entities []struct {
			Text       string  `json:"text"`
			Type       string  `json:"type"`
			Confidence float64 `json:"confidence"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil
	}

	findings := make([]Finding, 0, len(parsed.Entities))
	for _, ent := range parsed.Entities {
		if ent.Text == "" {
			continue
		}
		findings = append(findings, Finding{
			Text:          ent.Text,
			Label:         ent.Type,
			Engine:        engineName,
			Confidence:    ent.Confidence,
			HasConfidence: true,
		})
	}
	return findings
}

// latencyLimiter throttles successive calls to a single external
// provider when recent latency climbs, rather than hammering an
// overloaded sidecar at a fixed rate. It is new relative to the
// teacher's embedding retry logic (which retries but does not
// pre-emptively throttle); grounded on the same provider-request
// shape, extended to cover adaptive backpressure.
type latencyLimiter struct {
	mu      sync.Mutex
	samples []time.Duration
}

const latencyWindow = 5

func newLatencyLimiter() *latencyLimiter { return &latencyLimiter{} }

func (l *latencyLimiter) record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, d)
	if len(l.samples) > latencyWindow {
		l.samples = l.samples[len(l.samples)-latencyWindow:]
	}
}

// throttle returns how long to wait before the next call: half the
// rolling average latency once the window is full, capped at 2s, so a
// provider trending slow gets breathing room without a fixed global
// rate limit.
func (l *latencyLimiter) throttle() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.samples) < latencyWindow {
		return 0
	}
	var total time.Duration
	for _, s := range l.samples {
		total += s
	}
	avg := total / time.Duration(len(l.samples))
	wait := avg / 2
	if wait > 2*time.Second {
		wait = 2 * time.Second
	}
	return wait
}
