// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NEREngine is an HTTP client to a locally-running inference sidecar
// exposing a small fixed contract: POST {text, labels} -> {entities:
// [{text, label, confidence}]}. Neither a GLiNER-class (AI-NER) nor a
// spaCy-class NER model has a native Go binding, so both are modeled
// the same way the teacher's pkg/llm/provider.go ollamaProvider treats
// its backend: an opaque HTTP boundary, reached with
// context.Context-scoped requests (SPEC_FULL.md §4.9).
//
// A single engine is shared between the "ner" and "spacy-ner" names so
// the wire contract is not duplicated; the name and endpoint differ per
// instance. Detect makes one request per call and does not retry.
type NEREngine struct {
	EngineName string
	BaseURL    string
	Client     *http.Client
	Threshold  float64
}

type nerRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels,omitempty"`
}

type nerResponse struct {
	Entities []struct {
		Text       string  `json:"text"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
}

func (e NEREngine) Name() string            { return e.EngineName }
func (e NEREngine) Concurrency() Concurrency { return Exclusive }

// IsAvailable probes the sidecar's health endpoint. A sidecar that
// never responds makes the engine unavailable (ErrorKind
// EngineUnavailable upstream), not a per-chunk error.
func (e NEREngine) IsAvailable() bool {
	if e.BaseURL == "" {
		return false
	}
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (e NEREngine) Detect(ctx context.Context, text string, labels []string) ([]Finding, error) {
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(nerRequest{Text: text, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", e.EngineName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", e.EngineName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", e.EngineName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: sidecar returned status %d", e.EngineName, resp.StatusCode)
	}

	var parsed nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", e.EngineName, err)
	}

	findings := make([]Finding, 0, len(parsed.Entities))
	for _, ent := range parsed.Entities {
		if ent.Confidence < e.Threshold {
			continue
		}
		findings = append(findings, Finding{
			Text:          ent.Text,
			Label:         ent.Label,
			Engine:        e.EngineName,
			Confidence:    ent.Confidence,
			HasConfidence: true,
		})
	}
	return findings, nil
}
