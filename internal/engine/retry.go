// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package engine

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/kraklabs/piiscan/internal/config"
)

// computeBackoffWithJitter mirrors the teacher's
// pkg/ingestion.computeBackoffWithJitter: exponential backoff capped at
// maxBackoff, full jitter in [0, computed].
func computeBackoffWithJitter(cfg config.RetryConfig, attempt int) time.Duration {
	exp := float64(cfg.InitialBackoff)
	for i := 0; i < attempt; i++ {
		exp *= cfg.Multiplier
	}
	d := time.Duration(exp)
	if d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	if d <= 0 {
		return cfg.InitialBackoff
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(d)+1))
	if err != nil {
		return d
	}
	return time.Duration(n.Int64())
}

// isRetryableLLMError classifies a provider error by message substring,
// the same best-effort approach the teacher's isRetryableEmbeddingError
// uses to avoid importing provider internals.
func isRetryableLLMError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"timeout", "temporarily unavailable", "connection refused",
		"connection reset", "deadline exceeded", "eof",
		" 429", " 500", " 502", " 503", " 504",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
