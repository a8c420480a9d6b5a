// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract holds small, shared validation limits used when
// loading the pattern-configuration file and whitelist file referenced
// from Config (spec §6) — before any JSON/YAML decoding is attempted,
// so a malformed multi-gigabyte file fails fast with a clear cause.
package contract

import (
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline size ceiling for the pattern
	// configuration file and the whitelist file.
	DefaultSoftLimitBytes = 16 << 20 // 16 MiB
)

// SoftLimitBytes returns the effective size ceiling for auxiliary
// configuration inputs (pattern file, whitelist file). Controlled via
// env PIISCAN_SOFT_LIMIT_BYTES; falls back to DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("PIISCAN_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a size validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateAuxFileSize checks an auxiliary config input (pattern file,
// whitelist file) against the soft limit before it is parsed.
func ValidateAuxFileSize(data []byte) *ValidationResult {
	if len(data) > SoftLimitBytes() {
		return &ValidationResult{OK: false, Message: "configuration input exceeds soft size limit"}
	}
	return &ValidationResult{OK: true}
}
