// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package engine

import (
	"context"
	"regexp"
)

// PatternEngine matches the combined, pre-compiled alternation built
// from the pattern-configuration file's regex entries (spec §4.3,
// §6). It applies a Luhn checksum as a second gate on any match
// labeled "credit_card", since a bare 13-19 digit regex alone produces
// a very high false-positive rate.
//
// regexp and the Luhn check are both stdlib-only by design: Luhn is a
// five-line mod-10 checksum, far too small a concern to justify a
// dependency, and no example repo in the corpus pulls in a validation
// library for anything this simple.
type PatternEngine struct {
	Combined    *regexp.Regexp
	GroupLabels map[int]string
}

func (e PatternEngine) Name() string            { return "regex" }
func (e PatternEngine) IsAvailable() bool       { return e.Combined != nil }
func (e PatternEngine) Concurrency() Concurrency { return Shared }

func (e PatternEngine) Detect(_ context.Context, text string, labels []string) ([]Finding, error) {
	if e.Combined == nil {
		return nil, nil
	}
	wanted := toSet(labels)

	var findings []Finding
	matches := e.Combined.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		for group, label := range e.GroupLabels {
			if len(wanted) > 0 && !wanted[label] {
				continue
			}
			lo, hi := m[2*group], m[2*group+1]
			if lo < 0 || hi < 0 {
				continue
			}
			matched := text[lo:hi]
			if label == "credit_card" && !luhnValid(matched) {
				continue
			}
			findings = append(findings, Finding{
				Text:   matched,
				Label:  label,
				Engine: e.Name(),
			})
		}
	}
	return findings, nil
}

func toSet(labels []string) map[string]bool {
	if len(labels) == 0 {
		return nil
	}
	s := make(map[string]bool, len(labels))
	for _, l := range labels {
		s[l] = true
	}
	return s
}

// luhnValid implements the standard mod-10 checksum used by payment
// card numbers, ignoring any non-digit separators (spaces, hyphens).
func luhnValid(s string) bool {
	var digits []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits = append(digits, c-'0')
		} else if c != ' ' && c != '-' {
			return false
		}
	}
	if len(digits) < 12 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i])
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
