// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testing provides shared fixtures for building temporary file
// trees and verifying scan output, used by the scanner, format, and
// writer test suites.
package testing

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// TempTree creates a temporary directory and writes files into it.
// Keys in contents are paths relative to the returned root; intermediate
// directories are created as needed. Returns the root path.
func TempTree(t *testing.T, contents map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, body := range contents {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
	return root
}

// ReadCSVRows parses a CSV file and returns its rows including the header,
// failing the test on any read error.
func ReadCSVRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv %s: %v", path, err)
	}
	return rows
}

// SamplePIIText returns a short string containing one email and one IBAN,
// the fixture used throughout the scanner/engine test suites (mirrors
// the end-to-end scenario enumerated for the pattern engine).
func SamplePIIText() string {
	return "Contact u@example.com; IBAN DE89370400440532013000."
}
