// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import "fmt"

// ErrLegacyFormat is returned for legacy OLE2 container formats
// (.doc, .xls, .ppt) that have no pure-Go reader in the dependency set
// (SPEC_FULL.md §4.8). The processor surfaces this as an
// ExtractionError{UnsupportedFormat}, not a crash.
var ErrLegacyFormat = fmt.Errorf("legacy binary office format is unsupported")

// LegacyUnsupported is registered against .doc, .xls, and .ppt so the
// registry still resolves them to a named, explicit outcome instead of
// falling through to the text sentinel and producing garbage output.
var LegacyUnsupported Extractor = ExtractorFunc(func(path string) (TextOutput, error) {
	return TextOutput{}, extractionErr(path, ErrLegacyFormat)
})
