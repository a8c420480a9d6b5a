// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

// RegisterDefaults builds and returns a Registry populated with every
// extractor named in SPEC_FULL.md §4.8's format table. maxArchiveDepth
// bounds recursive archive expansion; magicEnabled enables the
// content-sniffing fallback described in spec §4.2.
func RegisterDefaults(magicEnabled bool, maxArchiveDepth int) *Registry {
	r := NewRegistry(magicEnabled)

	text := PlainTextExtractor{}
	r.SetTextSentinel(text)
	for _, ext := range []string{".txt", ".log", ".md", ".conf", ".ini", ".cfg"} {
		r.Register(ext, text)
	}
	r.RegisterMIMEPrefix("text/", text)

	r.Register(".pdf", PDFExtractor{})
	r.RegisterMIMEPrefix("application/pdf", PDFExtractor{})

	r.Register(".docx", DOCXExtractor{})
	r.Register(".doc", LegacyUnsupported)
	r.Register(".xls", LegacyUnsupported)
	r.Register(".ppt", LegacyUnsupported)

	xlsx := XLSXExtractor{}
	r.Register(".xlsx", xlsx)
	r.Register(".xlsm", xlsx)

	r.Register(".pptx", PPTXExtractor{})
	r.Register(".rtf", RTFExtractor{})
	r.Register(".odt", ODTExtractor{})
	r.Register(".ods", ODSExtractor{})

	html := HTMLExtractor{}
	r.Register(".html", html)
	r.Register(".htm", html)
	r.RegisterMIMEPrefix("text/html", html)

	r.Register(".eml", EMLExtractor{})
	r.Register(".mbox", MBOXExtractor{})

	r.Register(".csv", CSVExtractor{})
	r.Register(".tsv", CSVExtractor{})

	r.Register(".json", JSONExtractor{})
	r.Register(".xml", XMLExtractor{})

	yamlExt := YAMLExtractor{}
	r.Register(".yaml", yamlExt)
	r.Register(".yml", yamlExt)

	r.Register(".db", SQLiteExtractor{})
	r.Register(".sqlite", SQLiteExtractor{})
	r.Register(".sqlite3", SQLiteExtractor{})

	archive := ArchiveExtractor{Registry: r, MaxDepth: maxArchiveDepth}
	for _, ext := range []string{".zip", ".tar", ".tgz", ".gz", ".7z", ".rar"} {
		r.Register(ext, archive)
	}

	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp"} {
		r.Register(ext, ImageMarker)
	}

	return r
}
