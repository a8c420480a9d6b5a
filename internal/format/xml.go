// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
)

// XMLExtractor parses arbitrary XML with xmlquery and concatenates
// every text node and attribute value, since generic XML (unlike the
// OOXML/ODF formats above) has no fixed schema to target specific
// elements for.
type XMLExtractor struct{}

func (XMLExtractor) Extract(path string) (TextOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}

	var out strings.Builder
	walkXML(doc, &out)
	return Eager(out.String()), nil
}

func walkXML(n *xmlquery.Node, out *strings.Builder) {
	if n.Type == xmlquery.TextNode {
		s := strings.TrimSpace(n.Data)
		if s != "" {
			out.WriteString(s)
			out.WriteByte('\n')
		}
	}
	for _, attr := range n.Attr {
		if attr.Value != "" {
			out.WriteString(attr.Value)
			out.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkXML(c, out)
	}
}
