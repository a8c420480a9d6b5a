// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLExtractor walks a yaml.Node tree collecting scalar values and
// mapping keys, dual-purposing the yaml.v3 dependency already used to
// load pattern and config files (SPEC_FULL.md AMBIENT STACK).
type YAMLExtractor struct{}

func (YAMLExtractor) Extract(path string) (TextOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return TextOutput{}, extractionErr(path, err)
	}

	var out strings.Builder
	walkYAML(&doc, &out)
	return Eager(out.String()), nil
}

func walkYAML(n *yaml.Node, out *strings.Builder) {
	if n.Kind == yaml.ScalarNode && n.Value != "" {
		out.WriteString(n.Value)
		out.WriteByte('\n')
	}
	for _, c := range n.Content {
		walkYAML(c, out)
	}
}
