// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config defines the run-scoped Config record (spec §3) and the
// loader that merges a YAML/JSON config file with CLI-provided flags
// (spec §9 "configuration layering": file values first, then any
// explicitly-set CLI flag overrides). Engine timeouts and retry
// settings left at zero here are defaulted later, by internal/appctx.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/piiscan/internal/contract"
)

// EngineName identifies one of the five detection engines.
type EngineName string

const (
	EngineRegex            EngineName = "regex"
	EngineNER              EngineName = "ner"
	EngineSpacyNER         EngineName = "spacy-ner"
	EngineOllama           EngineName = "ollama"
	EngineOpenAICompatible EngineName = "openai-compatible"
	EngineMultimodal       EngineName = "multimodal"
)

// OutputFormat selects the findings writer.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatJSON OutputFormat = "json"
	FormatXLSX OutputFormat = "xlsx"
)

// SummaryFormat selects the run-summary rendering.
type SummaryFormat string

const (
	SummaryHuman SummaryFormat = "human"
	SummaryJSON  SummaryFormat = "json"
)

// RetryConfig controls exponential backoff with jitter for network-bound
// engines (LLM, multimodal LLM), grounded on the teacher's
// pkg/ingestion.RetryConfig shape.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig mirrors the teacher's embedding-retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	}
}

// EngineSettings holds per-engine configuration: thresholds, endpoints,
// model names, API keys, timeouts. Not every field applies to every
// engine; unused fields are left at their zero value.
type EngineSettings struct {
	Threshold float64
	BaseURL   string
	Model     string
	APIKey    string
	Timeout   time.Duration
	Retry     RetryConfig
}

// PatternEntry is one row of the pattern-configuration file's "regex" array.
type PatternEntry struct {
	Label           string `json:"label" yaml:"label"`
	Value           string `json:"value" yaml:"value"`
	RegexCompiledPos int   `json:"regex_compiled_pos" yaml:"regex_compiled_pos"`
	Expression      string `json:"expression" yaml:"expression"`
}

// NEREntry is one row of the pattern-configuration file's "ai-ner" array.
type NEREntry struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
	Term  string `json:"term" yaml:"term"`
}

// PatternFile is the external, static pattern-configuration file (spec §6).
type PatternFile struct {
	Regex []PatternEntry `json:"regex" yaml:"regex"`
	AINER []NEREntry     `json:"ai-ner" yaml:"ai-ner"`
}

// Config is the immutable, run-scoped configuration record (spec §3).
// It is populated by Default, ApplyFile, and the CLI layer's flag merge.
// EngineSettings are not defaulted here: a zero Timeout or
// Retry.MaxRetries is replaced by a fallback in internal/appctx when the
// engine is built.
type Config struct {
	RootPath string

	EnabledEngines map[EngineName]bool
	EngineSettings map[EngineName]EngineSettings

	// CombinedPattern is the compiled non-capturing alternation built
	// from the pattern file's regex entries; GroupLabels maps a capture
	// group's position to its type label.
	CombinedPattern *regexp.Regexp
	GroupLabels     map[int]string
	NERLabels       []NEREntry

	// WhitelistPattern is the compiled anchored alternation of
	// whitelist entries (one per line of --whitelist). Nil when no
	// whitelist was supplied.
	WhitelistPattern *regexp.Regexp

	MaxFileSizeBytes int64
	MaxArchiveDepth  int
	PerFileTimeout   time.Duration
	ChunkCeiling     int

	OutputFormat  OutputFormat
	OutputDir     string
	OutName       string
	NoHeader      bool
	SummaryFormat SummaryFormat

	Verbose          bool
	Quiet             bool
	UseMagicDetection bool
	StopCount         int // 0 means unbounded
	ParallelWorkers   int // 0 or 1 means single-threaded (deterministic)

	Translate func(string) string
}

// Default returns a Config populated with this module's defaults. The
// CLI layer starts from this and overlays the config file, then CLI flags.
func Default() *Config {
	return &Config{
		EnabledEngines:    map[EngineName]bool{},
		EngineSettings:    map[EngineName]EngineSettings{},
		GroupLabels:       map[int]string{},
		MaxFileSizeBytes:  10 << 20, // 10 MiB
		MaxArchiveDepth:   4,
		PerFileTimeout:    30 * time.Second,
		ChunkCeiling:      10000,
		OutputFormat:      FormatCSV,
		OutputDir:         "./output/",
		OutName:           "piiscan",
		SummaryFormat:     SummaryHuman,
		ParallelWorkers:   1,
		Translate:         func(s string) string { return s },
	}
}

// LoadPatternFile reads and compiles the pattern-configuration file
// (spec §6). Per spec.md: "the combined regex is built as a
// non-capturing alternation; each alternative's leftmost group index
// is its regex_compiled_pos, and that index maps back to label." Each
// entry's own Expression supplies its own capturing group(s); the
// alternation wraps every entry in "(?:...)" rather than a fresh
// capturing paren, so an entry's internal parentheses never shift a
// later entry's group numbering — RegexCompiledPos, not auto-increment,
// is the authoritative group index. A malformed file is a
// ConfigurationError (fatal, exit 4) to the caller.
func LoadPatternFile(path string) (*PatternFile, *regexp.Regexp, map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read pattern file: %w", err)
	}
	if res := contract.ValidateAuxFileSize(data); !res.OK {
		return nil, nil, nil, fmt.Errorf("pattern file: %s", res.Message)
	}

	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, nil, nil, fmt.Errorf("parse pattern file: %w", err)
	}

	var alternatives []string
	groupLabels := map[int]string{}
	for _, entry := range pf.Regex {
		if entry.Expression == "" {
			return nil, nil, nil, fmt.Errorf("pattern file: entry %q has empty expression", entry.Label)
		}
		alternatives = append(alternatives, "(?:"+entry.Expression+")")
		groupLabels[entry.RegexCompiledPos] = entry.Label
	}

	if len(alternatives) == 0 {
		return &pf, nil, groupLabels, nil
	}

	combined, err := regexp.Compile(strings.Join(alternatives, "|"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("compile combined pattern: %w", err)
	}

	return &pf, combined, groupLabels, nil
}

// LoadWhitelist reads one exclusion pattern per line and compiles them
// into a single anchored alternation, matching a finding's surface text
// only when the whole text matches one of the lines (spec §4.5).
func LoadWhitelist(path string) (*regexp.Regexp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}
	if res := contract.ValidateAuxFileSize(data); !res.OK {
		return nil, fmt.Errorf("whitelist: %s", res.Message)
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, regexp.QuoteMeta(line))
	}
	if len(entries) == 0 {
		return nil, nil
	}

	pattern := "^(?:" + strings.Join(entries, "|") + ")$"
	return regexp.Compile(pattern)
}

// FileConfig is the shape of a YAML or JSON config file loaded via
// --config PATH. Every field is optional; absent fields keep whatever
// Default() (or an earlier, lower-precedence source) already set.
type FileConfig struct {
	RootPath          *string        `yaml:"root_path"`
	Engines           []string       `yaml:"engines"`
	OutputFormat      *string        `yaml:"format"`
	OutputDir         *string        `yaml:"output_dir"`
	OutName           *string        `yaml:"outname"`
	NoHeader          *bool          `yaml:"no_header"`
	WhitelistPath     *string        `yaml:"whitelist"`
	StopCount         *int           `yaml:"stop_count"`
	SummaryFormat     *string        `yaml:"summary_format"`
	Verbose           *bool          `yaml:"verbose"`
	Quiet             *bool          `yaml:"quiet"`
	UseMagicDetection *bool          `yaml:"use_magic_detection"`
	MaxFileSizeMB     *int64         `yaml:"max_file_size_mb"`
	ParallelWorkers   *int           `yaml:"parallel_workers"`
}

// LoadFile parses a YAML or JSON config file. YAML 1.2 is a superset of
// JSON, so a single yaml.Unmarshal call handles both, mirroring the
// teacher's gopkg.in/yaml.v3 usage.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if res := contract.ValidateAuxFileSize(data); !res.OK {
		return nil, fmt.Errorf("config file: %s", res.Message)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

// ApplyFile overlays non-nil fields from fc onto c. Called before CLI
// flags are applied, so CLI values always win (spec §9). WhitelistPath
// has no Config field; the CLI layer loads that file itself.
func (c *Config) ApplyFile(fc *FileConfig) {
	if fc == nil {
		return
	}
	if fc.RootPath != nil {
		c.RootPath = *fc.RootPath
	}
	for _, e := range fc.Engines {
		c.EnabledEngines[EngineName(e)] = true
	}
	if fc.OutputFormat != nil {
		c.OutputFormat = OutputFormat(*fc.OutputFormat)
	}
	if fc.OutputDir != nil {
		c.OutputDir = *fc.OutputDir
	}
	if fc.OutName != nil {
		c.OutName = *fc.OutName
	}
	if fc.NoHeader != nil {
		c.NoHeader = *fc.NoHeader
	}
	if fc.StopCount != nil {
		c.StopCount = *fc.StopCount
	}
	if fc.SummaryFormat != nil {
		c.SummaryFormat = SummaryFormat(*fc.SummaryFormat)
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
	if fc.Quiet != nil {
		c.Quiet = *fc.Quiet
	}
	if fc.UseMagicDetection != nil {
		c.UseMagicDetection = *fc.UseMagicDetection
	}
	if fc.MaxFileSizeMB != nil {
		c.MaxFileSizeBytes = *fc.MaxFileSizeMB << 20
	}
	if fc.ParallelWorkers != nil {
		c.ParallelWorkers = *fc.ParallelWorkers
	}
}

// Validate checks the fully-merged config against the invariants spec §6
// implies (root path present, at least one of the regex/ner/spacy-ner
// engines enabled, a known output format). It does not
// check engine availability — that is the engine registry's job at
// startup (ErrorKind EngineUnavailable).
func (c *Config) Validate() error {
	if c.RootPath == "" {
		return fmt.Errorf("root path is required")
	}
	hasPatternEngine := c.EnabledEngines[EngineRegex] || c.EnabledEngines[EngineNER] || c.EnabledEngines[EngineSpacyNER]
	if !hasPatternEngine {
		return fmt.Errorf("at least one of --regex/--ner/--spacy-ner must be enabled")
	}
	switch c.OutputFormat {
	case FormatCSV, FormatJSON, FormatXLSX:
	default:
		return fmt.Errorf("unknown output format %q", c.OutputFormat)
	}
	return nil
}
