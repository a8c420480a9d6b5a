// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/piiscan/internal/appctx"
	"github.com/kraklabs/piiscan/internal/config"
	"github.com/kraklabs/piiscan/internal/errors"
	"github.com/kraklabs/piiscan/internal/format"
	"github.com/kraklabs/piiscan/internal/scanner"
	"github.com/kraklabs/piiscan/internal/ui"
)

// scanFlags holds every scan flag's parsed value, before it is merged
// into a config.Config (spec §6's full table).
type scanFlags struct {
	regex            bool
	ner              bool
	spacyNER         bool
	ollama           bool
	openaiCompatible bool
	multimodal       bool

	outName       string
	outputDir     string
	format        string
	noHeader      bool
	whitelist     string
	stopCount     int
	configPath    string
	patternFile   string
	summaryFormat string
	verbose       bool
	quiet         bool
	magic         bool
	maxFileSizeMB int64
	parallel      int
	showVersion   bool
	noColor       bool
	metricsAddr   string
}

func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	sf := scanFlags{}

	fs.BoolVar(&sf.regex, "regex", false, "Enable the pattern (regex) engine")
	fs.BoolVar(&sf.ner, "ner", false, "Enable the AI-NER engine")
	fs.BoolVar(&sf.spacyNER, "spacy-ner", false, "Enable the spaCy-class NER engine")
	fs.BoolVar(&sf.ollama, "ollama", false, "Enable the Ollama LLM engine")
	fs.BoolVar(&sf.openaiCompatible, "openai-compatible", false, "Enable the OpenAI-compatible LLM engine")
	fs.BoolVar(&sf.multimodal, "multimodal", false, "Enable the multimodal LLM engine for images")

	fs.StringVar(&sf.outName, "outname", "piiscan", "Name included in output file names")
	fs.StringVar(&sf.outputDir, "output-dir", "./output/", "Directory output files are written to")
	fs.StringVar(&sf.format, "format", "csv", "Findings file format: csv, json, or xlsx")
	fs.BoolVar(&sf.noHeader, "no-header", false, "Omit the CSV header row")
	fs.StringVar(&sf.whitelist, "whitelist", "", "Path to a whitelist file, one exclusion pattern per line")
	fs.IntVar(&sf.stopCount, "stop-count", 0, "Stop after N admitted files (0 means unbounded)")
	fs.StringVar(&sf.configPath, "config", "", "Path to a YAML or JSON config file; CLI flags override it")
	fs.StringVar(&sf.patternFile, "pattern-file", "", "Path to the regex/ai-ner pattern configuration file")
	fs.StringVar(&sf.summaryFormat, "summary-format", "human", "Summary rendering: human or json")
	fs.BoolVar(&sf.verbose, "verbose", false, "Verbose (debug-level) logging")
	fs.BoolVar(&sf.quiet, "quiet", false, "Suppress non-error console output")
	fs.BoolVar(&sf.magic, "use-magic-detection", false, "Enable content sniffing for extension-less files")
	fs.Int64Var(&sf.maxFileSizeMB, "max-file-size", 10, "File-size ceiling in MB")
	fs.IntVar(&sf.parallel, "parallel-workers", 1, "Worker pool size; 1 keeps single-threaded deterministic output")
	fs.BoolVar(&sf.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&sf.noColor, "no-color", false, "Disable colored console output")
	fs.StringVar(&sf.metricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: piiscan scan <path> [options]

Scans <path> for personally identifiable information using one or more
detection engines, and writes surviving findings to a report file.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitArgs)
	}

	if sf.showVersion {
		printVersion()
		return
	}

	ui.InitColors(sf.noColor)
	jsonSummary := sf.summaryFormat == string(config.SummaryJSON)

	if fs.NArg() < 1 {
		errors.FatalError(errors.NewArgsError(
			"missing scan root",
			"no positional <path> argument was given",
			"run: piiscan scan <path> [options]",
		), jsonSummary)
	}
	rootPath := fs.Arg(0)

	cfg, err := buildConfig(fs, sf, rootPath)
	if err != nil {
		errors.FatalError(err, jsonSummary)
	}
	jsonSummary = cfg.SummaryFormat == config.SummaryJSON

	ctx, err := appctx.Build(cfg)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"could not start scan",
			err.Error(),
			"check --regex/--ner/etc. and any --pattern-file/--whitelist paths",
			err,
		), jsonSummary)
	}

	if sf.metricsAddr != "" {
		startMetricsServer(ctx, sf.metricsAddr)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		ctx.Logger.Info("scan.signal", "signal", sig.String())
		cancel()
	}()

	progress := NewProgressConfig(!cfg.Quiet && !jsonSummary, sf.noColor)
	spinner := NewSpinner(progress, "Scanning "+rootPath)

	result, scanErr := scanner.Scan(runCtx, cfg.RootPath, ctx.Registry, scanner.Options{
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
		StopCount:        cfg.StopCount,
		ParallelWorkers:  cfg.ParallelWorkers,
	}, ctx.Stats, wrapWithSpinner(ctx.ProcessFile, spinner))
	if spinner != nil {
		_ = spinner.Finish()
	}

	ctx.Stats.Close()
	summary := ctx.Stats.Snapshot()

	if closeErr := ctx.Close(); closeErr != nil {
		errors.FatalError(errors.NewGeneralError(
			"failed to finalize output",
			closeErr.Error(),
			"check that the output directory is writable and not full",
			closeErr,
		), jsonSummary)
	}

	if scanErr != nil {
		errors.FatalError(errors.NewAccessError(
			"scan aborted",
			scanErr.Error(),
			"check that the scan root is readable",
			scanErr,
		), jsonSummary)
	}

	renderSummary(summary, string(cfg.SummaryFormat), ctx.OutputPath, result.Stopped)
}

// buildConfig merges defaults, an optional --config file, the pattern
// and whitelist files, and CLI flags into one Config, in spec §9's
// layering order (file values first, then any explicitly-set CLI flag).
func buildConfig(fs *flag.FlagSet, sf scanFlags, rootPath string) (*config.Config, error) {
	cfg := config.Default()
	cfg.RootPath = rootPath
	whitelistPath := sf.whitelist

	if sf.configPath != "" {
		fc, err := config.LoadFile(sf.configPath)
		if err != nil {
			return nil, errors.NewConfigError(
				"cannot load config file",
				err.Error(),
				"check the --config path and its YAML/JSON syntax",
				err,
			)
		}
		cfg.ApplyFile(fc)
		if whitelistPath == "" && fc.WhitelistPath != nil {
			whitelistPath = *fc.WhitelistPath
		}
	}

	cfg.EnabledEngines[config.EngineRegex] = cfg.EnabledEngines[config.EngineRegex] || sf.regex
	cfg.EnabledEngines[config.EngineNER] = cfg.EnabledEngines[config.EngineNER] || sf.ner
	cfg.EnabledEngines[config.EngineSpacyNER] = cfg.EnabledEngines[config.EngineSpacyNER] || sf.spacyNER
	cfg.EnabledEngines[config.EngineOllama] = cfg.EnabledEngines[config.EngineOllama] || sf.ollama
	cfg.EnabledEngines[config.EngineOpenAICompatible] = cfg.EnabledEngines[config.EngineOpenAICompatible] || sf.openaiCompatible
	cfg.EnabledEngines[config.EngineMultimodal] = cfg.EnabledEngines[config.EngineMultimodal] || sf.multimodal

	if fs.Changed("output-dir") {
		cfg.OutputDir = sf.outputDir
	}
	if fs.Changed("outname") {
		cfg.OutName = sf.outName
	}
	if fs.Changed("format") {
		cfg.OutputFormat = config.OutputFormat(sf.format)
	}
	if fs.Changed("no-header") {
		cfg.NoHeader = sf.noHeader
	}
	if fs.Changed("stop-count") {
		cfg.StopCount = sf.stopCount
	}
	if fs.Changed("summary-format") {
		cfg.SummaryFormat = config.SummaryFormat(sf.summaryFormat)
	}
	if fs.Changed("verbose") {
		cfg.Verbose = sf.verbose
	}
	if fs.Changed("quiet") {
		cfg.Quiet = sf.quiet
	}
	if fs.Changed("use-magic-detection") {
		cfg.UseMagicDetection = sf.magic
	}
	if fs.Changed("max-file-size") {
		cfg.MaxFileSizeBytes = sf.maxFileSizeMB << 20
	}
	if fs.Changed("parallel-workers") {
		cfg.ParallelWorkers = sf.parallel
	}

	if sf.patternFile != "" {
		pf, combined, groupLabels, err := config.LoadPatternFile(sf.patternFile)
		if err != nil {
			return nil, errors.NewConfigError(
				"cannot load pattern file",
				err.Error(),
				"check --pattern-file's path and JSON syntax",
				err,
			)
		}
		cfg.CombinedPattern = combined
		cfg.GroupLabels = groupLabels
		cfg.NERLabels = pf.AINER
	}

	if whitelistPath != "" {
		wl, err := config.LoadWhitelist(whitelistPath)
		if err != nil {
			return nil, errors.NewConfigError(
				"cannot load whitelist file",
				err.Error(),
				"check --whitelist's path",
				err,
			)
		}
		cfg.WhitelistPattern = wl
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.NewArgsError(
			"invalid scan options",
			err.Error(),
			"enable at least one of --regex/--ner/--spacy-ner and pass a valid --format",
		)
	}

	return cfg, nil
}

// wrapWithSpinner advances bar once per processed file, so the scan's
// indeterminate progress display reflects files actually handled
// rather than just elapsed time. Returns onFile unchanged if bar is
// nil (progress disabled: --quiet, --summary-format json, or no TTY).
func wrapWithSpinner(onFile scanner.OnFile, bar *progressbar.ProgressBar) scanner.OnFile {
	if bar == nil {
		return onFile
	}
	return func(ctx context.Context, f scanner.File, extractor format.Extractor) error {
		err := onFile(ctx, f, extractor)
		_ = bar.Add(1)
		return err
	}
}

// startMetricsServer exposes ctx.Stats' Prometheus registry over HTTP,
// grounded on cmd/cie/index.go's --metrics-addr goroutine.
func startMetricsServer(ctx *appctx.Context, addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", ctx.Stats.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		ctx.Logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ctx.Logger.Warn("metrics.http.error", "err", err)
		}
	}()
}
