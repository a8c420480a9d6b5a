// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package appctx assembles one run's Application Context: the engine
// registry, writer, match container, statistics, and logger built from
// a fully-merged Config. It is the scan command's only construction
// point, grounded on internal/bootstrap.InitProject's idempotent
// "build from a config struct, return a ready-to-use handle" shape —
// re-scoped here from a CozoDB project lifecycle to a single scan run's
// wiring, since this module keeps no state between runs (SPEC_FULL.md
// §1 Non-goals).
package appctx

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/piiscan/internal/config"
	"github.com/kraklabs/piiscan/internal/engine"
	"github.com/kraklabs/piiscan/internal/format"
	"github.com/kraklabs/piiscan/internal/match"
	"github.com/kraklabs/piiscan/internal/stats"
	"github.com/kraklabs/piiscan/internal/writer"
	"github.com/kraklabs/piiscan/pkg/llm"
)

// Context bundles everything one scan run needs downstream of the CLI
// layer's flag parsing.
type Context struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *format.Registry
	Engines  *engine.Registry
	Stats    *stats.Statistics
	Match    *match.Container
	Writer   writer.Writer

	// OutputPath and LogPath are the two files the scan command writes
	// to, named "<timestamp> <outname>_findings.<ext>" and
	// "<timestamp> <outname>_log.txt" (spec §6).
	OutputPath string
	LogPath    string

	logFile    *os.File
	multimodal *engine.MultimodalEngine // nil unless --multimodal is enabled; never added to Engines, since its Detect only handles images
}

// Build wires a full Application Context from a merged Config. It is
// idempotent only in the sense that calling it twice with the same
// Config produces two independent, equally valid contexts — there is
// no shared state to protect against double-initialization, unlike
// the teacher's CozoDB project bootstrap.
func Build(cfg *config.Config) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	timestamp := runTimestamp()
	ext := outputExtension(cfg.OutputFormat)
	outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s %s_findings%s", timestamp, cfg.OutName, ext))
	logPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s %s_log.txt", timestamp, cfg.OutName))

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.Quiet {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}))

	w, err := buildWriter(cfg.OutputFormat, outputPath, cfg.NoHeader)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("create writer: %w", err)
	}

	registry := format.RegisterDefaults(cfg.UseMagicDetection, cfg.MaxArchiveDepth)

	engines, multimodal, err := buildEngineRegistry(cfg, logger)
	if err != nil {
		w.Close()
		logFile.Close()
		return nil, err
	}
	if len(engines.Names()) == 0 && multimodal == nil {
		w.Close()
		logFile.Close()
		return nil, fmt.Errorf("no detection engines became available")
	}

	st := stats.New()
	container := match.New(cfg.WhitelistPattern, w, st)

	logger.Info("appctx.build.success",
		"root", cfg.RootPath,
		"engines", engines.Names(),
		"output", outputPath,
	)

	return &Context{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Engines:    engines,
		Stats:      st,
		Match:      container,
		Writer:     w,
		OutputPath: outputPath,
		LogPath:    logPath,
		logFile:    logFile,
		multimodal: multimodal,
	}, nil
}

// Close finalizes the match container (writing the run summary) and
// releases the log file. Safe to call once, after the scan completes
// or a fatal error aborts it.
func (c *Context) Close() error {
	summary := c.Stats.Snapshot()
	err := c.Match.Close(summary)
	c.logFile.Close()
	return err
}

func outputExtension(f config.OutputFormat) string {
	switch f {
	case config.FormatJSON:
		return ".json"
	case config.FormatXLSX:
		return ".xlsx"
	default:
		return ".csv"
	}
}

func buildWriter(outFormat config.OutputFormat, path string, noHeader bool) (writer.Writer, error) {
	switch outFormat {
	case config.FormatJSON:
		return writer.NewJSONWriter(path), nil
	case config.FormatXLSX:
		return writer.NewXLSXWriter(path), nil
	default:
		return writer.NewCSVWriter(path, noHeader)
	}
}

// buildEngineRegistry instantiates and adds every engine the config
// enables, skipping (and logging) any that fails its availability
// probe rather than aborting the whole run — spec §7's
// EngineUnavailable is only fatal once it leaves zero engines enabled,
// which the caller checks after this returns.
func buildEngineRegistry(cfg *config.Config, logger *slog.Logger) (*engine.Registry, *engine.MultimodalEngine, error) {
	reg := engine.NewRegistry()

	if cfg.EnabledEngines[config.EngineRegex] {
		reg.Add(engine.PatternEngine{Combined: cfg.CombinedPattern, GroupLabels: cfg.GroupLabels})
	}

	for _, name := range []config.EngineName{config.EngineNER, config.EngineSpacyNER} {
		if !cfg.EnabledEngines[name] {
			continue
		}
		settings := cfg.EngineSettings[name]
		e := &engine.NEREngine{
			EngineName: string(name),
			BaseURL:    settings.BaseURL,
			Client:     &http.Client{Timeout: nonZero(settings.Timeout, 10*time.Second)},
			Threshold:  settings.Threshold,
		}
		addIfAvailable(reg, logger, e)
	}

	if cfg.EnabledEngines[config.EngineOllama] {
		settings := cfg.EngineSettings[config.EngineOllama]
		provider, err := llm.NewProvider(llm.ProviderConfig{
			Type:         "ollama",
			BaseURL:      settings.BaseURL,
			DefaultModel: settings.Model,
			Timeout:      nonZero(settings.Timeout, 120*time.Second),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("ollama provider: %w", err)
		}
		retry := settings.Retry
		if retry.MaxRetries == 0 {
			retry = config.DefaultRetryConfig()
		}
		addIfAvailable(reg, logger, &engine.LLMEngine{
			EngineName: string(config.EngineOllama),
			Provider:   provider,
			Model:      settings.Model,
			Retry:      retry,
		})
	}

	if cfg.EnabledEngines[config.EngineOpenAICompatible] {
		settings := cfg.EngineSettings[config.EngineOpenAICompatible]
		provider, err := llm.NewProvider(llm.ProviderConfig{
			Type:         "openai-compatible",
			BaseURL:      settings.BaseURL,
			APIKey:       settings.APIKey,
			DefaultModel: settings.Model,
			Timeout:      nonZero(settings.Timeout, 120*time.Second),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai-compatible provider: %w", err)
		}
		retry := settings.Retry
		if retry.MaxRetries == 0 {
			retry = config.DefaultRetryConfig()
		}
		addIfAvailable(reg, logger, &engine.LLMEngine{
			EngineName: string(config.EngineOpenAICompatible),
			Provider:   provider,
			Model:      settings.Model,
			Retry:      retry,
		})
	}

	var multimodal *engine.MultimodalEngine
	if cfg.EnabledEngines[config.EngineMultimodal] {
		settings := cfg.EngineSettings[config.EngineMultimodal]
		providerType := "ollama"
		if settings.APIKey != "" {
			providerType = "openai-compatible"
		}
		provider, err := llm.NewProvider(llm.ProviderConfig{
			Type:         providerType,
			BaseURL:      settings.BaseURL,
			APIKey:       settings.APIKey,
			DefaultModel: settings.Model,
			Timeout:      nonZero(settings.Timeout, 120*time.Second),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("multimodal provider: %w", err)
		}
		retry := settings.Retry
		if retry.MaxRetries == 0 {
			retry = config.DefaultRetryConfig()
		}
		// Not added to reg: MultimodalEngine.Detect only handles
		// images and errors on plain text, so it is kept out of the
		// text fan-out and invoked directly from ProcessFile via
		// Context.multimodal when the Format Registry reports an
		// opaque image.
		candidate := &engine.MultimodalEngine{
			EngineName: string(config.EngineMultimodal),
			Provider:   provider,
			Model:      settings.Model,
			Retry:      retry,
		}
		if candidate.IsAvailable() {
			multimodal = candidate
		} else {
			logger.Warn("appctx.engine.unavailable", "engine", candidate.Name())
		}
	}

	return reg, multimodal, nil
}

func addIfAvailable(reg *engine.Registry, logger *slog.Logger, e engine.Engine) {
	if !e.IsAvailable() {
		logger.Warn("appctx.engine.unavailable", "engine", e.Name())
		return
	}
	reg.Add(e)
}

func nonZero(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// runTimestamp formats the current time for output filenames. Scan
// runs always call this exactly once, at Build time, so there is no
// determinism hazard despite wall-clock use.
func runTimestamp() string {
	return time.Now().Format("2006-01-02T15-04-05")
}
