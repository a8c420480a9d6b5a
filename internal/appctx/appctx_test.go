// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package appctx_test

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/piiscan/internal/appctx"
	"github.com/kraklabs/piiscan/internal/config"
)

func baseConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.RootPath = root
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.EnabledEngines = map[config.EngineName]bool{config.EngineRegex: true}
	cfg.CombinedPattern = regexp.MustCompile(`([a-z]+@[a-z]+\.[a-z]+)`)
	cfg.GroupLabels = map[int]string{1: "email"}
	return cfg
}

func TestBuild_WiresRegexEngineAndCSVWriter(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(t, root)

	ctx, err := appctx.Build(cfg)
	require.NoError(t, err)
	defer ctx.Close()

	assert.Equal(t, []string{"regex"}, ctx.Engines.Names())
	assert.FileExists(t, ctx.LogPath)
	assert.Contains(t, ctx.OutputPath, "_findings.csv")
}

func TestBuild_RejectsConfigWithNoEngines(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(t, root)
	cfg.EnabledEngines = map[config.EngineName]bool{}

	_, err := appctx.Build(cfg)
	require.Error(t, err)
}

func TestBuild_SelectsWriterByOutputFormat(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(t, root)
	cfg.OutputFormat = config.FormatJSON

	ctx, err := appctx.Build(cfg)
	require.NoError(t, err)
	defer ctx.Close()

	assert.Contains(t, ctx.OutputPath, "_findings.json")
}

func TestClose_IsSafeAfterNoScanActivity(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(t, root)

	ctx, err := appctx.Build(cfg)
	require.NoError(t, err)
	require.NoError(t, ctx.Close())
}
