// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/piiscan/internal/format"
	"github.com/kraklabs/piiscan/internal/scanner"
	"github.com/kraklabs/piiscan/internal/stats"
	piitesting "github.com/kraklabs/piiscan/internal/testing"
)

func newRegistry() *format.Registry {
	return format.RegisterDefaults(false, 4)
}

func TestScan_VisitsFilesInDeterministicSortedOrder(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{
		"b.txt":      "b",
		"a.txt":      "a",
		"z/c.txt":    "c",
		"z/a/d.txt":  "d",
	})

	var mu sync.Mutex
	var visited []string
	_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{}, stats.New(),
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			mu.Lock()
			visited = append(visited, filepath.Base(f.Path))
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "d.txt", "c.txt"}, visited)
}

func TestScan_DeterministicAcrossTwoRuns(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{
		"1.txt": "one", "2.txt": "two", "3/4.txt": "four",
	})

	run := func() []string {
		var mu sync.Mutex
		var order []string
		_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{}, stats.New(),
			func(ctx context.Context, f scanner.File, ex format.Extractor) error {
				mu.Lock()
				order = append(order, f.Path)
				mu.Unlock()
				return nil
			})
		require.NoError(t, err)
		return order
	}

	assert.Equal(t, run(), run())
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{"real.txt": "hi"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))

	var visited []string
	_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{}, stats.New(),
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			visited = append(visited, filepath.Base(f.Path))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, visited)
}

func TestScan_RejectsFilesOverMaxSize(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{"big.txt": "0123456789"})

	var visited int
	s := stats.New()
	_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{MaxFileSizeBytes: 4}, s,
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			visited++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 0, visited)
	assert.Equal(t, int64(1), s.Snapshot().Errors["FileTooLarge"])
}

func TestScan_UnsupportedFormatCountsErrorAndContinues(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{
		"a.unknownext": "???",
		"b.txt":        piitesting.SamplePIIText(),
	})

	var visited []string
	s := stats.New()
	_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{}, s,
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			visited = append(visited, filepath.Base(f.Path))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, visited)
	assert.Equal(t, int64(1), s.Snapshot().Errors["UnsupportedFormat"])
}

func TestScan_StopCountLimitsAdmittedFiles(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{
		"a.txt": "a", "b.txt": "b", "c.txt": "c", "d.txt": "d",
	})

	var mu sync.Mutex
	var visited []string
	s := stats.New()
	result, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{StopCount: 2}, s,
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			mu.Lock()
			visited = append(visited, f.Path)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.LessOrEqual(t, len(visited), 2)
	assert.LessOrEqual(t, s.Snapshot().FilesAdmitted, int64(2))
}

func TestScan_NoPathEscapesRoot(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{
		"inside/a.txt": piitesting.SamplePIIText(),
	})

	var visited []string
	_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{}, stats.New(),
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			rel, relErr := filepath.Rel(root, f.Path)
			require.NoError(t, relErr)
			assert.NotContains(t, rel, "..")
			visited = append(visited, f.Path)
			return nil
		})
	require.NoError(t, err)
	assert.Len(t, visited, 1)
}

func TestScan_ParallelModeVisitsAllAdmittedFiles(t *testing.T) {
	contents := map[string]string{}
	for i := 0; i < 20; i++ {
		contents[filepath.Join("dir", string(rune('a'+i))+".txt")] = piitesting.SamplePIIText()
	}
	root := piitesting.TempTree(t, contents)

	var mu sync.Mutex
	var visited []string
	s := stats.New()
	_, err := scanner.Scan(context.Background(), root, newRegistry(), scanner.Options{ParallelWorkers: 4}, s,
		func(ctx context.Context, f scanner.File, ex format.Extractor) error {
			mu.Lock()
			visited = append(visited, f.Path)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)
	sort.Strings(visited)
	assert.Len(t, visited, 20)
	assert.Equal(t, int64(20), s.Snapshot().FilesAdmitted)
}

func TestScan_RootMustBeDirectory(t *testing.T) {
	root := piitesting.TempTree(t, map[string]string{"a.txt": "a"})
	_, err := scanner.Scan(context.Background(), filepath.Join(root, "a.txt"), newRegistry(), scanner.Options{}, stats.New(),
		func(ctx context.Context, f scanner.File, ex format.Extractor) error { return nil })
	require.Error(t, err)
}
