// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package scanner implements the directory walk (spec §4.1): a
// deterministic, sorted-filename, depth-first traversal that validates
// each regular file (path-traversal, size, format, readability) before
// handing it to a per-file callback.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/piiscan/internal/errors"
	"github.com/kraklabs/piiscan/internal/format"
	"github.com/kraklabs/piiscan/internal/stats"
)

// File is the admitted Scan record (spec §3): absolute path, size, and
// detected extension.
type File struct {
	Path string
	Size int64
	Ext  string
}

// OnFile is invoked once per admitted file, with the resolved
// extractor already chosen by the registry.
type OnFile func(ctx context.Context, f File, extractor format.Extractor) error

// Result summarizes one walk.
type Result struct {
	Stopped bool // true if stop_count was reached before the walk finished
}

// Options configures one Scan call.
type Options struct {
	MaxFileSizeBytes int64
	StopCount        int // 0 means unbounded
	ParallelWorkers  int // 0 or 1 means single-threaded (deterministic order)
}

// Scan walks root depth-first, directories processed in sorted
// filename order at each level, and calls onFile for every file that
// passes validation. Symbolic links are never followed (spec §4.1).
func Scan(ctx context.Context, root string, registry *format.Registry, opts Options, st *stats.Statistics, onFile OnFile) (Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Result{}, errors.NewAccessError(
			"cannot resolve scan root",
			err.Error(),
			"check that the path exists and is accessible",
			err,
		)
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return Result{}, errors.NewAccessError(
			"cannot open scan root",
			err.Error(),
			"check that the path exists and is accessible",
			err,
		)
	}

	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return Result{}, errors.NewAccessError(
			"scan root is not a directory",
			absRoot,
			"pass a directory path",
			err,
		)
	}

	w := &walker{
		ctx:       ctx,
		root:      absRoot,
		registry:  registry,
		opts:      opts,
		stats:     st,
		onFile:    onFile,
		stopCount: opts.StopCount,
	}

	if opts.ParallelWorkers > 1 {
		return w.walkParallel()
	}
	return w.walkSequential()
}

type walker struct {
	ctx       context.Context
	root      string
	registry  *format.Registry
	opts      Options
	stats     *stats.Statistics
	onFile    OnFile
	stopCount int

	mu       sync.Mutex
	admitted int
	stopped  bool
}

func (w *walker) walkSequential() (Result, error) {
	err := w.walkDir(w.root)
	return Result{Stopped: w.stopped}, err
}

// walkDir recurses depth-first, sorted by filename within each
// directory, matching spec §4.1's determinism requirement.
func (w *walker) walkDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // unreadable subdirectory: recoverable, not counted against a specific file
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if w.shouldStop() {
			return nil
		}
		path := filepath.Join(dir, entry.Name())

		if entry.Type()&os.ModeSymlink != 0 {
			continue // never follow symlinks
		}
		if entry.IsDir() {
			if err := w.walkDir(path); err != nil {
				return err
			}
			continue
		}
		w.visitFile(path)
	}
	return nil
}

func (w *walker) shouldStop() bool {
	if w.stopCount <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.admitted >= w.stopCount
}

func (w *walker) visitFile(path string) {
	w.stats.IncDiscovered()

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.recordError(errors.KindPermissionDenied, path, err)
		return
	}
	rel, err := filepath.Rel(w.root, resolved)
	if err != nil || strings.HasPrefix(rel, "..") {
		w.recordError(errors.KindPathTraversal, path, fmt.Errorf("escapes scan root"))
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		w.recordError(errors.KindPermissionDenied, path, err)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	if w.opts.MaxFileSizeBytes > 0 && info.Size() > w.opts.MaxFileSizeBytes {
		w.recordError(errors.KindFileTooLarge, path, fmt.Errorf("%d bytes exceeds limit", info.Size()))
		return
	}

	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := w.registry.Resolve(ext, path)
	if !ok {
		w.recordError(errors.KindUnsupportedFormat, path, fmt.Errorf("no extractor for %q", ext))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		w.recordError(errors.KindPermissionDenied, path, err)
		return
	}
	f.Close()

	w.mu.Lock()
	if w.stopCount > 0 && w.admitted >= w.stopCount {
		w.mu.Unlock()
		return
	}
	w.admitted++
	if w.stopCount > 0 && w.admitted >= w.stopCount {
		w.stopped = true
	}
	w.mu.Unlock()

	w.stats.IncAdmitted(ext)

	if err := w.onFile(w.ctx, File{Path: path, Size: info.Size(), Ext: ext}, extractor); err != nil {
		w.recordError(errors.KindExtractionError, path, err)
	}
}

func (w *walker) recordError(kind errors.ErrorKind, path string, err error) {
	w.stats.IncError(kind)
	_ = &errors.ScanError{Kind: kind, Path: path, Err: err} // only the per-kind counter is recorded; this value is discarded and the failure is not logged
}

// admittedFile pairs a validated File with the extractor the registry
// chose for it, collected during the discovery pass of parallel mode.
type admittedFile struct {
	file      File
	extractor format.Extractor
}

// walkParallel fans out onFile calls across a worker pool, grounded on
// pkg/ingestion's parseFilesParallel jobs/resultsChan/WaitGroup shape.
// Discovery and validation still happen in a single sequential pass (so
// path-traversal checks, size limits, and stop_count stay exact) and
// only the per-file onFile invocation — extraction plus detection, the
// expensive part — runs concurrently. This trades the default mode's
// deterministic write order for throughput; callers that need byte-
// identical output across runs must use the single-threaded default
// (spec §5).
func (w *walker) walkParallel() (Result, error) {
	var collected []admittedFile
	collect := w.onFile
	w.collectInto(&collected)

	if len(collected) == 0 {
		return Result{Stopped: w.stopped}, nil
	}

	jobs := make(chan int, len(collected))
	type jobResult struct {
		err error
	}
	results := make(chan jobResult, len(collected))

	var wg sync.WaitGroup
	for n := 0; n < w.opts.ParallelWorkers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-w.ctx.Done():
					return
				default:
				}
				af := collected[i]
				err := collect(w.ctx, af.file, af.extractor)
				if err != nil {
					w.recordError(errors.KindExtractionError, af.file.Path, err)
				}
				results <- jobResult{err: err}
			}
		}()
	}

	for i := range collected {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()
	for range results {
	}

	return Result{Stopped: w.stopped}, nil
}

// collectInto runs the same sorted depth-first walk as the sequential
// path, but appends each admitted file to out instead of invoking a
// callback, so the discovery/validation pass stays single-threaded and
// deterministic even in parallel mode.
func (w *walker) collectInto(out *[]admittedFile) {
	original := w.onFile
	w.onFile = func(ctx context.Context, f File, extractor format.Extractor) error {
		*out = append(*out, admittedFile{file: f, extractor: extractor})
		return nil
	}
	_ = w.walkDir(w.root)
	w.onFile = original
}
