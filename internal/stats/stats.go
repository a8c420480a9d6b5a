// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package stats implements the Statistics record (spec §3, §4.7): a
// plain counter aggregate with fine-grained locking, frozen into an
// immutable Summary snapshot at run end. Per the "Statistics as value"
// design note, engines and extractors never see a live *Statistics —
// only the scanner, the match container and the per-file processing
// in internal/appctx update it, and only the
// Application Context hands out the final Summary.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kraklabs/piiscan/internal/errors"
)

// engineTiming accumulates one engine's invocation count and cumulative
// wall time across the run.
type engineTiming struct {
	count int64
	nanos int64
}

// Statistics is the shared, run-scoped counter aggregate. All exported
// methods are safe for concurrent use; counters use atomics, and the
// histograms/timestamps use a mutex since they are updated far less
// often and need compound read-modify-write semantics.
type Statistics struct {
	filesDiscovered int64
	filesAdmitted   int64
	findingsEmitted int64
	whitelisted     int64
	deduplicated    int64

	mu         sync.Mutex
	extHist    map[string]int64
	errHist    map[errors.ErrorKind]int64
	engineTime map[string]*engineTiming

	start time.Time
	end   time.Time

	metrics *metrics
}

// New creates a Statistics record with the start timestamp set to now.
func New() *Statistics {
	return &Statistics{
		extHist:    map[string]int64{},
		errHist:    map[errors.ErrorKind]int64{},
		engineTime: map[string]*engineTiming{},
		start:      time.Now(),
		metrics:    newMetrics(),
	}
}

// IncDiscovered records one more file seen by the walk, before validation.
func (s *Statistics) IncDiscovered() {
	atomic.AddInt64(&s.filesDiscovered, 1)
	s.metrics.filesDiscovered.Inc()
}

// IncAdmitted records one more file that passed validation, and bumps
// its extension histogram bucket.
func (s *Statistics) IncAdmitted(ext string) {
	atomic.AddInt64(&s.filesAdmitted, 1)
	s.metrics.filesAdmitted.Inc()
	s.mu.Lock()
	s.extHist[ext]++
	s.mu.Unlock()
}

// IncError records one recoverable failure of the given kind.
func (s *Statistics) IncError(kind errors.ErrorKind) {
	s.metrics.errorsByKind.WithLabelValues(kind.String()).Inc()
	s.mu.Lock()
	s.errHist[kind]++
	s.mu.Unlock()
}

// IncFindingsEmitted records one finding that reached the writer.
func (s *Statistics) IncFindingsEmitted() {
	atomic.AddInt64(&s.findingsEmitted, 1)
	s.metrics.findingsEmitted.Inc()
}

// IncWhitelisted records one finding dropped by the whitelist.
func (s *Statistics) IncWhitelisted() {
	atomic.AddInt64(&s.whitelisted, 1)
	s.metrics.whitelisted.Inc()
}

// IncDeduplicated records one finding dropped as a duplicate.
func (s *Statistics) IncDeduplicated() {
	atomic.AddInt64(&s.deduplicated, 1)
	s.metrics.deduplicated.Inc()
}

// RecordEngineTime accumulates one invocation's elapsed time for the
// named engine.
func (s *Statistics) RecordEngineTime(engine string, d time.Duration) {
	s.metrics.engineDuration.WithLabelValues(engine).Observe(d.Seconds())
	s.mu.Lock()
	t, ok := s.engineTime[engine]
	if !ok {
		t = &engineTiming{}
		s.engineTime[engine] = t
	}
	t.count++
	t.nanos += d.Nanoseconds()
	s.mu.Unlock()
}

// Close freezes the end timestamp. Calling Close more than once only
// moves the end timestamp forward; Summary always reflects the latest
// Close call, matching the match container's own close-is-idempotent
// discipline.
func (s *Statistics) Close() {
	s.mu.Lock()
	s.end = time.Now()
	s.mu.Unlock()
}

// EngineStat is one engine's snapshot row in a Summary.
type EngineStat struct {
	Engine        string        `json:"engine"`
	Invocations   int64         `json:"invocations"`
	TotalTime     time.Duration `json:"total_time_ns"`
	AverageTime   time.Duration `json:"average_time_ns"`
}

// Summary is the immutable snapshot produced at Close time (spec §4.7),
// consumed by document writers and by the console/JSON summary renderer.
type Summary struct {
	FilesDiscovered int64                     `json:"files_discovered"`
	FilesAdmitted   int64                     `json:"files_admitted"`
	FindingsEmitted int64                     `json:"findings_emitted"`
	Whitelisted     int64                     `json:"whitelisted"`
	Deduplicated    int64                     `json:"deduplicated"`
	Errors          map[string]int64          `json:"errors"`
	ExtensionHist   map[string]int64          `json:"extension_histogram"`
	Engines         []EngineStat              `json:"engines"`
	StartTime       time.Time                 `json:"start_time"`
	EndTime         time.Time                 `json:"end_time"`
	Duration        time.Duration             `json:"duration_ns"`
	FilesPerSecond  float64                   `json:"files_per_second"`
}

// Snapshot takes an immutable copy of the current counters. Call after
// Close for the final run summary.
func (s *Statistics) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.end
	if end.IsZero() {
		end = time.Now()
	}
	duration := end.Sub(s.start)

	errOut := make(map[string]int64, len(s.errHist))
	for k, v := range s.errHist {
		errOut[k.String()] = v
	}

	extOut := make(map[string]int64, len(s.extHist))
	for k, v := range s.extHist {
		extOut[k] = v
	}

	var engines []EngineStat
	for name, t := range s.engineTime {
		avg := time.Duration(0)
		if t.count > 0 {
			avg = time.Duration(t.nanos / t.count)
		}
		engines = append(engines, EngineStat{
			Engine:      name,
			Invocations: t.count,
			TotalTime:   time.Duration(t.nanos),
			AverageTime: avg,
		})
	}

	filesAdmitted := atomic.LoadInt64(&s.filesAdmitted)
	fps := 0.0
	if duration > 0 {
		fps = float64(filesAdmitted) / duration.Seconds()
	}

	return Summary{
		FilesDiscovered: atomic.LoadInt64(&s.filesDiscovered),
		FilesAdmitted:   filesAdmitted,
		FindingsEmitted: atomic.LoadInt64(&s.findingsEmitted),
		Whitelisted:     atomic.LoadInt64(&s.whitelisted),
		Deduplicated:    atomic.LoadInt64(&s.deduplicated),
		Errors:          errOut,
		ExtensionHist:   extOut,
		Engines:         engines,
		StartTime:       s.start,
		EndTime:         end,
		Duration:        duration,
		FilesPerSecond:  fps,
	}
}
