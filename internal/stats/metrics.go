// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus counters/histograms that mirror
// Statistics' own counters, for runs that expose an optional
// `/metrics` endpoint alongside the in-process Summary snapshot
// (SPEC_FULL.md's DOMAIN STACK wiring for
// github.com/prometheus/client_golang). Grounded on
// pkg/ingestion/metrics.go's metricsIngestion shape — a lazily-built
// counter/histogram set registered once — but scoped to one
// Statistics instance with its own Registry instead of the process
// global, since a scan run's Statistics can be constructed more than
// once within a test binary.
type metrics struct {
	registry *prometheus.Registry

	filesDiscovered prometheus.Counter
	filesAdmitted   prometheus.Counter
	findingsEmitted prometheus.Counter
	whitelisted     prometheus.Counter
	deduplicated    prometheus.Counter
	errorsByKind    *prometheus.CounterVec
	engineDuration  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}

	m.filesDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "piiscan_files_discovered_total", Help: "Files seen by the walk, before validation.",
	})
	m.filesAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "piiscan_files_admitted_total", Help: "Files that passed validation and were scanned.",
	})
	m.findingsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "piiscan_findings_emitted_total", Help: "Findings written after whitelist and dedup.",
	})
	m.whitelisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "piiscan_findings_whitelisted_total", Help: "Findings dropped by the whitelist.",
	})
	m.deduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "piiscan_findings_deduplicated_total", Help: "Findings dropped as duplicates.",
	})
	m.errorsByKind = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "piiscan_errors_total", Help: "Recoverable errors by kind.",
	}, []string{"kind"})
	m.engineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "piiscan_engine_duration_seconds",
		Help:    "Per-invocation detection engine latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine"})

	m.registry.MustRegister(
		m.filesDiscovered, m.filesAdmitted, m.findingsEmitted,
		m.whitelisted, m.deduplicated, m.errorsByKind, m.engineDuration,
	)
	return m
}

// Handler returns an http.Handler serving this Statistics instance's
// metrics in Prometheus exposition format. Entirely optional: nothing
// in the scan pipeline consults it, and a run that never mounts it
// loses nothing but the live `/metrics` view — the Summary snapshot
// remains the source of truth.
func (s *Statistics) Handler() http.Handler {
	return promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})
}
