// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/piiscan/internal/errors"
)

func TestStatistics_BasicCounters(t *testing.T) {
	s := New()
	s.IncDiscovered()
	s.IncDiscovered()
	s.IncAdmitted(".txt")
	s.IncFindingsEmitted()
	s.IncWhitelisted()
	s.IncDeduplicated()
	s.IncError(errors.KindFileTooLarge)
	s.Close()

	sum := s.Snapshot()
	assert.EqualValues(t, 2, sum.FilesDiscovered)
	assert.EqualValues(t, 1, sum.FilesAdmitted)
	assert.EqualValues(t, 1, sum.FindingsEmitted)
	assert.EqualValues(t, 1, sum.Whitelisted)
	assert.EqualValues(t, 1, sum.Deduplicated)
	assert.EqualValues(t, 1, sum.Errors["FileTooLarge"])
	assert.EqualValues(t, 1, sum.ExtensionHist[".txt"])
}

func TestStatistics_CountingIdentity(t *testing.T) {
	s := New()
	// findings_admitted == findings_written + whitelisted + deduplicated
	admitted := 10
	for i := 0; i < admitted; i++ {
		s.IncAdmitted(".txt")
	}
	written, whitelisted, deduped := 6, 2, 2
	for i := 0; i < written; i++ {
		s.IncFindingsEmitted()
	}
	for i := 0; i < whitelisted; i++ {
		s.IncWhitelisted()
	}
	for i := 0; i < deduped; i++ {
		s.IncDeduplicated()
	}
	s.Close()

	sum := s.Snapshot()
	assert.EqualValues(t, sum.FindingsEmitted+sum.Whitelisted+sum.Deduplicated, written+whitelisted+deduped)
}

func TestStatistics_EngineTiming(t *testing.T) {
	s := New()
	s.RecordEngineTime("regex", 10*time.Millisecond)
	s.RecordEngineTime("regex", 30*time.Millisecond)
	s.Close()

	sum := s.Snapshot()
	var found *EngineStat
	for i := range sum.Engines {
		if sum.Engines[i].Engine == "regex" {
			found = &sum.Engines[i]
		}
	}
	if assert.NotNil(t, found) {
		assert.EqualValues(t, 2, found.Invocations)
		assert.Equal(t, 20*time.Millisecond, found.AverageTime)
	}
}

func TestStatistics_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncDiscovered()
			s.IncAdmitted(".txt")
			s.RecordEngineTime("gliner", time.Millisecond)
		}()
	}
	wg.Wait()
	s.Close()

	sum := s.Snapshot()
	assert.EqualValues(t, 100, sum.FilesDiscovered)
	assert.EqualValues(t, 100, sum.FilesAdmitted)
}

func TestStatistics_DurationAndThroughput(t *testing.T) {
	s := New()
	s.IncAdmitted(".txt")
	time.Sleep(5 * time.Millisecond)
	s.Close()

	sum := s.Snapshot()
	assert.Greater(t, sum.Duration, time.Duration(0))
	assert.Greater(t, sum.FilesPerSecond, 0.0)
}
