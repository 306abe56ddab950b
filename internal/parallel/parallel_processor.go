// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/observability"
)

// MaxDefaultWorkers caps the worker count chosen from the CPU count
const MaxDefaultWorkers = 8

// DefaultWorkers returns the CPU count capped at MaxDefaultWorkers
func DefaultWorkers() int {
	workers := runtime.NumCPU()
	if workers > MaxDefaultWorkers {
		workers = MaxDefaultWorkers
	}
	return workers
}

// ParallelProcessor screens batches of records, returning results in input
// order
type ParallelProcessor struct {
	screeners []Screener
	observer  *observability.StandardObserver

	mu    sync.Mutex
	stats ProcessingStats
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	Batches        int           `json:"batches"`
	TotalRecords   int           `json:"total_records"`
	FailedRecords  int           `json:"failed_records"`
	TotalSignals   int           `json:"total_signals"`
	TotalDuration  time.Duration `json:"total_duration_ms"`
	WorkerCount    int           `json:"worker_count"`
	AvgRecordTime  time.Duration `json:"avg_record_time_ms"`
	recordDuration time.Duration
}

// ProgressCallback is called when a record is completed
type ProgressCallback func(completed, total int, recordRef string)

// NewParallelProcessor builds workers screeners from factory. workers <= 0
// selects DefaultWorkers.
func NewParallelProcessor(workers int, factory ScreenerFactory, observer *observability.StandardObserver) (*ParallelProcessor, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	screeners := make([]Screener, workers)
	for i := range screeners {
		s, err := factory(i)
		if err != nil {
			return nil, fmt.Errorf("parallel: building screener for worker %d: %w", i, err)
		}
		screeners[i] = s
	}
	return &ParallelProcessor{
		screeners: screeners,
		observer:  observer,
		stats:     ProcessingStats{WorkerCount: workers},
	}, nil
}

// Workers returns the worker count
func (pp *ParallelProcessor) Workers() int {
	return len(pp.screeners)
}

// ProcessBatch screens records in parallel. The returned slice is indexed
// like records. Cancelling ctx abandons the batch and returns ctx.Err().
func (pp *ParallelProcessor) ProcessBatch(ctx context.Context, records []detector.Record, progress ProgressCallback) ([]*Result, error) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if pp.observer.Enabled() {
		finishTiming = pp.observer.StartTiming("parallel_processor", "process_batch", "batch")
	}

	pool := NewWorkerPool(ctx, pp.screeners, pp.observer)
	pool.Start()
	defer pool.Stop()

	// Submit jobs in a separate goroutine to prevent deadlock
	go func() {
		defer pool.Close()
		for i, rec := range records {
			if !pool.Submit(&Job{Index: i, Record: rec}) {
				return
			}
		}
	}()

	ordered := make([]*Result, len(records))
	failed, signals := 0, 0
	var recordDuration time.Duration
	for completed := 0; completed < len(records); completed++ {
		var result *Result
		select {
		case result = <-pool.Results():
		case <-ctx.Done():
			if finishTiming != nil {
				finishTiming(false, map[string]interface{}{"completed": completed})
			}
			return nil, ctx.Err()
		}

		ordered[result.Index] = result
		if result.Err != nil {
			failed++
		} else {
			signals += len(result.Screen.Detection.Signals)
		}
		recordDuration += result.Duration

		if progress != nil {
			progress(completed+1, len(records), result.RecordRef)
		}
	}

	elapsed := time.Since(start)
	pp.mu.Lock()
	pp.stats.Batches++
	pp.stats.TotalRecords += len(records)
	pp.stats.FailedRecords += failed
	pp.stats.TotalSignals += signals
	pp.stats.TotalDuration += elapsed
	pp.stats.recordDuration += recordDuration
	pp.stats.AvgRecordTime = pp.stats.recordDuration / time.Duration(max(pp.stats.TotalRecords, 1))
	pp.mu.Unlock()

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{
			"records":      len(records),
			"failed":       failed,
			"signals":      signals,
			"worker_count": len(pp.screeners),
			"duration_ms":  elapsed.Milliseconds(),
		})
	}

	return ordered, nil
}

// Stats returns cumulative statistics over every batch
func (pp *ParallelProcessor) Stats() ProcessingStats {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.stats
}
