// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/observability"
)

// Screener runs the per-record pipeline. Each worker owns one, so
// implementations need not be safe for concurrent use.
type Screener interface {
	Screen(rec detector.Record) (detector.ScreenResult, error)
}

// ScreenerFactory builds the screener owned by one worker
type ScreenerFactory func(workerID int) (Screener, error)

// WorkerPool screens one batch of records across a fixed set of workers
type WorkerPool struct {
	screeners []Screener
	jobs      chan *Job
	results   chan *Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	observer  *observability.StandardObserver
}

// Job is one record and its position in the batch
type Job struct {
	Index  int
	Record detector.Record
}

// Result is the outcome of one job
type Result struct {
	Index     int
	RecordRef string
	Screen    detector.ScreenResult
	Err       error
	Duration  time.Duration
	WorkerID  int
}

// NewWorkerPool creates a pool with one worker per screener
func NewWorkerPool(ctx context.Context, screeners []Screener, observer *observability.StandardObserver) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	workers := len(screeners)

	return &WorkerPool{
		screeners: screeners,
		jobs:      make(chan *Job, workers*2),
		results:   make(chan *Result, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		observer:  observer,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := range wp.screeners {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for the workers and releases the pool
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue. It returns false once the pool's
// context is done.
func (wp *WorkerPool) Submit(job *Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob screens one record. A panic escaping the screener fails only
// that record.
func (wp *WorkerPool) processJob(job *Job, workerID int) (result *Result) {
	start := time.Now()
	result = &Result{Index: job.Index, RecordRef: job.Record.ID, WorkerID: workerID}

	var finishTiming func(bool, map[string]interface{})
	if wp.observer.Enabled() {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", job.Record.ID)
	}

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("parallel: worker %d panicked on record %q: %v", workerID, job.Record.ID, r)
		}
		result.Duration = time.Since(start)
		if finishTiming != nil {
			finishTiming(result.Err == nil, map[string]interface{}{
				"worker_id": workerID,
				"signals":   len(result.Screen.Detection.Signals),
				"had_error": result.Err != nil,
			})
		}
	}()

	result.Screen, result.Err = wp.screeners[workerID].Screen(job.Record)
	return result
}
