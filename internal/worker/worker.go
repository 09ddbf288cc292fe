// Package worker owns the poll loop: it claims jobs within the configured
// concurrency bound, spawns an independent task per job, and coordinates a
// graceful, timed drain on shutdown.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/processor"
	"github.com/videditor/jobrunner/internal/repo"
)

// Config holds the worker's tunable knobs, sourced from internal/config.
type Config struct {
	Concurrency  int
	PollInterval time.Duration
	DrainTimeout time.Duration
}

// Worker polls the queue store and dispatches claimed jobs to the
// Processor. Concurrency is enforced by a counting semaphore sized to
// Concurrency, which also sizes each poll's claim budget; the in-flight set
// it also tracks is reported by the health endpoint and watched by Stop's
// drain.
type Worker struct {
	jobs      repo.JobRepo
	processor *processor.Processor
	log       *logger.Logger

	concurrency  int64
	pollInterval time.Duration
	drainTimeout time.Duration

	sem *semaphore.Weighted

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	stopOnce    sync.Once
	stopPolling chan struct{}
	pollDone    chan struct{}
}

func New(jobs repo.JobRepo, proc *processor.Processor, cfg Config, baseLog *logger.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 30 * time.Second
	}
	return &Worker{
		jobs:         jobs,
		processor:    proc,
		log:          baseLog.With("component", "Worker"),
		concurrency:  int64(cfg.Concurrency),
		pollInterval: cfg.PollInterval,
		drainTimeout: cfg.DrainTimeout,
		sem:          semaphore.NewWeighted(int64(cfg.Concurrency)),
		inFlight:     make(map[uuid.UUID]struct{}),
	}
}

// ActiveJobs returns the current in-flight count, for the health endpoint.
func (w *Worker) ActiveJobs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight)
}

// Concurrency returns the configured max in-flight bound.
func (w *Worker) Concurrency() int { return int(w.concurrency) }

// Start runs one poll immediately, then polls every pollInterval until ctx
// is canceled or Stop is called. It returns immediately; polling happens on
// its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.stopPolling = make(chan struct{})
	w.pollDone = make(chan struct{})
	go w.runLoop(ctx)
}

func (w *Worker) runLoop(ctx context.Context) {
	defer close(w.pollDone)

	w.poll(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopPolling:
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll claims up to the available concurrency budget and spawns one task
// per claimed job. Any claim error is logged; the loop continues on the
// next tick rather than retrying within this call.
func (w *Worker) poll(ctx context.Context) {
	var available int64
	for available < w.concurrency && w.sem.TryAcquire(1) {
		available++
	}
	if available == 0 {
		return
	}

	jobs, err := w.jobs.Claim(dbctx.Context{Ctx: ctx}, int(available))
	if err != nil {
		w.log.Warn("claim failed", "error", err)
		w.sem.Release(available)
		return
	}

	if int64(len(jobs)) < available {
		w.sem.Release(available - int64(len(jobs)))
	}

	for _, job := range jobs {
		w.spawn(ctx, job)
	}
}

func (w *Worker) spawn(ctx context.Context, job *domain.Job) {
	w.mu.Lock()
	w.inFlight[job.ID] = struct{}{}
	w.mu.Unlock()

	// Detach from the poll loop's context: a shutdown signal cancels ctx the
	// instant it fires, but in-flight work must survive until Stop's drain
	// deadline, not die the moment polling stops.
	jobCtx := context.WithoutCancel(ctx)

	go func() {
		defer w.sem.Release(1)
		defer func() {
			w.mu.Lock()
			delete(w.inFlight, job.ID)
			w.mu.Unlock()
		}()
		// Never propagate a panic or error out of this task back to the poll loop.
		w.processor.Process(jobCtx, job.ID)
	}()
}

// Stop halts further claiming and waits up to the configured drain timeout
// for in-flight jobs to finish. Idempotent: duplicate calls are no-ops.
// Jobs still running after the timeout are abandoned in status running; an
// external reaper is responsible for their recovery (see SPEC_FULL.md §9).
func (w *Worker) Stop(ctx context.Context) {
	if w.stopPolling == nil {
		return
	}
	w.stopOnce.Do(func() { close(w.stopPolling) })
	<-w.pollDone

	deadline := time.Now().Add(w.drainTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if w.ActiveJobs() == 0 {
			w.log.Info("all jobs completed, worker stopped")
			return
		}
		if time.Now().After(deadline) {
			w.log.Warn("stopping worker with active jobs still running", "active_jobs", w.ActiveJobs())
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
