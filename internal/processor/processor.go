// Package processor dispatches a claimed job to its handler and records the
// terminal outcome. It is the component that turns "a row marked running"
// into "a row marked succeeded or failed, with any successor enqueued".
package processor

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/jobserrors"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/runtime"
)

// Processor dispatches claimed jobs to the handler registered for their
// type. It keeps a process-local in-flight set as a guard against a handler
// being re-entered twice within this process; cross-process exclusivity is
// the Queue Store's job (the claim query), not this guard's.
type Processor struct {
	repo     repo.JobRepo
	registry *runtime.Registry
	log      *logger.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func New(jobRepo repo.JobRepo, registry *runtime.Registry, baseLog *logger.Logger) *Processor {
	return &Processor{
		repo:     jobRepo,
		registry: registry,
		log:      baseLog.With("component", "Processor"),
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Process handles one already-claimed (status=running) job end to end. It
// never panics or returns an error to the caller: every outcome, including a
// handler panic, ends in a terminal job transition or a logged no-op.
func (p *Processor) Process(ctx context.Context, jobID uuid.UUID) {
	if !p.enter(jobID) {
		p.log.Debug("job already processing in this process, dropping duplicate trigger", "job_id", jobID)
		return
	}
	defer p.leave(jobID)

	job, err := p.repo.GetByID(dbctx.Context{Ctx: ctx}, jobID)
	if err != nil {
		p.log.Warn("failed to re-read job before dispatch", "job_id", jobID, "error", err)
		return
	}
	if job == nil {
		p.log.Warn("job not found", "job_id", jobID)
		return
	}
	if job.Status != string(domain.JobStatusRunning) {
		p.log.Info("job no longer running, skipping", "job_id", jobID, "status", job.Status)
		return
	}

	handler, ok := p.registry.Get(job.Type)
	if !ok {
		if _, err := p.repo.MarkFailed(dbctx.Context{Ctx: ctx}, jobID, jobserrors.ErrUnknownJobType.Error()); err != nil {
			p.log.Error("failed to record unknown job type failure", "job_id", jobID, "error", err)
		}
		return
	}

	rc := runtime.NewContext(ctx, job, p.repo)
	p.run(rc, handler, jobID)
}

// run invokes the handler with panic recovery. Most handlers call
// rc.Succeed/rc.Fail themselves; a returned error or a panic is a safety net
// that still guarantees a terminal transition.
func (p *Processor) run(rc *runtime.Context, handler runtime.Handler, jobID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job handler panicked", "job_id", jobID, "job_type", handler.Type(), "panic", r)
			if _, err := p.repo.MarkFailed(dbctx.Context{Ctx: rc.Ctx}, jobID, "handler panic"); err != nil {
				p.log.Error("failed to record panic failure", "job_id", jobID, "error", err)
			}
		}
	}()

	if err := handler.Run(rc); err != nil {
		if _, failErr := p.repo.MarkFailed(dbctx.Context{Ctx: rc.Ctx}, jobID, err.Error()); failErr != nil {
			p.log.Error("failed to record handler failure", "job_id", jobID, "error", failErr)
		}
	}
}

func (p *Processor) enter(jobID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.inFlight[jobID]; exists {
		return false
	}
	p.inFlight[jobID] = struct{}{}
	return true
}

func (p *Processor) leave(jobID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, jobID)
}
