package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/processor"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/runtime"
)

// blockingJobRepo hands out jobs from a fixed backlog and blocks each
// claimed job's handler until released, so tests can observe the in-flight
// bound under real concurrency.
type blockingJobRepo struct {
	mu      sync.Mutex
	backlog []*domain.Job
	byID    map[uuid.UUID]*domain.Job

	maxObservedInFlight int64
	currentInFlight     int64

	release chan struct{}
}

func newBlockingJobRepo(n int) *blockingJobRepo {
	r := &blockingJobRepo{byID: make(map[uuid.UUID]*domain.Job), release: make(chan struct{})}
	for i := 0; i < n; i++ {
		job := &domain.Job{ID: uuid.New(), Type: "slow", Status: string(domain.JobStatusQueued)}
		r.backlog = append(r.backlog, job)
		r.byID[job.ID] = job
	}
	return r
}

func (r *blockingJobRepo) Claim(dbc dbctx.Context, n int) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.backlog) {
		n = len(r.backlog)
	}
	claimed := r.backlog[:n]
	r.backlog = r.backlog[n:]
	for _, job := range claimed {
		job.Status = string(domain.JobStatusRunning)
	}
	return claimed, nil
}

func (r *blockingJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *blockingJobRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Status = string(domain.JobStatusSucceeded)
	return true, nil
}

func (r *blockingJobRepo) MarkFailed(ctx dbctx.Context, id uuid.UUID, errorMessage string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Status = string(domain.JobStatusFailed)
	return true, nil
}

func (r *blockingJobRepo) EnqueueSuccessor(dbc dbctx.Context, job *domain.Job) (*domain.Job, error) {
	return job, nil
}

var _ repo.JobRepo = (*blockingJobRepo)(nil)

type blockingHandler struct {
	repo *blockingJobRepo

	sawCanceledCtx atomic.Bool
}

func (h *blockingHandler) Type() string { return "slow" }

func (h *blockingHandler) Run(rc *runtime.Context) error {
	cur := atomic.AddInt64(&h.repo.currentInFlight, 1)
	for {
		observed := atomic.LoadInt64(&h.repo.maxObservedInFlight)
		if cur <= observed || atomic.CompareAndSwapInt64(&h.repo.maxObservedInFlight, observed, cur) {
			break
		}
	}
	<-h.repo.release
	atomic.AddInt64(&h.repo.currentInFlight, -1)
	if rc.Ctx.Err() != nil {
		h.sawCanceledCtx.Store(true)
	}
	_, err := rc.Succeed(nil)
	return err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func TestWorker_NeverExceedsConfiguredConcurrency(t *testing.T) {
	const concurrency = 3
	jobRepo := newBlockingJobRepo(10)

	registry := runtime.NewRegistry()
	require.NoError(t, registry.Register(&blockingHandler{repo: jobRepo}))
	proc := processor.New(jobRepo, registry, testLogger(t))

	w := New(jobRepo, proc, Config{Concurrency: concurrency, PollInterval: 10 * time.Millisecond}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	assert.Eventually(t, func() bool {
		return w.ActiveJobs() == concurrency
	}, time.Second, 5*time.Millisecond)

	close(jobRepo.release)

	assert.Eventually(t, func() bool {
		return w.ActiveJobs() == 0 && len(jobRepo.backlog) == 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, atomic.LoadInt64(&jobRepo.maxObservedInFlight), int64(concurrency))
}

func TestWorker_StopDrainsInFlightJobs(t *testing.T) {
	jobRepo := newBlockingJobRepo(2)
	registry := runtime.NewRegistry()
	require.NoError(t, registry.Register(&blockingHandler{repo: jobRepo}))
	proc := processor.New(jobRepo, registry, testLogger(t))

	w := New(jobRepo, proc, Config{Concurrency: 2, PollInterval: 10 * time.Millisecond, DrainTimeout: time.Second}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	assert.Eventually(t, func() bool { return w.ActiveJobs() == 2 }, time.Second, 5*time.Millisecond)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(jobRepo.release)
	}()

	stopped := make(chan struct{})
	go func() {
		w.Stop(context.Background())
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after jobs completed")
	}
	assert.Equal(t, 0, w.ActiveJobs())
}

// TestWorker_InFlightJobsSurviveStartContextCancellation matches S4: a
// shutdown signal cancels the context passed to Start, but jobs already
// spawned must still reach succeeded rather than having their own
// collaborator calls canceled mid-flight.
func TestWorker_InFlightJobsSurviveStartContextCancellation(t *testing.T) {
	jobRepo := newBlockingJobRepo(2)
	handler := &blockingHandler{repo: jobRepo}
	registry := runtime.NewRegistry()
	require.NoError(t, registry.Register(handler))
	proc := processor.New(jobRepo, registry, testLogger(t))

	w := New(jobRepo, proc, Config{Concurrency: 2, PollInterval: 10 * time.Millisecond, DrainTimeout: time.Second}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool { return w.ActiveJobs() == 2 }, time.Second, 5*time.Millisecond)

	// Simulate the signal firing: the Start context is canceled at the same
	// moment Stop begins its drain, as cmd/jobrunner/main.go does on SIGTERM.
	cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(jobRepo.release)
	}()

	stopped := make(chan struct{})
	go func() {
		w.Stop(context.Background())
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after jobs completed")
	}

	assert.False(t, handler.sawCanceledCtx.Load(), "in-flight job context must not be canceled by the poll loop's own shutdown context")
	for _, job := range jobRepo.byID {
		assert.Equal(t, string(domain.JobStatusSucceeded), job.Status)
	}
}
