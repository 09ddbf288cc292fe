package runtime

import (
	"context"
	"encoding/json"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/repo"
)

// Context is the execution capability handed to a single claimed job. It is
// the only sanctioned way a handler reports progress or terminates
// execution; handlers reach the job repository only through it (Succeed,
// Fail, and Repo for successor enqueues).
type Context struct {
	Ctx  context.Context
	Job  *domain.Job
	Repo repo.JobRepo

	payload map[string]any
}

// NewContext constructs a runtime.Context for a claimed job execution. It
// eagerly decodes the raw payload JSON so handlers that want ad hoc field
// access can use Payload(); handlers that need type-checked fields should
// unmarshal Job.Payload into the tagged payload struct for their job type instead.
func NewContext(ctx context.Context, job *domain.Job, jobRepo repo.JobRepo) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{Ctx: ctx, Job: job, Repo: jobRepo}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload returns the decoded payload map; never nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// Succeed persists the terminal success transition and the handler result.
// A stale transition (job no longer running, e.g. externally canceled) is
// logged by the caller, not raised here.
func (c *Context) Succeed(result any) (bool, error) {
	return c.Repo.MarkSucceeded(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, result)
}

// Fail persists the terminal failure transition with the given message, in
// its own fresh transaction (see repo.JobRepo.MarkFailed).
func (c *Context) Fail(message string) (bool, error) {
	return c.Repo.MarkFailed(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, message)
}
