package handler

import (
	"github.com/videditor/jobrunner/internal/jobserrors"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/runtime"
)

// recordSuccess persists the terminal success transition. A stale
// transition (the job was moved out of running while the handler worked,
// e.g. an operator cancel) or a persistence failure is logged, never
// re-raised.
func recordSuccess(rc *runtime.Context, log *logger.Logger, result any) {
	ok, err := rc.Succeed(result)
	switch {
	case err != nil:
		log.Warn("failed to persist success", "job_id", rc.Job.ID, "error", err)
	case !ok:
		log.Info("success not recorded", "job_id", rc.Job.ID, "reason", jobserrors.ErrStaleTransition)
	}
}
