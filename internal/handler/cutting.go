package handler

import (
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/runtime"
)

// CuttingHandler is a reserved workflow node. It is invoked only if
// explicitly enqueued; the analysis handler currently terminates the
// workflow without enqueueing it.
type CuttingHandler struct {
	log *logger.Logger
}

func NewCuttingHandler(baseLog *logger.Logger) *CuttingHandler {
	return &CuttingHandler{log: baseLog.With("handler", "cutting")}
}

func (h *CuttingHandler) Type() string { return string(domain.JobTypeCutting) }

func (h *CuttingHandler) Run(rc *runtime.Context) error {
	result := domain.PlaceholderResult{Message: "Cutting completed (reserved node, placeholder implementation)"}
	recordSuccess(rc, h.log, result)
	return nil
}
