package handler

import (
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/logger"
	"github.com/videditor/jobrunner/internal/runtime"
)

// DeliveryHandler is a reserved workflow node. Unlike every other job type
// it does not require projectId.
type DeliveryHandler struct {
	log *logger.Logger
}

func NewDeliveryHandler(baseLog *logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{log: baseLog.With("handler", "delivery")}
}

func (h *DeliveryHandler) Type() string { return string(domain.JobTypeDelivery) }

func (h *DeliveryHandler) Run(rc *runtime.Context) error {
	result := domain.PlaceholderResult{Message: "Delivery completed (reserved node, placeholder implementation)"}
	recordSuccess(rc, h.log, result)
	return nil
}
