package handler

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/videditor/jobrunner/internal/pkg/logger"
)

// newTempFile creates a unique scoped temporary file (job id + random
// component baked into the name) and returns its path plus a cleanup
// closure. Cleanup failures are logged as warnings and never re-thrown, so
// every handler can defer cleanup() immediately after acquiring the path
// regardless of which exit path is taken.
func newTempFile(jobID uuid.UUID, suffix string, log *logger.Logger) (path string, cleanup func(), err error) {
	pattern := fmt.Sprintf("jobrunner-%s-%s-*%s", jobID, uuid.New().String(), suffix)
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return tempPath, func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to clean up temp file", "path", tempPath, "error", err)
		}
	}, nil
}
