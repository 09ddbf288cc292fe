package handler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTempFileCleanupRemovesFile(t *testing.T) {
	jobID := uuid.New()
	path, cleanup, err := newTempFile(jobID, ".mp4", newTestLogger(t))
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "temp file must exist until cleanup")

	cleanup()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "temp file must be removed by cleanup")

	assert.NotPanics(t, cleanup, "cleanup must tolerate being called twice")
}

func TestNewTempFilePathsAreUniquePerCall(t *testing.T) {
	jobID := uuid.New()
	a, cleanupA, err := newTempFile(jobID, ".jpg", newTestLogger(t))
	require.NoError(t, err)
	defer cleanupA()
	b, cleanupB, err := newTempFile(jobID, ".jpg", newTestLogger(t))
	require.NoError(t, err)
	defer cleanupB()

	assert.NotEqual(t, a, b)
}

// jobTempFiles lists temp files still on disk for the given job id, for
// asserting the no-leftovers guarantee after a handler run.
func jobTempFiles(t *testing.T, jobID uuid.UUID) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "jobrunner-"+jobID.String()+"-*"))
	require.NoError(t, err)
	return matches
}
