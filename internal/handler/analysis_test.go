package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/videditor/jobrunner/internal/collab"
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/runtime"
)

func TestAnalysisHandler_IsolatesPerClipExtractionFailure(t *testing.T) {
	store := newFakeObjectStore()
	media := newFakeMedia(300.0)

	projectID := uuid.New()
	projects := &fakeProjectRepo{project: &domain.Project{
		ID:           projectID,
		UserID:       "user-1",
		SourceBucket: "uploads",
	}}

	transcriptions := newFakeTranscriptionRepo()
	_, err := transcriptions.Create(dbctx.Context{Ctx: context.Background()}, &domain.Transcription{
		ProjectID: projectID,
		Text:      "full transcript",
		Segments: datatypes.NewJSONType([]domain.Segment{
			{Start: 0, End: 10, Text: "hello"},
		}),
	})
	require.NoError(t, err)

	textgen := &fakeTextGenerator{suggestions: []collab.ShortSuggestion{
		{SegmentID: "1", StartTime: 0, EndTime: 10, Transcription: "clip one"},
		{SegmentID: "2", StartTime: 20, EndTime: 30, Transcription: "clip two"},
	}}

	shorts := newFakeShortRepo()
	h := NewAnalysisHandler(store, media, textgen, projects, transcriptions, shorts, "uploads", newTestLogger(t))

	payload, err := json.Marshal(domain.AnalysisPayload{ProjectID: projectID.String()})
	require.NoError(t, err)
	job := &domain.Job{ID: uuid.New(), ProjectID: &projectID, Type: h.Type(), Payload: datatypes.JSON(payload)}
	jobRepo := &fakeJobRepo{}
	rc := runtime.NewContext(context.Background(), job, jobRepo)

	// Make the second suggestion's clip extraction fail outright; this is
	// simpler to target deterministically than guessing generated object keys.
	media.failExtractClipForSecondCall = true

	err = h.Run(rc)
	require.NoError(t, err)
	assert.True(t, jobRepo.succeeded, "a per-clip failure must not fail the enclosing job")

	require.Len(t, shorts.created, 2)
	okCount, errCount := 0, 0
	for _, s := range shorts.created {
		if shorts.completed[s.ID] {
			okCount++
		}
		if _, failed := shorts.errored[s.ID]; failed {
			errCount++
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, errCount)

	result, ok := jobRepo.succeedResult.(domain.AnalysisResult)
	require.True(t, ok, "expected a domain.AnalysisResult to be persisted")
	assert.Equal(t, len(textgen.suggestions), result.ShortsCreated,
		"ShortsCreated must count every suggestion attempted, not just the ones that completed")

	assert.Empty(t, jobTempFiles(t, job.ID), "no temp files may remain after the job terminates")
}

func TestAnalysisHandler_NoTranscriptionFailsJob(t *testing.T) {
	store := newFakeObjectStore()
	media := newFakeMedia(300.0)
	projectID := uuid.New()
	projects := &fakeProjectRepo{project: &domain.Project{ID: projectID}}
	transcriptions := newFakeTranscriptionRepo()
	shorts := newFakeShortRepo()
	textgen := &fakeTextGenerator{}

	h := NewAnalysisHandler(store, media, textgen, projects, transcriptions, shorts, "uploads", newTestLogger(t))

	job := &domain.Job{ID: uuid.New(), ProjectID: &projectID, Type: h.Type(), Payload: datatypes.JSON(`{}`)}
	rc := runtime.NewContext(context.Background(), job, &fakeJobRepo{})

	err := h.Run(rc)
	assert.Error(t, err)
}

var errClipExtraction = errors.New("simulated extraction failure")
